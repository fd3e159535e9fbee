package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/auth"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/infra/archive"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/infra/dedup"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/infra/metrics"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/provider"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/services/payments"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/services/settlement"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/services/transfers"
)

type PaymentService interface {
	HandleCheckoutCompleted(ctx context.Context, cc provider.CheckoutCompleted) (payments.Outcome, error)
	Capture(ctx context.Context, req payments.CaptureRequest) (payments.Outcome, error)
	CreateCheckout(ctx context.Context, req payments.CheckoutRequest) (payments.CheckoutResult, error)
}

type PayoutService interface {
	RequestPayout(ctx context.Context, req transfers.PayoutRequest) (transfers.Result, error)
}

type SettlementTracker interface {
	HandlePayoutUpdate(ctx context.Context, u provider.PayoutUpdate) (settlement.Outcome, error)
}

type OnboardingService interface {
	StartOnboarding(ctx context.Context, userID uuid.UUID) (provider.AccountLink, error)
	HandleAccountUpdated(ctx context.Context, u provider.AccountUpdate) error
}

type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// Deps wires the HTTP layer. Dedup, Archive and Metrics are optional.
type Deps struct {
	Providers   *provider.Registry
	Payments    PaymentService
	Payouts     PayoutService
	Settlement  SettlementTracker
	Onboarding  OnboardingService
	Verifier    TokenVerifier
	Dedup       dedup.Claimer
	Archive     archive.Archiver
	Metrics     *metrics.Metrics
	CORSOrigins []string
}
