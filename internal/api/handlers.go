package api

import (
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/infra/archive"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/infra/dedup"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/infra/metrics"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/provider"
)

type handlers struct {
	providers  *provider.Registry
	payments   PaymentService
	payouts    PayoutService
	settlement SettlementTracker
	onboarding OnboardingService
	dedup      dedup.Claimer
	archive    archive.Archiver
	metrics    *metrics.Metrics
}
