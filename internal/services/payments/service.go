// Package payments turns confirmed provider payments into paid assignments
// and club credit, and opens checkouts for members to pay.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/money"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/notify"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/provider"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/assignments"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/events"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/pendingpayments"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/users"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/services/transfers"
)

type Outcome string

const (
	OutcomeApplied    Outcome = "applied"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeUnresolved Outcome = "unresolved"
	OutcomePending    Outcome = "pending"
	OutcomeFailed     Outcome = "failed"
)

// Settler forwards freshly credited money to the club payee.
type Settler interface {
	SettleToPayee(ctx context.Context, clubID uuid.UUID, grossCents int64) (transfers.Result, error)
}

type Deps struct {
	Resolver    *Resolver
	Processor   *Processor
	Settler     Settler
	Providers   *provider.Registry
	Events      events.Events
	Assignments assignments.Assignments
	Pending     pendingpayments.PendingPayments
	Users       users.Users
	Notifier    notify.Notifier
	Currency    string
}

type Service struct {
	resolver    *Resolver
	processor   *Processor
	settler     Settler
	providers   *provider.Registry
	events      events.Events
	assignments assignments.Assignments
	pending     pendingpayments.PendingPayments
	users       users.Users
	notifier    notify.Notifier
	currency    string
	now         func() time.Time

	// bg tracks receipts and settlements still running after the ack.
	bg sync.WaitGroup
}

func NewService(d Deps) *Service {
	n := d.Notifier
	if n == nil {
		n = notify.LogNotifier{}
	}

	return &Service{
		resolver:    d.Resolver,
		processor:   d.Processor,
		settler:     d.Settler,
		providers:   d.Providers,
		events:      d.Events,
		assignments: d.Assignments,
		pending:     d.Pending,
		users:       d.Users,
		notifier:    n,
		currency:    d.Currency,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// HandleCheckoutCompleted applies a confirmed payment. Unresolved and
// duplicate deliveries are reported through the outcome, not as errors, so
// the provider stops retrying them. The receipt and the auto settlement run
// after return, detached from ctx. Settlement failures never undo the payment.
func (s *Service) HandleCheckoutCompleted(ctx context.Context, cc provider.CheckoutCompleted) (Outcome, error) {
	res, err := s.resolver.Resolve(ctx, cc)
	if err != nil {
		return "", fmt.Errorf("resolve assignment: %w", err)
	}

	if res.Replay {
		slog.InfoContext(ctx, "order already captured", "provider", cc.Provider, "order_id", cc.OrderID)

		return OutcomeDuplicate, nil
	}

	if !res.Found() {
		slog.WarnContext(ctx, "payment not correlated to an open assignment",
			"provider", cc.Provider,
			"order_id", cc.OrderID,
			"payment_id", cc.PaymentID,
			"event_id", cc.Metadata.EventID.UUID,
			"amount_cents", cc.AmountCents,
		)

		return OutcomeUnresolved, nil
	}

	amount := cc.AmountCents
	if amount <= 0 {
		amount = res.Assignment.AssignedAmount
	}

	applied, err := s.processor.ApplyPayment(ctx, ApplyRequest{
		Assignment:        res.Assignment,
		AmountCents:       amount,
		Provider:          cc.Provider,
		ProviderPaymentID: cc.PaymentID,
		OrderID:           cc.OrderID,
		OccurredAt:        cc.OccurredAt,
	})
	if err != nil {
		return "", err
	}

	if !applied.Applied {
		return OutcomeDuplicate, nil
	}

	slog.InfoContext(ctx, "payment correlated", "assignment_id", res.Assignment.ID, "step", res.Step)

	bgCtx := context.WithoutCancel(ctx)

	s.bg.Add(1)

	go func() {
		defer s.bg.Done()

		s.sendReceipt(bgCtx, res.Assignment.UserID, amount)
		s.settle(bgCtx, res.Assignment.ClubID, amount)
	}()

	return OutcomeApplied, nil
}

// Wait blocks until background receipts and settlements finish or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		s.bg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) settle(ctx context.Context, clubID uuid.UUID, gross int64) {
	if s.settler == nil {
		return
	}

	res, err := s.settler.SettleToPayee(ctx, clubID, gross)

	switch {
	case errors.Is(err, transfers.ErrNoPayee), errors.Is(err, transfers.ErrPayeeNotOnboarded):
		slog.InfoContext(ctx, "auto settlement skipped", "club_id", clubID, "reason", transfers.Reason(err))
	case errors.Is(err, transfers.ErrPayoutInDoubt), errors.Is(err, transfers.ErrTransferUnknown):
		slog.WarnContext(ctx, "auto settlement in doubt", "club_id", clubID, "reason", transfers.Reason(err), "err", err)
	case err != nil:
		slog.ErrorContext(ctx, "auto settlement failed", "club_id", clubID, "gross_cents", gross, "err", err)
	default:
		slog.InfoContext(ctx, "auto settlement sent",
			"club_id", clubID,
			"payout_id", res.Payout.ID,
			"fee_cents", res.Fee,
			"net_cents", res.Net,
		)
	}
}

func (s *Service) sendReceipt(ctx context.Context, userID uuid.UUID, amount int64) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		slog.WarnContext(ctx, "receipt skipped", "user_id", userID, "err", err)

		return
	}

	err = s.notifier.Notify(ctx, notify.Message{
		ToName:  u.Name,
		ToEmail: u.Email,
		Subject: "Payment received",
		Text:    fmt.Sprintf("We received your payment of %s. Thank you!", money.Format(amount)),
	})
	if err != nil {
		slog.WarnContext(ctx, "receipt not delivered", "user_id", userID, "err", err)
	}
}

type CaptureRequest struct {
	Provider string
	OrderID  string
	// EventID helps correlation when the provider returns no metadata.
	EventID uuid.NullUUID
}

// Capture asks the provider for the state of an order and applies it when
// completed. An unreachable provider yields OutcomePending: the order may
// still have been paid.
func (s *Service) Capture(ctx context.Context, req CaptureRequest) (Outcome, error) {
	if req.OrderID == "" {
		return "", errors.New("order id is required")
	}

	prov, err := s.providers.Get(req.Provider)
	if err != nil {
		return "", err
	}

	res, err := prov.CaptureOrGetStatus(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, provider.ErrOutcomeUnknown) {
			slog.WarnContext(ctx, "capture outcome unknown", "provider", prov.Name(), "order_id", req.OrderID, "err", err)

			return OutcomePending, nil
		}

		return "", fmt.Errorf("capture order: %w", err)
	}

	switch res.Status {
	case provider.CaptureCompleted:
	case provider.CaptureFailed:
		return OutcomeFailed, nil
	default:
		return OutcomePending, nil
	}

	cc := res.Checkout
	if cc.Provider == "" {
		cc.Provider = prov.Name()
	}

	if cc.OrderID == "" {
		cc.OrderID = req.OrderID
	}

	if !cc.Metadata.EventID.Valid {
		cc.Metadata.EventID = req.EventID
	}

	return s.HandleCheckoutCompleted(ctx, cc)
}
