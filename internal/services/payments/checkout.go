package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/provider"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/assignments"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/pendingpayments"
)

var (
	ErrEventNotPublic = errors.New("event is not open to payers without an assignment")
	ErrNothingToPay   = errors.New("nothing to pay for this event")
)

type CheckoutRequest struct {
	EventID uuid.UUID
	// PayerUserID is the signed-in payer, if any.
	PayerUserID uuid.NullUUID
	PayerEmail  string
	Provider    string
	SuccessURL  string
	CancelURL   string
}

type CheckoutResult struct {
	OrderID      string
	URL          string
	AmountCents  int64
	AssignmentID uuid.NullUUID
}

// CreateCheckout opens a provider checkout for an event. A signed-in payer
// pays their own open assignment; on a public event one is created for them.
// Anonymous payers may only pay public events and are correlated later.
func (s *Service) CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutResult, error) {
	prov, err := s.providers.Get(req.Provider)
	if err != nil {
		return CheckoutResult{}, err
	}

	ev, err := s.events.Get(ctx, req.EventID)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("get event: %w", err)
	}

	md := provider.Metadata{
		EventID: uuid.NullUUID{UUID: ev.ID, Valid: true},
		ClubID:  uuid.NullUUID{UUID: ev.ClubID, Valid: true},
		UserID:  req.PayerUserID,
	}
	amount := ev.Amount

	if req.PayerUserID.Valid {
		a, err := s.payerAssignment(ctx, ev.ID, ev.ClubID, ev.Amount, ev.IsPublic, req.PayerUserID.UUID)
		if err != nil {
			return CheckoutResult{}, err
		}

		if a.IsWaived {
			return CheckoutResult{}, ErrNothingToPay
		}

		md.AssignmentID = uuid.NullUUID{UUID: a.ID, Valid: true}
		amount = a.AssignedAmount
	} else if !ev.IsPublic {
		return CheckoutResult{}, ErrEventNotPublic
	}

	if amount <= 0 {
		return CheckoutResult{}, ErrNothingToPay
	}

	co, err := prov.CreateCheckout(ctx, provider.CheckoutParams{
		AmountCents:   amount,
		Currency:      s.currency,
		Description:   ev.Title,
		CustomerEmail: req.PayerEmail,
		SuccessURL:    req.SuccessURL,
		CancelURL:     req.CancelURL,
		Metadata:      md,
	})
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("create checkout: %w", err)
	}

	if md.AssignmentID.Valid {
		err = s.pending.Create(ctx, pendingpayments.PendingPayment{
			ID:           uuid.New(),
			Provider:     prov.Name(),
			OrderID:      co.OrderID,
			AssignmentID: md.AssignmentID.UUID,
			CreatedAt:    s.now(),
		})
		if err != nil {
			return CheckoutResult{}, fmt.Errorf("record pending payment: %w", err)
		}
	}

	slog.InfoContext(ctx, "checkout created",
		"provider", prov.Name(),
		"order_id", co.OrderID,
		"event_id", ev.ID,
		"amount_cents", amount,
	)

	return CheckoutResult{
		OrderID:      co.OrderID,
		URL:          co.URL,
		AmountCents:  amount,
		AssignmentID: md.AssignmentID,
	}, nil
}

func (s *Service) payerAssignment(
	ctx context.Context,
	eventID, clubID uuid.UUID,
	amount int64,
	public bool,
	userID uuid.UUID,
) (assignments.Assignment, error) {
	a, err := s.assignments.FirstOpenForEventAndUser(ctx, eventID, userID)
	if err == nil {
		return a, nil
	}

	if !errors.Is(err, assignments.ErrAssignmentNotFound) {
		return assignments.Assignment{}, fmt.Errorf("find assignment: %w", err)
	}

	if !public {
		return assignments.Assignment{}, ErrEventNotPublic
	}

	a = assignments.Assignment{
		ID:             uuid.New(),
		EventID:        eventID,
		ClubID:         clubID,
		UserID:         userID,
		AssignedAmount: amount,
		CreatedAt:      s.now(),
	}

	err = s.assignments.Create(ctx, a)
	if err != nil {
		return assignments.Assignment{}, fmt.Errorf("self-assign: %w", err)
	}

	return a, nil
}
