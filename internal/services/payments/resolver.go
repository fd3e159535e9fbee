package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/provider"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/assignments"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/pendingpayments"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/users"
)

// Step names the correlation rule that produced a match.
type Step string

const (
	StepPendingPayment     Step = "pending_payment"
	StepMetadataAssignment Step = "metadata_assignment"
	StepMetadataEvent      Step = "metadata_event"
	StepPayerEmail         Step = "payer_email"
	StepEventFallback      Step = "event_fallback"
)

// Resolution is the open assignment a payment settles. An empty Step means
// nothing correlated; Replay means the order was already captured.
type Resolution struct {
	Assignment assignments.Assignment
	Step       Step
	Replay     bool
}

func (r Resolution) Found() bool {
	return r.Step != ""
}

type Resolver struct {
	pending     pendingpayments.PendingPayments
	assignments assignments.Assignments
	users       users.Users
}

func NewResolver(
	pending pendingpayments.PendingPayments,
	assignmentsRepo assignments.Assignments,
	usersRepo users.Users,
) *Resolver {
	return &Resolver{pending: pending, assignments: assignmentsRepo, users: usersRepo}
}

// Resolve walks the correlation rules in order and stops at the first open
// assignment. Only open assignments are ever returned, so a delivery that
// arrives after its assignment was paid finds nothing.
func (r *Resolver) Resolve(ctx context.Context, cc provider.CheckoutCompleted) (Resolution, error) {
	// 1. Pending payment recorded when the checkout was created.
	if cc.OrderID != "" {
		pp, err := r.pending.GetByOrder(ctx, cc.Provider, cc.OrderID)

		switch {
		case err == nil:
			if pp.Captured {
				return Resolution{Replay: true}, nil
			}

			res, err := r.byID(ctx, pp.AssignmentID, StepPendingPayment)
			if err != nil || res.Found() {
				return res, err
			}
		case !errors.Is(err, pendingpayments.ErrPendingPaymentNotFound):
			return Resolution{}, fmt.Errorf("get pending payment: %w", err)
		}
	}

	md := cc.Metadata

	// 2. Explicit assignment.
	if md.AssignmentID.Valid {
		res, err := r.byID(ctx, md.AssignmentID.UUID, StepMetadataAssignment)
		if err != nil || res.Found() {
			return res, err
		}
	}

	// Rules 3 to 5 all need the event.
	if !md.EventID.Valid {
		return Resolution{}, nil
	}

	eventID := md.EventID.UUID

	payer, err := r.payer(ctx, cc)
	if err != nil {
		return Resolution{}, err
	}

	// 3. Explicit event: the payer's assignment when the payer is known,
	// otherwise the first open one.
	if payer.Valid {
		res, err := r.first(r.assignments.FirstOpenForEventAndUser(ctx, eventID, payer.UUID))(StepMetadataEvent)
		if err != nil || res.Found() {
			return res, err
		}
	} else {
		res, err := r.first(r.assignments.FirstOpenForEvent(ctx, eventID))(StepMetadataEvent)
		if err != nil || res.Found() {
			return res, err
		}
	}

	// 4. Payer email, when it names someone other than the payer tried above.
	emailUser, err := r.userByEmail(ctx, cc.PayerEmail)
	if err != nil {
		return Resolution{}, err
	}

	if emailUser.Valid && emailUser != payer {
		res, err := r.first(r.assignments.FirstOpenForEventAndUser(ctx, eventID, emailUser.UUID))(StepPayerEmail)
		if err != nil || res.Found() {
			return res, err
		}
	}

	// 5. Anyone with an open assignment for the event.
	return r.first(r.assignments.FirstOpenForEvent(ctx, eventID))(StepEventFallback)
}

func (r *Resolver) byID(ctx context.Context, id uuid.UUID, step Step) (Resolution, error) {
	a, err := r.assignments.Get(ctx, id)
	if err != nil {
		if errors.Is(err, assignments.ErrAssignmentNotFound) {
			return Resolution{}, nil
		}

		return Resolution{}, fmt.Errorf("get assignment: %w", err)
	}

	if !a.IsOpen() {
		return Resolution{}, nil
	}

	return Resolution{Assignment: a, Step: step}, nil
}

func (r *Resolver) first(a assignments.Assignment, err error) func(Step) (Resolution, error) {
	return func(step Step) (Resolution, error) {
		if err != nil {
			if errors.Is(err, assignments.ErrAssignmentNotFound) {
				return Resolution{}, nil
			}

			return Resolution{}, fmt.Errorf("find open assignment: %w", err)
		}

		return Resolution{Assignment: a, Step: step}, nil
	}
}

// payer is the metadata user, or the user owning the payer email.
func (r *Resolver) payer(ctx context.Context, cc provider.CheckoutCompleted) (uuid.NullUUID, error) {
	if cc.Metadata.UserID.Valid {
		return cc.Metadata.UserID, nil
	}

	return r.userByEmail(ctx, cc.PayerEmail)
}

func (r *Resolver) userByEmail(ctx context.Context, email string) (uuid.NullUUID, error) {
	if email == "" {
		return uuid.NullUUID{}, nil
	}

	u, err := r.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return uuid.NullUUID{}, nil
		}

		return uuid.NullUUID{}, fmt.Errorf("find user by email: %w", err)
	}

	return uuid.NullUUID{UUID: u.ID, Valid: true}, nil
}
