package payments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/infra/pgutils"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/assignments"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/ledger"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/memberships"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/pendingpayments"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/services/bookkeeping"
)

var ErrNonPositiveAmount = errors.New("payment amount must be positive")

// errAlreadyApplied aborts a unit of work that lost the race to another delivery.
var errAlreadyApplied = errors.New("payment already applied")

type ApplyRequest struct {
	Assignment        assignments.Assignment
	AmountCents       int64
	Provider          string
	ProviderPaymentID string
	// OrderID, when set, is marked captured in the same transaction.
	OrderID    string
	OccurredAt time.Time
}

type ApplyResult struct {
	Applied           bool
	Entry             ledger.Entry
	MembershipCreated bool
}

// Processor applies a resolved payment exactly once.
type Processor struct {
	tx          pgutils.TxRunner
	assignments assignments.Assignments
	memberships memberships.Memberships
	pending     pendingpayments.PendingPayments
	ledger      ledger.Ledger
	book        *bookkeeping.Bookkeeper
	now         func() time.Time
}

func NewProcessor(
	tx pgutils.TxRunner,
	assignmentsRepo assignments.Assignments,
	membershipsRepo memberships.Memberships,
	pending pendingpayments.PendingPayments,
	ledgerRepo ledger.Ledger,
	book *bookkeeping.Bookkeeper,
) *Processor {
	return &Processor{
		tx:          tx,
		assignments: assignmentsRepo,
		memberships: membershipsRepo,
		pending:     pending,
		ledger:      ledgerRepo,
		book:        book,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ApplyPayment marks the assignment paid, makes the payer a member, credits
// the club and links the ledger entry, all in one transaction. A payment that
// was already applied returns Applied == false and no error.
func (p *Processor) ApplyPayment(ctx context.Context, req ApplyRequest) (ApplyResult, error) {
	a := req.Assignment
	if !a.IsOpen() {
		return ApplyResult{}, nil
	}

	if req.AmountCents <= 0 {
		return ApplyResult{}, ErrNonPositiveAmount
	}

	if req.ProviderPaymentID != "" {
		_, err := p.ledger.FindPayment(ctx, req.Provider, req.ProviderPaymentID)
		if err == nil {
			slog.InfoContext(ctx, "payment already booked",
				"provider", req.Provider, "payment_id", req.ProviderPaymentID)

			return ApplyResult{}, nil
		}

		if !errors.Is(err, ledger.ErrEntryNotFound) {
			return ApplyResult{}, fmt.Errorf("find payment entry: %w", err)
		}
	}

	paidAt := req.OccurredAt
	if paidAt.IsZero() {
		paidAt = p.now()
	}

	var res ApplyResult

	err := p.tx.WithTx(ctx, func(tx *sql.Tx) error {
		// 1. Claim the assignment.
		ok, err := p.assignments.MarkPaid(ctx, tx, a.ID, req.Provider, req.ProviderPaymentID, paidAt)
		if err != nil {
			return fmt.Errorf("mark paid: %w", err)
		}

		if !ok {
			return errAlreadyApplied
		}

		// 2. Paying makes the payer a member.
		created, err := p.memberships.Ensure(ctx, tx, memberships.Membership{
			ClubID:           a.ClubID,
			UserID:           a.UserID,
			Role:             memberships.RoleMember,
			JoinedViaPayment: true,
			CreatedAt:        paidAt,
		})
		if err != nil {
			return fmt.Errorf("ensure membership: %w", err)
		}

		// 3. Credit the club.
		entry, err := p.book.Post(ctx, tx, bookkeeping.Posting{
			ClubID:            a.ClubID,
			Type:              ledger.TypePayment,
			Amount:            req.AmountCents,
			ActorUserID:       uuid.NullUUID{UUID: a.UserID, Valid: true},
			EventID:           uuid.NullUUID{UUID: a.EventID, Valid: true},
			Provider:          req.Provider,
			ProviderPaymentID: req.ProviderPaymentID,
			Description:       fmt.Sprintf("Payment received via %s", req.Provider),
		})
		if err != nil {
			return err
		}

		// 4. Mark the booking applied.
		linked, err := p.assignments.LinkLedgerEntry(ctx, tx, a.ID, entry.ID)
		if err != nil {
			return fmt.Errorf("link ledger entry: %w", err)
		}

		if !linked {
			return errAlreadyApplied
		}

		if req.OrderID != "" {
			_, err = p.pending.MarkCaptured(ctx, tx, req.Provider, req.OrderID, paidAt)
			if err != nil {
				return fmt.Errorf("mark captured: %w", err)
			}
		}

		res = ApplyResult{Applied: true, Entry: entry, MembershipCreated: created}

		return nil
	})

	switch {
	case errors.Is(err, errAlreadyApplied), errors.Is(err, ledger.ErrDuplicateEntry):
		slog.InfoContext(ctx, "payment lost race to another delivery",
			"assignment_id", a.ID, "payment_id", req.ProviderPaymentID)

		return ApplyResult{}, nil
	case err != nil:
		return ApplyResult{}, fmt.Errorf("apply payment: %w", err)
	}

	slog.InfoContext(ctx, "payment applied",
		"assignment_id", a.ID,
		"club_id", a.ClubID,
		"amount_cents", req.AmountCents,
		"balance_after", res.Entry.BalanceAfter,
		"membership_created", res.MembershipCreated,
	)

	return res, nil
}

type RepairOutcome string

const (
	RepairNoop    RepairOutcome = "noop"
	RepairLinked  RepairOutcome = "linked"
	RepairBooked  RepairOutcome = "booked"
	RepairSkipped RepairOutcome = "skipped"
)

// RepairBooking closes the gap for an assignment that is paid but has no
// ledger entry linked. An existing payment entry is linked; otherwise the
// assigned amount is booked once. Assignments without a payment id are left
// for manual review.
func (p *Processor) RepairBooking(ctx context.Context, a assignments.Assignment) (RepairOutcome, error) {
	if a.PaidAt == nil || a.LedgerEntryID.Valid {
		return RepairNoop, nil
	}

	if a.PaymentID == "" || a.AssignedAmount <= 0 {
		return RepairSkipped, nil
	}

	outcome := RepairNoop

	err := p.tx.WithTx(ctx, func(tx *sql.Tx) error {
		entry, err := p.ledger.FindPayment(ctx, a.PaymentProvider, a.PaymentID)

		switch {
		case err == nil:
			outcome = RepairLinked
		case errors.Is(err, ledger.ErrEntryNotFound):
			entry, err = p.book.Post(ctx, tx, bookkeeping.Posting{
				ClubID:            a.ClubID,
				Type:              ledger.TypePayment,
				Amount:            a.AssignedAmount,
				ActorUserID:       uuid.NullUUID{UUID: a.UserID, Valid: true},
				EventID:           uuid.NullUUID{UUID: a.EventID, Valid: true},
				Provider:          a.PaymentProvider,
				ProviderPaymentID: a.PaymentID,
				Description:       fmt.Sprintf("Payment received via %s (reconciled)", a.PaymentProvider),
			})
			if err != nil {
				return err
			}

			outcome = RepairBooked
		default:
			return fmt.Errorf("find payment entry: %w", err)
		}

		linked, err := p.assignments.LinkLedgerEntry(ctx, tx, a.ID, entry.ID)
		if err != nil {
			return fmt.Errorf("link ledger entry: %w", err)
		}

		if !linked {
			return errAlreadyApplied
		}

		return nil
	})

	switch {
	case errors.Is(err, errAlreadyApplied), errors.Is(err, ledger.ErrDuplicateEntry):
		return RepairNoop, nil
	case err != nil:
		return "", fmt.Errorf("repair booking %s: %w", a.ID, err)
	}

	slog.InfoContext(ctx, "payment booking repaired", "assignment_id", a.ID, "outcome", outcome)

	return outcome, nil
}
