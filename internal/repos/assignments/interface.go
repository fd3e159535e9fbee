package assignments

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrAssignmentNotFound = errors.New("assignment not found")

// Assignment is one user's obligation to pay for one event.
type Assignment struct {
	ID              uuid.UUID
	EventID         uuid.UUID
	ClubID          uuid.UUID
	UserID          uuid.UUID
	AssignedAmount  int64
	IsWaived        bool
	IsCancelled     bool
	PaidAt          *time.Time
	PaymentProvider string
	PaymentID       string
	// LedgerEntryID is set together with PaidAt when the payment was booked.
	LedgerEntryID uuid.NullUUID
	CreatedAt     time.Time
}

// IsOpen reports whether a payment may still be applied.
func (a Assignment) IsOpen() bool {
	return a.PaidAt == nil && !a.IsCancelled
}

type Assignments interface {
	Get(ctx context.Context, id uuid.UUID) (Assignment, error)
	// FirstOpenForEvent and FirstOpenForEventAndUser return the oldest open assignment.
	FirstOpenForEvent(ctx context.Context, eventID uuid.UUID) (Assignment, error)
	FirstOpenForEventAndUser(ctx context.Context, eventID, userID uuid.UUID) (Assignment, error)
	Create(ctx context.Context, a Assignment) error
	// MarkPaid sets the payment fields only while the assignment is open and
	// reports whether this call was the one that did it.
	MarkPaid(ctx context.Context, tx *sql.Tx, id uuid.UUID, provider, paymentID string, paidAt time.Time) (bool, error)
	// LinkLedgerEntry records the booking once; later calls report false.
	LinkLedgerEntry(ctx context.Context, tx *sql.Tx, id, entryID uuid.UUID) (bool, error)
	// ListUnbooked returns paid assignments that have no ledger entry linked.
	ListUnbooked(ctx context.Context, limit int) ([]Assignment, error)
}
