package pendingpayments

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPendingPaymentNotFound = errors.New("pending payment not found")
	ErrDuplicateOrder         = errors.New("pending payment for order already exists")
)

// PendingPayment ties a provider order or checkout session to the assignment
// it was opened for. Rows are kept after capture for replay detection.
type PendingPayment struct {
	ID           uuid.UUID
	Provider     string
	OrderID      string
	AssignmentID uuid.UUID
	Captured     bool
	CreatedAt    time.Time
	CapturedAt   *time.Time
}

type PendingPayments interface {
	Create(ctx context.Context, p PendingPayment) error
	GetByOrder(ctx context.Context, provider, orderID string) (PendingPayment, error)
	// MarkCaptured flips captured once and reports whether this call did it.
	MarkCaptured(ctx context.Context, tx *sql.Tx, provider, orderID string, at time.Time) (bool, error)
}
