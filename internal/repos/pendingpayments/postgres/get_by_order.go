package pendingpayments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/pendingpayments"
)

func (r *pendingRepo) GetByOrder(ctx context.Context, provider, orderID string) (pendingpayments.PendingPayment, error) {
	var (
		p          pendingpayments.PendingPayment
		capturedAt sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, provider, order_id, assignment_id, captured, created_at, captured_at
		FROM pending_payments
		WHERE provider = $1 AND order_id = $2
	`, provider, orderID).Scan(&p.ID, &p.Provider, &p.OrderID, &p.AssignmentID, &p.Captured, &p.CreatedAt, &capturedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pendingpayments.PendingPayment{}, pendingpayments.ErrPendingPaymentNotFound
		}

		return pendingpayments.PendingPayment{}, fmt.Errorf("select pending payment: %w", err)
	}

	if capturedAt.Valid {
		p.CapturedAt = &capturedAt.Time
	}

	return p, nil
}
