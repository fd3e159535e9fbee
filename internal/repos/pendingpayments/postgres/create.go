package pendingpayments

import (
	"context"
	"fmt"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/infra/pgutils"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/pendingpayments"
)

func (r *pendingRepo) Create(ctx context.Context, p pendingpayments.PendingPayment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_payments (id, provider, order_id, assignment_id)
		VALUES ($1, $2, $3, $4)
	`, p.ID, p.Provider, p.OrderID, p.AssignmentID)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return pendingpayments.ErrDuplicateOrder
		}

		return fmt.Errorf("insert pending payment: %w", err)
	}

	return nil
}
