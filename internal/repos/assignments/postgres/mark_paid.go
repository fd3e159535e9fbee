package assignments

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func (r *assignmentsRepo) MarkPaid(
	ctx context.Context,
	tx *sql.Tx,
	id uuid.UUID,
	provider, paymentID string,
	paidAt time.Time,
) (bool, error) {
	// The WHERE clause is the duplicate-delivery guard: of two concurrent
	// deliveries only one can see paid_at IS NULL.
	res, err := tx.ExecContext(ctx, `
		UPDATE assignments
		SET paid_at = $2, payment_provider = $3, payment_id = $4
		WHERE id = $1
		  AND paid_at IS NULL
		  AND NOT is_cancelled
	`, id, paidAt, provider, paymentID)
	if err != nil {
		return false, fmt.Errorf("mark assignment paid: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	return affected == 1, nil
}
