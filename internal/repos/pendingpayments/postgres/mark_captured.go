package pendingpayments

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

func (r *pendingRepo) MarkCaptured(ctx context.Context, tx *sql.Tx, provider, orderID string, at time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE pending_payments
		SET captured = TRUE, captured_at = $3
		WHERE provider = $1
		  AND order_id = $2
		  AND NOT captured
	`, provider, orderID, at)
	if err != nil {
		return false, fmt.Errorf("mark pending payment captured: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	return affected == 1, nil
}
