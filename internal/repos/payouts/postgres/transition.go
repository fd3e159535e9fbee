package payouts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/payouts"
)

func (r *payoutsRepo) Transition(
	ctx context.Context,
	id uuid.UUID,
	from []payouts.Status,
	to payouts.Status,
	reason string,
	at time.Time,
) (bool, error) {
	allowed := make([]string, 0, len(from))
	for _, s := range from {
		allowed = append(allowed, string(s))
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE payouts
		SET status = $2,
		    failure_reason = CASE WHEN $3 <> '' THEN $3 ELSE failure_reason END,
		    settled_at = $4,
		    updated_at = now()
		WHERE id = $1
		  AND status = ANY($5)
	`, id, string(to), reason, at, allowed)
	if err != nil {
		return false, fmt.Errorf("transition payout: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	return affected == 1, nil
}
