package payouts

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/payouts"
)

func (r *payoutsRepo) ConfirmTransfer(ctx context.Context, tx *sql.Tx, p payouts.Payout) (bool, error) {
	var raw any
	if len(p.RawResponse) > 0 {
		raw = string(p.RawResponse)
	}

	var settledAt sql.NullTime
	if p.SettledAt != nil {
		settledAt = sql.NullTime{Time: *p.SettledAt, Valid: true}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE payouts
		SET provider_transfer_id = $2,
		    provider_batch_id = $3,
		    status = $4,
		    raw_response = COALESCE($5::jsonb, raw_response),
		    settled_at = $6,
		    updated_at = now()
		WHERE id = $1
		  AND `+inDoubtClause+`
	`, p.ID, p.ProviderTransferID, p.ProviderBatchID, string(p.Status), raw, settledAt)
	if err != nil {
		return false, fmt.Errorf("confirm payout transfer: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	return affected == 1, nil
}
