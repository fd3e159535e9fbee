package payouts

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/payouts"
)

func (r *payoutsRepo) Create(ctx context.Context, tx *sql.Tx, p payouts.Payout) error {
	var raw any
	if len(p.RawResponse) > 0 {
		raw = string(p.RawResponse)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO payouts (
			id, club_id, amount, fee, net, provider, provider_transfer_id, provider_batch_id, status,
			initiated_by, recipient_user_id, is_auto, description, raw_response, failure_reason,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)
	`, p.ID, p.ClubID, p.Amount, p.Fee, p.Net, p.Provider, p.ProviderTransferID, p.ProviderBatchID,
		string(p.Status), p.InitiatedBy, p.RecipientUserID, p.Auto, p.Description, raw, p.FailureReason,
		p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payout: %w", err)
	}

	return nil
}
