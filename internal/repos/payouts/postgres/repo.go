package payouts

import (
	"database/sql"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/payouts"
)

type payoutsRepo struct{ db *sql.DB }

var _ payouts.Payouts = (*payoutsRepo)(nil)

func New(db *sql.DB) *payoutsRepo {
	return &payoutsRepo{db: db}
}

const payoutColumns = `id, club_id, amount, fee, net, provider, provider_transfer_id, provider_batch_id, status,
	initiated_by, recipient_user_id, is_auto, description, raw_response, failure_reason, created_at, updated_at, settled_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPayout(row scanner) (payouts.Payout, error) {
	var (
		p         payouts.Payout
		settledAt sql.NullTime
	)

	err := row.Scan(&p.ID, &p.ClubID, &p.Amount, &p.Fee, &p.Net, &p.Provider, &p.ProviderTransferID,
		&p.ProviderBatchID, &p.Status, &p.InitiatedBy, &p.RecipientUserID, &p.Auto, &p.Description,
		&p.RawResponse, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt, &settledAt)
	if err != nil {
		return payouts.Payout{}, err
	}

	if settledAt.Valid {
		p.SettledAt = &settledAt.Time
	}

	return p, nil
}
