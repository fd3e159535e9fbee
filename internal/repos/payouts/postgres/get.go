package payouts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/payouts"
)

func (r *payoutsRepo) Get(ctx context.Context, id uuid.UUID) (payouts.Payout, error) {
	p, err := scanPayout(r.db.QueryRowContext(ctx,
		`SELECT `+payoutColumns+` FROM payouts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return payouts.Payout{}, payouts.ErrPayoutNotFound
		}

		return payouts.Payout{}, fmt.Errorf("select payout: %w", err)
	}

	return p, nil
}

func (r *payoutsRepo) GetByProviderRef(ctx context.Context, provider, ref string) (payouts.Payout, error) {
	if ref == "" {
		return payouts.Payout{}, payouts.ErrPayoutNotFound
	}

	p, err := scanPayout(r.db.QueryRowContext(ctx, `
		SELECT `+payoutColumns+`
		FROM payouts
		WHERE provider = $1
		  AND (provider_batch_id = $2 OR provider_transfer_id = $2)
		ORDER BY (provider_batch_id = $2) DESC, created_at DESC
		LIMIT 1
	`, provider, ref))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return payouts.Payout{}, payouts.ErrPayoutNotFound
		}

		return payouts.Payout{}, fmt.Errorf("select payout by provider ref: %w", err)
	}

	return p, nil
}
