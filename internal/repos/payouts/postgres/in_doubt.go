package payouts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/payouts"
)

const inDoubtClause = `status = 'pending' AND provider_transfer_id = ''`

func (r *payoutsRepo) FirstInDoubt(ctx context.Context, clubID uuid.UUID) (payouts.Payout, error) {
	p, err := scanPayout(r.db.QueryRowContext(ctx, `
		SELECT `+payoutColumns+`
		FROM payouts
		WHERE club_id = $1
		  AND `+inDoubtClause+`
		ORDER BY created_at, id
		LIMIT 1
	`, clubID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return payouts.Payout{}, payouts.ErrPayoutNotFound
		}

		return payouts.Payout{}, fmt.Errorf("select in-doubt payout: %w", err)
	}

	return p, nil
}

func (r *payoutsRepo) ListInDoubt(ctx context.Context, limit int) ([]payouts.Payout, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+payoutColumns+`
		FROM payouts
		WHERE `+inDoubtClause+`
		ORDER BY created_at, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("select in-doubt payouts: %w", err)
	}
	defer rows.Close()

	var out []payouts.Payout

	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payout: %w", err)
		}

		out = append(out, p)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate payouts: %w", err)
	}

	return out, nil
}
