package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/infra/pgutils"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/ledger"
)

func (r *ledgerRepo) Insert(ctx context.Context, tx *sql.Tx, e ledger.Entry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (
			id, club_id, type, amount, balance_before, balance_after,
			actor_user_id, event_id, provider, provider_payment_id, description, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, e.ID, e.ClubID, string(e.Type), e.Amount, e.BalanceBefore, e.BalanceAfter,
		e.ActorUserID, e.EventID, e.Provider, e.ProviderPaymentID, e.Description, e.CreatedAt)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return ledger.ErrDuplicateEntry
		}

		return fmt.Errorf("insert ledger entry: %w", err)
	}

	return nil
}
