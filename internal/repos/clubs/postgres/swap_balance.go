package clubs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/clubs"
)

// SwapBalance moves the balance from before to after. Re-applying the same
// pair once it has landed affects no rows and reports ErrBalanceChanged.
func (r *clubsRepo) SwapBalance(ctx context.Context, tx *sql.Tx, clubID uuid.UUID, before, after int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE clubs
		SET balance = $3
		WHERE id = $1
		  AND balance = $2
	`, clubID, before, after)
	if err != nil {
		return fmt.Errorf("swap club balance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return clubs.ErrBalanceChanged
	}

	return nil
}
