package clubs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/clubs"
)

// LockBalance reads the balance and holds a row lock until tx ends.
func (r *clubsRepo) LockBalance(ctx context.Context, tx *sql.Tx, clubID uuid.UUID) (int64, error) {
	var balance int64

	err := tx.QueryRowContext(ctx, `
		SELECT balance
		FROM clubs
		WHERE id = $1
		FOR UPDATE
	`, clubID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, clubs.ErrClubNotFound
		}

		return 0, fmt.Errorf("lock club balance: %w", err)
	}

	return balance, nil
}
