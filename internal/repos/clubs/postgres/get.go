package clubs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/clubs"
)

func (r *clubsRepo) Get(ctx context.Context, clubID uuid.UUID) (clubs.Club, error) {
	var c clubs.Club

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, payee_user_id, balance, created_at
		FROM clubs
		WHERE id = $1
	`, clubID).Scan(&c.ID, &c.Name, &c.PayeeUserID, &c.Balance, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return clubs.Club{}, clubs.ErrClubNotFound
		}

		return clubs.Club{}, fmt.Errorf("select club: %w", err)
	}

	return c, nil
}
