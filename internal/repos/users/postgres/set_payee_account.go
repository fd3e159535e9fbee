package users

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/users"
)

func (r *usersRepo) SetPayeeAccount(ctx context.Context, userID uuid.UUID, accountID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET payee_account_id = $2, payouts_enabled = FALSE
		WHERE id = $1
	`, userID, accountID)
	if err != nil {
		return fmt.Errorf("set payee account: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return users.ErrUserNotFound
	}

	return nil
}
