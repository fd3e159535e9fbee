package users

import (
	"context"
	"fmt"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/users"
)

func (r *usersRepo) SetPayoutsEnabled(ctx context.Context, accountID string, enabled bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET payouts_enabled = $2
		WHERE payee_account_id = $1
	`, accountID, enabled)
	if err != nil {
		return fmt.Errorf("set payouts enabled: %w", err)
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
