package users

import (
	"database/sql"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/users"
)

type usersRepo struct{ db *sql.DB }

var _ users.Users = (*usersRepo)(nil)

func New(db *sql.DB) *usersRepo {
	return &usersRepo{db: db}
}

const userColumns = `id, email, name, payee_account_id, payouts_enabled, created_at`

func scanUser(row *sql.Row) (users.User, error) {
	var (
		u     users.User
		payee sql.NullString
	)

	err := row.Scan(&u.ID, &u.Email, &u.Name, &payee, &u.PayoutsEnabled, &u.CreatedAt)
	if err != nil {
		return users.User{}, err
	}

	u.PayeeAccountID = payee.String

	return u, nil
}
