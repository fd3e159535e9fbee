package memberships

import (
	"database/sql"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/memberships"
)

type membershipsRepo struct{ db *sql.DB }

var _ memberships.Memberships = (*membershipsRepo)(nil)

func New(db *sql.DB) *membershipsRepo {
	return &membershipsRepo{db: db}
}
