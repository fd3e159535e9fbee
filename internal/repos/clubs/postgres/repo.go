package clubs

import (
	"database/sql"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/clubs"
)

type clubsRepo struct{ db *sql.DB }

var _ clubs.Clubs = (*clubsRepo)(nil)

func New(db *sql.DB) *clubsRepo {
	return &clubsRepo{db: db}
}
