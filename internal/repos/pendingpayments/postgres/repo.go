package pendingpayments

import (
	"database/sql"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/pendingpayments"
)

type pendingRepo struct{ db *sql.DB }

var _ pendingpayments.PendingPayments = (*pendingRepo)(nil)

func New(db *sql.DB) *pendingRepo {
	return &pendingRepo{db: db}
}
