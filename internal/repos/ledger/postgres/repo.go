package ledger

import (
	"database/sql"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/ledger"
)

type ledgerRepo struct{ db *sql.DB }

var _ ledger.Ledger = (*ledgerRepo)(nil)

func New(db *sql.DB) *ledgerRepo {
	return &ledgerRepo{db: db}
}

const entryColumns = `id, club_id, type, amount, balance_before, balance_after, actor_user_id, event_id,
	provider, provider_payment_id, description, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (ledger.Entry, error) {
	var e ledger.Entry

	err := s.Scan(&e.ID, &e.ClubID, &e.Type, &e.Amount, &e.BalanceBefore, &e.BalanceAfter, &e.ActorUserID,
		&e.EventID, &e.Provider, &e.ProviderPaymentID, &e.Description, &e.CreatedAt)

	return e, err
}
