package assignments

import (
	"database/sql"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/assignments"
)

type assignmentsRepo struct{ db *sql.DB }

var _ assignments.Assignments = (*assignmentsRepo)(nil)

func New(db *sql.DB) *assignmentsRepo {
	return &assignmentsRepo{db: db}
}

const assignmentColumns = `id, event_id, club_id, user_id, assigned_amount, is_waived, is_cancelled,
	paid_at, payment_provider, payment_id, ledger_entry_id, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAssignment(s scanner) (assignments.Assignment, error) {
	var (
		a      assignments.Assignment
		paidAt sql.NullTime
	)

	err := s.Scan(&a.ID, &a.EventID, &a.ClubID, &a.UserID, &a.AssignedAmount, &a.IsWaived, &a.IsCancelled,
		&paidAt, &a.PaymentProvider, &a.PaymentID, &a.LedgerEntryID, &a.CreatedAt)
	if err != nil {
		return assignments.Assignment{}, err
	}

	if paidAt.Valid {
		a.PaidAt = &paidAt.Time
	}

	return a, nil
}
