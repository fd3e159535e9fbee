// Package memstore keeps every repository in process memory. WithTx
// serializes units of work and restores the previous state when fn fails,
// which is enough to exercise service-level invariants without Postgres.
package memstore

import (
	"context"
	"database/sql"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/assignments"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/clubs"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/events"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/ledger"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/memberships"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/payouts"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/pendingpayments"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/users"
)

type membershipKey struct {
	club uuid.UUID
	user uuid.UUID
}

type orderKey struct {
	provider string
	order    string
}

type state struct {
	clubs       map[uuid.UUID]clubs.Club
	users       map[uuid.UUID]users.User
	memberships map[membershipKey]memberships.Membership
	events      map[uuid.UUID]events.Event
	assignments map[uuid.UUID]assignments.Assignment
	pending     map[orderKey]pendingpayments.PendingPayment
	entries     []ledger.Entry
	payouts     map[uuid.UUID]payouts.Payout
	// seq orders rows that share a timestamp.
	seq map[uuid.UUID]int
}

func (s state) clone() state {
	return state{
		clubs:       maps.Clone(s.clubs),
		users:       maps.Clone(s.users),
		memberships: maps.Clone(s.memberships),
		events:      maps.Clone(s.events),
		assignments: maps.Clone(s.assignments),
		pending:     maps.Clone(s.pending),
		entries:     slices.Clone(s.entries),
		payouts:     maps.Clone(s.payouts),
		seq:         maps.Clone(s.seq),
	}
}

type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	st   state
	next int
}

func New() *Store {
	return &Store{st: state{
		clubs:       map[uuid.UUID]clubs.Club{},
		users:       map[uuid.UUID]users.User{},
		memberships: map[membershipKey]memberships.Membership{},
		events:      map[uuid.UUID]events.Event{},
		assignments: map[uuid.UUID]assignments.Assignment{},
		pending:     map[orderKey]pendingpayments.PendingPayment{},
		payouts:     map[uuid.UUID]payouts.Payout{},
		seq:         map[uuid.UUID]int{},
	}}
}

// WithTx runs fn with a nil *sql.Tx; repository methods ignore it.
func (s *Store) WithTx(_ context.Context, fn func(*sql.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	err := fn(nil)
	if err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()

		return err
	}

	return nil
}

func (s *Store) stamp(id uuid.UUID) {
	s.next++
	s.st.seq[id] = s.next
}

// Repository views. Each satisfies the matching repos interface.

func (s *Store) Clubs() clubs.Clubs {
	return clubRepo{s}
}

func (s *Store) Users() users.Users {
	return userRepo{s}
}

func (s *Store) Memberships() memberships.Memberships {
	return membershipRepo{s}
}

func (s *Store) Events() events.Events {
	return eventRepo{s}
}

func (s *Store) Assignments() assignments.Assignments {
	return assignmentRepo{s}
}

func (s *Store) Pending() pendingpayments.PendingPayments {
	return pendingRepo{s}
}

func (s *Store) Ledger() ledger.Ledger {
	return ledgerRepo{s}
}

func (s *Store) Payouts() payouts.Payouts {
	return payoutRepo{s}
}

// Seeding helpers for tests and local runs.

func (s *Store) PutClub(c clubs.Club) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.clubs[c.ID] = c
}

func (s *Store) PutUser(u users.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.users[u.ID] = u
}

func (s *Store) PutMembership(m memberships.Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.memberships[membershipKey{m.ClubID, m.UserID}] = m
}

func (s *Store) PutEvent(e events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.events[e.ID] = e
}

func (s *Store) PutAssignment(a assignments.Assignment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.assignments[a.ID] = a
	s.stamp(a.ID)
}

func (s *Store) PutPending(p pendingpayments.PendingPayment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.pending[orderKey{p.Provider, p.OrderID}] = p
}

// Entries returns a copy of the ledger of a club in insertion order.
func (s *Store) Entries(clubID uuid.UUID) []ledger.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []ledger.Entry

	for _, e := range s.st.entries {
		if e.ClubID == clubID {
			out = append(out, e)
		}
	}

	return out
}

// AllPayouts returns every payout of a club.
func (s *Store) AllPayouts(clubID uuid.UUID) []payouts.Payout {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []payouts.Payout

	for _, p := range s.st.payouts {
		if p.ClubID == clubID {
			out = append(out, p)
		}
	}

	return out
}
