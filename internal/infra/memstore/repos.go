package memstore

import (
	"cmp"
	"context"
	"database/sql"
	"slices"
	"strings"
	"time"

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

type clubRepo struct{ s *Store }

func (r clubRepo) Get(_ context.Context, clubID uuid.UUID) (clubs.Club, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.st.clubs[clubID]
	if !ok {
		return clubs.Club{}, clubs.ErrClubNotFound
	}

	return c, nil
}

func (r clubRepo) LockBalance(ctx context.Context, _ *sql.Tx, clubID uuid.UUID) (int64, error) {
	c, err := r.Get(ctx, clubID)

	return c.Balance, err
}

func (r clubRepo) SwapBalance(_ context.Context, _ *sql.Tx, clubID uuid.UUID, before, after int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.st.clubs[clubID]
	if !ok || c.Balance != before {
		return clubs.ErrBalanceChanged
	}

	c.Balance = after
	r.s.st.clubs[clubID] = c

	return nil
}

type userRepo struct{ s *Store }

func (r userRepo) Get(_ context.Context, userID uuid.UUID) (users.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.st.users[userID]
	if !ok {
		return users.User{}, users.ErrUserNotFound
	}

	return u, nil
}

func (r userRepo) FindByEmail(_ context.Context, email string) (users.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email = strings.TrimSpace(email)
	if email == "" {
		return users.User{}, users.ErrUserNotFound
	}

	var matches []users.User

	for _, u := range r.s.st.users {
		if strings.EqualFold(u.Email, email) {
			matches = append(matches, u)
		}
	}

	if len(matches) == 0 {
		return users.User{}, users.ErrUserNotFound
	}

	slices.SortFunc(matches, func(a, b users.User) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), strings.Compare(a.ID.String(), b.ID.String()))
	})

	return matches[0], nil
}

func (r userRepo) SetPayeeAccount(_ context.Context, userID uuid.UUID, accountID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.st.users[userID]
	if !ok {
		return users.ErrUserNotFound
	}

	u.PayeeAccountID = accountID
	u.PayoutsEnabled = false
	r.s.st.users[userID] = u

	return nil
}

func (r userRepo) SetPayoutsEnabled(_ context.Context, accountID string, enabled bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, u := range r.s.st.users {
		if u.PayeeAccountID == accountID && accountID != "" {
			u.PayoutsEnabled = enabled
			r.s.st.users[id] = u

			return nil
		}
	}

	return users.ErrUserNotFound
}

type membershipRepo struct{ s *Store }

func (r membershipRepo) Get(_ context.Context, clubID, userID uuid.UUID) (memberships.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.st.memberships[membershipKey{clubID, userID}]
	if !ok {
		return memberships.Membership{}, memberships.ErrMembershipNotFound
	}

	return m, nil
}

func (r membershipRepo) Ensure(_ context.Context, _ *sql.Tx, m memberships.Membership) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := membershipKey{m.ClubID, m.UserID}
	if _, ok := r.s.st.memberships[key]; ok {
		return false, nil
	}

	if m.Role == "" {
		m.Role = memberships.RoleMember
	}

	r.s.st.memberships[key] = m

	return true, nil
}

type eventRepo struct{ s *Store }

func (r eventRepo) Get(_ context.Context, eventID uuid.UUID) (events.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.st.events[eventID]
	if !ok {
		return events.Event{}, events.ErrEventNotFound
	}

	return e, nil
}

type assignmentRepo struct{ s *Store }

func (r assignmentRepo) Get(_ context.Context, id uuid.UUID) (assignments.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.st.assignments[id]
	if !ok {
		return assignments.Assignment{}, assignments.ErrAssignmentNotFound
	}

	return a, nil
}

func (r assignmentRepo) firstOpen(match func(assignments.Assignment) bool) (assignments.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var open []assignments.Assignment

	for _, a := range r.s.st.assignments {
		if a.IsOpen() && match(a) {
			open = append(open, a)
		}
	}

	if len(open) == 0 {
		return assignments.Assignment{}, assignments.ErrAssignmentNotFound
	}

	slices.SortFunc(open, func(a, b assignments.Assignment) int {
		return cmp.Compare(r.s.st.seq[a.ID], r.s.st.seq[b.ID])
	})

	return open[0], nil
}

func (r assignmentRepo) FirstOpenForEvent(_ context.Context, eventID uuid.UUID) (assignments.Assignment, error) {
	return r.firstOpen(func(a assignments.Assignment) bool { return a.EventID == eventID })
}

func (r assignmentRepo) FirstOpenForEventAndUser(_ context.Context, eventID, userID uuid.UUID) (assignments.Assignment, error) {
	return r.firstOpen(func(a assignments.Assignment) bool { return a.EventID == eventID && a.UserID == userID })
}

func (r assignmentRepo) Create(_ context.Context, a assignments.Assignment) error {
	r.s.PutAssignment(a)

	return nil
}

func (r assignmentRepo) MarkPaid(_ context.Context, _ *sql.Tx, id uuid.UUID, provider, paymentID string, paidAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.st.assignments[id]
	if !ok || !a.IsOpen() {
		return false, nil
	}

	a.PaidAt = &paidAt
	a.PaymentProvider = provider
	a.PaymentID = paymentID
	r.s.st.assignments[id] = a

	return true, nil
}

func (r assignmentRepo) LinkLedgerEntry(_ context.Context, _ *sql.Tx, id, entryID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.st.assignments[id]
	if !ok || a.PaidAt == nil || a.LedgerEntryID.Valid {
		return false, nil
	}

	a.LedgerEntryID = uuid.NullUUID{UUID: entryID, Valid: true}
	r.s.st.assignments[id] = a

	return true, nil
}

func (r assignmentRepo) ListUnbooked(_ context.Context, limit int) ([]assignments.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []assignments.Assignment

	for _, a := range r.s.st.assignments {
		if a.PaidAt != nil && !a.LedgerEntryID.Valid {
			out = append(out, a)
		}
	}

	slices.SortFunc(out, func(a, b assignments.Assignment) int {
		return a.PaidAt.Compare(*b.PaidAt)
	})

	if len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

type pendingRepo struct{ s *Store }

func (r pendingRepo) Create(_ context.Context, p pendingpayments.PendingPayment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := orderKey{p.Provider, p.OrderID}
	if _, ok := r.s.st.pending[key]; ok {
		return pendingpayments.ErrDuplicateOrder
	}

	r.s.st.pending[key] = p

	return nil
}

func (r pendingRepo) GetByOrder(_ context.Context, provider, orderID string) (pendingpayments.PendingPayment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.st.pending[orderKey{provider, orderID}]
	if !ok {
		return pendingpayments.PendingPayment{}, pendingpayments.ErrPendingPaymentNotFound
	}

	return p, nil
}

func (r pendingRepo) MarkCaptured(_ context.Context, _ *sql.Tx, provider, orderID string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := orderKey{provider, orderID}

	p, ok := r.s.st.pending[key]
	if !ok || p.Captured {
		return false, nil
	}

	p.Captured = true
	p.CapturedAt = &at
	r.s.st.pending[key] = p

	return true, nil
}

type ledgerRepo struct{ s *Store }

func (r ledgerRepo) Insert(_ context.Context, _ *sql.Tx, e ledger.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if e.Type == ledger.TypePayment && e.ProviderPaymentID != "" {
		for _, existing := range r.s.st.entries {
			if existing.Type == ledger.TypePayment &&
				existing.Provider == e.Provider &&
				existing.ProviderPaymentID == e.ProviderPaymentID {
				return ledger.ErrDuplicateEntry
			}
		}
	}

	r.s.st.entries = append(r.s.st.entries, e)

	return nil
}

func (r ledgerRepo) FindPayment(_ context.Context, provider, providerPaymentID string) (ledger.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, e := range r.s.st.entries {
		if e.Type == ledger.TypePayment && e.Provider == provider && e.ProviderPaymentID == providerPaymentID {
			return e, nil
		}
	}

	return ledger.Entry{}, ledger.ErrEntryNotFound
}

func (r ledgerRepo) ListByClub(_ context.Context, clubID uuid.UUID) ([]ledger.Entry, error) {
	return r.s.Entries(clubID), nil
}

type payoutRepo struct{ s *Store }

func (r payoutRepo) Create(_ context.Context, _ *sql.Tx, p payouts.Payout) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p.UpdatedAt = p.CreatedAt
	r.s.st.payouts[p.ID] = p

	return nil
}

func (r payoutRepo) Get(_ context.Context, id uuid.UUID) (payouts.Payout, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.st.payouts[id]
	if !ok {
		return payouts.Payout{}, payouts.ErrPayoutNotFound
	}

	return p, nil
}

func (r payoutRepo) GetByProviderRef(_ context.Context, provider, ref string) (payouts.Payout, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if ref == "" {
		return payouts.Payout{}, payouts.ErrPayoutNotFound
	}

	var byTransfer *payouts.Payout

	for _, p := range r.s.st.payouts {
		if p.Provider != provider {
			continue
		}

		if p.ProviderBatchID == ref {
			return p, nil
		}

		if p.ProviderTransferID == ref {
			byTransfer = &p
		}
	}

	if byTransfer != nil {
		return *byTransfer, nil
	}

	return payouts.Payout{}, payouts.ErrPayoutNotFound
}

func (r payoutRepo) Transition(
	_ context.Context,
	id uuid.UUID,
	from []payouts.Status,
	to payouts.Status,
	reason string,
	at time.Time,
) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.st.payouts[id]
	if !ok || !slices.Contains(from, p.Status) {
		return false, nil
	}

	p.Status = to
	if reason != "" {
		p.FailureReason = reason
	}

	p.SettledAt = &at
	p.UpdatedAt = at
	r.s.st.payouts[id] = p

	return true, nil
}

func (r payoutRepo) FirstInDoubt(ctx context.Context, clubID uuid.UUID) (payouts.Payout, error) {
	list, _ := r.ListInDoubt(ctx, 0)

	for _, p := range list {
		if p.ClubID == clubID {
			return p, nil
		}
	}

	return payouts.Payout{}, payouts.ErrPayoutNotFound
}

// ListInDoubt returns in-doubt payouts oldest first; limit <= 0 means all.
func (r payoutRepo) ListInDoubt(_ context.Context, limit int) ([]payouts.Payout, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []payouts.Payout

	for _, p := range r.s.st.payouts {
		if p.InDoubt() {
			out = append(out, p)
		}
	}

	slices.SortFunc(out, func(a, b payouts.Payout) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(a.ID.String(), b.ID.String())
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (r payoutRepo) ConfirmTransfer(_ context.Context, _ *sql.Tx, p payouts.Payout) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.st.payouts[p.ID]
	if !ok || !cur.InDoubt() {
		return false, nil
	}

	cur.ProviderTransferID = p.ProviderTransferID
	cur.ProviderBatchID = p.ProviderBatchID
	cur.Status = p.Status
	cur.SettledAt = p.SettledAt

	if len(p.RawResponse) > 0 {
		cur.RawResponse = p.RawResponse
	}

	if p.SettledAt != nil {
		cur.UpdatedAt = *p.SettledAt
	}

	r.s.st.payouts[p.ID] = cur

	return true, nil
}
