package transfers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/infra/memstore"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/money"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/provider"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/provider/providertest"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/clubs"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/ledger"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/memberships"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/payouts"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/users"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/services/bookkeeping"
)

type fixture struct {
	store   *memstore.Store
	fake    *providertest.Fake
	notices *recordedNotices
	engine  *Engine
	clubID uuid.UUID
	admin  uuid.UUID
	payee  uuid.UUID
	member uuid.UUID
}

// newFixture creates a club holding balance whose admin is also the onboarded payee.
func newFixture(t *testing.T, balance int64) fixture {
	t.Helper()

	store := memstore.New()
	f := fixture{
		store:   store,
		fake:    providertest.New(),
		notices: &recordedNotices{},
		clubID:  uuid.New(),
		admin:   uuid.New(),
		member:  uuid.New(),
	}
	f.payee = f.admin

	store.PutUser(users.User{ID: f.admin, Email: "treasurer@club.test", Name: "Tess", PayeeAccountID: "acct_1", PayoutsEnabled: true})
	store.PutUser(users.User{ID: f.member, Email: "member@club.test", Name: "Max"})
	store.PutClub(clubs.Club{ID: f.clubID, Name: "Rowing", PayeeUserID: uuid.NullUUID{UUID: f.admin, Valid: true}})
	store.PutMembership(memberships.Membership{ClubID: f.clubID, UserID: f.admin, Role: memberships.RoleAdmin})
	store.PutMembership(memberships.Membership{ClubID: f.clubID, UserID: f.member, Role: memberships.RoleMember})

	book := bookkeeping.New(store.Clubs(), store.Ledger())

	if balance != 0 {
		err := store.WithTx(t.Context(), func(tx *sql.Tx) error {
			_, err := book.Post(t.Context(), tx, bookkeeping.Posting{
				ClubID:            f.clubID,
				Type:              ledger.TypePayment,
				Amount:            balance,
				Provider:          "stripe",
				ProviderPaymentID: "pi_seed",
			})

			return err
		})
		if err != nil {
			t.Fatalf("seed balance: %v", err)
		}
	}

	f.engine = New(Deps{
		Tx:          store,
		Clubs:       store.Clubs(),
		Users:       store.Users(),
		Memberships: store.Memberships(),
		Payouts:     store.Payouts(),
		Bookkeeper:  book,
		Provider:    f.fake,
		Fees:        money.DefaultFeePolicy(),
		Currency:    "usd",
		Notices:     f.notices,
	})

	return f
}

func (f fixture) balance(t *testing.T) int64 {
	t.Helper()

	club, err := f.store.Clubs().Get(t.Context(), f.clubID)
	if err != nil {
		t.Fatalf("get club: %v", err)
	}

	var sum int64
	for _, e := range f.store.Entries(f.clubID) {
		sum += e.Effect()
	}

	if sum != club.Balance {
		t.Fatalf("ledger effects %d != balance %d", sum, club.Balance)
	}

	return club.Balance
}

func TestSettleToPayeeSplitsFee(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2500)

	res, err := f.engine.SettleToPayee(t.Context(), f.clubID, 2500)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	if res.Fee != 168 || res.Net != 2332 {
		t.Fatalf("want fee 168 net 2332, got fee %d net %d", res.Fee, res.Net)
	}

	transfers := f.fake.Transfers()
	if len(transfers) != 1 || transfers[0].AmountCents != 2332 || transfers[0].DestinationAccount != "acct_1" {
		t.Fatalf("unexpected transfers: %+v", transfers)
	}

	if got := f.balance(t); got != 0 {
		t.Fatalf("want balance 0, got %d", got)
	}

	entries := f.store.Entries(f.clubID)
	if len(entries) != 3 {
		t.Fatalf("want seed, payout and fee entries, got %d", len(entries))
	}

	debit, fee := entries[1], entries[2]
	if debit.Type != ledger.TypePayout || debit.Amount != -2500 || debit.BalanceBefore != 2500 || debit.BalanceAfter != 0 {
		t.Fatalf("unexpected payout entry: %+v", debit)
	}

	if fee.Type != ledger.TypePlatformFee || fee.Amount != 168 || fee.Effect() != 0 {
		t.Fatalf("unexpected fee entry: %+v", fee)
	}

	p, err := f.store.Payouts().Get(t.Context(), res.Payout.ID)
	if err != nil {
		t.Fatalf("get payout: %v", err)
	}

	if !p.Auto || p.Status != payouts.StatusPaid || p.ProviderBatchID == "" || p.ProviderTransferID == "" {
		t.Fatalf("unexpected payout record: %+v", p)
	}

	if got := f.notices.all(); len(got) != 1 || got[0].payoutID != p.ID || got[0].to != payouts.StatusPaid {
		t.Fatalf("want one paid notice, got %+v", got)
	}
}

func TestTransferFailureWritesNoLedger(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 10000)
	f.fake.TransferErr = errors.New("account restricted")

	res, err := f.engine.SettleToPayee(t.Context(), f.clubID, 10000)
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("want ErrTransferFailed, got %v", err)
	}

	if got := f.balance(t); got != 10000 {
		t.Fatalf("balance must be untouched, got %d", got)
	}

	if n := len(f.store.Entries(f.clubID)); n != 1 {
		t.Fatalf("want only the seed entry, got %d", n)
	}

	if len(f.fake.Payouts()) != 0 {
		t.Fatal("instant payout must not be attempted after a failed transfer")
	}

	p, err := f.store.Payouts().Get(t.Context(), res.Payout.ID)
	if err != nil {
		t.Fatalf("failed payout should be recorded: %v", err)
	}

	if p.Status != payouts.StatusFailed || p.FailureReason == "" {
		t.Fatalf("unexpected failed payout: %+v", p)
	}
}

func TestInstantPayoutFailureKeepsTransfer(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 10000)
	f.fake.PayoutErr = errors.New("instant payouts unavailable")

	res, err := f.engine.SettleToPayee(t.Context(), f.clubID, 10000)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	if res.Fee != 580 || res.Net != 9420 {
		t.Fatalf("want fee 580 net 9420, got %d %d", res.Fee, res.Net)
	}

	if res.Payout.Status != payouts.StatusPending || res.Payout.ProviderBatchID != "" {
		t.Fatalf("want pending payout without batch id, got %+v", res.Payout)
	}

	if got := f.balance(t); got != 0 {
		t.Fatalf("want balance 0, got %d", got)
	}
}

func TestSettleToPayeePreconditions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		prepare func(f fixture)
		gross   int64
		wantErr error
	}{
		{
			name: "no payee",
			prepare: func(f fixture) {
				f.store.PutClub(clubs.Club{ID: f.clubID, Name: "Rowing", Balance: 5000})
			},
			gross:   1000,
			wantErr: ErrNoPayee,
		},
		{
			name: "payee not onboarded",
			prepare: func(f fixture) {
				f.store.PutUser(users.User{ID: f.payee, Email: "treasurer@club.test", PayeeAccountID: "acct_1"})
			},
			gross:   1000,
			wantErr: ErrPayeeNotOnboarded,
		},
		{name: "zero amount", gross: 0, wantErr: ErrInvalidAmount},
		{name: "fee exceeds gross", gross: 30, wantErr: ErrInvalidAmount},
		{name: "over balance", gross: 5001, wantErr: ErrInsufficientBalance},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, 5000)
			if tc.prepare != nil {
				tc.prepare(f)
			}

			_, err := f.engine.SettleToPayee(t.Context(), f.clubID, tc.gross)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}

			if len(f.fake.Transfers()) != 0 {
				t.Fatal("provider must not be called when a precondition fails")
			}
		})
	}
}

func TestRequestPayoutPreconditionOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		req        func(f fixture) PayoutRequest
		wantErr    error
		wantReason string
	}{
		{
			name: "anonymous beats everything",
			req: func(f fixture) PayoutRequest {
				return PayoutRequest{ClubID: f.clubID, TargetUserID: f.member, AmountCents: -1}
			},
			wantErr:    ErrUnauthenticated,
			wantReason: "unauthenticated",
		},
		{
			name: "member is forbidden before amount check",
			req: func(f fixture) PayoutRequest {
				return PayoutRequest{ClubID: f.clubID, RequestedBy: valid(f.member), TargetUserID: f.member, AmountCents: 0}
			},
			wantErr:    ErrForbidden,
			wantReason: "forbidden",
		},
		{
			name: "outsider is forbidden",
			req: func(f fixture) PayoutRequest {
				return PayoutRequest{ClubID: f.clubID, RequestedBy: valid(uuid.New()), TargetUserID: f.payee, AmountCents: 100}
			},
			wantErr:    ErrForbidden,
			wantReason: "forbidden",
		},
		{
			name: "invalid amount before balance",
			req: func(f fixture) PayoutRequest {
				return PayoutRequest{ClubID: f.clubID, RequestedBy: valid(f.admin), TargetUserID: f.member, AmountCents: 0}
			},
			wantErr:    ErrInvalidAmount,
			wantReason: "invalid_amount",
		},
		{
			name: "insufficient balance before onboarding",
			req: func(f fixture) PayoutRequest {
				return PayoutRequest{ClubID: f.clubID, RequestedBy: valid(f.admin), TargetUserID: f.member, AmountCents: 5001}
			},
			wantErr:    ErrInsufficientBalance,
			wantReason: "insufficient_balance",
		},
		{
			name: "target not onboarded",
			req: func(f fixture) PayoutRequest {
				return PayoutRequest{ClubID: f.clubID, RequestedBy: valid(f.admin), TargetUserID: f.member, AmountCents: 1000}
			},
			wantErr:    ErrPayeeNotOnboarded,
			wantReason: "payee_not_onboarded",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, 5000)

			_, err := f.engine.RequestPayout(t.Context(), tc.req(f))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}

			if got := Reason(err); got != tc.wantReason {
				t.Fatalf("want reason %q, got %q", tc.wantReason, got)
			}

			if len(f.fake.Transfers()) != 0 {
				t.Fatal("provider must not be called when a precondition fails")
			}

			if got := f.balance(t); got != 5000 {
				t.Fatalf("balance changed to %d", got)
			}
		})
	}
}

func TestRequestPayoutRecordsInitiator(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 5000)

	res, err := f.engine.RequestPayout(t.Context(), PayoutRequest{
		ClubID:       f.clubID,
		RequestedBy:  valid(f.admin),
		TargetUserID: f.payee,
		AmountCents:  4000,
	})
	if err != nil {
		t.Fatalf("request payout: %v", err)
	}

	if res.Balance != 1000 || f.balance(t) != 1000 {
		t.Fatalf("want balance 1000, got %d", res.Balance)
	}

	if res.Payout.Auto || res.Payout.InitiatedBy != valid(f.admin) || res.Payout.Description != "Payout to Tess" {
		t.Fatalf("unexpected payout: %+v", res.Payout)
	}

	entries := f.store.Entries(f.clubID)
	if entries[1].ActorUserID != valid(f.admin) {
		t.Fatalf("payout entry should carry the admin, got %+v", entries[1])
	}
}

type notice struct {
	payoutID uuid.UUID
	to       payouts.Status
}

type recordedNotices struct {
	mu   sync.Mutex
	sent []notice
}

func (r *recordedNotices) NotifyStatus(_ context.Context, p payouts.Payout, to payouts.Status, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sent = append(r.sent, notice{payoutID: p.ID, to: to})
}

func (r *recordedNotices) all() []notice {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.sent)
}

func valid(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: true}
}

func TestTransferUnknownHoldsPayoutInDoubt(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 10000)
	f.fake.LoseTransferResponse = true

	req := PayoutRequest{ClubID: f.clubID, RequestedBy: valid(f.admin), TargetUserID: f.payee, AmountCents: 10000}

	res, err := f.engine.RequestPayout(t.Context(), req)
	if !errors.Is(err, ErrTransferUnknown) || Reason(err) != "transfer_unknown" {
		t.Fatalf("want transfer_unknown, got %q (%v)", Reason(err), err)
	}

	p, err := f.store.Payouts().Get(t.Context(), res.Payout.ID)
	if err != nil {
		t.Fatalf("in-doubt payout should be recorded: %v", err)
	}

	if !p.InDoubt() || p.FailureReason != "" {
		t.Fatalf("want pending payout in doubt, got %+v", p)
	}

	if got := f.balance(t); got != 10000 {
		t.Fatalf("balance must wait for the outcome, got %d", got)
	}

	if len(f.fake.Payouts()) != 0 {
		t.Fatal("instant payout must wait for a confirmed transfer")
	}

	// A retry by the admin must not send a second transfer.
	f.fake.LoseTransferResponse = false

	_, err = f.engine.RequestPayout(t.Context(), req)
	if !errors.Is(err, ErrPayoutInDoubt) || Reason(err) != "payout_in_doubt" {
		t.Fatalf("want payout_in_doubt, got %q (%v)", Reason(err), err)
	}

	_, err = f.engine.SettleToPayee(t.Context(), f.clubID, 1000)
	if !errors.Is(err, ErrPayoutInDoubt) {
		t.Fatalf("automatic settlement must also wait, got %v", err)
	}

	if n := len(f.fake.Transfers()); n != 1 {
		t.Fatalf("want one transfer call, got %d", n)
	}

	rep, err := f.engine.ResolveInDoubt(t.Context(), 0, 10)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if rep.Scanned != 1 || rep.Booked != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}

	calls := f.fake.Transfers()
	if len(calls) != 2 || calls[0].IdempotencyKey != calls[1].IdempotencyKey {
		t.Fatalf("resolution must reuse the transfer key: %+v", calls)
	}

	if f.fake.Landed() != 1 {
		t.Fatalf("want exactly one transfer landed, got %d", f.fake.Landed())
	}

	if got := f.balance(t); got != 0 {
		t.Fatalf("want balance 0 after booking, got %d", got)
	}

	p, err = f.store.Payouts().Get(t.Context(), res.Payout.ID)
	if err != nil {
		t.Fatalf("get payout: %v", err)
	}

	if p.InDoubt() || p.ProviderTransferID == "" || p.Status != payouts.StatusPaid {
		t.Fatalf("payout should be booked, got %+v", p)
	}

	// Resolving again is a no-op.
	rep, err = f.engine.ResolveInDoubt(t.Context(), 0, 10)
	if err != nil || rep.Scanned != 0 {
		t.Fatalf("second pass: %+v, %v", rep, err)
	}
}

func TestResolveInDoubtRejectedTransferFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 10000)
	f.fake.TransferErr = fmt.Errorf("create transfer: %w: timeout", provider.ErrOutcomeUnknown)

	res, err := f.engine.SettleToPayee(t.Context(), f.clubID, 10000)
	if !errors.Is(err, ErrTransferUnknown) {
		t.Fatalf("want ErrTransferUnknown, got %v", err)
	}

	// Still no answer: nothing changes.
	rep, err := f.engine.ResolveInDoubt(t.Context(), 0, 10)
	if err != nil || rep.Unknown != 1 {
		t.Fatalf("want one unknown, got %+v, %v", rep, err)
	}

	f.fake.TransferErr = errors.New("account closed")

	rep, err = f.engine.ResolveInDoubt(t.Context(), 0, 10)
	if err != nil || rep.Failed != 1 {
		t.Fatalf("want one failed, got %+v, %v", rep, err)
	}

	p, err := f.store.Payouts().Get(t.Context(), res.Payout.ID)
	if err != nil {
		t.Fatalf("get payout: %v", err)
	}

	if p.Status != payouts.StatusFailed || p.FailureReason == "" {
		t.Fatalf("want failed payout, got %+v", p)
	}

	if got := f.balance(t); got != 10000 {
		t.Fatalf("balance must be untouched, got %d", got)
	}

	if got := f.notices.all(); len(got) != 1 || got[0].to != payouts.StatusFailed {
		t.Fatalf("want one failed notice, got %+v", got)
	}
}

func TestResolveInDoubtSkipsRecentPayouts(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 10000)
	f.fake.LoseTransferResponse = true

	_, err := f.engine.SettleToPayee(t.Context(), f.clubID, 10000)
	if !errors.Is(err, ErrTransferUnknown) {
		t.Fatalf("want ErrTransferUnknown, got %v", err)
	}

	rep, err := f.engine.ResolveInDoubt(t.Context(), time.Hour, 10)
	if err != nil || rep.Scanned != 0 {
		t.Fatalf("recent payout must be left alone: %+v, %v", rep, err)
	}

	if n := len(f.fake.Transfers()); n != 1 {
		t.Fatalf("want one transfer call, got %d", n)
	}
}
