package bookkeeping

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/infra/memstore"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/clubs"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/ledger"
)

func TestPostKeepsBalanceEqualToLedger(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	clubID := uuid.New()
	store.PutClub(clubs.Club{ID: clubID, Name: "Rowing"})

	bk := New(store.Clubs(), store.Ledger())

	postings := []struct {
		p           Posting
		wantBefore  int64
		wantAfter   int64
		wantBalance int64
	}{
		{p: Posting{ClubID: clubID, Type: ledger.TypePayment, Amount: 2500}, wantBefore: 0, wantAfter: 2500, wantBalance: 2500},
		{p: Posting{ClubID: clubID, Type: ledger.TypePayment, Amount: 10000}, wantBefore: 2500, wantAfter: 12500, wantBalance: 12500},
		{p: Posting{ClubID: clubID, Type: ledger.TypePayout, Amount: -10000}, wantBefore: 12500, wantAfter: 2500, wantBalance: 2500},
		{p: Posting{ClubID: clubID, Type: ledger.TypePlatformFee, Amount: 580, Memo: true}, wantBefore: 2500, wantAfter: 2500, wantBalance: 2500},
	}

	for i, tc := range postings {
		var entry ledger.Entry

		err := store.WithTx(t.Context(), func(tx *sql.Tx) error {
			var err error

			entry, err = bk.Post(t.Context(), tx, tc.p)

			return err
		})
		if err != nil {
			t.Fatalf("post #%d: %v", i, err)
		}

		if entry.BalanceBefore != tc.wantBefore || entry.BalanceAfter != tc.wantAfter {
			t.Fatalf("post #%d snapshot mismatch: want %d->%d, got %d->%d",
				i, tc.wantBefore, tc.wantAfter, entry.BalanceBefore, entry.BalanceAfter)
		}

		club, err := store.Clubs().Get(t.Context(), clubID)
		if err != nil {
			t.Fatalf("get club: %v", err)
		}

		if club.Balance != tc.wantBalance {
			t.Fatalf("post #%d balance mismatch: want %d, got %d", i, tc.wantBalance, club.Balance)
		}

		var sum int64
		for _, e := range store.Entries(clubID) {
			sum += e.Effect()
		}

		if sum != club.Balance {
			t.Fatalf("post #%d: ledger effects %d != balance %d", i, sum, club.Balance)
		}
	}
}

func TestPostRollsBackBalanceWhenEntryRejected(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	clubID := uuid.New()
	store.PutClub(clubs.Club{ID: clubID, Name: "Rowing"})

	bk := New(store.Clubs(), store.Ledger())
	p := Posting{ClubID: clubID, Type: ledger.TypePayment, Amount: 2500, Provider: "stripe", ProviderPaymentID: "pi_1"}

	for i, wantErr := range []error{nil, ledger.ErrDuplicateEntry} {
		err := store.WithTx(t.Context(), func(tx *sql.Tx) error {
			_, err := bk.Post(t.Context(), tx, p)

			return err
		})
		if !errors.Is(err, wantErr) {
			t.Fatalf("post #%d: want %v, got %v", i, wantErr, err)
		}
	}

	club, _ := store.Clubs().Get(t.Context(), clubID)
	if club.Balance != 2500 {
		t.Fatalf("rejected entry must not move the balance: got %d", club.Balance)
	}
}

func TestPostValidation(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	bk := New(store.Clubs(), store.Ledger())

	_, err := bk.Post(t.Context(), nil, Posting{ClubID: uuid.New(), Type: ledger.TypePayment})
	if !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}

	_, err = bk.Post(t.Context(), nil, Posting{ClubID: uuid.New(), Type: ledger.TypePayment, Amount: 1})
	if !errors.Is(err, clubs.ErrClubNotFound) {
		t.Fatalf("expected ErrClubNotFound, got %v", err)
	}
}
