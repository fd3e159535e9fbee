package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/infra/pgtestutil"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/ledger"
)

func TestLedger_InsertRejectsSecondPaymentForSameProviderPayment(t *testing.T) {
	t.Parallel()

	db := pgtestutil.NewTestDB(t)
	fx := pgtestutil.Seed(t, db, 2500)
	repo := New(db)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	entry := func(typ ledger.EntryType, paymentID string) ledger.Entry {
		return ledger.Entry{
			ID:                uuid.New(),
			ClubID:            fx.ClubID,
			Type:              typ,
			Amount:            2500,
			BalanceBefore:     0,
			BalanceAfter:      2500,
			Provider:          "stripe",
			ProviderPaymentID: paymentID,
			CreatedAt:         time.Now().UTC(),
		}
	}

	tests := []struct {
		name    string
		entry   ledger.Entry
		wantErr error
	}{
		{name: "first_payment", entry: entry(ledger.TypePayment, "pi_1")},
		{name: "same_payment_again", entry: entry(ledger.TypePayment, "pi_1"), wantErr: ledger.ErrDuplicateEntry},
		{name: "fee_with_same_ref_allowed", entry: entry(ledger.TypePlatformFee, "pi_1")},
		{name: "payment_without_ref_allowed", entry: entry(ledger.TypePayment, "")},
		{name: "second_payment_without_ref_allowed", entry: entry(ledger.TypePayment, "")},
	}

	for _, tt := range tests {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			t.Fatalf("begin tx: %v", err)
		}

		err = repo.Insert(ctx, tx, tt.entry)
		if !errors.Is(err, tt.wantErr) {
			_ = tx.Rollback()
			t.Fatalf("%s: error mismatch: want %v, got %v", tt.name, tt.wantErr, err)
		}

		if err != nil {
			_ = tx.Rollback()

			continue
		}

		err = tx.Commit()
		if err != nil {
			t.Fatalf("%s: commit: %v", tt.name, err)
		}
	}

	got, err := repo.FindPayment(ctx, "stripe", "pi_1")
	if err != nil {
		t.Fatalf("find payment: %v", err)
	}

	if got.Type != ledger.TypePayment || got.Effect() != 2500 {
		t.Fatalf("unexpected payment entry: %+v", got)
	}

	_, err = repo.FindPayment(ctx, "stripe", "pi_missing")
	if !errors.Is(err, ledger.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}

	all, err := repo.ListByClub(ctx, fx.ClubID)
	if err != nil {
		t.Fatalf("list by club: %v", err)
	}

	if len(all) != 4 {
		t.Fatalf("entry count mismatch: want 4, got %d", len(all))
	}
}
