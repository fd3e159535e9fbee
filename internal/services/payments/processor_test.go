package payments

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/ledger"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/memberships"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/services/bookkeeping"
)

func TestApplyPaymentIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	req := ApplyRequest{
		Assignment:        f.assignment,
		AmountCents:       2500,
		Provider:          "stripe",
		ProviderPaymentID: "pi_1",
	}

	first, err := f.processor.ApplyPayment(t.Context(), req)
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}

	if !first.Applied || !first.MembershipCreated || first.Entry.BalanceAfter != 2500 {
		t.Fatalf("unexpected first result: %+v", first)
	}

	// A stale copy of the assignment still looks open.
	second, err := f.processor.ApplyPayment(t.Context(), req)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}

	if second.Applied {
		t.Fatal("second apply must be a no-op")
	}

	// Same payment id against a different assignment.
	other := f.assign(t, f.eventID, f.addUser("other@club.test"), 2500)
	req.Assignment = other

	third, err := f.processor.ApplyPayment(t.Context(), req)
	if err != nil || third.Applied {
		t.Fatalf("payment id reuse must be rejected, got %+v %v", third, err)
	}

	if got := f.balance(t); got != 2500 {
		t.Fatalf("want balance 2500, got %d", got)
	}

	if !f.get(t, other.ID).IsOpen() {
		t.Fatal("other assignment must stay open")
	}
}

func TestApplyPaymentKeepsExistingMembership(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.PutMembership(memberships.Membership{ClubID: f.clubID, UserID: f.member, Role: memberships.RoleAdmin})

	res, err := f.processor.ApplyPayment(t.Context(), ApplyRequest{
		Assignment:        f.assignment,
		AmountCents:       2500,
		Provider:          "stripe",
		ProviderPaymentID: "pi_1",
	})
	if err != nil || !res.Applied {
		t.Fatalf("apply: %+v %v", res, err)
	}

	if res.MembershipCreated {
		t.Fatal("existing membership must not be recreated")
	}

	m, _ := f.store.Memberships().Get(t.Context(), f.clubID, f.member)
	if m.Role != memberships.RoleAdmin {
		t.Fatalf("role changed to %q", m.Role)
	}
}

func TestApplyPaymentRejectsNonPositiveAmount(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.processor.ApplyPayment(t.Context(), ApplyRequest{Assignment: f.assignment, Provider: "stripe", ProviderPaymentID: "pi_1"})
	if !errors.Is(err, ErrNonPositiveAmount) {
		t.Fatalf("want ErrNonPositiveAmount, got %v", err)
	}

	if !f.get(t, f.assignment.ID).IsOpen() {
		t.Fatal("assignment must stay open")
	}
}

func TestRepairBooking(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	paidAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	unbooked := f.assignment
	unbooked.PaidAt = &paidAt
	unbooked.PaymentProvider = "stripe"
	unbooked.PaymentID = "pi_lost"
	f.store.PutAssignment(unbooked)

	out, err := f.processor.RepairBooking(t.Context(), unbooked)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}

	if out != RepairBooked {
		t.Fatalf("want booked, got %q", out)
	}

	if got := f.balance(t); got != 2500 {
		t.Fatalf("want balance 2500, got %d", got)
	}

	// A second pass with the stale copy changes nothing.
	out, err = f.processor.RepairBooking(t.Context(), unbooked)
	if err != nil || out != RepairNoop {
		t.Fatalf("want noop, got %q %v", out, err)
	}

	if got := f.balance(t); got != 2500 {
		t.Fatalf("repair must book once, balance %d", got)
	}
}

func TestRepairBookingLinksExistingEntry(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	book := bookkeeping.New(f.store.Clubs(), f.store.Ledger())

	var entry ledger.Entry

	err := f.store.WithTx(t.Context(), func(tx *sql.Tx) error {
		var err error

		entry, err = book.Post(t.Context(), tx, bookkeeping.Posting{
			ClubID:            f.clubID,
			Type:              ledger.TypePayment,
			Amount:            2500,
			Provider:          "stripe",
			ProviderPaymentID: "pi_1",
		})

		return err
	})
	if err != nil {
		t.Fatalf("post: %v", err)
	}

	paidAt := time.Now().UTC()
	a := f.assignment
	a.PaidAt = &paidAt
	a.PaymentProvider = "stripe"
	a.PaymentID = "pi_1"
	f.store.PutAssignment(a)

	out, err := f.processor.RepairBooking(t.Context(), a)
	if err != nil || out != RepairLinked {
		t.Fatalf("want linked, got %q %v", out, err)
	}

	if got := f.get(t, a.ID).LedgerEntryID; got != (uuid.NullUUID{UUID: entry.ID, Valid: true}) {
		t.Fatalf("want entry %s linked, got %+v", entry.ID, got)
	}

	if got := f.balance(t); got != 2500 {
		t.Fatalf("linking must not move the balance, got %d", got)
	}
}

func TestRepairBookingSkipsManualPayments(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	paidAt := time.Now().UTC()
	a := f.assignment
	a.PaidAt = &paidAt
	f.store.PutAssignment(a)

	out, err := f.processor.RepairBooking(t.Context(), a)
	if err != nil || out != RepairSkipped {
		t.Fatalf("want skipped, got %q %v", out, err)
	}

	if n := len(f.store.Entries(f.clubID)); n != 0 {
		t.Fatalf("no entry expected, got %d", n)
	}
}
