package payments

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/provider"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/pendingpayments"
)

func TestResolvePrecedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		// setup returns the completion to resolve and the assignment expected, if any.
		setup    func(t *testing.T, f *fixture) (provider.CheckoutCompleted, uuid.UUID)
		wantStep Step
	}{
		{
			name: "pending payment wins over metadata",
			setup: func(t *testing.T, f *fixture) (provider.CheckoutCompleted, uuid.UUID) {
				other := f.assign(t, f.eventID, f.addUser("other@club.test"), 2500)
				f.store.PutPending(pendingpayments.PendingPayment{ID: uuid.New(), Provider: "stripe", OrderID: "cs_1", AssignmentID: f.assignment.ID})

				return provider.CheckoutCompleted{
					Provider: "stripe",
					OrderID:  "cs_1",
					Metadata: provider.Metadata{AssignmentID: valid(other.ID)},
				}, f.assignment.ID
			},
			wantStep: StepPendingPayment,
		},
		{
			name: "pending payment for a paid assignment falls through",
			setup: func(t *testing.T, f *fixture) (provider.CheckoutCompleted, uuid.UUID) {
				paid := f.assign(t, f.eventID, f.member, 2500)
				paid.PaidAt = ptr(time.Now())
				f.store.PutAssignment(paid)
				f.store.PutPending(pendingpayments.PendingPayment{ID: uuid.New(), Provider: "stripe", OrderID: "cs_1", AssignmentID: paid.ID})

				return provider.CheckoutCompleted{
					Provider: "stripe",
					OrderID:  "cs_1",
					Metadata: provider.Metadata{AssignmentID: valid(f.assignment.ID)},
				}, f.assignment.ID
			},
			wantStep: StepMetadataAssignment,
		},
		{
			name: "paid metadata assignment falls through to the payer's event assignment",
			setup: func(t *testing.T, f *fixture) (provider.CheckoutCompleted, uuid.UUID) {
				paid := f.assign(t, f.eventID, f.member, 2500)
				paid.PaidAt = ptr(time.Now())
				f.store.PutAssignment(paid)

				return provider.CheckoutCompleted{
					Provider: "stripe",
					Metadata: provider.Metadata{AssignmentID: valid(paid.ID), EventID: valid(f.eventID), UserID: valid(f.member)},
				}, f.assignment.ID
			},
			wantStep: StepMetadataEvent,
		},
		{
			name: "event metadata prefers the payer over older assignments",
			setup: func(t *testing.T, f *fixture) (provider.CheckoutCompleted, uuid.UUID) {
				payer := f.addUser("late@club.test")
				mine := f.assign(t, f.eventID, payer, 2500)

				return provider.CheckoutCompleted{
					Provider: "stripe",
					Metadata: provider.Metadata{EventID: valid(f.eventID), UserID: valid(payer)},
				}, mine.ID
			},
			wantStep: StepMetadataEvent,
		},
		{
			name: "anonymous payer gets the oldest open assignment",
			setup: func(t *testing.T, f *fixture) (provider.CheckoutCompleted, uuid.UUID) {
				f.assign(t, f.eventID, f.addUser("late@club.test"), 2500)

				return provider.CheckoutCompleted{
					Provider: "stripe",
					Metadata: provider.Metadata{EventID: valid(f.eventID)},
				}, f.assignment.ID
			},
			wantStep: StepMetadataEvent,
		},
		{
			name: "payer email matches case-insensitively",
			setup: func(t *testing.T, f *fixture) (provider.CheckoutCompleted, uuid.UUID) {
				f.assign(t, f.eventID, f.addUser("first@club.test"), 2500)
				stranger := f.addUser("stranger@club.test")
				mine := f.assign(t, f.eventID, f.addUser("payer@club.test"), 2500)

				return provider.CheckoutCompleted{
					Provider:   "stripe",
					PayerEmail: "Payer@Club.test",
					Metadata:   provider.Metadata{EventID: valid(f.eventID), UserID: valid(stranger)},
				}, mine.ID
			},
			wantStep: StepPayerEmail,
		},
		{
			name: "known payer without assignment falls back to the event",
			setup: func(t *testing.T, f *fixture) (provider.CheckoutCompleted, uuid.UUID) {
				return provider.CheckoutCompleted{
					Provider: "stripe",
					Metadata: provider.Metadata{EventID: valid(f.eventID), UserID: valid(f.admin)},
				}, f.assignment.ID
			},
			wantStep: StepEventFallback,
		},
		{
			name: "nothing to go on",
			setup: func(t *testing.T, f *fixture) (provider.CheckoutCompleted, uuid.UUID) {
				return provider.CheckoutCompleted{Provider: "stripe", OrderID: "cs_unknown", PayerEmail: "nobody@club.test"}, uuid.Nil
			},
		},
		{
			name: "cancelled assignments never match",
			setup: func(t *testing.T, f *fixture) (provider.CheckoutCompleted, uuid.UUID) {
				a := f.assignment
				a.IsCancelled = true
				f.store.PutAssignment(a)

				return provider.CheckoutCompleted{
					Provider: "stripe",
					Metadata: provider.Metadata{AssignmentID: valid(a.ID), EventID: valid(f.eventID)},
				}, uuid.Nil
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			cc, want := tc.setup(t, f)

			r := NewResolver(f.store.Pending(), f.store.Assignments(), f.store.Users())

			res, err := r.Resolve(t.Context(), cc)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}

			if res.Step != tc.wantStep {
				t.Fatalf("want step %q, got %q", tc.wantStep, res.Step)
			}

			if res.Found() && res.Assignment.ID != want {
				t.Fatalf("want assignment %s, got %s", want, res.Assignment.ID)
			}
		})
	}
}

func TestResolveCapturedOrderIsReplay(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.PutPending(pendingpayments.PendingPayment{
		ID:           uuid.New(),
		Provider:     "stripe",
		OrderID:      "cs_1",
		AssignmentID: f.assignment.ID,
		Captured:     true,
	})

	r := NewResolver(f.store.Pending(), f.store.Assignments(), f.store.Users())

	res, err := r.Resolve(t.Context(), provider.CheckoutCompleted{
		Provider: "stripe",
		OrderID:  "cs_1",
		Metadata: provider.Metadata{EventID: valid(f.eventID)},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if !res.Replay || res.Found() {
		t.Fatalf("want replay without match, got %+v", res)
	}
}

func ptr[T any](v T) *T {
	return &v
}
