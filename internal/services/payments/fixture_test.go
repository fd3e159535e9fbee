package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/infra/memstore"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/money"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/notify"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/provider"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/provider/providertest"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/assignments"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/clubs"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/events"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/memberships"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/users"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/services/bookkeeping"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/services/transfers"
)

// fixture is a club with an onboarded admin payee, a member who owes 2500
// for a private event, and a public event nobody is assigned to yet.
type fixture struct {
	store     *memstore.Store
	fake      *providertest.Fake
	mail      *notify.Recorder
	processor *Processor
	svc       *Service

	clubID      uuid.UUID
	admin       uuid.UUID
	member      uuid.UUID
	eventID     uuid.UUID
	publicEvent uuid.UUID
	assignment  assignments.Assignment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memstore.New()
	f := &fixture{
		store:       store,
		fake:        providertest.New(),
		mail:        &notify.Recorder{},
		clubID:      uuid.New(),
		admin:       uuid.New(),
		member:      uuid.New(),
		eventID:     uuid.New(),
		publicEvent: uuid.New(),
	}

	store.PutUser(users.User{ID: f.admin, Email: "treasurer@club.test", Name: "Tess", PayeeAccountID: "acct_1", PayoutsEnabled: true})
	store.PutUser(users.User{ID: f.member, Email: "member@club.test", Name: "Max"})
	store.PutClub(clubs.Club{ID: f.clubID, Name: "Rowing", PayeeUserID: uuid.NullUUID{UUID: f.admin, Valid: true}})
	store.PutMembership(memberships.Membership{ClubID: f.clubID, UserID: f.admin, Role: memberships.RoleAdmin})
	store.PutEvent(events.Event{ID: f.eventID, ClubID: f.clubID, Title: "Spring dues", Amount: 2500})
	store.PutEvent(events.Event{ID: f.publicEvent, ClubID: f.clubID, Title: "Open regatta", Amount: 10000, IsPublic: true})

	f.assignment = f.assign(t, f.eventID, f.member, 2500)

	book := bookkeeping.New(store.Clubs(), store.Ledger())
	engine := transfers.New(transfers.Deps{
		Tx:          store,
		Clubs:       store.Clubs(),
		Users:       store.Users(),
		Memberships: store.Memberships(),
		Payouts:     store.Payouts(),
		Bookkeeper:  book,
		Provider:    f.fake,
		Fees:        money.DefaultFeePolicy(),
		Currency:    "usd",
	})

	f.processor = NewProcessor(store, store.Assignments(), store.Memberships(), store.Pending(), store.Ledger(), book)
	f.svc = NewService(Deps{
		Resolver:    NewResolver(store.Pending(), store.Assignments(), store.Users()),
		Processor:   f.processor,
		Settler:     engine,
		Providers:   provider.NewRegistry(f.fake),
		Events:      store.Events(),
		Assignments: store.Assignments(),
		Pending:     store.Pending(),
		Users:       store.Users(),
		Notifier:    f.mail,
		Currency:    "usd",
	})

	return f
}

func (f *fixture) assign(t *testing.T, eventID, userID uuid.UUID, amount int64) assignments.Assignment {
	t.Helper()

	a := assignments.Assignment{
		ID:             uuid.New(),
		EventID:        eventID,
		ClubID:         f.clubID,
		UserID:         userID,
		AssignedAmount: amount,
		CreatedAt:      time.Now().UTC(),
	}
	f.store.PutAssignment(a)

	return a
}

func (f *fixture) addUser(email string) uuid.UUID {
	id := uuid.New()
	f.store.PutUser(users.User{ID: id, Email: email, Name: email})

	return id
}

func (f *fixture) get(t *testing.T, id uuid.UUID) assignments.Assignment {
	t.Helper()

	a, err := f.store.Assignments().Get(t.Context(), id)
	if err != nil {
		t.Fatalf("get assignment: %v", err)
	}

	return a
}

// balance returns the club balance after checking it equals the sum of ledger effects.
func (f *fixture) balance(t *testing.T) int64 {
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

// drain waits for the receipt and auto settlement of applied payments.
func (f *fixture) drain(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	if err := f.svc.Wait(ctx); err != nil {
		t.Fatalf("background work still running: %v", err)
	}
}

func valid(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: true}
}
