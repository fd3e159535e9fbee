package events

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/infra/pgtestutil"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/events"
)

func TestEvents_Get(t *testing.T) {
	t.Parallel()

	db := pgtestutil.NewTestDB(t)
	fx := pgtestutil.Seed(t, db, 2500)
	repo := New(db)

	got, err := repo.Get(t.Context(), fx.EventID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}

	if got.ClubID != fx.ClubID || got.Amount != 2500 || !got.IsPublic {
		t.Fatalf("event mismatch: %+v", got)
	}

	_, err = repo.Get(t.Context(), uuid.New())
	if !errors.Is(err, events.ErrEventNotFound) {
		t.Fatalf("want ErrEventNotFound, got %v", err)
	}
}
