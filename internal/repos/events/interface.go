package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrEventNotFound = errors.New("event not found")

// Event is a billable club event. Amount is the default per-assignee charge in cents.
type Event struct {
	ID        uuid.UUID
	ClubID    uuid.UUID
	Title     string
	Amount    int64
	IsPublic  bool
	CreatedAt time.Time
}

type Events interface {
	Get(ctx context.Context, eventID uuid.UUID) (Event, error)
}
