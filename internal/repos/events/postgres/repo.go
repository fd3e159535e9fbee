package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/events"
)

type eventsRepo struct{ db *sql.DB }

var _ events.Events = (*eventsRepo)(nil)

func New(db *sql.DB) *eventsRepo {
	return &eventsRepo{db: db}
}

func (r *eventsRepo) Get(ctx context.Context, eventID uuid.UUID) (events.Event, error) {
	var e events.Event

	err := r.db.QueryRowContext(ctx, `
		SELECT id, club_id, title, amount, is_public, created_at
		FROM events
		WHERE id = $1
	`, eventID).Scan(&e.ID, &e.ClubID, &e.Title, &e.Amount, &e.IsPublic, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return events.Event{}, events.ErrEventNotFound
		}

		return events.Event{}, fmt.Errorf("select event: %w", err)
	}

	return e, nil
}
