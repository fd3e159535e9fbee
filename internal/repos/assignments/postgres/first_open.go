package assignments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/assignments"
)

func (r *assignmentsRepo) FirstOpenForEvent(ctx context.Context, eventID uuid.UUID) (assignments.Assignment, error) {
	return r.firstOpen(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignments
		WHERE event_id = $1
		  AND paid_at IS NULL
		  AND NOT is_cancelled
		ORDER BY created_at, id
		LIMIT 1
	`, eventID)
}

func (r *assignmentsRepo) FirstOpenForEventAndUser(ctx context.Context, eventID, userID uuid.UUID) (assignments.Assignment, error) {
	return r.firstOpen(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignments
		WHERE event_id = $1
		  AND user_id = $2
		  AND paid_at IS NULL
		  AND NOT is_cancelled
		ORDER BY created_at, id
		LIMIT 1
	`, eventID, userID)
}

func (r *assignmentsRepo) firstOpen(ctx context.Context, query string, args ...any) (assignments.Assignment, error) {
	a, err := scanAssignment(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return assignments.Assignment{}, assignments.ErrAssignmentNotFound
		}

		return assignments.Assignment{}, fmt.Errorf("select open assignment: %w", err)
	}

	return a, nil
}
