package assignments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/assignments"
)

func (r *assignmentsRepo) Get(ctx context.Context, id uuid.UUID) (assignments.Assignment, error) {
	a, err := scanAssignment(r.db.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return assignments.Assignment{}, assignments.ErrAssignmentNotFound
		}

		return assignments.Assignment{}, fmt.Errorf("select assignment: %w", err)
	}

	return a, nil
}
