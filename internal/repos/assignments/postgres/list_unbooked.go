package assignments

import (
	"context"
	"fmt"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/assignments"
)

func (r *assignmentsRepo) ListUnbooked(ctx context.Context, limit int) ([]assignments.Assignment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignments
		WHERE paid_at IS NOT NULL
		  AND ledger_entry_id IS NULL
		ORDER BY paid_at, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("select unbooked assignments: %w", err)
	}
	defer rows.Close()

	var out []assignments.Assignment

	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}

		out = append(out, a)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}

	return out, nil
}
