package assignments

import (
	"context"
	"fmt"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/assignments"
)

func (r *assignmentsRepo) Create(ctx context.Context, a assignments.Assignment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO assignments (id, event_id, club_id, user_id, assigned_amount, is_waived, is_cancelled)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.EventID, a.ClubID, a.UserID, a.AssignedAmount, a.IsWaived, a.IsCancelled)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}

	return nil
}
