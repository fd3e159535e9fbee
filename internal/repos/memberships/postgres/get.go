package memberships

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/memberships"
)

func (r *membershipsRepo) Get(ctx context.Context, clubID, userID uuid.UUID) (memberships.Membership, error) {
	var m memberships.Membership

	err := r.db.QueryRowContext(ctx, `
		SELECT club_id, user_id, role, joined_via_payment, created_at
		FROM memberships
		WHERE club_id = $1 AND user_id = $2
	`, clubID, userID).Scan(&m.ClubID, &m.UserID, &m.Role, &m.JoinedViaPayment, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return memberships.Membership{}, memberships.ErrMembershipNotFound
		}

		return memberships.Membership{}, fmt.Errorf("select membership: %w", err)
	}

	return m, nil
}
