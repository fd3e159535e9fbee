package memberships

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/memberships"
)

func (r *membershipsRepo) Ensure(ctx context.Context, tx *sql.Tx, m memberships.Membership) (bool, error) {
	if m.Role == "" {
		m.Role = memberships.RoleMember
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO memberships (club_id, user_id, role, joined_via_payment)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (club_id, user_id) DO NOTHING
	`, m.ClubID, m.UserID, string(m.Role), m.JoinedViaPayment)
	if err != nil {
		return false, fmt.Errorf("insert membership: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	return affected == 1, nil
}
