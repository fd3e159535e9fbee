package assignments

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

func (r *assignmentsRepo) LinkLedgerEntry(ctx context.Context, tx *sql.Tx, id, entryID uuid.UUID) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE assignments
		SET ledger_entry_id = $2
		WHERE id = $1
		  AND paid_at IS NOT NULL
		  AND ledger_entry_id IS NULL
	`, id, entryID)
	if err != nil {
		return false, fmt.Errorf("link ledger entry: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	return affected == 1, nil
}
