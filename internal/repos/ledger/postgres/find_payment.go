package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/ledger"
)

func (r *ledgerRepo) FindPayment(ctx context.Context, provider, providerPaymentID string) (ledger.Entry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE type = 'payment'
		  AND provider = $1
		  AND provider_payment_id = $2
	`, provider, providerPaymentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Entry{}, ledger.ErrEntryNotFound
		}

		return ledger.Entry{}, fmt.Errorf("select payment entry: %w", err)
	}

	return e, nil
}
