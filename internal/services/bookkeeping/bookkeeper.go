// Package bookkeeping is the single writer of club balances. Every balance
// change is an appended ledger entry whose before/after snapshot is taken
// under the club row lock, inside the caller's transaction.
package bookkeeping

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/clubs"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/ledger"
)

var ErrZeroAmount = errors.New("ledger entry amount must not be zero")

// Posting describes one entry to append. Memo postings are recorded with
// before == after and leave the balance alone.
type Posting struct {
	ClubID            uuid.UUID
	Type              ledger.EntryType
	Amount            int64
	Memo              bool
	ActorUserID       uuid.NullUUID
	EventID           uuid.NullUUID
	Provider          string
	ProviderPaymentID string
	Description       string
}

type Bookkeeper struct {
	clubs  clubs.Clubs
	ledger ledger.Ledger
	now    func() time.Time
}

func New(clubsRepo clubs.Clubs, ledgerRepo ledger.Ledger) *Bookkeeper {
	return &Bookkeeper{
		clubs:  clubsRepo,
		ledger: ledgerRepo,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Post appends p and applies its effect to the club balance. It must run in
// tx; the returned entry carries the new balance in BalanceAfter.
func (b *Bookkeeper) Post(ctx context.Context, tx *sql.Tx, p Posting) (ledger.Entry, error) {
	if p.Amount == 0 {
		return ledger.Entry{}, ErrZeroAmount
	}

	// 1. Lock the club row and take the snapshot.
	prev, err := b.clubs.LockBalance(ctx, tx, p.ClubID)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("lock balance: %w", err)
	}

	next := prev
	if !p.Memo {
		next = prev + p.Amount
	}

	// 2. Move the balance from the snapshot value only.
	if next != prev {
		err = b.clubs.SwapBalance(ctx, tx, p.ClubID, prev, next)
		if err != nil {
			return ledger.Entry{}, fmt.Errorf("swap balance: %w", err)
		}
	}

	// 3. Append the entry.
	entry := ledger.Entry{
		ID:                uuid.New(),
		ClubID:            p.ClubID,
		Type:              p.Type,
		Amount:            p.Amount,
		BalanceBefore:     prev,
		BalanceAfter:      next,
		ActorUserID:       p.ActorUserID,
		EventID:           p.EventID,
		Provider:          p.Provider,
		ProviderPaymentID: p.ProviderPaymentID,
		Description:       p.Description,
		CreatedAt:         b.now(),
	}

	err = b.ledger.Insert(ctx, tx, entry)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("insert entry: %w", err)
	}

	return entry, nil
}
