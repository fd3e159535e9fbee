package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDuplicateEntry = errors.New("ledger entry for provider payment already exists")
	ErrEntryNotFound  = errors.New("ledger entry not found")
)

type EntryType string

const (
	TypePayment     EntryType = "payment"
	TypePayout      EntryType = "payout"
	TypePlatformFee EntryType = "platform_fee"
)

// Entry is an immutable monetary record. BalanceBefore and BalanceAfter are
// the club balance around this entry; they are equal for memo entries such
// as platform fees.
type Entry struct {
	ID                uuid.UUID
	ClubID            uuid.UUID
	Type              EntryType
	Amount            int64
	BalanceBefore     int64
	BalanceAfter      int64
	ActorUserID       uuid.NullUUID
	EventID           uuid.NullUUID
	Provider          string
	ProviderPaymentID string
	Description       string
	CreatedAt         time.Time
}

// Effect is the change this entry made to the club balance.
func (e Entry) Effect() int64 {
	return e.BalanceAfter - e.BalanceBefore
}

// Ledger is append-only: there is no update or delete.
type Ledger interface {
	Insert(ctx context.Context, tx *sql.Tx, e Entry) error
	// FindPayment returns the payment entry booked for a provider payment id.
	FindPayment(ctx context.Context, provider, providerPaymentID string) (Entry, error)
	ListByClub(ctx context.Context, clubID uuid.UUID) ([]Entry, error)
}
