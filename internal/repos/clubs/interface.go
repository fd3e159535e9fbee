package clubs

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrClubNotFound   = errors.New("club not found")
	ErrBalanceChanged = errors.New("club balance changed since it was read")
)

type Club struct {
	ID          uuid.UUID
	Name        string
	PayeeUserID uuid.NullUUID
	Balance     int64
	CreatedAt   time.Time
}

// Clubs stores clubs and their running balance. The balance is written only
// through SwapBalance after LockBalance inside the same transaction.
type Clubs interface {
	Get(ctx context.Context, clubID uuid.UUID) (Club, error)
	LockBalance(ctx context.Context, tx *sql.Tx, clubID uuid.UUID) (int64, error)
	SwapBalance(ctx context.Context, tx *sql.Tx, clubID uuid.UUID, before, after int64) error
}
