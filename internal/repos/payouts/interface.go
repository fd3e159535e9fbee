package payouts

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrPayoutNotFound = errors.New("payout not found")

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
)

type Payout struct {
	ID     uuid.UUID
	ClubID uuid.UUID
	// Amount is the gross leaving the club balance; Net reached the payee.
	Amount             int64
	Fee                int64
	Net                int64
	Provider           string
	ProviderTransferID string
	ProviderBatchID    string
	Status             Status
	InitiatedBy        uuid.NullUUID
	RecipientUserID    uuid.UUID
	Auto               bool
	Description        string
	RawResponse        []byte
	FailureReason      string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	SettledAt          *time.Time
}

// InDoubt reports a payout whose transfer call ended without a known outcome.
// The transfer may have landed, so the payout is neither sent nor failed.
func (p Payout) InDoubt() bool {
	return p.Status == StatusPending && p.ProviderTransferID == ""
}

type Payouts interface {
	Create(ctx context.Context, tx *sql.Tx, p Payout) error
	Get(ctx context.Context, id uuid.UUID) (Payout, error)
	// GetByProviderRef matches the provider batch id first, then the transfer id.
	GetByProviderRef(ctx context.Context, provider, ref string) (Payout, error)
	// Transition moves a payout to status `to` only from one of `from` and
	// reports whether the row changed.
	Transition(ctx context.Context, id uuid.UUID, from []Status, to Status, reason string, at time.Time) (bool, error)
	// FirstInDoubt returns the oldest in-doubt payout of the club.
	FirstInDoubt(ctx context.Context, clubID uuid.UUID) (Payout, error)
	ListInDoubt(ctx context.Context, limit int) ([]Payout, error)
	// ConfirmTransfer stores the transfer, batch, status and raw response of
	// an in-doubt payout and reports whether the row changed.
	ConfirmTransfer(ctx context.Context, tx *sql.Tx, p Payout) (bool, error)
}
