package provider

import (
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	KindCheckoutCompleted EventKind = "checkout_completed"
	KindPayoutUpdated     EventKind = "payout_updated"
	KindAccountUpdated    EventKind = "account_updated"
	KindIgnored           EventKind = "ignored"
)

// Event is a verified provider callback. Exactly one of Checkout, Payout or
// Account is set, matching Kind.
type Event struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Kind     EventKind          `json:"kind"`
	Checkout *CheckoutCompleted `json:"checkout,omitempty"`
	Payout   *PayoutUpdate      `json:"payout,omitempty"`
	Account  *AccountUpdate     `json:"account,omitempty"`
	// Payload is the raw verified body.
	Payload []byte `json:"-"`
}

// CheckoutCompleted is a confirmed incoming payment.
type CheckoutCompleted struct {
	Provider string `json:"provider"`
	// OrderID is the checkout session or order id known before payment.
	OrderID string `json:"order_id"`
	// PaymentID identifies the money movement; it keys ledger idempotency.
	PaymentID   string    `json:"payment_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	PayerEmail  string    `json:"payer_email"`
	Metadata    Metadata  `json:"metadata"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type PayoutState string

const (
	PayoutPaid   PayoutState = "paid"
	PayoutFailed PayoutState = "failed"
)

// PayoutUpdate settles a payout or reverses a transfer, keyed by Ref.
type PayoutUpdate struct {
	Provider      string      `json:"provider"`
	Ref           string      `json:"ref"`
	Status        PayoutState `json:"status"`
	FailureReason string      `json:"failure_reason,omitempty"`
	AmountCents   int64       `json:"amount_cents"`
	OccurredAt    time.Time   `json:"occurred_at"`
}

type AccountUpdate struct {
	Provider         string `json:"provider"`
	AccountID        string `json:"account_id"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
	DetailsSubmitted bool   `json:"details_submitted"`
}

const (
	MetaAssignmentID = "assignment_id"
	MetaEventID      = "event_id"
	MetaUserID       = "user_id"
	MetaClubID       = "club_id"
)

// Metadata is the correlation data we attach to checkouts and read back from callbacks.
type Metadata struct {
	AssignmentID uuid.NullUUID `json:"assignment_id"`
	EventID      uuid.NullUUID `json:"event_id"`
	UserID       uuid.NullUUID `json:"user_id"`
	ClubID       uuid.NullUUID `json:"club_id"`
}

// ParseMetadata reads known keys; values that are not UUIDs are dropped.
func ParseMetadata(m map[string]string) Metadata {
	return Metadata{
		AssignmentID: parseID(m[MetaAssignmentID]),
		EventID:      parseID(m[MetaEventID]),
		UserID:       parseID(m[MetaUserID]),
		ClubID:       parseID(m[MetaClubID]),
	}
}

// Map renders the set fields as provider metadata.
func (m Metadata) Map() map[string]string {
	out := map[string]string{}

	for k, v := range map[string]uuid.NullUUID{
		MetaAssignmentID: m.AssignmentID,
		MetaEventID:      m.EventID,
		MetaUserID:       m.UserID,
		MetaClubID:       m.ClubID,
	} {
		if v.Valid {
			out[k] = v.UUID.String()
		}
	}

	return out
}

func parseID(s string) uuid.NullUUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.NullUUID{}
	}

	return uuid.NullUUID{UUID: id, Valid: true}
}
