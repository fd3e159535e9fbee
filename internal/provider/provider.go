// Package provider describes what the payment engine needs from a payment
// provider and the neutral event shapes provider callbacks are mapped into.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrOutcomeUnknown means the provider could not be asked; the operation may have succeeded.
	ErrOutcomeUnknown  = errors.New("provider outcome unknown")
	ErrUnknownProvider = errors.New("unknown payment provider")
)

type Provider interface {
	Name() string
	CreateCheckout(ctx context.Context, p CheckoutParams) (Checkout, error)
	CaptureOrGetStatus(ctx context.Context, orderID string) (CaptureResult, error)
	CreateTransfer(ctx context.Context, p TransferParams) (Transfer, error)
	CreateInstantPayout(ctx context.Context, p InstantPayoutParams) (InstantPayout, error)
	CreateConnectedAccount(ctx context.Context, p AccountParams) (Account, error)
	CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (AccountLink, error)
	// VerifyWebhook authenticates payload and maps it to an Event.
	VerifyWebhook(payload []byte, header http.Header) (Event, error)
}

type CheckoutParams struct {
	AmountCents    int64
	Currency       string
	Description    string
	CustomerEmail  string
	SuccessURL     string
	CancelURL      string
	Metadata       Metadata
	IdempotencyKey string
}

type Checkout struct {
	OrderID string
	URL     string
}

type CaptureStatus string

const (
	CaptureCompleted CaptureStatus = "completed"
	CapturePending   CaptureStatus = "pending"
	CaptureFailed    CaptureStatus = "failed"
)

type CaptureResult struct {
	Status CaptureStatus
	// Checkout is filled when Status is CaptureCompleted.
	Checkout CheckoutCompleted
}

type TransferParams struct {
	AmountCents        int64
	Currency           string
	DestinationAccount string
	IdempotencyKey     string
	Metadata           map[string]string
}

type Transfer struct {
	ID  string
	Raw json.RawMessage
}

type InstantPayoutParams struct {
	AmountCents    int64
	Currency       string
	Account        string
	IdempotencyKey string
	Metadata       map[string]string
}

type InstantPayout struct {
	ID     string
	Status string
	Raw    json.RawMessage
}

type AccountParams struct {
	Email  string
	UserID string
}

type Account struct {
	ID string
}

type AccountLink struct {
	URL       string
	ExpiresAt time.Time
}

// Registry selects a provider by the tag stored on assignments and ledger rows.
type Registry struct {
	byName map[string]Provider
	def    string
}

// NewRegistry registers providers; the first one is the default.
func NewRegistry(def Provider, others ...Provider) *Registry {
	r := &Registry{byName: map[string]Provider{def.Name(): def}, def: def.Name()}
	for _, p := range others {
		r.byName[p.Name()] = p
	}

	return r
}

// Get returns the named provider, or the default one for an empty name.
func (r *Registry) Get(name string) (Provider, error) {
	if name == "" {
		name = r.def
	}

	p, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}

	return p, nil
}

func (r *Registry) Default() Provider {
	return r.byName[r.def]
}
