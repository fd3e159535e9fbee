// Package providertest provides a scripted in-memory payment provider.
package providertest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/provider"
)

// SignatureHeader must equal ValidSignature for VerifyWebhook to accept a payload.
const (
	SignatureHeader = "Fake-Signature"
	ValidSignature  = "valid"
)

var _ provider.Provider = (*Fake)(nil)

// Fake records calls and returns scripted results. Set the *Err fields to
// make the matching call fail.
type Fake struct {
	ProviderName string

	TransferErr error
	// LoseTransferResponse lands the transfer but answers ErrOutcomeUnknown,
	// like a timeout after the provider accepted the request.
	LoseTransferResponse bool
	PayoutErr            error
	CheckoutErr error
	AccountErr  error

	Capture    provider.CaptureResult
	CaptureErr error

	mu        sync.Mutex
	seq       int
	transfers []provider.TransferParams
	landed    map[string]provider.Transfer
	payouts   []provider.InstantPayoutParams
	checkouts []provider.CheckoutParams
	accounts  []provider.AccountParams
	links     []string
}

func New() *Fake {
	return &Fake{ProviderName: "stripe"}
}

func (f *Fake) Name() string {
	return f.ProviderName
}

func (f *Fake) nextID(prefix string) string {
	f.seq++

	return fmt.Sprintf("%s_%d", prefix, f.seq)
}

func (f *Fake) CreateCheckout(_ context.Context, p provider.CheckoutParams) (provider.Checkout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CheckoutErr != nil {
		return provider.Checkout{}, f.CheckoutErr
	}

	f.checkouts = append(f.checkouts, p)
	id := f.nextID("cs")

	return provider.Checkout{OrderID: id, URL: "https://checkout.test/" + id}, nil
}

func (f *Fake) CaptureOrGetStatus(_ context.Context, _ string) (provider.CaptureResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.Capture, f.CaptureErr
}

func (f *Fake) CreateTransfer(_ context.Context, p provider.TransferParams) (provider.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.transfers = append(f.transfers, p)

	// Same key, same transfer.
	if tr, ok := f.landed[p.IdempotencyKey]; ok && p.IdempotencyKey != "" {
		return tr, nil
	}

	if f.TransferErr != nil {
		return provider.Transfer{}, f.TransferErr
	}

	id := f.nextID("tr")
	tr := provider.Transfer{ID: id, Raw: json.RawMessage(fmt.Sprintf(`{"id":%q,"amount":%d}`, id, p.AmountCents))}

	if f.landed == nil {
		f.landed = map[string]provider.Transfer{}
	}

	f.landed[p.IdempotencyKey] = tr

	if f.LoseTransferResponse {
		return provider.Transfer{}, fmt.Errorf("create transfer: %w: response lost", provider.ErrOutcomeUnknown)
	}

	return tr, nil
}

// Landed returns how many distinct transfers actually moved money.
func (f *Fake) Landed() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.landed)
}

func (f *Fake) CreateInstantPayout(_ context.Context, p provider.InstantPayoutParams) (provider.InstantPayout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.payouts = append(f.payouts, p)

	if f.PayoutErr != nil {
		return provider.InstantPayout{}, f.PayoutErr
	}

	id := f.nextID("po")

	return provider.InstantPayout{ID: id, Status: "pending", Raw: json.RawMessage(fmt.Sprintf(`{"id":%q}`, id))}, nil
}

func (f *Fake) CreateConnectedAccount(_ context.Context, p provider.AccountParams) (provider.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.AccountErr != nil {
		return provider.Account{}, f.AccountErr
	}

	f.accounts = append(f.accounts, p)

	return provider.Account{ID: f.nextID("acct")}, nil
}

func (f *Fake) CreateAccountLink(_ context.Context, accountID, _, _ string) (provider.AccountLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.links = append(f.links, accountID)

	return provider.AccountLink{
		URL:       "https://connect.test/onboarding/" + accountID,
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}, nil
}

// VerifyWebhook accepts a JSON-encoded provider.Event when the signature header is valid.
func (f *Fake) VerifyWebhook(payload []byte, header http.Header) (provider.Event, error) {
	if header.Get(SignatureHeader) != ValidSignature {
		return provider.Event{}, provider.ErrInvalidSignature
	}

	var ev provider.Event

	err := json.Unmarshal(payload, &ev)
	if err != nil {
		return provider.Event{}, fmt.Errorf("decode fake event: %w", err)
	}

	ev.Payload = payload

	return ev, nil
}

func (f *Fake) Transfers() []provider.TransferParams {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]provider.TransferParams(nil), f.transfers...)
}

func (f *Fake) Payouts() []provider.InstantPayoutParams {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]provider.InstantPayoutParams(nil), f.payouts...)
}

func (f *Fake) Checkouts() []provider.CheckoutParams {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]provider.CheckoutParams(nil), f.checkouts...)
}

func (f *Fake) Accounts() []provider.AccountParams {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]provider.AccountParams(nil), f.accounts...)
}

func (f *Fake) Links() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.links...)
}
