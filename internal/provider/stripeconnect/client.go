// Package stripeconnect implements provider.Provider on Stripe Checkout and
// Stripe Connect (express accounts, transfers, instant payouts).
package stripeconnect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/account"
	"github.com/stripe/stripe-go/v82/accountlink"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/payout"
	"github.com/stripe/stripe-go/v82/transfer"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/provider"
)

const Name = "stripe"

type Config struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
}

type Client struct {
	webhookSecret string
	currency      string
	tolerance     time.Duration
}

var _ provider.Provider = (*Client)(nil)

// New configures the process-wide Stripe key and returns a client.
func New(cfg Config) *Client {
	if cfg.SecretKey != "" {
		stripe.Key = cfg.SecretKey
	}

	currency := strings.ToLower(cfg.Currency)
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	return &Client{
		webhookSecret: cfg.WebhookSecret,
		currency:      currency,
		tolerance:     5 * time.Minute,
	}
}

func (c *Client) Name() string {
	return Name
}

func (c *Client) currencyOr(cur string) string {
	if cur == "" {
		return c.currency
	}

	return strings.ToLower(cur)
}

func (c *Client) CreateCheckout(ctx context.Context, p provider.CheckoutParams) (provider.Checkout, error) {
	md := p.Metadata.Map()

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String("payment"),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(c.currencyOr(p.Currency)),
				UnitAmount: stripe.Int64(p.AmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(p.Description),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{Metadata: md},
	}
	params.Metadata = md
	params.Context = ctx

	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}

	if p.Metadata.AssignmentID.Valid {
		params.ClientReferenceID = stripe.String(p.Metadata.AssignmentID.UUID.String())
	}

	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	s, err := session.New(params)
	if err != nil {
		return provider.Checkout{}, classify("create checkout session", err)
	}

	return provider.Checkout{OrderID: s.ID, URL: s.URL}, nil
}

// CaptureOrGetStatus reads the session; Checkout captures on completion so
// there is nothing left to capture, only status to confirm.
func (c *Client) CaptureOrGetStatus(ctx context.Context, orderID string) (provider.CaptureResult, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")

	s, err := session.Get(orderID, params)
	if err != nil {
		return provider.CaptureResult{}, classify("get checkout session", err)
	}

	switch {
	case s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		return provider.CaptureResult{
			Status:   provider.CaptureCompleted,
			Checkout: checkoutFromSession(s, time.Now().UTC()),
		}, nil
	case s.Status == stripe.CheckoutSessionStatusExpired:
		return provider.CaptureResult{Status: provider.CaptureFailed}, nil
	default:
		return provider.CaptureResult{Status: provider.CapturePending}, nil
	}
}

func (c *Client) CreateTransfer(ctx context.Context, p provider.TransferParams) (provider.Transfer, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(p.AmountCents),
		Currency:    stripe.String(c.currencyOr(p.Currency)),
		Destination: stripe.String(p.DestinationAccount),
	}
	params.Metadata = p.Metadata
	params.Context = ctx

	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	tr, err := transfer.New(params)
	if err != nil {
		return provider.Transfer{}, classify("create transfer", err)
	}

	raw, _ := json.Marshal(tr)

	return provider.Transfer{ID: tr.ID, Raw: raw}, nil
}

func (c *Client) CreateInstantPayout(ctx context.Context, p provider.InstantPayoutParams) (provider.InstantPayout, error) {
	params := &stripe.PayoutParams{
		Amount:   stripe.Int64(p.AmountCents),
		Currency: stripe.String(c.currencyOr(p.Currency)),
		Method:   stripe.String("instant"),
	}
	params.Metadata = p.Metadata
	params.Context = ctx
	params.SetStripeAccount(p.Account)

	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	po, err := payout.New(params)
	if err != nil {
		return provider.InstantPayout{}, classify("create instant payout", err)
	}

	raw, _ := json.Marshal(po)

	return provider.InstantPayout{ID: po.ID, Status: string(po.Status), Raw: raw}, nil
}

func (c *Client) CreateConnectedAccount(ctx context.Context, p provider.AccountParams) (provider.Account, error) {
	params := &stripe.AccountParams{
		Type:  stripe.String("express"),
		Email: stripe.String(p.Email),
		Capabilities: &stripe.AccountCapabilitiesParams{
			Transfers: &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	params.Metadata = map[string]string{provider.MetaUserID: p.UserID}
	params.Context = ctx

	if p.UserID != "" {
		params.SetIdempotencyKey("account-" + p.UserID)
	}

	acct, err := account.New(params)
	if err != nil {
		return provider.Account{}, classify("create connected account", err)
	}

	return provider.Account{ID: acct.ID}, nil
}

func (c *Client) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (provider.AccountLink, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx

	link, err := accountlink.New(params)
	if err != nil {
		return provider.AccountLink{}, classify("create account link", err)
	}

	return provider.AccountLink{URL: link.URL, ExpiresAt: time.Unix(link.ExpiresAt, 0).UTC()}, nil
}

// classify keeps Stripe API errors as definitive failures and turns
// transport errors into provider.ErrOutcomeUnknown.
func classify(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return fmt.Errorf("%s: stripe %s (%s): %w", op, stripeErr.Type, stripeErr.Code, err)
	}

	return fmt.Errorf("%s: %w: %v", op, provider.ErrOutcomeUnknown, err)
}

func checkoutFromSession(s *stripe.CheckoutSession, at time.Time) provider.CheckoutCompleted {
	paymentID := s.ID
	if s.PaymentIntent != nil && s.PaymentIntent.ID != "" {
		paymentID = s.PaymentIntent.ID
	}

	email := s.CustomerEmail
	if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
		email = s.CustomerDetails.Email
	}

	return provider.CheckoutCompleted{
		Provider:    Name,
		OrderID:     s.ID,
		PaymentID:   paymentID,
		AmountCents: s.AmountTotal,
		Currency:    string(s.Currency),
		PayerEmail:  email,
		Metadata:    provider.ParseMetadata(s.Metadata),
		OccurredAt:  at,
	}
}
