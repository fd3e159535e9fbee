package stripeconnect

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/provider"
)

const signatureHeader = "Stripe-Signature"

func (c *Client) VerifyWebhook(payload []byte, header http.Header) (provider.Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, header.Get(signatureHeader), c.webhookSecret,
		webhook.ConstructEventOptions{Tolerance: c.tolerance, IgnoreAPIVersionMismatch: true})
	if err != nil {
		return provider.Event{}, fmt.Errorf("%w: %v", provider.ErrInvalidSignature, err)
	}

	out, err := mapEvent(ev)
	if err != nil {
		return provider.Event{}, err
	}

	out.Payload = payload

	return out, nil
}

func mapEvent(ev stripe.Event) (provider.Event, error) {
	out := provider.Event{ID: ev.ID, Type: string(ev.Type), Kind: provider.KindIgnored}
	occurred := time.Unix(ev.Created, 0).UTC()

	if ev.Data == nil {
		return out, nil
	}

	switch ev.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		var s stripe.CheckoutSession

		err := json.Unmarshal(ev.Data.Raw, &s)
		if err != nil {
			return provider.Event{}, fmt.Errorf("decode checkout session: %w", err)
		}

		// Delayed payment methods complete the session before the money arrives.
		if s.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			return out, nil
		}

		cc := checkoutFromSession(&s, occurred)
		out.Kind = provider.KindCheckoutCompleted
		out.Checkout = &cc
	case "payout.paid", "payout.failed", "payout.canceled":
		var po stripe.Payout

		err := json.Unmarshal(ev.Data.Raw, &po)
		if err != nil {
			return provider.Event{}, fmt.Errorf("decode payout: %w", err)
		}

		upd := provider.PayoutUpdate{
			Provider:    Name,
			Ref:         po.ID,
			Status:      provider.PayoutPaid,
			AmountCents: po.Amount,
			OccurredAt:  occurred,
		}

		if ev.Type != "payout.paid" {
			upd.Status = provider.PayoutFailed
			upd.FailureReason = payoutFailureReason(&po, string(ev.Type))
		}

		out.Kind = provider.KindPayoutUpdated
		out.Payout = &upd
	case "transfer.reversed":
		var tr stripe.Transfer

		err := json.Unmarshal(ev.Data.Raw, &tr)
		if err != nil {
			return provider.Event{}, fmt.Errorf("decode transfer: %w", err)
		}

		out.Kind = provider.KindPayoutUpdated
		out.Payout = &provider.PayoutUpdate{
			Provider:      Name,
			Ref:           tr.ID,
			Status:        provider.PayoutFailed,
			FailureReason: "transfer reversed",
			AmountCents:   tr.AmountReversed,
			OccurredAt:    occurred,
		}
	case "account.updated":
		var a stripe.Account

		err := json.Unmarshal(ev.Data.Raw, &a)
		if err != nil {
			return provider.Event{}, fmt.Errorf("decode account: %w", err)
		}

		out.Kind = provider.KindAccountUpdated
		out.Account = &provider.AccountUpdate{
			Provider:         Name,
			AccountID:        a.ID,
			PayoutsEnabled:   a.PayoutsEnabled,
			DetailsSubmitted: a.DetailsSubmitted,
		}
	}

	return out, nil
}

func payoutFailureReason(po *stripe.Payout, fallback string) string {
	switch {
	case po.FailureMessage != "" && po.FailureCode != "":
		return fmt.Sprintf("%s: %s", po.FailureCode, po.FailureMessage)
	case po.FailureMessage != "":
		return po.FailureMessage
	case po.FailureCode != "":
		return string(po.FailureCode)
	default:
		return fallback
	}
}
