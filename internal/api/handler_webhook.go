package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/infra/dedup"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/provider"
)

const maxWebhookBytes = 512 << 10

// webhook handles POST /webhooks/{provider}. Anything but a bad signature, a
// delivery still in progress elsewhere or an internal failure is acknowledged
// with 200 so the provider stops retrying.
func (h *handlers) webhook(w http.ResponseWriter, r *http.Request) {
	prov, err := h.providers.Get(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown provider")

		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBytes)
	defer r.Body.Close()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")

		return
	}

	ev, err := prov.VerifyWebhook(payload, r.Header)
	if err != nil {
		if errors.Is(err, provider.ErrInvalidSignature) {
			slog.WarnContext(r.Context(), "webhook signature rejected", "provider", prov.Name(), "error", err)
			writeError(w, http.StatusBadRequest, "invalid signature")

			return
		}

		writeError(w, http.StatusBadRequest, "malformed event")

		return
	}

	ctx := r.Context()
	claimKey := prov.Name() + ":" + ev.ID
	claimed := false

	if ev.ID != "" {
		state, err := h.dedup.Claim(ctx, claimKey)

		switch {
		case err != nil:
			slog.WarnContext(ctx, "webhook dedup unavailable", "event_id", ev.ID, "error", err)
		case state == dedup.Done:
			h.count(prov.Name(), ev.Kind, "duplicate")
			writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})

			return
		case state == dedup.Processing:
			// Not a 2xx: the first delivery may still fail, so the provider must retry.
			h.count(prov.Name(), ev.Kind, "in_progress")
			writeError(w, http.StatusConflict, "delivery in progress")

			return
		default:
			claimed = true
		}
	}

	h.store(ctx, prov.Name(), ev)

	outcome, err := h.dispatch(ctx, prov.Name(), ev)
	if err != nil {
		slog.ErrorContext(ctx, "webhook processing failed",
			"provider", prov.Name(), "event_id", ev.ID, "type", ev.Type, "error", err)

		if claimed {
			relErr := h.dedup.Release(context.WithoutCancel(ctx), claimKey)
			if relErr != nil {
				slog.WarnContext(ctx, "webhook claim not released", "event_id", ev.ID, "error", relErr)
			}
		}

		h.count(prov.Name(), ev.Kind, "error")
		writeError(w, http.StatusInternalServerError, "internal error")

		return
	}

	if claimed {
		cErr := h.dedup.Complete(context.WithoutCancel(ctx), claimKey)
		if cErr != nil {
			slog.WarnContext(ctx, "webhook claim not completed", "event_id", ev.ID, "error", cErr)
		}
	}

	h.count(prov.Name(), ev.Kind, outcome)
	writeJSON(w, http.StatusOK, map[string]string{"status": outcome})
}

func (h *handlers) dispatch(ctx context.Context, providerName string, ev provider.Event) (string, error) {
	switch {
	case ev.Kind == provider.KindCheckoutCompleted && ev.Checkout != nil:
		cc := *ev.Checkout
		if cc.Provider == "" {
			cc.Provider = providerName
		}

		out, err := h.payments.HandleCheckoutCompleted(ctx, cc)

		return string(out), err
	case ev.Kind == provider.KindPayoutUpdated && ev.Payout != nil:
		u := *ev.Payout
		if u.Provider == "" {
			u.Provider = providerName
		}

		out, err := h.settlement.HandlePayoutUpdate(ctx, u)

		return string(out), err
	case ev.Kind == provider.KindAccountUpdated && ev.Account != nil:
		err := h.onboarding.HandleAccountUpdated(ctx, *ev.Account)
		if err != nil {
			return "", fmt.Errorf("account updated: %w", err)
		}

		return "updated", nil
	default:
		slog.DebugContext(ctx, "webhook ignored", "provider", providerName, "type", ev.Type)

		return "ignored", nil
	}
}

// store archives the verified payload; failures only cost the audit copy.
func (h *handlers) store(ctx context.Context, providerName string, ev provider.Event) {
	if h.archive == nil || ev.ID == "" {
		return
	}

	_, err := h.archive.Put(ctx, providerName, ev.ID, time.Now(), ev.Payload)
	if err != nil {
		slog.WarnContext(ctx, "webhook payload not archived", "event_id", ev.ID, "error", err)
	}
}

func (h *handlers) count(providerName string, kind provider.EventKind, outcome string) {
	h.metrics.WebhookEvents.WithLabelValues(providerName, string(kind), outcome).Inc()
}
