package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/auth"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/provider"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/events"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/services/payments"
)

type checkoutRequest struct {
	EventID    uuid.UUID `json:"eventId"`
	Provider   string    `json:"provider"`
	Email      string    `json:"email"`
	SuccessURL string    `json:"successUrl"`
	CancelURL  string    `json:"cancelUrl"`
}

type checkoutResponse struct {
	OrderID      string     `json:"orderId"`
	URL          string     `json:"url"`
	AmountCents  int64      `json:"amountCents"`
	AssignmentID *uuid.UUID `json:"assignmentId,omitempty"`
}

// createCheckout handles POST /payments/checkout. Identity is optional.
func (h *handlers) createCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest

	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())

		return
	}

	if req.EventID == uuid.Nil || req.SuccessURL == "" || req.CancelURL == "" {
		writeError(w, http.StatusBadRequest, "eventId, successUrl and cancelUrl are required")

		return
	}

	in := payments.CheckoutRequest{
		EventID:    req.EventID,
		PayerEmail: req.Email,
		Provider:   req.Provider,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	}

	if id, ok := auth.FromContext(r.Context()); ok {
		in.PayerUserID = uuid.NullUUID{UUID: id.UserID, Valid: true}
		if in.PayerEmail == "" {
			in.PayerEmail = id.Email
		}
	}

	res, err := h.payments.CreateCheckout(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, provider.ErrUnknownProvider):
			writeError(w, http.StatusNotFound, "unknown provider")
		case errors.Is(err, events.ErrEventNotFound):
			writeError(w, http.StatusNotFound, "event not found")
		case errors.Is(err, payments.ErrEventNotPublic):
			writeError(w, http.StatusForbidden, "event is not open for payment")
		case errors.Is(err, payments.ErrNothingToPay):
			writeError(w, http.StatusConflict, "nothing to pay")
		default:
			slog.ErrorContext(r.Context(), "create checkout failed", "event_id", req.EventID, "error", err)
			writeError(w, http.StatusBadGateway, "checkout unavailable")
		}

		return
	}

	resp := checkoutResponse{OrderID: res.OrderID, URL: res.URL, AmountCents: res.AmountCents}
	if res.AssignmentID.Valid {
		resp.AssignmentID = &res.AssignmentID.UUID
	}

	writeJSON(w, http.StatusCreated, resp)
}

type captureRequest struct {
	OrderID  string    `json:"orderId"`
	EventID  uuid.UUID `json:"eventId"`
	Provider string    `json:"provider"`
}

// capture handles POST /payments/capture, called by the client after the
// provider redirects back.
func (h *handlers) capture(w http.ResponseWriter, r *http.Request) {
	var req captureRequest

	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())

		return
	}

	if req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "orderId required")

		return
	}

	in := payments.CaptureRequest{Provider: req.Provider, OrderID: req.OrderID}
	if req.EventID != uuid.Nil {
		in.EventID = uuid.NullUUID{UUID: req.EventID, Valid: true}
	}

	out, err := h.payments.Capture(r.Context(), in)
	if err != nil {
		if errors.Is(err, provider.ErrUnknownProvider) {
			writeError(w, http.StatusNotFound, "unknown provider")

			return
		}

		slog.ErrorContext(r.Context(), "capture failed", "order_id", req.OrderID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")

		return
	}

	status := http.StatusOK

	switch out {
	case payments.OutcomePending:
		status = http.StatusAccepted
	case payments.OutcomeFailed:
		status = http.StatusPaymentRequired
	}

	writeJSON(w, status, map[string]string{"status": string(out)})
}
