package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/auth"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/services/transfers"
)

type payoutRequest struct {
	UserID      uuid.UUID `json:"userId"`
	AmountCents int64     `json:"amountCents"`
	Description string    `json:"description"`
}

type payoutResponse struct {
	PayoutID     uuid.UUID `json:"payoutId"`
	Status       string    `json:"status"`
	AmountCents  int64     `json:"amountCents"`
	FeeCents     int64     `json:"feeCents"`
	NetCents     int64     `json:"netCents"`
	BalanceCents int64     `json:"balanceCents"`
	Reason       string    `json:"reason,omitempty"`
}

var reasonStatus = map[string]int{
	"unauthenticated":      http.StatusUnauthorized,
	"forbidden":            http.StatusForbidden,
	"invalid_amount":       http.StatusBadRequest,
	"insufficient_balance": http.StatusConflict,
	"payee_not_onboarded":  http.StatusConflict,
	"no_payee":             http.StatusConflict,
	"transfer_failed":      http.StatusBadGateway,
	"payout_in_doubt":      http.StatusConflict,
}

// requestPayout handles POST /clubs/{clubId}/payouts.
func (h *handlers) requestPayout(w http.ResponseWriter, r *http.Request) {
	clubID, err := uuid.Parse(chi.URLParam(r, "clubId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid clubId in path")

		return
	}

	var req payoutRequest

	err = decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())

		return
	}

	if req.UserID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "userId required")

		return
	}

	in := transfers.PayoutRequest{
		ClubID:       clubID,
		TargetUserID: req.UserID,
		AmountCents:  req.AmountCents,
		Description:  req.Description,
	}

	if id, ok := auth.FromContext(r.Context()); ok {
		in.RequestedBy = uuid.NullUUID{UUID: id.UserID, Valid: true}
	}

	res, err := h.payouts.RequestPayout(r.Context(), in)
	if errors.Is(err, transfers.ErrTransferUnknown) {
		// The transfer may have landed; the sweeper settles the record.
		h.metrics.PayoutRequests.WithLabelValues("transfer_unknown").Inc()
		writeJSON(w, http.StatusAccepted, payoutResponse{
			PayoutID:     res.Payout.ID,
			Status:       string(res.Payout.Status),
			AmountCents:  res.Payout.Amount,
			FeeCents:     res.Fee,
			NetCents:     res.Net,
			BalanceCents: res.Balance,
			Reason:       transfers.Reason(err),
		})

		return
	}

	if err != nil {
		reason := transfers.Reason(err)

		status, ok := reasonStatus[reason]
		if !ok {
			slog.ErrorContext(r.Context(), "payout request failed", "club_id", clubID, "error", err)
			h.metrics.PayoutRequests.WithLabelValues("error").Inc()
			writeError(w, http.StatusInternalServerError, "internal error")

			return
		}

		h.metrics.PayoutRequests.WithLabelValues(reason).Inc()
		writeJSON(w, status, map[string]string{"error": err.Error(), "reason": reason})

		return
	}

	h.metrics.PayoutRequests.WithLabelValues("sent").Inc()

	writeJSON(w, http.StatusCreated, payoutResponse{
		PayoutID:     res.Payout.ID,
		Status:       string(res.Payout.Status),
		AmountCents:  res.Payout.Amount,
		FeeCents:     res.Fee,
		NetCents:     res.Net,
		BalanceCents: res.Balance,
	})
}
