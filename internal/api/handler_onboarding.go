package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/auth"
)

// startOnboarding handles POST /payees/onboarding for the signed-in user.
func (h *handlers) startOnboarding(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, auth.ErrMissingToken.Error())

		return
	}

	link, err := h.onboarding.StartOnboarding(r.Context(), id.UserID)
	if err != nil {
		slog.ErrorContext(r.Context(), "start onboarding failed", "user_id", id.UserID, "error", err)
		writeError(w, http.StatusBadGateway, "onboarding unavailable")

		return
	}

	resp := map[string]string{"url": link.URL}
	if !link.ExpiresAt.IsZero() {
		resp["expiresAt"] = link.ExpiresAt.UTC().Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, resp)
}
