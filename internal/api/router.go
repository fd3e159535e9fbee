package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/infra/dedup"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/infra/metrics"
)

// NewRouter registers every endpoint on a chi router.
func NewRouter(d Deps) http.Handler {
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}

	if d.Dedup == nil {
		d.Dedup = dedup.Noop{}
	}

	h := &handlers{
		providers:  d.Providers,
		payments:   d.Payments,
		payouts:    d.Payouts,
		settlement: d.Settlement,
		onboarding: d.Onboarding,
		dedup:      d.Dedup,
		archive:    d.Archive,
		metrics:    d.Metrics,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(d.Metrics))
	// Preflight requests never reach a route, so CORS sits on the root.
	r.Use(cors.New(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	// Provider callbacks authenticate by signature, not by caller.
	r.Post("/webhooks/{provider}", h.webhook)

	// Browser-facing routes.
	r.Group(func(r chi.Router) {
		r.Use(identify(d.Verifier))

		r.Post("/payments/checkout", h.createCheckout)
		r.Post("/payments/capture", h.capture)
		r.Post("/clubs/{clubId}/payouts", h.requestPayout)
		r.Post("/payees/onboarding", h.startOnboarding)
	})

	return r
}
