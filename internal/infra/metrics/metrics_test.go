package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesCounters(t *testing.T) {
	t.Parallel()

	m := New()
	m.WebhookEvents.WithLabelValues("stripe", "checkout_completed", "applied").Inc()
	m.PayoutRequests.WithLabelValues("insufficient_balance").Add(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`dues_webhook_events_total{kind="checkout_completed",outcome="applied",provider="stripe"} 1`,
		`dues_payout_requests_total{outcome="insufficient_balance"} 2`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("missing %q in output", want)
		}
	}
}
