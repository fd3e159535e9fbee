package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/auth"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/infra/dedup"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/infra/metrics"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/provider"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/provider/providertest"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/services/payments"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/services/settlement"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/services/transfers"
)

type fakePayments struct {
	// With release set, every checkout signals entered and then waits for release.
	entered chan struct{}
	release chan struct{}

	mu        sync.Mutex
	outcome   payments.Outcome
	err       error
	completed []provider.CheckoutCompleted
	captures  []payments.CaptureRequest
	checkouts []payments.CheckoutRequest
}

func (f *fakePayments) HandleCheckoutCompleted(_ context.Context, cc provider.CheckoutCompleted) (payments.Outcome, error) {
	if f.release != nil {
		f.entered <- struct{}{}
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.completed = append(f.completed, cc)

	return f.outcome, f.err
}

func (f *fakePayments) Capture(_ context.Context, req payments.CaptureRequest) (payments.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.captures = append(f.captures, req)

	return f.outcome, f.err
}

func (f *fakePayments) CreateCheckout(_ context.Context, req payments.CheckoutRequest) (payments.CheckoutResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.checkouts = append(f.checkouts, req)
	if f.err != nil {
		return payments.CheckoutResult{}, f.err
	}

	return payments.CheckoutResult{OrderID: "cs_1", URL: "https://checkout.test/cs_1", AmountCents: 2500}, nil
}

type fakePayouts struct {
	req transfers.PayoutRequest
	res transfers.Result
	err error
}

func (f *fakePayouts) RequestPayout(_ context.Context, req transfers.PayoutRequest) (transfers.Result, error) {
	f.req = req

	return f.res, f.err
}

type fakeSettlement struct {
	updates []provider.PayoutUpdate
}

func (f *fakeSettlement) HandlePayoutUpdate(_ context.Context, u provider.PayoutUpdate) (settlement.Outcome, error) {
	f.updates = append(f.updates, u)

	return settlement.OutcomeSettled, nil
}

type fakeOnboarding struct {
	users    []uuid.UUID
	accounts []provider.AccountUpdate
}

func (f *fakeOnboarding) StartOnboarding(_ context.Context, userID uuid.UUID) (provider.AccountLink, error) {
	f.users = append(f.users, userID)

	return provider.AccountLink{URL: "https://connect.test/onboarding", ExpiresAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}, nil
}

func (f *fakeOnboarding) HandleAccountUpdated(_ context.Context, u provider.AccountUpdate) error {
	f.accounts = append(f.accounts, u)

	return nil
}

// memClaimer is an in-process dedup.Claimer.
type memClaimer struct {
	mu    sync.Mutex
	state map[string]dedup.State
}

func (c *memClaimer) Claim(_ context.Context, id string) (dedup.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if st, ok := c.state[id]; ok {
		return st, nil
	}

	if c.state == nil {
		c.state = map[string]dedup.State{}
	}

	c.state[id] = dedup.Processing

	return dedup.Claimed, nil
}

func (c *memClaimer) Complete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state[id] = dedup.Done

	return nil
}

func (c *memClaimer) Release(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.state, id)

	return nil
}

type memArchive struct {
	keys []string
}

func (a *memArchive) Put(_ context.Context, providerName, eventID string, _ time.Time, _ []byte) (string, error) {
	key := providerName + "/" + eventID
	a.keys = append(a.keys, key)

	return key, nil
}

type testServer struct {
	handler    http.Handler
	payments   *fakePayments
	payouts    *fakePayouts
	settlement *fakeSettlement
	onboarding *fakeOnboarding
	claimer    *memClaimer
	archive    *memArchive
	verifier   *auth.Verifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		payments:   &fakePayments{outcome: payments.OutcomeApplied},
		payouts:    &fakePayouts{},
		settlement: &fakeSettlement{},
		onboarding: &fakeOnboarding{},
		claimer:    &memClaimer{},
		archive:    &memArchive{},
		verifier:   auth.NewVerifier("test-secret", "tally"),
	}

	ts.handler = NewRouter(Deps{
		Providers:   provider.NewRegistry(providertest.New()),
		Payments:    ts.payments,
		Payouts:     ts.payouts,
		Settlement:  ts.settlement,
		Onboarding:  ts.onboarding,
		Verifier:    ts.verifier,
		Dedup:       ts.claimer,
		Archive:     ts.archive,
		Metrics:     metrics.New(),
		CORSOrigins: []string{"https://app.test"},
	})

	return ts
}

func (ts *testServer) token(t *testing.T, userID uuid.UUID) string {
	t.Helper()

	tok, err := ts.verifier.Issue(auth.Identity{UserID: userID, Email: "user@club.test"}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	return tok
}

func (ts *testServer) do(t *testing.T, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any

	err := json.Unmarshal(rec.Body.Bytes(), &out)
	if err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}

	return out
}
