package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/api"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/auth"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/infra/archive"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/infra/dedup"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/infra/logging"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/infra/metrics"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/infra/pgutils"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/money"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/notify"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/provider"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/provider/stripeconnect"
	assignmentspg "github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/assignments/postgres"
	clubspg "github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/clubs/postgres"
	eventspg "github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/events/postgres"
	ledgerpg "github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/ledger/postgres"
	membershipspg "github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/memberships/postgres"
	payoutspg "github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/payouts/postgres"
	pendingpg "github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/pendingpayments/postgres"
	userspg "github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/users/postgres"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/services/bookkeeping"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/services/onboarding"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/services/payments"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/services/reconcile"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/services/settlement"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/services/transfers"
	"github.com/chrisdten3/tally-pwa-backup-sub000/pkg/envconf"
	"github.com/chrisdten3/tally-pwa-backup-sub000/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v\n", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

//nolint:funlen
func run(ctx context.Context) (retErr error) {
	_ = godotenv.Load()

	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.Setup(cfg.LogFormat, cfg.LogLevel)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	db, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	shutdownqueue.Add("postgres", func(context.Context) error {
		return db.Close()
	})

	claimer, err := newClaimer(ctx, cfg)
	if err != nil {
		return err
	}

	var archiver archive.Archiver

	if cfg.Archive.Bucket != "" {
		s3, err := archive.NewS3(ctx, cfg.Archive)
		if err != nil {
			return fmt.Errorf("init archive: %w", err)
		}

		archiver = s3
	}

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.Sendgrid.APIKey != "" {
		notifier = notify.NewSendGrid(cfg.Sendgrid.APIKey, cfg.Sendgrid.FromEmail, cfg.Sendgrid.FromName, cfg.Sendgrid.Sandbox)
	}

	// --- Domain ---
	stripe := stripeconnect.New(stripeconnect.Config{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		Currency:      cfg.Stripe.Currency,
	})
	providers := provider.NewRegistry(stripe)

	tx := pgutils.DBRunner{DB: db}
	clubsRepo := clubspg.New(db)
	usersRepo := userspg.New(db)
	membershipsRepo := membershipspg.New(db)
	eventsRepo := eventspg.New(db)
	assignmentsRepo := assignmentspg.New(db)
	pendingRepo := pendingpg.New(db)
	ledgerRepo := ledgerpg.New(db)
	payoutsRepo := payoutspg.New(db)

	book := bookkeeping.New(clubsRepo, ledgerRepo)
	tracker := settlement.NewTracker(payoutsRepo, usersRepo, notifier)

	engine := transfers.New(transfers.Deps{
		Tx:          tx,
		Clubs:       clubsRepo,
		Users:       usersRepo,
		Memberships: membershipsRepo,
		Payouts:     payoutsRepo,
		Bookkeeper:  book,
		Provider:    stripe,
		Fees:        money.FeePolicy{Rate: cfg.Fees.Rate, FixedCents: cfg.Fees.FixedCents},
		Currency:    cfg.Stripe.Currency,
		Notices:     tracker,
	})

	processor := payments.NewProcessor(tx, assignmentsRepo, membershipsRepo, pendingRepo, ledgerRepo, book)

	paymentSvc := payments.NewService(payments.Deps{
		Resolver:    payments.NewResolver(pendingRepo, assignmentsRepo, usersRepo),
		Processor:   processor,
		Settler:     engine,
		Providers:   providers,
		Events:      eventsRepo,
		Assignments: assignmentsRepo,
		Pending:     pendingRepo,
		Users:       usersRepo,
		Notifier:    notifier,
		Currency:    cfg.Stripe.Currency,
	})

	// Receipts and auto settlements outlive the webhook request.
	shutdownqueue.Add("payments background", paymentSvc.Wait)

	// --- Reconciliation ---
	sweeper := reconcile.NewSweeper(assignmentsRepo, processor, cfg.Reconcile.BatchSize).
		WithPayouts(engine, cfg.Reconcile.PayoutGrace)

	sched, err := reconcile.Start(ctx, sweeper, cfg.Reconcile.Interval)
	if err != nil {
		return fmt.Errorf("start reconciliation: %w", err)
	}

	shutdownqueue.Add("reconcile scheduler", func(context.Context) error {
		return sched.Shutdown()
	})

	// --- HTTP server ---
	handler := api.NewRouter(api.Deps{
		Providers:   providers,
		Payments:    paymentSvc,
		Payouts:     engine,
		Settlement:  tracker,
		Onboarding:  onboarding.New(usersRepo, stripe, cfg.Stripe.OnboardingRefreshURL, cfg.Stripe.OnboardingReturnURL),
		Verifier:    auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer),
		Dedup:       claimer,
		Archive:     archiver,
		Metrics:     metrics.New(),
		CORSOrigins: cfg.CORSOrigins,
	})
	srv := api.NewServer(cfg.Port, handler)

	// Registered last so it is stopped first.
	shutdownqueue.Add("http server", func(c context.Context) error {
		slog.Info("Shut down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr

			return
		}

		errCh <- nil
	}()

	slog.Info("API started", "port", cfg.Port)

	select {
	case <-ctx.Done():
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}

// newClaimer connects to Redis when configured. Without it every webhook is
// processed and the database guards alone handle redeliveries.
func newClaimer(ctx context.Context, cfg *apiConfig) (dedup.Claimer, error) {
	if cfg.Redis.Addr == "" {
		return dedup.Noop{}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	err := rdb.Ping(ctx).Err()
	if err != nil {
		_ = rdb.Close()

		return nil, fmt.Errorf("ping redis: %w", err)
	}

	shutdownqueue.Add("redis", func(context.Context) error {
		return rdb.Close()
	})

	return dedup.NewRedis(rdb, cfg.Redis.ProcessingTTL, cfg.Redis.DedupTTL), nil
}
