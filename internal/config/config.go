package config

import (
	"time"

	"github.com/shopspring/decimal"
)

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN"`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" default:"10"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME" default:"5m"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" default:"30m"`
}

type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	Currency      string `env:"STRIPE_CURRENCY" default:"usd"`
	// Onboarding links send the payee back here.
	OnboardingRefreshURL string `env:"STRIPE_ONBOARDING_REFRESH_URL"`
	OnboardingReturnURL  string `env:"STRIPE_ONBOARDING_RETURN_URL"`
}

type FeeConfig struct {
	Rate       decimal.Decimal `env:"FEE_RATE" default:"0.055"`
	FixedCents int64           `env:"FEE_FIXED_CENTS" default:"30"`
}

type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET"`
	JWTIssuer string `env:"AUTH_JWT_ISSUER" default:""`
}

// SendgridConfig is optional; an empty APIKey selects log-only notifications.
type SendgridConfig struct {
	APIKey    string `env:"SENDGRID_API_KEY" default:""`
	FromEmail string `env:"SENDGRID_FROM_EMAIL" default:"payments@tally.app"`
	FromName  string `env:"SENDGRID_FROM_NAME" default:"Tally"`
	Sandbox   bool   `env:"SENDGRID_SANDBOX" default:"false"`
}

// RedisConfig is optional; an empty Addr disables webhook de-duplication.
type RedisConfig struct {
	Addr          string        `env:"REDIS_ADDR" default:""`
	Password      string        `env:"REDIS_PASSWORD" default:""`
	DB            int           `env:"REDIS_DB" default:"0"`
	DedupTTL      time.Duration `env:"REDIS_DEDUP_TTL" default:"72h"`
	ProcessingTTL time.Duration `env:"REDIS_PROCESSING_TTL" default:"5m"`
}

// ArchiveConfig is optional; an empty Bucket disables raw webhook archiving.
type ArchiveConfig struct {
	Bucket          string `env:"ARCHIVE_BUCKET" default:""`
	Endpoint        string `env:"ARCHIVE_ENDPOINT" default:""`
	Region          string `env:"ARCHIVE_REGION" default:"auto"`
	AccessKeyID     string `env:"ARCHIVE_ACCESS_KEY_ID" default:""`
	SecretAccessKey string `env:"ARCHIVE_SECRET_ACCESS_KEY" default:""`
}

// ReconcileConfig drives the sweeper. PayoutGrace is how old an in-doubt
// payout must be before its transfer is retried.
type ReconcileConfig struct {
	Interval    time.Duration `env:"RECONCILE_INTERVAL" default:"10m"`
	BatchSize   int           `env:"RECONCILE_BATCH" default:"100"`
	PayoutGrace time.Duration `env:"RECONCILE_PAYOUT_GRACE" default:"10m"`
}
