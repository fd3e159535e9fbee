package main

import (
	"log/slog"
	"time"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/config"
)

type apiConfig struct {
	Port            uint16        `env:"APP_PORT" default:"8080"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" default:"INFO"`
	LogFormat       string        `env:"APP_LOG_FORMAT" default:"json"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" default:"15s"`
	CORSOrigins     []string      `env:"APP_CORS_ORIGINS" default:""`

	Postgres  config.PostgresConfig
	Stripe    config.StripeConfig
	Fees      config.FeeConfig
	Auth      config.AuthConfig
	Sendgrid  config.SendgridConfig
	Redis     config.RedisConfig
	Archive   config.ArchiveConfig
	Reconcile config.ReconcileConfig
}
