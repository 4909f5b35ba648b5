package logger

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// SentryConfig holds Sentry integration configuration.
type SentryConfig struct {
	DSN         string `env:"SENTRY_DSN"`
	Environment string `env:"SENTRY_ENVIRONMENT" envDefault:"production"`
	// MinLevel determines which log levels are stored in Sentry (warn or error).
	MinLevel slog.Level
}

// sentryFlushTimeout bounds how long flush waits for queued events.
const sentryFlushTimeout = 2 * time.Second

// NewWithSentry creates a logger that writes to stdout and, when a DSN is
// configured, to Sentry. Delivery failures logged at error level become
// Sentry issues. Without a DSN it behaves like NewWithConfig.
//
// Sentry sends events asynchronously: call flush before the process exits.
// flush is never nil.
func NewWithSentry(cfg Config, scfg SentryConfig, extractors ...ContextExtractor) (log *slog.Logger, flush func()) {
	stdout := newHandler(os.Stdout, cfg)
	noop := func() {}

	if scfg.DSN == "" {
		return slog.New(NewContextHandler(stdout, extractors...)), noop
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         scfg.DSN,
		Environment: scfg.Environment,
		EnableLogs:  true,
	}); err != nil {
		slog.New(stdout).Error("failed to initialize Sentry", slog.String("error", err.Error()))
		return slog.New(NewContextHandler(stdout, extractors...)), noop
	}

	logLevel := []slog.Level{slog.LevelWarn, slog.LevelError}
	if scfg.MinLevel == slog.LevelError {
		logLevel = []slog.Level{slog.LevelError}
	}

	sentryHandler := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   logLevel,
	}.NewSentryHandler(context.Background())

	flush = func() { sentry.Flush(sentryFlushTimeout) }
	return slog.New(NewContextHandler(newMultiHandler(stdout, sentryHandler), extractors...)), flush
}
