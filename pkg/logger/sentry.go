package logger

import (
	"context"
	"log/slog"
	"os"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// SentryConfig holds Sentry integration configuration.
type SentryConfig struct {
	DSN         string `yaml:"dsn" env:"SENTRY_DSN"`
	Environment string `yaml:"environment" env:"SENTRY_ENVIRONMENT" envDefault:"production"`
	// MinLevel selects what is stored as Sentry logs: WARN (default) or ERROR.
	// Errors always create issues.
	MinLevel slog.Level `yaml:"min_level" env:"SENTRY_MIN_LEVEL" envDefault:"WARN"`
}

// NewWithSentry creates a JSON logger that writes to stdout and Sentry.
// With an empty DSN only stdout is used, so the same code path works in
// development.
func NewWithSentry(cfg SentryConfig, extractors ...ContextExtractor) *slog.Logger {
	return NewFromConfig(Config{Level: slog.LevelInfo, Format: "json", Sentry: cfg}, extractors...)
}

// withSentry initializes the Sentry SDK and combines stdout with a Sentry
// handler. If initialization fails, stdout alone is returned.
func withSentry(stdout slog.Handler, cfg SentryConfig) slog.Handler {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		EnableLogs:  true,
	}); err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to initialize Sentry", slog.String("error", err.Error()))
		return stdout
	}

	logLevel := []slog.Level{slog.LevelWarn, slog.LevelError}
	if cfg.MinLevel >= slog.LevelError {
		logLevel = []slog.Level{slog.LevelError}
	}

	sentryHandler := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   logLevel,
	}.NewSentryHandler(context.Background())

	return newMultiHandler(stdout, sentryHandler)
}
