package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config holds logger settings.
type Config struct {
	Level  slog.Level   `yaml:"level" env:"LOG_LEVEL" envDefault:"INFO"`
	Format string       `yaml:"format" env:"LOG_FORMAT" envDefault:"json"`
	Sentry SentryConfig `yaml:"sentry"`
}

// New creates a JSON logger on stdout at info level with optional context extractors.
func New(extractors ...ContextExtractor) *slog.Logger {
	return NewFromConfig(Config{Level: slog.LevelInfo, Format: "json"}, extractors...)
}

// NewFromConfig creates a logger writing to stdout at cfg.Level in cfg.Format
// ("json" or "text"). When cfg.Sentry.DSN is set, warnings and errors are
// also sent to Sentry.
func NewFromConfig(cfg Config, extractors ...ContextExtractor) *slog.Logger {
	stdout := newHandler(os.Stdout, cfg)
	if cfg.Sentry.DSN == "" {
		return slog.New(NewLogHandlerDecorator(stdout, extractors...))
	}
	return slog.New(NewLogHandlerDecorator(withSentry(stdout, cfg.Sentry), extractors...))
}

func newHandler(w io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}
