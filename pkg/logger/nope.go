package logger

import (
	"io"
	"log/slog"
)

// NewNope creates a logger that discards all output.
// Packages default to it when no logger is configured.
func NewNope() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewWriter creates a text logger writing to w at debug level.
// Useful in tests and CLI tools.
func NewWriter(w io.Writer, extractors ...ContextExtractor) *slog.Logger {
	return slog.New(NewLogHandlerDecorator(newHandler(w, Config{Level: slog.LevelDebug, Format: "text"}), extractors...))
}
