// Package logger builds slog loggers for queue services.
//
// Loggers write JSON (or text) to stdout and can fan warnings and errors out
// to Sentry. A [LogHandlerDecorator] runs [ContextExtractor] functions on every
// record, which is how worker and job identifiers end up on log lines emitted
// deep inside task handlers.
//
// # Usage
//
//	log := logger.NewFromConfig(cfg.Logger,
//		logger.WorkerIDExtractor(),
//		logger.JobExtractor(),
//	)
//
//	q, err := queue.New(store, cfg.Queue, queue.WithLogger(log))
//
// Inside a handler:
//
//	log.InfoContext(ctx, "summary stored")
//	// {"level":"INFO","msg":"summary stored","worker_id":"5b0c...","job":{"id":42,"kind":"ai.summarize","queue":"ai"}}
//
// # Sentry
//
// Set SENTRY_DSN (or logger.sentry.dsn in YAML) to enable Sentry. Errors
// create issues; warnings are stored as logs unless MinLevel is ERROR. With
// an empty DSN, or if the SDK fails to initialize, logging continues on
// stdout only.
package logger
