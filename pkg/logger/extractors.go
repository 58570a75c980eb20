package logger

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/leaseq/pkg/queue"
)

// WorkerIDExtractor adds worker_id when the context carries a worker identifier.
func WorkerIDExtractor() ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		id, ok := queue.WorkerIDFromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return slog.String("worker_id", id), true
	}
}

// JobExtractor adds a "job" group (id, kind, queue) while a job handler runs.
func JobExtractor() ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		j, ok := queue.JobFromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return slog.Group("job",
			slog.Int64("id", j.ID),
			slog.String("kind", j.Kind),
			slog.String("queue", j.Queue),
		), true
	}
}
