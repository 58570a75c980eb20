package queue

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
)

// Reserve leases the oldest eligible pending job in the named queue.
// An empty name selects Config.DefaultQueue. Returns ErrNoJob when nothing
// is eligible; callers should then idle for Config.SleepWhenEmpty.
//
// Every call first reclaims expired leases in all queues. A candidate that
// has reached its attempt ceiling is dead-lettered and the call returns
// ErrNoJob even if other jobs are pending; callers may re-poll at once.
func (q *Queue) Reserve(ctx context.Context, name string) (*Job, error) {
	if err := q.ready(); err != nil {
		return nil, err
	}
	name = q.queueName(name)

	ctx, span := q.startSpan(ctx, "queue.reserve", attribute.String("queue.name", name))
	defer span.End()

	if _, err := q.reap(ctx); err != nil {
		recordError(span, err)
		return nil, err
	}

	holder, _ := WorkerIDFromContext(ctx)
	now := q.now()

	var leased, buried *Job
	err := q.store.InTx(ctx, func(tx Tx) error {
		j, err := tx.NextPending(ctx, name, now)
		if errors.Is(err, ErrNoJob) {
			return nil
		}
		if err != nil {
			return err
		}

		if j.Attempts >= q.attemptCeiling(j) {
			if _, err := tx.BuryJob(ctx, BuryParams{ID: j.ID, Now: now}); err != nil {
				return err
			}
			buried = j
			return nil
		}

		if err := tx.MarkReserved(ctx, ReserveParams{ID: j.ID, Now: now, By: holder}); err != nil {
			return err
		}
		j.Status = StatusReserved
		j.ReservedAt = &now
		j.ReservedBy = holder
		j.UpdatedAt = now
		leased = j
		return nil
	})
	if err != nil {
		err = storageError(err)
		recordError(span, err)
		return nil, err
	}

	if buried != nil {
		q.logger.WarnContext(ctx, "job dead-lettered at reservation",
			slog.Int64("job_id", buried.ID),
			slog.String("queue", buried.Queue),
			slog.String("kind", buried.Kind),
			slog.Int("attempts", buried.Attempts),
			slog.Int("max_attempts", buried.MaxAttempts),
		)
		return nil, ErrNoJob
	}
	if leased == nil {
		return nil, ErrNoJob
	}

	span.SetAttributes(
		attribute.Int64("queue.job_id", leased.ID),
		attribute.String("queue.kind", leased.Kind),
		attribute.Int("queue.attempts", leased.Attempts),
	)
	q.logger.DebugContext(ctx, "job reserved",
		slog.Int64("job_id", leased.ID),
		slog.String("queue", leased.Queue),
		slog.String("kind", leased.Kind),
		slog.Int("attempts", leased.Attempts),
	)

	return leased, nil
}

// Reap reclaims leases older than Config.ReserveTimeout in every queue and
// returns the number of jobs put back to pending. Reserve calls it on every
// invocation; it is exported for maintenance tooling.
func (q *Queue) Reap(ctx context.Context) (int64, error) {
	if err := q.ready(); err != nil {
		return 0, err
	}
	return q.reap(ctx)
}

func (q *Queue) reap(ctx context.Context) (int64, error) {
	now := q.now()
	n, err := q.store.ReapExpired(ctx, ReapParams{
		Cutoff:       now.Add(-q.cfg.ReserveTimeout()),
		Now:          now,
		Reason:       reapReason,
		CountAttempt: q.cfg.ReapCountsAttempt,
	})
	if err != nil {
		return 0, storageError(err)
	}
	if n > 0 {
		q.logger.WarnContext(ctx, "expired leases reclaimed",
			slog.Int64("count", n),
			slog.Duration("reserve_timeout", q.cfg.ReserveTimeout()),
			slog.Bool("attempt_counted", q.cfg.ReapCountsAttempt),
		)
	}
	return n, nil
}

// attemptCeiling is the attempt count at which a pending job is no longer
// handed out: the hard ceiling, or the job's own cap when that is lower.
func (q *Queue) attemptCeiling(j *Job) int {
	ceiling := q.cfg.DeadAfterAttempts
	if j.MaxAttempts > 0 && j.MaxAttempts < ceiling {
		ceiling = j.MaxAttempts
	}
	return ceiling
}
