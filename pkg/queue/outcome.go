package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Ack marks the job done. It is idempotent: acking an unknown, already done
// or dead job is a no-op.
func (q *Queue) Ack(ctx context.Context, id int64) error {
	if err := q.ready(); err != nil {
		return err
	}

	ctx, span := q.startSpan(ctx, "queue.ack", attribute.Int64("queue.job_id", id))
	defer span.End()

	n, err := q.store.CompleteJob(ctx, id, q.now())
	if err != nil {
		err = storageError(err)
		recordError(span, err)
		return err
	}

	if n == 0 {
		q.logger.DebugContext(ctx, "ack ignored, job not active", slog.Int64("job_id", id))
		return nil
	}
	q.logger.InfoContext(ctx, "job acked", slog.Int64("job_id", id))
	return nil
}

// Fail records a failed attempt. With retry the job goes back to pending
// after Backoff(attempts) unless its attempt budget is spent; without retry,
// or once the budget is spent, the job is dead-lettered. Unknown and already
// finished jobs are ignored.
func (q *Queue) Fail(ctx context.Context, id int64, cause error, retry bool) error {
	if err := q.ready(); err != nil {
		return err
	}

	ctx, span := q.startSpan(ctx, "queue.fail",
		attribute.Int64("queue.job_id", id),
		attribute.Bool("queue.retry", retry),
	)
	defer span.End()

	msg := errorText(cause)
	now := q.now()

	var (
		job       *Job
		candidate int
		delay     time.Duration
		dead      bool
	)
	err := q.store.InTx(ctx, func(tx Tx) error {
		j, err := tx.LockJob(ctx, id)
		if errors.Is(err, ErrJobNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if j.Status.Terminal() {
			return nil
		}

		job = j
		candidate = j.Attempts + 1
		if !retry || candidate >= j.MaxAttempts || candidate >= q.cfg.DeadAfterAttempts {
			dead = true
			_, err := tx.BuryJob(ctx, BuryParams{
				ID:       id,
				Attempts: candidate,
				Error:    &msg,
				Now:      now,
			})
			return err
		}

		delay = Backoff(candidate)
		_, err = q.requeue(ctx, tx, id, delay, now, &msg, candidate)
		return err
	})
	if err != nil {
		err = storageError(err)
		recordError(span, err)
		return err
	}

	if job == nil {
		q.logger.DebugContext(ctx, "fail ignored, job not active", slog.Int64("job_id", id))
		return nil
	}

	span.SetAttributes(
		attribute.Int("queue.attempts", candidate),
		attribute.Bool("queue.dead", dead),
	)
	if dead {
		q.logger.WarnContext(ctx, "job dead-lettered",
			slog.Int64("job_id", id),
			slog.String("queue", job.Queue),
			slog.String("kind", job.Kind),
			slog.Int("attempts", candidate),
			slog.Int("max_attempts", job.MaxAttempts),
			slog.Bool("retry", retry),
			slog.String("error", msg),
		)
		return nil
	}

	q.logger.InfoContext(ctx, "job failed, retry scheduled",
		slog.Int64("job_id", id),
		slog.String("queue", job.Queue),
		slog.String("kind", job.Kind),
		slog.Int("attempts", candidate),
		slog.Duration("delay", delay),
		slog.String("error", msg),
	)
	return nil
}

// Release returns the job to pending, visible again after delay.
// It does not count as a failure unless WithAttempts says so, which makes it
// suitable for voluntarily yielding a job under backpressure.
func (q *Queue) Release(ctx context.Context, id int64, delay time.Duration, opts ...ReleaseOption) error {
	if err := q.ready(); err != nil {
		return err
	}

	rc := &releaseConfig{}
	for _, opt := range opts {
		opt(rc)
	}
	if rc.errMsg != nil {
		msg := truncate(*rc.errMsg, maxErrorLength)
		rc.errMsg = &msg
	}

	ctx, span := q.startSpan(ctx, "queue.release",
		attribute.Int64("queue.job_id", id),
		attribute.String("queue.delay", delay.String()),
	)
	defer span.End()

	n, err := q.requeue(ctx, q.store, id, delay, q.now(), rc.errMsg, rc.attempts)
	if err != nil {
		err = storageError(err)
		recordError(span, err)
		return err
	}

	if n == 0 {
		q.logger.DebugContext(ctx, "release ignored, job not active", slog.Int64("job_id", id))
		return nil
	}
	q.logger.InfoContext(ctx, "job released",
		slog.Int64("job_id", id),
		slog.Duration("delay", max(delay, 0)),
	)
	return nil
}

// requeue is the primitive behind Release and retrying Fail.
func (q *Queue) requeue(ctx context.Context, tx Tx, id int64, delay time.Duration, now time.Time, errMsg *string, attempts int) (int64, error) {
	return tx.RequeueJob(ctx, RequeueParams{
		ID:          id,
		AvailableAt: now.Add(max(delay, 0)),
		Now:         now,
		Error:       errMsg,
		Attempts:    attempts,
	})
}
