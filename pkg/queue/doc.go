// Package queue provides a durable work queue built on a transactional relational store.
//
// Jobs are rows in a single table. Producers insert pending rows with [Queue.Push];
// consumers lease them with [Queue.Reserve] and resolve them with [Queue.Ack],
// [Queue.Fail] or [Queue.Release]. There is no broker and no background goroutine:
// every coordination point is a short storage transaction, so any number of
// processes can share one database.
//
// # Features
//
//   - Lease-based reservation with row locking (one holder per job)
//   - Stale lease recovery at the start of every reservation
//   - Tabular retry backoff and dead-lettering with a hard attempt ceiling
//   - Delayed jobs and cooperative release without recording a failure
//   - Transactional enqueue within a caller-owned transaction
//   - Optional per-kind JSON schema validation of payloads
//   - Pluggable storage: Postgres (pkg/store/postgres) and SQLite (pkg/store/sqlite)
//
// # Usage
//
//	pool, err := db.Connect(ctx, cfg.Database)
//	if err != nil {
//		return err
//	}
//	store := postgres.New(pool)
//	if err := store.Migrate(ctx, log); err != nil {
//		return err
//	}
//
//	q, err := queue.New(store, queue.DefaultConfig(), queue.WithLogger(log))
//	if err != nil {
//		return err
//	}
//
//	id, err := q.Push(ctx, "sms.dispatch", payload,
//		queue.InQueue("sms"),
//		queue.Delay(30*time.Second),
//		queue.MaxAttempts(5),
//	)
//
// Consumers poll:
//
//	j, err := q.Reserve(ctx, "sms")
//	switch {
//	case errors.Is(err, queue.ErrNoJob):
//		time.Sleep(q.Config().SleepWhenEmpty())
//	case err != nil:
//		return err
//	default:
//		if err := handle(ctx, j); err != nil {
//			return q.Fail(ctx, j.ID, err, true)
//		}
//		return q.Ack(ctx, j.ID)
//	}
//
// Package worker implements this loop with a handler registry.
//
// # Delivery guarantees
//
// Delivery is at-least-once. Leases expire after [Config.ReserveTimeout]; an expired
// lease is reclaimed by the next Reserve call regardless of whether the original
// worker is still running. A worker that resumes after its lease was reclaimed can
// still Ack or Fail the job, so handlers must be idempotent.
//
// # Retry schedule
//
// Failed jobs are retried after a fixed delay chosen by attempt number:
//
//	attempt 1 → 5s, 2 → 20s, 3 → 1m, 4 → 3m, 5 → 10m, 6 → 30m, 7+ → 1h
//
// A job is dead-lettered when the attempt count reaches its MaxAttempts or
// [Config.DeadAfterAttempts], whichever is lower, or immediately when Fail is called
// with retry=false.
//
// # Error Handling
//
//   - [ErrDisabled] - Queue kill switch is off
//   - [ErrValidation] - Empty kind or queue, schema violation
//   - [ErrEncoding] - Payload cannot be serialized
//   - [ErrStorage] - Backing store failure
//   - [ErrNoJob] - Nothing eligible to reserve
//   - [ErrJobNotFound] - Get on an unknown id
//
// Ack, Fail and Release never fail because a row has already moved on.
package queue
