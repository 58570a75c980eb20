// Package leaseq is a durable work queue backed by a relational database.
//
// Producers push jobs into a table; workers lease them, run a handler and
// report the outcome. A lease that is not acknowledged within the reserve
// timeout is reclaimed by the next reservation, so a crashed worker never
// loses a job. Delivery is at-least-once: handlers must be idempotent.
//
// # Packages
//
//   - pkg/queue: Push, PushTx, Reserve, Ack, Fail, Release, Get, Stats, Prune.
//   - pkg/store/postgres and pkg/store/sqlite: storage backends.
//   - pkg/worker: kind-to-handler registry, polling loop and cron producers.
//   - pkg/config: YAML and environment configuration.
//   - pkg/logger, pkg/health, pkg/observability: ambient plumbing.
//
// # Quick Start
//
//	cfg, err := config.Load("leaseq.yaml")
//	if err != nil {
//	    return err
//	}
//
//	backend, closeDB, err := store.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer closeDB(ctx)
//
//	if err := backend.Migrate(ctx, log); err != nil {
//	    return err
//	}
//
//	q, err := queue.New(backend, cfg.Queue, queue.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//
//	manager, err := worker.NewManager(q,
//	    worker.WithLogger(log),
//	    worker.WithTask[SummarizePayload](tasks.NewSummarizeNote(ai)),
//	    worker.WithQueue("sms", 8),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := manager.Start(ctx); err != nil {
//	    return err
//	}
//	defer manager.Stop(context.Background())
//
//	id, err := manager.Enqueue(ctx, "ai.summarize", SummarizePayload{NoteID: 7})
//
// # Retry Policy
//
// A failed attempt is retried after 5s, 20s, 60s, 180s, 600s, 1800s and
// then hourly, until the job's max_attempts or the global
// dead_after_attempts ceiling is reached; the job is then dead-lettered
// with its last error preserved.
//
// See cmd/leaseq for the administration CLI and example/ for a complete
// worker process.
package leaseq
