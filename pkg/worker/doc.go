// Package worker runs handlers for jobs reserved from a queue.
//
// A [Manager] owns an explicit registry mapping job kinds to tasks. Worker
// goroutines poll [queue.Queue.Reserve], look up the task by the job's kind
// and record the outcome: success acks the job, an error fails it with retry,
// and [Permanent] errors, unknown kinds and undecodable payloads dead-letter
// it immediately. [Snooze] releases the job without counting an attempt.
// Handler panics are recovered and treated as retryable failures.
//
// # Task Definition
//
// Tasks are structs with Name() and Handle() methods. No interface import is
// required; the payload type is the second argument of Handle:
//
//	type SyncProduct struct {
//	    woo *woocommerce.Client
//	}
//
//	func (t *SyncProduct) Name() string { return "woo.sync_product" }
//
//	func (t *SyncProduct) Handle(ctx context.Context, p SyncProductPayload) error {
//	    return t.woo.UpsertProduct(ctx, p.ProductID)
//	}
//
// # Usage
//
//	m, err := worker.NewManager(q,
//	    worker.WithTask[tasks.SyncProductPayload](tasks.NewSyncProduct(woo)),
//	    worker.WithQueue("sms", 8),
//	    worker.WithLogger(log),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := m.Start(ctx); err != nil {
//	    return err
//	}
//	defer m.Stop(context.Background())
//
// Delivery is at-least-once: a job whose lease expires while its handler is
// still running can be handed to another worker. Handlers must be idempotent.
package worker
