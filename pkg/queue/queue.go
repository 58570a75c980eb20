package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/dmitrymomot/leaseq/pkg/queue"

	// maxErrorLength bounds the stored last_error diagnostic, in bytes.
	maxErrorLength = 2000

	reapReason = "lease expired"
)

// Queue is a durable work queue over a Store.
// It holds no job state and is safe for concurrent use.
type Queue struct {
	store   Store
	logger  *slog.Logger
	clock   func() time.Time
	tracer  trace.Tracer
	schemas payloadSchemas
	cfg     Config
}

// New creates a queue backed by store.
func New(store Store, cfg Config, opts ...Option) (*Queue, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.clock == nil {
		o.clock = time.Now
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}

	schemas, err := compileSchemas(o.schemas)
	if err != nil {
		return nil, err
	}

	return &Queue{
		store:   store,
		logger:  o.logger,
		clock:   o.clock,
		tracer:  o.tracerProvider.Tracer(tracerName),
		schemas: schemas,
		cfg:     cfg,
	}, nil
}

// Config returns the queue configuration.
func (q *Queue) Config() Config {
	return q.cfg
}

// Push validates and inserts a new pending job and returns its id.
func (q *Queue) Push(ctx context.Context, kind string, payload any, opts ...PushOption) (int64, error) {
	return q.push(ctx, q.store, kind, payload, opts...)
}

// PushTx inserts a job through a caller-owned transaction. The job becomes
// visible to Reserve only after that transaction commits.
//
// Example:
//
//	err := db.WithTx(ctx, pool, func(tx pgx.Tx) error {
//	    if err := repo.WithTx(tx).CreateOrder(ctx, order); err != nil {
//	        return err
//	    }
//	    _, err := q.PushTx(ctx, store.Bind(tx), "woo.sync_order", order)
//	    return err
//	})
func (q *Queue) PushTx(ctx context.Context, tx Tx, kind string, payload any, opts ...PushOption) (int64, error) {
	if tx == nil {
		return 0, errors.Join(ErrValidation, errors.New("transaction is nil"))
	}
	return q.push(ctx, tx, kind, payload, opts...)
}

func (q *Queue) push(ctx context.Context, tx Tx, kind string, payload any, opts ...PushOption) (int64, error) {
	if err := q.ready(); err != nil {
		return 0, err
	}

	pc := &pushConfig{}
	for _, opt := range opts {
		opt(pc)
	}

	name := q.queueName(pc.queue)
	if strings.TrimSpace(name) == "" {
		return 0, errors.Join(ErrValidation, errors.New("queue name is empty"))
	}
	if strings.TrimSpace(kind) == "" {
		return 0, errors.Join(ErrValidation, errors.New("kind is empty"))
	}

	maxAttempts := pc.maxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, errors.Join(ErrEncoding, err)
	}
	if err := q.schemas.validate(kind, raw); err != nil {
		return 0, err
	}

	ctx, span := q.startSpan(ctx, "queue.push",
		attribute.String("queue.name", name),
		attribute.String("queue.kind", kind),
	)
	defer span.End()

	now := q.now()
	j := &Job{
		Queue:       name,
		Kind:        kind,
		Payload:     raw,
		Status:      StatusPending,
		MaxAttempts: maxAttempts,
		AvailableAt: now.Add(max(pc.delay, 0)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	id, err := tx.InsertJob(ctx, j)
	if err != nil {
		err = storageError(err)
		recordError(span, err)
		return 0, err
	}
	span.SetAttributes(attribute.Int64("queue.job_id", id))

	q.logger.InfoContext(ctx, "job pushed",
		slog.Int64("job_id", id),
		slog.String("queue", name),
		slog.String("kind", kind),
		slog.Time("available_at", j.AvailableAt),
		slog.Int("max_attempts", maxAttempts),
	)

	return id, nil
}

// Get returns the job with the given id or ErrJobNotFound.
func (q *Queue) Get(ctx context.Context, id int64) (*Job, error) {
	if err := q.ready(); err != nil {
		return nil, err
	}
	j, err := q.store.GetJob(ctx, id)
	if err != nil {
		return nil, storageError(err)
	}
	return j, nil
}

// Stats returns job counts per status for the given queue, or for all
// queues when name is empty.
func (q *Queue) Stats(ctx context.Context, name string) (Stats, error) {
	if err := q.ready(); err != nil {
		return Stats{}, err
	}
	counts, err := q.store.CountByStatus(ctx, name)
	if err != nil {
		return Stats{}, storageError(err)
	}
	return statsFromCounts(counts), nil
}

// Prune deletes done and dead jobs finished before the cutoff and returns
// the number of rows removed.
func (q *Queue) Prune(ctx context.Context, before time.Time) (int64, error) {
	if err := q.ready(); err != nil {
		return 0, err
	}
	n, err := q.store.DeleteFinished(ctx, before)
	if err != nil {
		return 0, storageError(err)
	}
	if n > 0 {
		q.logger.InfoContext(ctx, "jobs pruned",
			slog.Int64("count", n),
			slog.Time("before", before),
		)
	}
	return n, nil
}

// Ping verifies that the backing store is reachable.
func (q *Queue) Ping(ctx context.Context) error {
	if err := q.store.Ping(ctx); err != nil {
		return storageError(err)
	}
	return nil
}

// Healthcheck returns a health check function for the queue.
// Compatible with health.CheckFunc.
func Healthcheck(q *Queue) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if q == nil {
			return errors.Join(ErrInvalidConfig, errors.New("queue is nil"))
		}
		if err := q.ready(); err != nil {
			return err
		}
		return q.Ping(ctx)
	}
}

func (q *Queue) ready() error {
	if !q.cfg.Enabled {
		return ErrDisabled
	}
	return nil
}

func (q *Queue) now() time.Time {
	return q.clock().UTC()
}

func (q *Queue) queueName(name string) string {
	if name == "" {
		return q.cfg.DefaultQueue
	}
	return name
}

func (q *Queue) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return q.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// errorText renders a failure cause for the last_error column.
func errorText(err error) string {
	if err == nil {
		return ""
	}
	return truncate(err.Error(), maxErrorLength)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
