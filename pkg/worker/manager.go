package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/leaseq/pkg/queue"
)

const (
	// minPollInterval floors the idle wait after an empty Reserve.
	minPollInterval = 10 * time.Millisecond

	// minRetryDelay bounds the pause after a failed Reserve.
	minRetryDelay = 100 * time.Millisecond
)

// Manager polls queues and dispatches reserved jobs to registered tasks
// by kind. Jobs can be enqueued before Start is called.
type Manager struct {
	queue        *queue.Queue
	registry     *taskRegistry
	logger       *slog.Logger
	queues       map[string]int
	schedules    []scheduleConfig
	pollInterval time.Duration

	mu        sync.Mutex
	started   bool
	cancel    context.CancelFunc
	done      chan struct{}
	scheduler *cron.Cron
}

// NewManager creates a manager over q. Cron expressions of scheduled
// tasks are validated here.
func NewManager(q *queue.Queue, opts ...Option) (*Manager, error) {
	if q == nil {
		return nil, ErrQueueRequired
	}

	cfg := newConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.workers == 0 {
		cfg.workers = defaultWorkers
	}
	if cfg.pollInterval == 0 {
		cfg.pollInterval = q.Config().SleepWhenEmpty()
	}
	cfg.pollInterval = max(cfg.pollInterval, minPollInterval)

	queues := map[string]int{q.Config().DefaultQueue: cfg.workers}
	maps.Copy(queues, cfg.queues)

	for _, sched := range cfg.schedules {
		if _, err := parseCronSchedule(sched.schedule); err != nil {
			return nil, err
		}
		cfg.registry.register(sched.name, &scheduledExecutor{handler: sched.handler})
	}

	return &Manager{
		queue:        q,
		registry:     cfg.registry,
		logger:       cfg.logger,
		queues:       queues,
		schedules:    cfg.schedules,
		pollInterval: cfg.pollInterval,
	}, nil
}

// Start launches the worker goroutines and the cron scheduler.
// Processing continues until ctx is canceled or Stop is called.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	scheduler, err := m.newScheduler(runCtx)
	if err != nil {
		cancel()
		return err
	}

	g, gctx := errgroup.WithContext(runCtx)
	total := 0
	for _, name := range slices.Sorted(maps.Keys(m.queues)) {
		for range m.queues[name] {
			workerID := uuid.NewString()
			g.Go(func() error {
				m.run(gctx, name, workerID)
				return nil
			})
			total++
		}
	}
	scheduler.Start()

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	m.started = true
	m.cancel = cancel
	m.done = done
	m.scheduler = scheduler

	m.logger.InfoContext(ctx, "worker manager started",
		slog.Int("workers", total),
		slog.Any("queues", m.queues),
		slog.Any("tasks", m.registry.kinds()),
		slog.Int("schedules", len(m.schedules)),
	)
	return nil
}

// Stop stops polling and waits for in-flight jobs to finish or for ctx to
// expire. A job interrupted by the deadline keeps its lease and is
// reclaimed once the lease times out.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return ErrNotStarted
	}
	// Health checks and Start must not block on the drain below.
	m.started = false
	cancel, done, scheduler := m.cancel, m.done, m.scheduler
	m.mu.Unlock()

	cronDone := scheduler.Stop()
	cancel()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("worker: stop: %w", ctx.Err())
	}
	select {
	case <-cronDone.Done():
	case <-ctx.Done():
	}

	m.logger.InfoContext(ctx, "worker manager stopped")
	return err
}

// Enqueue pushes a job for a registered task kind.
func (m *Manager) Enqueue(ctx context.Context, kind string, payload any, opts ...queue.PushOption) (int64, error) {
	if _, ok := m.registry.get(kind); !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTask, kind)
	}
	return m.queue.Push(ctx, kind, payload, opts...)
}

// EnqueueTx pushes a job through a caller-owned transaction.
// The job is only visible after the transaction commits.
func (m *Manager) EnqueueTx(ctx context.Context, tx queue.Tx, kind string, payload any, opts ...queue.PushOption) (int64, error) {
	if _, ok := m.registry.get(kind); !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTask, kind)
	}
	return m.queue.PushTx(ctx, tx, kind, payload, opts...)
}

// run is one worker goroutine polling a single queue.
func (m *Manager) run(ctx context.Context, queueName, workerID string) {
	ctx = queue.WithWorkerID(ctx, workerID)
	for ctx.Err() == nil {
		job, err := m.queue.Reserve(ctx, queueName)
		switch {
		case errors.Is(err, queue.ErrNoJob):
			if !sleep(ctx, m.pollInterval) {
				return
			}
			continue
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			m.logger.ErrorContext(ctx, "reserve failed",
				slog.String("queue", queueName),
				slog.Any("error", err),
			)
			if !sleep(ctx, max(m.pollInterval, minRetryDelay)) {
				return
			}
			continue
		}

		// In-flight jobs finish even when the manager is stopping.
		m.process(context.WithoutCancel(ctx), job)
	}
}

// process executes a reserved job and records its outcome.
func (m *Manager) process(ctx context.Context, job *queue.Job) {
	ctx = queue.WithJob(ctx, job)
	start := time.Now()

	m.logger.DebugContext(ctx, "executing task",
		slog.String("task", job.Kind),
		slog.Int64("job_id", job.ID),
		slog.Int("attempts", job.Attempts),
	)

	err := m.execute(ctx, job)
	if err == nil {
		if err := m.queue.Ack(ctx, job.ID); err != nil {
			m.logger.ErrorContext(ctx, "ack failed", slog.Int64("job_id", job.ID), slog.Any("error", err))
			return
		}
		m.logger.DebugContext(ctx, "task completed",
			slog.String("task", job.Kind),
			slog.Int64("job_id", job.ID),
			slog.Duration("took", time.Since(start)),
		)
		return
	}

	if delay, ok := snoozeDelay(err); ok {
		if err := m.queue.Release(ctx, job.ID, delay); err != nil {
			m.logger.ErrorContext(ctx, "release failed", slog.Int64("job_id", job.ID), slog.Any("error", err))
		}
		return
	}

	retry := retryable(err)
	m.logger.ErrorContext(ctx, "task failed",
		slog.String("task", job.Kind),
		slog.Int64("job_id", job.ID),
		slog.Int("attempts", job.Attempts),
		slog.Bool("retry", retry),
		slog.Any("error", err),
	)
	if err := m.queue.Fail(ctx, job.ID, err, retry); err != nil {
		m.logger.ErrorContext(ctx, "fail failed", slog.Int64("job_id", job.ID), slog.Any("error", err))
	}
}

// execute looks up the task for the job kind and runs it, converting
// panics into errors.
func (m *Manager) execute(ctx context.Context, job *queue.Job) (err error) {
	executor, ok := m.registry.get(job.Kind)
	if !ok || executor == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTask, job.Kind)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
		}
	}()

	return executor.Execute(ctx, job.Payload)
}

// sleep waits for d or until ctx is done. It reports whether the wait
// completed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Shutdown returns a shutdown function for the manager.
func (m *Manager) Shutdown() func(context.Context) error {
	return func(ctx context.Context) error {
		return m.Stop(ctx)
	}
}

// StartFunc returns a startup function for the manager.
func (m *Manager) StartFunc() func(context.Context) error {
	return func(ctx context.Context) error {
		return m.Start(ctx)
	}
}
