package worker

import (
	"context"
	"log/slog"
	"time"
)

const defaultWorkers = 4

// config holds manager configuration.
type config struct {
	registry     *taskRegistry
	queues       map[string]int
	logger       *slog.Logger
	schedules    []scheduleConfig
	workers      int
	pollInterval time.Duration
}

func newConfig() *config {
	return &config{
		registry: newTaskRegistry(),
		queues:   make(map[string]int),
	}
}

// scheduleConfig holds a scheduled task.
//
//nolint:betteralign // all fields contain pointers, no optimization possible
type scheduleConfig struct {
	handler  func(context.Context) error
	name     string
	schedule string
}

// Option configures the manager.
type Option func(*config)

// WithTask registers a task handler using structural typing.
// The task's Name() is the job kind it handles. The payload type P must be
// passed explicitly; Go does not infer it from the Handle method.
//
// Example:
//
//	type SummarizeNote struct {
//	    ai *openai.Client
//	}
//
//	func (t *SummarizeNote) Name() string { return "ai.summarize" }
//	func (t *SummarizeNote) Handle(ctx context.Context, p SummarizePayload) error {
//	    return t.ai.Summarize(ctx, p.NoteID)
//	}
//
//	worker.WithTask[SummarizePayload](tasks.NewSummarizeNote(ai))
func WithTask[P any, T interface {
	Name() string
	Handle(context.Context, P) error
}](task T) Option {
	return func(c *config) {
		c.registry.register(task.Name(), newTaskWrapper[P, T](task))
	}
}

// WithScheduledTask registers a periodic task. On every tick of Schedule()
// (5-field cron expression) a job of kind Name() is pushed to the default
// queue and then processed like any other job, so retries and
// dead-lettering apply.
//
// Example:
//
//	type PruneJobs struct {
//	    q *queue.Queue
//	}
//
//	func (t *PruneJobs) Name() string     { return "queue.prune" }
//	func (t *PruneJobs) Schedule() string { return "0 3 * * *" }
//	func (t *PruneJobs) Handle(ctx context.Context) error {
//	    _, err := t.q.Prune(ctx, time.Now().AddDate(0, 0, -7))
//	    return err
//	}
func WithScheduledTask[T interface {
	Name() string
	Schedule() string
	Handle(context.Context) error
}](task T) Option {
	return func(c *config) {
		c.schedules = append(c.schedules, scheduleConfig{
			name:     task.Name(),
			schedule: task.Schedule(),
			handler:  task.Handle,
		})
	}
}

// WithQueue polls an additional named queue with the given number of
// worker goroutines.
//
// Example:
//
//	worker.WithQueue("sms", 8)  // bulk SMS dispatch
//	worker.WithQueue("ai", 2)   // slow third-party calls
func WithQueue(name string, workers int) Option {
	return func(c *config) {
		if name != "" && workers > 0 {
			c.queues[name] = workers
		}
	}
}

// WithWorkers sets the number of goroutines polling the default queue.
// Defaults to 4.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithPollInterval overrides the idle interval after an empty Reserve.
// Defaults to the queue's sleep_when_empty_ms.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithLogger sets the logger for job processing.
// If not set, a noop logger is used.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
