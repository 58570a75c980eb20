package worker

import "errors"

// Worker errors.
var (
	// ErrUnknownTask is returned when a job kind has no registered task.
	// Such jobs are dead-lettered without retry.
	ErrUnknownTask = errors.New("worker: unknown task")

	// ErrInvalidPayload is returned when a job payload cannot be
	// unmarshaled into the task's payload type.
	ErrInvalidPayload = errors.New("worker: invalid payload")

	// ErrTaskPanic is returned when a task handler panics.
	ErrTaskPanic = errors.New("worker: task panicked")

	// ErrAlreadyStarted is returned when starting a running manager.
	ErrAlreadyStarted = errors.New("worker: already started")

	// ErrNotStarted is returned when stopping a manager that is not running.
	ErrNotStarted = errors.New("worker: not started")

	// ErrQueueRequired is returned when a manager is created without a queue.
	ErrQueueRequired = errors.New("worker: queue is required")

	// ErrInvalidSchedule is returned for a malformed cron expression.
	ErrInvalidSchedule = errors.New("worker: invalid schedule")

	// ErrHealthcheckFailed is returned when the manager health check fails.
	ErrHealthcheckFailed = errors.New("worker: healthcheck failed")
)
