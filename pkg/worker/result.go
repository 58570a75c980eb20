package worker

import (
	"errors"
	"fmt"
	"time"
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks a handler error as not worth retrying.
// The job is dead-lettered on the first failure.
//
// Example:
//
//	if errors.Is(err, sms.ErrInvalidNumber) {
//	    return worker.Permanent(err)
//	}
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

type snoozeError struct {
	delay time.Duration
}

func (e *snoozeError) Error() string {
	return fmt.Sprintf("worker: job snoozed for %s", e.delay)
}

// Snooze asks the worker to release the job back to the queue for d
// without counting a failed attempt. Use it when a downstream dependency
// is rate limiting.
func Snooze(d time.Duration) error {
	return &snoozeError{delay: max(d, 0)}
}

// snoozeDelay returns the requested delay if err came from Snooze.
func snoozeDelay(err error) (time.Duration, bool) {
	var se *snoozeError
	if errors.As(err, &se) {
		return se.delay, true
	}
	return 0, false
}

// retryable reports whether a failed job should be retried.
func retryable(err error) bool {
	switch {
	case IsPermanent(err),
		errors.Is(err, ErrUnknownTask),
		errors.Is(err, ErrInvalidPayload):
		return false
	default:
		return true
	}
}
