package health

import "errors"

var (
	// ErrCheckFailed is returned when one or more health checks fail.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout wraps a check error caused by the check deadline.
	ErrCheckTimeout = errors.New("health: check timeout")
)

// Err returns ErrCheckFailed when the response is unhealthy.
func (r *Response) Err() error {
	if r == nil || r.Status != StatusUnhealthy {
		return nil
	}
	return ErrCheckFailed
}
