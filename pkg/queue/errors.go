package queue

import "errors"

// Queue errors.
var (
	// ErrDisabled is returned by every operation when the queue kill switch is off.
	ErrDisabled = errors.New("queue: disabled")

	// ErrInvalidConfig is returned by New when the configuration cannot be used.
	ErrInvalidConfig = errors.New("queue: invalid config")

	// ErrValidation is returned when push arguments are rejected.
	ErrValidation = errors.New("queue: validation failed")

	// ErrEncoding is returned when a payload cannot be serialized.
	ErrEncoding = errors.New("queue: payload encoding failed")

	// ErrStorage wraps any failure of the backing store.
	ErrStorage = errors.New("queue: storage failure")

	// ErrNoJob is returned by Reserve when no job is eligible.
	ErrNoJob = errors.New("queue: no job available")

	// ErrJobNotFound is returned by Get for unknown ids.
	ErrJobNotFound = errors.New("queue: job not found")

	// ErrStoreRequired is returned by New when no store is given.
	ErrStoreRequired = errors.New("queue: store is required")
)

// storageError wraps err with ErrStorage unless it is one of the
// store-level sentinels that callers match on directly.
func storageError(err error) error {
	if err == nil || errors.Is(err, ErrNoJob) || errors.Is(err, ErrJobNotFound) {
		return err
	}
	return errors.Join(ErrStorage, err)
}
