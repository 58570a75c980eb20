package queue

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	defaultQueueName         = "default"
	defaultReserveTimeoutSec = 300
	defaultSleepWhenEmptyMs  = 1000
	defaultDeadAfterAttempts = 10
	defaultMaxAttempts       = 3
)

// Config holds queue behavior settings.
// Fields are populated from YAML or environment variables by pkg/config.
type Config struct {
	// DefaultQueue is used when Push or Reserve is called without a queue name.
	DefaultQueue string `yaml:"default_queue" env:"QUEUE_DEFAULT" envDefault:"default"`

	// ReserveTimeoutSec is the lease length. Reserved jobs older than this are
	// reclaimed by the next Reserve call.
	ReserveTimeoutSec int `yaml:"reserve_timeout_sec" env:"QUEUE_RESERVE_TIMEOUT_SEC" envDefault:"300"`

	// SleepWhenEmptyMs is how long pollers idle after Reserve returns ErrNoJob.
	SleepWhenEmptyMs int `yaml:"sleep_when_empty_ms" env:"QUEUE_SLEEP_WHEN_EMPTY_MS" envDefault:"1000"`

	// DeadAfterAttempts is the hard retry ceiling, independent of per-job MaxAttempts.
	DeadAfterAttempts int `yaml:"dead_after_attempts" env:"QUEUE_DEAD_AFTER_ATTEMPTS" envDefault:"10"`

	// Enabled is the kill switch. When false every operation returns ErrDisabled.
	Enabled bool `yaml:"enabled" env:"QUEUE_ENABLED" envDefault:"true"`

	// ReapCountsAttempt makes an expired lease count as a failed attempt, so a job
	// that keeps crashing its worker is eventually dead-lettered.
	ReapCountsAttempt bool `yaml:"reap_counts_attempt" env:"QUEUE_REAP_COUNTS_ATTEMPT" envDefault:"true"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		DefaultQueue:      defaultQueueName,
		ReserveTimeoutSec: defaultReserveTimeoutSec,
		SleepWhenEmptyMs:  defaultSleepWhenEmptyMs,
		DeadAfterAttempts: defaultDeadAfterAttempts,
		ReapCountsAttempt: true,
	}
}

// ReserveTimeout returns the lease length as a duration.
func (c Config) ReserveTimeout() time.Duration {
	return time.Duration(c.ReserveTimeoutSec) * time.Second
}

// SleepWhenEmpty returns the poll idle interval as a duration.
func (c Config) SleepWhenEmpty() time.Duration {
	return time.Duration(c.SleepWhenEmptyMs) * time.Millisecond
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DefaultQueue) == "" {
		errs = append(errs, errors.New("default_queue must not be empty"))
	}
	if c.ReserveTimeoutSec <= 0 {
		errs = append(errs, fmt.Errorf("reserve_timeout_sec must be positive, got %d", c.ReserveTimeoutSec))
	}
	if c.SleepWhenEmptyMs < 0 {
		errs = append(errs, fmt.Errorf("sleep_when_empty_ms must not be negative, got %d", c.SleepWhenEmptyMs))
	}
	if c.DeadAfterAttempts <= 0 {
		errs = append(errs, fmt.Errorf("dead_after_attempts must be positive, got %d", c.DeadAfterAttempts))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}
