package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "default", cfg.DefaultQueue)
	assert.Equal(t, 5*time.Minute, cfg.ReserveTimeout())
	assert.Equal(t, time.Second, cfg.SleepWhenEmpty())
	assert.Equal(t, 10, cfg.DeadAfterAttempts)
	assert.True(t, cfg.ReapCountsAttempt)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "empty default queue",
			mutate: func(c *Config) { c.DefaultQueue = "  " },
			want:   "default_queue",
		},
		{
			name:   "zero reserve timeout",
			mutate: func(c *Config) { c.ReserveTimeoutSec = 0 },
			want:   "reserve_timeout_sec",
		},
		{
			name:   "negative sleep",
			mutate: func(c *Config) { c.SleepWhenEmptyMs = -1 },
			want:   "sleep_when_empty_ms",
		},
		{
			name:   "zero dead after",
			mutate: func(c *Config) { c.DeadAfterAttempts = 0 },
			want:   "dead_after_attempts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_ZeroSleepIsValid(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.SleepWhenEmptyMs = 0
	assert.NoError(t, cfg.Validate())
	assert.Zero(t, cfg.SleepWhenEmpty())
}
