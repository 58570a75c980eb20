package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/leaseq/pkg/db"
	"github.com/dmitrymomot/leaseq/pkg/queue"
	"github.com/dmitrymomot/leaseq/pkg/store/sqlite"
)

type scheduledTask struct {
	name     string
	schedule string
	runs     atomic.Int32
}

func (t *scheduledTask) Name() string     { return t.name }
func (t *scheduledTask) Schedule() string { return t.schedule }

func (t *scheduledTask) Handle(context.Context) error {
	t.runs.Add(1)
	return nil
}

func TestScheduledTask_FiresThroughQueue(t *testing.T) {
	t.Parallel()

	q := newTestQueue(t)
	task := &scheduledTask{name: "queue.prune", schedule: "0 3 * * *"}
	m := startManager(t, q, WithScheduledTask(task))
	require.Len(t, m.schedules, 1)

	ctx := context.Background()
	m.fireSchedule(ctx, m.schedules[0])

	require.Eventually(t, func() bool { return task.runs.Load() == 1 }, waitFor, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		stats, err := q.Stats(ctx, "")
		return err == nil && stats == queue.Stats{Done: 1}
	}, waitFor, 10*time.Millisecond)
}

func TestScheduledTask_Registered(t *testing.T) {
	t.Parallel()

	m, err := NewManager(newTestQueue(t), WithScheduledTask(&scheduledTask{name: "report.daily", schedule: "0 6 * * *"}))
	require.NoError(t, err)

	_, ok := m.registry.get("report.daily")
	assert.True(t, ok, "scheduled tasks are dispatchable by kind")

	_, err = m.Enqueue(context.Background(), "report.daily", nil)
	assert.NoError(t, err)
}

func TestScheduledTask_EnqueueFailureIsLogged(t *testing.T) {
	t.Parallel()

	cfg := queue.DefaultConfig()
	cfg.Enabled = false
	store, err := sqlite.Open(context.Background(), db.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	q, err := queue.New(store, cfg)
	require.NoError(t, err)

	m, err := NewManager(q, WithScheduledTask(&scheduledTask{name: "report.daily", schedule: "0 6 * * *"}))
	require.NoError(t, err)

	assert.NotPanics(t, func() { m.fireSchedule(context.Background(), m.schedules[0]) })
}
