package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/leaseq/pkg/db"
	"github.com/dmitrymomot/leaseq/pkg/queue"
	"github.com/dmitrymomot/leaseq/pkg/store/sqlite"
)

// testClock is a manually advanced clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	q     *queue.Queue
	store *sqlite.Store
	clock *testClock
}

// newStore opens a migrated in-memory SQLite store.
func newStore(t *testing.T) *sqlite.Store {
	t.Helper()

	ctx := context.Background()
	store, err := sqlite.Open(ctx, db.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(ctx, nil))
	return store
}

// newHarness builds a queue over a fresh store. mutate may adjust the config.
func newHarness(t *testing.T, mutate func(*queue.Config), opts ...queue.Option) *harness {
	t.Helper()

	store := newStore(t)
	clock := newTestClock()

	cfg := queue.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	q, err := queue.New(store, cfg, append([]queue.Option{queue.WithClock(clock.Now)}, opts...)...)
	require.NoError(t, err)

	return &harness{q: q, store: store, clock: clock}
}

func (h *harness) push(t *testing.T, kind string, payload any, opts ...queue.PushOption) int64 {
	t.Helper()
	id, err := h.q.Push(context.Background(), kind, payload, opts...)
	require.NoError(t, err)
	return id
}

func (h *harness) reserve(t *testing.T, name string) *queue.Job {
	t.Helper()
	j, err := h.q.Reserve(context.Background(), name)
	require.NoError(t, err)
	require.NotNil(t, j)
	return j
}

func (h *harness) get(t *testing.T, id int64) *queue.Job {
	t.Helper()
	j, err := h.q.Get(context.Background(), id)
	require.NoError(t, err)
	return j
}
