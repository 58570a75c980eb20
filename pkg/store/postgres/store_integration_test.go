//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/leaseq/pkg/db"
	"github.com/dmitrymomot/leaseq/pkg/queue"
	"github.com/dmitrymomot/leaseq/pkg/store/postgres"
)

// Run with: DATABASE_URL=postgres://... go test -tags integration ./pkg/store/postgres/...
func newStore(t *testing.T) *postgres.Store {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, db.Config{ConnectionString: url, RetryAttempts: 1, RetryInterval: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Shutdown(pool)(context.Background()) })

	store := postgres.New(pool, postgres.WithMigrationsTable("leaseq_test_migrations"))
	require.NoError(t, store.Migrate(ctx, nil))

	_, err = pool.Exec(ctx, "TRUNCATE queue_jobs RESTART IDENTITY")
	require.NoError(t, err)
	return store
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// The subtests share one table, so they run sequentially.
func TestStore(t *testing.T) {
	setup := func(t *testing.T, mutate func(*queue.Config)) (*queue.Queue, *postgres.Store, *clock) {
		store := newStore(t)
		c := &clock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
		cfg := queue.DefaultConfig()
		if mutate != nil {
			mutate(&cfg)
		}
		q, err := queue.New(store, cfg, queue.WithClock(c.Now))
		require.NoError(t, err)
		return q, store, c
	}

	t.Run("push order and lease", func(t *testing.T) {
		q, _, c := setup(t, nil)
		ctx := queue.WithWorkerID(context.Background(), "pg-worker")

		var ids []int64
		for range 3 {
			id, err := q.Push(ctx, "woo.sync_product", map[string]int{"product_id": 1})
			require.NoError(t, err)
			ids = append(ids, id)
		}

		for _, want := range ids {
			j, err := q.Reserve(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, want, j.ID)
			assert.Equal(t, queue.StatusReserved, j.Status)
			assert.Equal(t, "pg-worker", j.ReservedBy)
			require.NotNil(t, j.ReservedAt)
			assert.True(t, c.Now().Equal(*j.ReservedAt))
		}

		_, err := q.Reserve(ctx, "")
		assert.ErrorIs(t, err, queue.ErrNoJob)
	})

	t.Run("concurrent reserve", func(t *testing.T) {
		q, _, _ := setup(t, nil)
		ctx := context.Background()

		const (
			reservers = 8
			perWorker = 6
			jobs      = reservers * perWorker
		)
		for range jobs {
			_, err := q.Push(ctx, "sms.dispatch", nil)
			require.NoError(t, err)
		}

		var (
			mu   sync.Mutex
			seen = make(map[int64]int)
			wg   sync.WaitGroup
		)
		// Calls equal the backlog, so every call must lease a job: none may
		// report an empty queue while pending rows remain.
		for range reservers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range perWorker {
					j, err := q.Reserve(ctx, "")
					if !assert.NoError(t, err, "reserve with a non-empty backlog") {
						return
					}
					mu.Lock()
					seen[j.ID]++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Len(t, seen, jobs)
		_, err := q.Reserve(ctx, "")
		assert.ErrorIs(t, err, queue.ErrNoJob)
		for id, n := range seen {
			assert.Equal(t, 1, n, "job %d reserved more than once", id)
		}
	})

	t.Run("fail, backoff and dead letter", func(t *testing.T) {
		q, _, c := setup(t, nil)
		ctx := context.Background()

		id, err := q.Push(ctx, "ai.summarize", nil)
		require.NoError(t, err)

		_, err = q.Reserve(ctx, "")
		require.NoError(t, err)
		require.NoError(t, q.Fail(ctx, id, errors.New("upstream 503"), true))

		j, err := q.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, queue.StatusPending, j.Status)
		assert.Equal(t, 1, j.Attempts)
		assert.True(t, c.Now().Add(5*time.Second).Equal(j.AvailableAt))
		assert.Equal(t, "upstream 503", j.LastError)

		c.Advance(5 * time.Second)
		_, err = q.Reserve(ctx, "")
		require.NoError(t, err)
		require.NoError(t, q.Fail(ctx, id, errors.New("bad prompt"), false))

		j, err = q.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, queue.StatusDead, j.Status)
		assert.Equal(t, 2, j.Attempts)
		assert.NotNil(t, j.FinishedAt)
	})

	t.Run("reap and escape hatch", func(t *testing.T) {
		q, _, c := setup(t, nil)
		ctx := context.Background()

		id, err := q.Push(ctx, "ai.summarize", nil, queue.MaxAttempts(1))
		require.NoError(t, err)

		_, err = q.Reserve(ctx, "")
		require.NoError(t, err)
		c.Advance(6 * time.Minute)

		_, err = q.Reserve(ctx, "")
		assert.ErrorIs(t, err, queue.ErrNoJob)

		j, err := q.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, queue.StatusDead, j.Status)
		assert.Equal(t, 1, j.Attempts)
		assert.Equal(t, "lease expired", j.LastError)
	})

	t.Run("ack idempotent and stats", func(t *testing.T) {
		q, _, _ := setup(t, nil)
		ctx := context.Background()

		id, err := q.Push(ctx, "sms.dispatch", nil, queue.InQueue("sms"))
		require.NoError(t, err)
		_, err = q.Reserve(ctx, "sms")
		require.NoError(t, err)

		require.NoError(t, q.Ack(ctx, id))
		require.NoError(t, q.Ack(ctx, id))

		stats, err := q.Stats(ctx, "sms")
		require.NoError(t, err)
		assert.Equal(t, queue.Stats{Done: 1}, stats)
	})

	t.Run("push in caller transaction", func(t *testing.T) {
		q, store, _ := setup(t, nil)
		ctx := context.Background()

		err := db.WithTx(ctx, store.Pool(), func(tx pgx.Tx) error {
			_, err := q.PushTx(ctx, store.Bind(tx), "woo.sync_order", map[string]int{"order_id": 9})
			if err != nil {
				return err
			}
			return errors.New("order rejected")
		})
		require.Error(t, err)

		stats, err := q.Stats(ctx, "")
		require.NoError(t, err)
		assert.Zero(t, stats.Total())
	})
}
