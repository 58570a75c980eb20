package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/leaseq/pkg/db"
	"github.com/dmitrymomot/leaseq/pkg/queue"
	"github.com/dmitrymomot/leaseq/pkg/store/sqlite"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()

	ctx := context.Background()
	store, err := sqlite.Open(ctx, db.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx, nil))
	return store
}

func insert(t *testing.T, tx queue.Tx, queueName string, at time.Time) int64 {
	t.Helper()
	id, err := tx.InsertJob(context.Background(), &queue.Job{
		Queue:       queueName,
		Kind:        "sms.dispatch",
		Payload:     []byte(`{"phone":"+15550100"}`),
		MaxAttempts: 3,
		AvailableAt: at,
		CreatedAt:   at,
	})
	require.NoError(t, err)
	return id
}

func TestStore_MigrateTwice(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	assert.NoError(t, store.Migrate(context.Background(), nil))
}

func TestStore_FileDatabase(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := t.TempDir() + "/nested/leaseq.db"

	store, err := sqlite.Open(ctx, db.SQLiteConfig{Path: path, MigrationsTable: "leaseq_migrations"})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx, nil))
	id := insert(t, store, "default", time.Now())
	require.NoError(t, store.Close())

	reopened, err := sqlite.Open(ctx, db.SQLiteConfig{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	j, err := reopened.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "sms.dispatch", j.Kind)
}

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 9, 0, 0, 123_000_000, time.UTC)

	id := insert(t, store, "sms", at)

	j, err := store.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "sms", j.Queue)
	assert.Equal(t, queue.StatusPending, j.Status)
	assert.JSONEq(t, `{"phone":"+15550100"}`, string(j.Payload))
	assert.Equal(t, at, j.AvailableAt)
	assert.Equal(t, at, j.CreatedAt)
	assert.Nil(t, j.ReservedAt)

	_, err = store.GetJob(ctx, id+1)
	assert.ErrorIs(t, err, queue.ErrJobNotFound)
}

func TestStore_NextPending(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	later := insert(t, store, "sms", now.Add(time.Minute))
	first := insert(t, store, "sms", now)
	insert(t, store, "ai", now)

	j, err := store.NextPending(ctx, "sms", now)
	require.NoError(t, err)
	assert.Equal(t, first, j.ID)

	j, err = store.NextPending(ctx, "sms", now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, later, j.ID, "lowest id among eligible rows")

	_, err = store.NextPending(ctx, "woo", now)
	assert.ErrorIs(t, err, queue.ErrNoJob)
}

func TestStore_InTxRollsBack(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.InTx(ctx, func(tx queue.Tx) error {
		insert(t, tx, "default", time.Now())
		return boom
	})
	assert.ErrorIs(t, err, boom)

	counts, err := store.CountByStatus(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestStore_ConditionalUpdates(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	id := insert(t, store, "default", now)

	n, err := store.CompleteJob(ctx, id, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.CompleteJob(ctx, id, now)
	require.NoError(t, err)
	assert.Zero(t, n)

	msg := "late"
	n, err = store.RequeueJob(ctx, queue.RequeueParams{ID: id, AvailableAt: now, Now: now, Error: &msg, Attempts: 1})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = store.BuryJob(ctx, queue.BuryParams{ID: id, Now: now, Error: &msg, Attempts: 1})
	require.NoError(t, err)
	assert.Zero(t, n)

	j, err := store.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusDone, j.Status)
	assert.Zero(t, j.Attempts)
}

func TestStore_ReapExpired(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	stale := insert(t, store, "default", now)
	fresh := insert(t, store, "default", now)
	require.NoError(t, store.MarkReserved(ctx, queue.ReserveParams{ID: stale, Now: now, By: "w1"}))
	require.NoError(t, store.MarkReserved(ctx, queue.ReserveParams{ID: fresh, Now: now.Add(4 * time.Minute), By: "w2"}))

	n, err := store.ReapExpired(ctx, queue.ReapParams{
		Cutoff:       now.Add(time.Minute),
		Now:          now.Add(6 * time.Minute),
		Reason:       "lease expired",
		CountAttempt: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	j, err := store.GetJob(ctx, stale)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusPending, j.Status)
	assert.Equal(t, 1, j.Attempts)
	assert.Empty(t, j.ReservedBy)

	j, err = store.GetJob(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusReserved, j.Status)
	assert.Equal(t, "w2", j.ReservedBy)
}

func TestStore_Ping(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}
