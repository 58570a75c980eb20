// Package postgres implements queue.Store on PostgreSQL using pgx.
//
// Reservation takes a row lock with SELECT ... FOR UPDATE SKIP LOCKED:
// concurrent reservers lease distinct rows, each the oldest one not already
// locked, instead of queueing behind the same head row.
package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/leaseq/pkg/db"
	"github.com/dmitrymomot/leaseq/pkg/queue"
)

// dbtx is satisfied by *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a Postgres-backed queue store.
type Store struct {
	*queries
	pool            *pgxpool.Pool
	migrationsTable string
}

// Option configures a Store.
type Option func(*Store)

// WithMigrationsTable overrides the goose version table name.
func WithMigrationsTable(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.migrationsTable = name
		}
	}
}

// New creates a store over pool.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{
		queries:         &queries{db: pool},
		pool:            pool,
		migrationsTable: "schema_migrations",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates or upgrades the queue schema.
func (s *Store) Migrate(ctx context.Context, log *slog.Logger) error {
	return db.Migrate(ctx, s.pool, Migrations(), s.migrationsTable, log)
}

// InTx runs fn in a transaction on the pool.
func (s *Store) InTx(ctx context.Context, fn func(tx queue.Tx) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&queries{db: tx})
	})
}

// Bind returns queue operations that run inside the caller's transaction.
// Use it with Queue.PushTx to enqueue atomically with business writes.
func (s *Store) Bind(tx pgx.Tx) queue.Tx {
	return &queries{db: tx}
}

// Pool returns the underlying connection pool.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

var _ queue.Store = (*Store)(nil)
