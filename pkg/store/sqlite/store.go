// Package sqlite implements queue.Store on an embedded SQLite database.
//
// SQLite has no row locks; reservation transactions start with BEGIN IMMEDIATE,
// which takes the database write lock and serializes concurrent reservers.
// Suitable for single-host deployments, development and tests.
package sqlite

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/dmitrymomot/leaseq/pkg/db"
	"github.com/dmitrymomot/leaseq/pkg/queue"
)

// dbtx is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a SQLite-backed queue store.
type Store struct {
	*queries
	db              *sql.DB
	migrationsTable string
}

// New creates a store over an open SQLite handle (see db.OpenSQLite).
func New(sqlDB *sql.DB) *Store {
	return &Store{
		queries:         &queries{db: sqlDB},
		db:              sqlDB,
		migrationsTable: "schema_migrations",
	}
}

// Open opens the database described by cfg and wraps it in a store.
func Open(ctx context.Context, cfg db.SQLiteConfig) (*Store, error) {
	sqlDB, err := db.OpenSQLite(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := New(sqlDB)
	if cfg.MigrationsTable != "" {
		s.migrationsTable = cfg.MigrationsTable
	}
	return s, nil
}

// Migrate creates or upgrades the queue schema.
func (s *Store) Migrate(ctx context.Context, log *slog.Logger) error {
	return db.MigrateSQLite(ctx, s.db, Migrations(), s.migrationsTable, log)
}

// InTx runs fn inside a BEGIN IMMEDIATE transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx queue.Tx) error) error {
	return db.WithImmediateTx(ctx, s.db, func(conn *sql.Conn) error {
		return fn(&queries{db: conn})
	})
}

// Bind returns queue operations that run inside the caller's transaction.
// Use it with Queue.PushTx to enqueue atomically with business writes.
func (s *Store) Bind(tx *sql.Tx) queue.Tx {
	return &queries{db: tx}
}

// Ping verifies the database handle.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ queue.Store = (*Store)(nil)
