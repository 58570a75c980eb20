package db

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Shutdown returns a function that gracefully closes the database connection pool.
// Use with worker.Run shutdown hooks.
//
// Example:
//
//	hooks := []func(context.Context) error{
//	    manager.Shutdown(),
//	    db.Shutdown(pool),
//	}
func Shutdown(pool *pgxpool.Pool) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		pool.Close()
		return nil
	}
}

// ShutdownSQLite returns a function that closes a SQLite handle.
func ShutdownSQLite(db *sql.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return db.Close()
	}
}
