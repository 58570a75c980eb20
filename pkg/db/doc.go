// Package db provides database utilities for the queue storage backends.
//
// Postgres access wraps [github.com/jackc/pgx/v5/pgxpool]; the embedded backend uses
// the pure-Go SQLite driver [modernc.org/sqlite]. Schema changes are applied with
// [github.com/pressly/goose/v3].
//
// # Features
//
//   - Postgres connection pooling with configurable limits and timeouts
//   - Automatic retry logic with backoff during startup
//   - SQLite handles tuned for a single writer (WAL, busy timeout)
//   - Health check function compatible with standard health check interfaces
//   - Migrations from any [io/fs.FS], serialized across processes on Postgres
//   - Environment-based configuration for deployment convenience
//
// # Configuration
//
// Postgres settings are loaded from environment variables:
//
//	DATABASE_CONN_URL           - PostgreSQL connection URL
//	DATABASE_MAX_OPEN_CONNS     - Maximum open connections (default: 10)
//	DATABASE_MIN_CONNS          - Minimum idle connections (default: 5)
//	DATABASE_HEALTHCHECK_PERIOD - Health check interval (default: 1m)
//	DATABASE_MAX_CONN_IDLE_TIME - Maximum connection idle time (default: 10m)
//	DATABASE_MAX_CONN_LIFETIME  - Maximum connection lifetime (default: 30m)
//	DATABASE_RETRY_ATTEMPTS     - Connection retry attempts (default: 3)
//	DATABASE_RETRY_INTERVAL     - Base retry interval (default: 5s)
//	DATABASE_MIGRATIONS_TABLE   - Migrations table name (default: schema_migrations)
//
// SQLite settings:
//
//	SQLITE_PATH                 - Database file (default: leaseq.db)
//	SQLITE_BUSY_TIMEOUT         - Lock wait (default: 5s)
//	SQLITE_MIGRATIONS_TABLE     - Migrations table name (default: schema_migrations)
//
// # Usage
//
//	pool, err := db.Connect(ctx, cfg.Database.Postgres)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer pool.Close()
//
// # Transactions
//
// The [WithTx] helper provides automatic transaction management with rollback on error:
//
//	err := db.WithTx(ctx, pool, func(tx pgx.Tx) error {
//		return tx.QueryRow(ctx, "SELECT 1").Scan(&result)
//	})
//
// [WithImmediateTx] is the SQLite counterpart. It pins one connection and takes
// the write lock at BEGIN so concurrent writers queue up instead of failing with
// SQLITE_BUSY on upgrade.
//
// # Error Handling
//
// The package defines sentinel errors for common failure modes:
//
//   - [ErrFailedToParseDBConfig] - Invalid connection string or path
//   - [ErrFailedToOpenDBConnection] - Connection failed after all retries
//   - [ErrHealthcheckFailed] - Database ping failed
//   - [ErrCreateMigrator] - Migration provider could not be built
//   - [ErrApplyMigrations] - Migration execution failed
//
// Errors are wrapped using [errors.Join] to preserve the original error context.
package db
