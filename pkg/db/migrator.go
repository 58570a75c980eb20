package db

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
	"github.com/pressly/goose/v3/lock"
)

// Migrate applies Postgres migrations from fsys (SQL files at its root).
//
// Concurrent migrators are serialized by a Postgres advisory lock held by the
// migration provider for the duration of the run, so several worker processes
// can start at once.
func Migrate(ctx context.Context, pool *pgxpool.Pool, migrations fs.FS, migrationTable string, log *slog.Logger) error {
	// Bridge pgx connection pool to database/sql interface required by goose.
	// Note: We don't close db here because stdlib.OpenDBFromPool shares the underlying
	// pool connections, and closing would disrupt the shared pool.
	db := stdlib.OpenDBFromPool(pool)

	locker, err := lock.NewPostgresSessionLocker()
	if err != nil {
		return errors.Join(ErrCreateMigrator, err)
	}

	return runMigrations(ctx, db, database.DialectPostgres, migrations, migrationTable, log,
		goose.WithSessionLocker(locker),
	)
}

// MigrateSQLite applies SQLite migrations from fsys (SQL files at its root).
func MigrateSQLite(ctx context.Context, db *sql.DB, migrations fs.FS, migrationTable string, log *slog.Logger) error {
	return runMigrations(ctx, db, database.DialectSQLite3, migrations, migrationTable, log)
}

func runMigrations(
	ctx context.Context,
	db *sql.DB,
	dialect database.Dialect,
	migrations fs.FS,
	migrationTable string,
	log *slog.Logger,
	opts ...goose.ProviderOption,
) error {
	if migrationTable == "" {
		migrationTable = "schema_migrations"
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	store, err := database.NewStore(dialect, migrationTable)
	if err != nil {
		return errors.Join(ErrCreateMigrator, err)
	}

	// Dialect must be empty when a custom store is supplied.
	provider, err := goose.NewProvider("", db, migrations, append(opts, goose.WithStore(store))...)
	if err != nil {
		return errors.Join(ErrCreateMigrator, err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return errors.Join(ErrApplyMigrations, err)
	}

	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		log.InfoContext(ctx, "migration applied",
			slog.String("dialect", string(dialect)),
			slog.Int64("version", r.Source.Version),
			slog.String("path", r.Source.Path),
			slog.Duration("duration", r.Duration),
		)
	}

	return nil
}
