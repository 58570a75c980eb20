// Package store opens the queue storage backend selected by configuration.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dmitrymomot/leaseq/pkg/config"
	"github.com/dmitrymomot/leaseq/pkg/db"
	"github.com/dmitrymomot/leaseq/pkg/queue"
	"github.com/dmitrymomot/leaseq/pkg/store/postgres"
	"github.com/dmitrymomot/leaseq/pkg/store/sqlite"
)

// Backend is a queue store that owns its schema.
type Backend interface {
	queue.Store
	Migrate(ctx context.Context, log *slog.Logger) error
}

// Open connects to the database named by cfg.Driver. The returned function
// releases the connection; call it after workers have stopped.
func Open(ctx context.Context, cfg config.Database) (Backend, func(context.Context) error, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DriverPostgres:
		pool, err := db.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		s := postgres.New(pool, postgres.WithMigrationsTable(cfg.Postgres.MigrationsTable))
		return s, db.Shutdown(pool), nil

	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLite)
		if err != nil {
			return nil, nil, err
		}
		return s, db.ShutdownSQLite(s.DB()), nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", db.ErrUnsupportedDriver, cfg.Driver)
	}
}
