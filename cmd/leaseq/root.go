package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/leaseq/pkg/config"
	"github.com/dmitrymomot/leaseq/pkg/logger"
	"github.com/dmitrymomot/leaseq/pkg/observability"
	"github.com/dmitrymomot/leaseq/pkg/queue"
	"github.com/dmitrymomot/leaseq/pkg/store"
)

// cli carries state shared by subcommands for one invocation.
type cli struct {
	configPath string
	verbose    bool

	cfg config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "leaseq",
		Short:         "Durable job queue on PostgreSQL or SQLite",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Path to a YAML config file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Log queue operations to stderr")

	root.AddCommand(
		c.migrateCmd(),
		c.pushCmd(),
		c.showCmd(),
		c.statsCmd(),
		c.reapCmd(),
		c.pruneCmd(),
		c.healthCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	if c.verbose {
		c.log = logger.NewWriter(cmd.ErrOrStderr())
	} else {
		c.log = logger.NewNope()
	}
	return nil
}

// withQueue opens the backend, runs fn and releases everything afterwards.
func (c *cli) withQueue(ctx context.Context, fn func(q *queue.Queue, backend store.Backend) error) (err error) {
	backend, closeDB, err := store.Open(ctx, c.cfg.Database)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, closeDB(context.WithoutCancel(ctx))) }()

	tp, shutdownTracer, err := observability.InitTracer(ctx, c.cfg.Tracing, c.log)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, shutdownTracer(context.WithoutCancel(ctx))) }()

	q, err := queue.New(backend, c.cfg.Queue,
		queue.WithLogger(c.log),
		queue.WithTracerProvider(tp),
	)
	if err != nil {
		return err
	}
	return fn(q, backend)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
