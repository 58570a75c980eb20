package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/leaseq/pkg/health"
	"github.com/dmitrymomot/leaseq/pkg/queue"
	"github.com/dmitrymomot/leaseq/pkg/store"
)

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the job table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withQueue(cmd.Context(), func(_ *queue.Queue, backend store.Backend) error {
				if err := backend.Migrate(cmd.Context(), c.log); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", c.cfg.Database.Driver)
				return nil
			})
		},
	}
}

func (c *cli) pushCmd() *cobra.Command {
	var (
		queueName   string
		delay       time.Duration
		maxAttempts int
	)

	cmd := &cobra.Command{
		Use:   "push <kind> [payload-json]",
		Short: "Push a job",
		Example: `  leaseq push ai.summarize '{"note_id": 7}'
  leaseq push sms.dispatch '{"to": "+15550100"}' --queue sms --delay 10m`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload any
			if len(args) == 2 {
				raw := json.RawMessage(args[1])
				if !json.Valid(raw) {
					return fmt.Errorf("%w: payload is not valid JSON", queue.ErrEncoding)
				}
				payload = raw
			}

			return c.withQueue(cmd.Context(), func(q *queue.Queue, _ store.Backend) error {
				id, err := q.Push(cmd.Context(), args[0], payload,
					queue.InQueue(queueName),
					queue.Delay(delay),
					queue.MaxAttempts(maxAttempts),
				)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&queueName, "queue", "q", "", "Queue name (default from config)")
	cmd.Flags().DurationVar(&delay, "delay", 0, "Delay before the job becomes visible")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "Attempt budget (default 3)")
	return cmd
}

func (c *cli) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Print a job as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q: %w", args[0], err)
			}
			return c.withQueue(cmd.Context(), func(q *queue.Queue, _ store.Backend) error {
				j, err := q.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), j)
			})
		},
	}
}

func (c *cli) statsCmd() *cobra.Command {
	var queueName string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Count jobs per status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withQueue(cmd.Context(), func(q *queue.Queue, _ store.Backend) error {
				stats, err := q.Stats(cmd.Context(), queueName)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), stats)
			})
		},
	}
	cmd.Flags().StringVarP(&queueName, "queue", "q", "", "Restrict to one queue (default all)")
	return cmd
}

func (c *cli) reapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Return jobs with expired leases to pending",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withQueue(cmd.Context(), func(q *queue.Queue, _ store.Backend) error {
				n, err := q.Reap(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d jobs reclaimed\n", n)
				return nil
			})
		},
	}
}

func (c *cli) pruneCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete done and dead jobs finished before a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan < 0 {
				return errors.New("--older-than must not be negative")
			}
			return c.withQueue(cmd.Context(), func(q *queue.Queue, _ store.Backend) error {
				n, err := q.Prune(cmd.Context(), time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d jobs deleted\n", n)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "Minimum age of finished jobs to delete")
	return cmd
}

func (c *cli) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check database connectivity and queue state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withQueue(cmd.Context(), func(q *queue.Queue, _ store.Backend) error {
				resp := health.Run(cmd.Context(), health.Checks{
					"queue": queue.Healthcheck(q),
				}, health.WithLogger(c.log))
				if err := printJSON(cmd.OutOrStdout(), resp); err != nil {
					return err
				}
				return resp.Err()
			})
		},
	}
}

