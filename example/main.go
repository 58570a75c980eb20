// Command example runs a CRM background worker on leaseq: it summarizes
// notes, syncs WooCommerce products, dispatches SMS and prunes old jobs,
// and serves health and queue stats over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrymomot/leaseq/pkg/config"
	"github.com/dmitrymomot/leaseq/pkg/logger"
	"github.com/dmitrymomot/leaseq/pkg/observability"
	"github.com/dmitrymomot/leaseq/pkg/queue"
	"github.com/dmitrymomot/leaseq/pkg/store"
	"github.com/dmitrymomot/leaseq/pkg/worker"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("worker exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.NewFromConfig(cfg.Logger, logger.WorkerIDExtractor(), logger.JobExtractor())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	backend, closeDB, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	if err := backend.Migrate(ctx, log); err != nil {
		return errors.Join(err, closeDB(ctx))
	}

	tp, shutdownTracer, err := observability.InitTracer(ctx, cfg.Tracing, log)
	if err != nil {
		return errors.Join(err, closeDB(ctx))
	}

	q, err := queue.New(backend, cfg.Queue,
		queue.WithLogger(log),
		queue.WithTracerProvider(tp),
		queue.WithPayloadSchema(kindSendSMS, sendSMSSchema),
	)
	if err != nil {
		return errors.Join(err, shutdownTracer(ctx), closeDB(ctx))
	}

	opts := []worker.Option{
		worker.WithLogger(log),
		worker.WithWorkers(cfg.Worker.Concurrency),
		worker.WithTask[summarizePayload](&summarizeNote{ai: stubSummarizer{}, log: log}),
		worker.WithTask[syncProductPayload](&syncProduct{shop: stubShop{}, log: log}),
		worker.WithTask[sendSMSPayload](&sendSMS{gateway: newRateLimitedGateway(30, time.Minute), log: log}),
		worker.WithScheduledTask(&pruneJobs{queue: q, retention: 7 * 24 * time.Hour}),
		worker.WithQueue("ai", 2),
		worker.WithQueue("sms", 4),
	}
	// Configured queues override the defaults above.
	for name, n := range cfg.Worker.Queues {
		opts = append(opts, worker.WithQueue(name, n))
	}

	manager, err := worker.NewManager(q, opts...)
	if err != nil {
		return errors.Join(err, shutdownTracer(ctx), closeDB(ctx))
	}

	return serve(ctx, serverConfig{
		addr:            cfg.HTTP.Addr,
		handler:         newRouter(q, manager, backend, log),
		logger:          log,
		shutdownTimeout: cfg.Worker.ShutdownTimeout,
		startupHooks:    []func(context.Context) error{manager.StartFunc()},
		// Workers stop before the database closes.
		shutdownHooks: []func(context.Context) error{
			manager.Shutdown(),
			shutdownTracer,
			closeDB,
		},
	})
}
