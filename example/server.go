package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/leaseq/pkg/db"
	"github.com/dmitrymomot/leaseq/pkg/health"
	"github.com/dmitrymomot/leaseq/pkg/queue"
	"github.com/dmitrymomot/leaseq/pkg/store"
	"github.com/dmitrymomot/leaseq/pkg/worker"
)

const (
	defaultShutdownTimeout   = 30 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 15 * time.Second
	defaultIdleTimeout       = 60 * time.Second
)

func newRouter(q *queue.Queue, m *worker.Manager, backend store.Backend, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)

	r.Get("/health/live", health.LivenessHandler())
	r.Get("/health/ready", health.ReadinessHandler(health.Checks{
		"database": db.Healthcheck(backend),
		"queue":    queue.Healthcheck(q),
		"workers":  worker.Healthcheck(m),
	}, health.WithLogger(log)))

	r.Get("/stats", statsHandler(q))
	r.Post("/notes/{id}/summarize", summarizeHandler(m))
	return r
}

// statsHandler reports job counts, optionally for ?queue=name.
func statsHandler(q *queue.Queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := q.Stats(r.Context(), r.URL.Query().Get("queue"))
		if err != nil {
			health.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		health.WriteJSON(w, http.StatusOK, stats)
	}
}

// summarizeHandler enqueues an AI summary for a CRM note.
func summarizeHandler(m *worker.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		noteID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || noteID <= 0 {
			health.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid note id"})
			return
		}
		id, err := m.Enqueue(r.Context(), kindSummarizeNote, summarizePayload{NoteID: noteID}, queue.InQueue("ai"))
		if err != nil {
			health.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		health.WriteJSON(w, http.StatusAccepted, map[string]int64{"job_id": id})
	}
}

type serverConfig struct {
	handler         http.Handler
	logger          *slog.Logger
	addr            string
	shutdownTimeout time.Duration
	startupHooks    []func(context.Context) error
	shutdownHooks   []func(context.Context) error
}

// serve runs startup hooks, serves HTTP until ctx is done and then runs
// shutdown hooks in order within the shutdown timeout.
func serve(ctx context.Context, cfg serverConfig) error {
	if cfg.addr == "" {
		cfg.addr = ":8080"
	}
	if cfg.shutdownTimeout <= 0 {
		cfg.shutdownTimeout = defaultShutdownTimeout
	}
	log := cfg.logger

	server := &http.Server{
		Addr:              cfg.addr,
		Handler:           cfg.handler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	shutdown := func() error {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.shutdownTimeout)
		defer cancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		for _, hook := range cfg.shutdownHooks {
			if err := hook(shutdownCtx); err != nil {
				log.Error("shutdown hook failed", slog.Any("error", err))
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return errors.Join(err, shutdown())
	}

	for _, hook := range cfg.startupHooks {
		if err := hook(ctx); err != nil {
			_ = ln.Close()
			return errors.Join(err, shutdown())
		}
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", slog.String("address", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
	}

	log.Info("shutting down")
	if err := errors.Join(serveErr, shutdown()); err != nil {
		return err
	}
	log.Info("shutdown completed")
	return nil
}
