// Package observability configures OpenTelemetry tracing for queue processes.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ErrUnknownExporter is returned for an unsupported exporter name.
var ErrUnknownExporter = errors.New("observability: unknown trace exporter")

// Config holds tracing settings.
type Config struct {
	// Exporter is "none", "stdout" or "otlp".
	Exporter    string `yaml:"exporter" env:"TRACING_EXPORTER" envDefault:"none"`
	Endpoint    string `yaml:"endpoint" env:"TRACING_ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"TRACING_SERVICE_NAME" envDefault:"leaseq"`
	Insecure    bool   `yaml:"insecure" env:"TRACING_INSECURE" envDefault:"true"`
}

// ShutdownFunc flushes and stops a tracer provider.
type ShutdownFunc func(context.Context) error

// InitTracer builds a tracer provider for cfg. With exporter "none" it
// returns a no-op provider. The provider is not installed globally; pass it
// to queue.WithTracerProvider.
func InitTracer(ctx context.Context, cfg Config, log *slog.Logger) (trace.TracerProvider, ShutdownFunc, error) {
	return initTracer(ctx, cfg, os.Stdout, log)
}

func initTracer(ctx context.Context, cfg Config, stdout io.Writer, log *slog.Logger) (trace.TracerProvider, ShutdownFunc, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	var (
		exporter sdktrace.SpanExporter
		err      error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Exporter)) {
	case "", "none":
		return noop.NewTracerProvider(), func(context.Context) error { return nil }, nil
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(stdout))
		if err != nil {
			return nil, nil, fmt.Errorf("observability: create stdout trace exporter: %w", err)
		}
	case "otlp":
		opts := []otlptracehttp.Option{}
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("observability: create otlp trace exporter: %w", err)
		}
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownExporter, cfg.Exporter)
	}

	service := cfg.ServiceName
	if service == "" {
		service = "leaseq"
	}
	res := resource.NewSchemaless(attribute.String("service.name", service))

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	log.InfoContext(ctx, "trace exporter configured",
		slog.String("exporter", cfg.Exporter),
		slog.String("endpoint", cfg.Endpoint),
		slog.String("service", service),
	)

	return tp, func(ctx context.Context) error {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(shutdownCtx)
	}, nil
}
