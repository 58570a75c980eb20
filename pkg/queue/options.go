package queue

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// options holds queue construction settings.
type options struct {
	logger         *slog.Logger
	clock          func() time.Time
	tracerProvider trace.TracerProvider
	schemas        map[string]string
}

// Option configures a Queue.
type Option func(*options)

// WithLogger sets the logger for queue transitions.
// If not set, a noop logger is used.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces time.Now. All timestamps written by the queue come from
// this function, which lets tests simulate elapsed time.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
// Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

// WithPayloadSchema registers a JSON schema that payloads of the given kind
// must satisfy at push time.
//
// Example:
//
//	queue.WithPayloadSchema("sms.dispatch", `{
//	    "type": "object",
//	    "required": ["phone", "text"]
//	}`)
func WithPayloadSchema(kind, schema string) Option {
	return func(o *options) {
		if o.schemas == nil {
			o.schemas = make(map[string]string)
		}
		o.schemas[kind] = schema
	}
}

// pushConfig holds options for a single push.
type pushConfig struct {
	queue       string
	delay       time.Duration
	maxAttempts int
}

// PushOption configures a push.
type PushOption func(*pushConfig)

// InQueue selects the queue. Defaults to Config.DefaultQueue.
func InQueue(name string) PushOption {
	return func(c *pushConfig) {
		c.queue = name
	}
}

// Delay hides the job from Reserve for the given duration.
// Negative values are treated as zero.
func Delay(d time.Duration) PushOption {
	return func(c *pushConfig) {
		c.delay = d
	}
}

// MaxAttempts sets the soft retry cap. Values below 1 fall back to 3.
func MaxAttempts(n int) PushOption {
	return func(c *pushConfig) {
		c.maxAttempts = n
	}
}

// releaseConfig holds options for Release.
type releaseConfig struct {
	errMsg   *string
	attempts int
}

// ReleaseOption configures Release.
type ReleaseOption func(*releaseConfig)

// WithError overwrites the job's last error.
func WithError(msg string) ReleaseOption {
	return func(c *releaseConfig) {
		c.errMsg = &msg
	}
}

// WithAttempts overwrites the attempt counter. The counter never decreases,
// so values below the stored count are ignored.
func WithAttempts(n int) ReleaseOption {
	return func(c *releaseConfig) {
		if n > 0 {
			c.attempts = n
		}
	}
}
