// Package config loads leaseq settings from a YAML file and the environment.
//
// Precedence, lowest first: built-in defaults, the YAML file, environment
// variables. The result is validated before it is returned.
//
//	cfg, err := config.Load("leaseq.yaml")
//	if err != nil {
//	    return err
//	}
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/leaseq/pkg/db"
	"github.com/dmitrymomot/leaseq/pkg/logger"
	"github.com/dmitrymomot/leaseq/pkg/observability"
	"github.com/dmitrymomot/leaseq/pkg/queue"
)

// noDefaultsTag is a tag name no field carries, disabling envDefault.
const noDefaultsTag = "leaseqNoDefault"

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var (
	// ErrReadConfig is returned when the config file cannot be read or parsed.
	ErrReadConfig = errors.New("config: failed to read configuration file")

	// ErrParseEnv is returned when an environment variable has an invalid value.
	ErrParseEnv = errors.New("config: failed to parse environment")

	// ErrInvalid is returned when the merged configuration fails validation.
	ErrInvalid = errors.New("config: invalid configuration")
)

// Config is the root configuration of a leaseq process.
type Config struct {
	Database Database             `yaml:"database"`
	Queue    queue.Config         `yaml:"queue"`
	Worker   Worker               `yaml:"worker"`
	HTTP     HTTP                 `yaml:"http"`
	Logger   logger.Config        `yaml:"logger"`
	Tracing  observability.Config `yaml:"tracing"`
}

// Database selects and configures the backing store.
type Database struct {
	Driver   string          `yaml:"driver" env:"DATABASE_DRIVER" envDefault:"sqlite"`
	Postgres db.Config       `yaml:"postgres"`
	SQLite   db.SQLiteConfig `yaml:"sqlite"`
}

// Worker configures the worker manager.
type Worker struct {
	// Goroutines polling the default queue.
	Concurrency int `yaml:"concurrency" env:"WORKER_CONCURRENCY" envDefault:"4"`

	// Extra queues and their goroutine counts, e.g. WORKER_QUEUES=sms:8,ai:2.
	Queues map[string]int `yaml:"queues" env:"WORKER_QUEUES"`

	// How long Stop waits for in-flight jobs.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"WORKER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// HTTP configures the health endpoint server.
type HTTP struct {
	Addr string `yaml:"addr" env:"HTTP_ADDR" envDefault:":8080"`
}

// Default returns the configuration produced by struct defaults alone.
func Default() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}}); err != nil {
		return Config{}, errors.Join(ErrParseEnv, err)
	}
	return cfg, nil
}

// Load builds the configuration from defaults, the YAML file at path
// (skipped when path is empty) and the process environment.
func Load(path string) (Config, error) {
	return load(path, nil)
}

// load is Load with an injectable environment; nil means the process environment.
func load(path string, environ map[string]string) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return Config{}, err
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Join(ErrReadConfig, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, errors.Join(ErrReadConfig, fmt.Errorf("%s: %w", path, err))
		}
	}

	// Defaults were applied above; this pass only overrides variables that are set.
	opts := env.Options{DefaultValueTagName: noDefaultsTag}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, errors.Join(ErrParseEnv, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	var errs []error
	if !slices.Contains([]string{DriverPostgres, DriverSQLite}, strings.ToLower(c.Database.Driver)) {
		errs = append(errs, fmt.Errorf("%w: %q", db.ErrUnsupportedDriver, c.Database.Driver))
	}
	if strings.EqualFold(c.Database.Driver, DriverPostgres) && c.Database.Postgres.ConnectionString == "" {
		errs = append(errs, errors.New("database.postgres.conn_url is required for the postgres driver"))
	}
	if err := c.Queue.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Worker.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("worker.concurrency must be positive, got %d", c.Worker.Concurrency))
	}
	for name, n := range c.Worker.Queues {
		if name == "" || n < 1 {
			errs = append(errs, fmt.Errorf("worker.queues: invalid entry %q=%d", name, n))
		}
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalid}, errs...)...)
	}
	return nil
}
