// Package configx loads configuration from layered sources and keeps it fresh.
//
// Overview:
//   - Responsibility: Merge env and file sources, bind them onto tagged structs, publish changes
//   - Key Types: Source, Manager, BaseConfig
//   - Concurrency Model: Manager is safe for concurrent use; subscribers run on the watcher goroutine
//   - Error Semantics: Construction and binding return errors; watch failures are logged
//   - Performance Notes: Bursts of file events are debounced into one update
//
// Usage:
//
//	mgr, err := configx.NewManager(ctx, configx.Options{
//	  Logger:  logger,
//	  Sources: []configx.Source{configx.NewEnvSource(configx.EnvOptions{}), configx.NewFileSource("carddesk.yaml", configx.FileOptions{Watch: true})},
//	})
//	var cfg AppConfig
//	err = mgr.Bind(&cfg)
package configx

import (
	"context"
	"fmt"
	"time"

	"go.eggybyte.com/carddesk/configx/internal"
	"go.eggybyte.com/carddesk/core/log"
)

// Source produces flat key/value snapshots.
// Implementations must be safe for concurrent use and close their Watch channel when ctx ends.
type Source interface {
	Load(ctx context.Context) (map[string]string, error)
	Watch(ctx context.Context) (<-chan map[string]string, error)
}

// Manager exposes the merged configuration. Later sources override earlier ones
// and empty values never override.
type Manager interface {
	// Snapshot returns a copy of the merged configuration.
	Snapshot() map[string]string

	// Value returns a single merged key.
	Value(key string) (string, bool)

	// Bind fills target, a pointer to a struct with `env` and `default` tags.
	Bind(target any) error

	// OnUpdate subscribes to changed snapshots and returns the unsubscribe function.
	OnUpdate(fn func(snapshot map[string]string)) (unsubscribe func())
}

// Options configures NewManager.
type Options struct {
	Logger   log.Logger
	Sources  []Source
	Debounce time.Duration // default 200ms
}

// BaseConfig carries the settings every carddesk process reads.
type BaseConfig struct {
	ServiceName    string `env:"SERVICE_NAME" default:"carddesk"`
	ServiceVersion string `env:"SERVICE_VERSION" default:"0.0.0"`
	Env            string `env:"ENV" default:"dev"`

	LogLevel           string   `env:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn warning error"`
	LogFormat          string   `env:"LOG_FORMAT" default:"logfmt" validate:"oneof=logfmt json"`
	LogColor           bool     `env:"LOG_COLOR" default:"false"`
	LogSensitiveFields []string `env:"LOG_SENSITIVE_FIELDS"`

	HTTPPort    string `env:"HTTP_PORT" default:":8080" validate:"required"`
	HealthPort  string `env:"HEALTH_PORT" default:":8082"`
	MetricsPort string `env:"METRICS_PORT" default:":9091"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"15s" validate:"gt=0"`
	DebounceMillis  int           `env:"CONFIG_DEBOUNCE_MS" default:"200" validate:"gte=0"`
}

type manager struct {
	impl *internal.ManagerImpl
}

// NewManager loads every source once and starts watching them until ctx ends.
//
// Parameters:
//   - ctx: bounds the lifetime of the source watchers
//   - opts: logger and sources are required
//
// Returns:
//   - Manager: initialised manager
//   - error: missing options or a failed initial load
func NewManager(ctx context.Context, opts Options) (Manager, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if len(opts.Sources) == 0 {
		return nil, fmt.Errorf("at least one source is required")
	}

	sources := make([]internal.Source, len(opts.Sources))
	for i, src := range opts.Sources {
		sources[i] = src
	}

	impl, err := internal.NewManager(opts.Logger, sources, opts.Debounce)
	if err != nil {
		return nil, err
	}
	if err := impl.Initialize(ctx); err != nil {
		return nil, err
	}
	return &manager{impl: impl}, nil
}

func (m *manager) Snapshot() map[string]string {
	return m.impl.Snapshot()
}

func (m *manager) Value(key string) (string, bool) {
	return m.impl.Value(key)
}

func (m *manager) Bind(target any) error {
	return m.impl.Bind(target)
}

func (m *manager) OnUpdate(fn func(map[string]string)) func() {
	return m.impl.OnUpdate(fn)
}

// EnvOptions configures NewEnvSource.
type EnvOptions struct {
	Prefix string
}

// NewEnvSource reads the process environment.
func NewEnvSource(opts EnvOptions) Source {
	return internal.NewEnvSource(internal.EnvOptions{Prefix: opts.Prefix})
}

// NewStaticSource serves a fixed snapshot. Place it last to let command-line
// flags override the environment and files.
func NewStaticSource(values map[string]string) Source {
	return internal.NewStaticSource(values)
}

// FileOptions configures NewFileSource.
type FileOptions struct {
	Watch  bool
	Format string // "yaml" or "json"; detected from the extension when empty
	Logger log.Logger
}

// NewFileSource reads a YAML or JSON file. Nested keys are flattened to
// upper-case underscore form so they line up with `env` tags.
func NewFileSource(path string, opts FileOptions) Source {
	return internal.NewFileSource(path, internal.FileOptions{
		Watch:  opts.Watch,
		Format: opts.Format,
		Logger: opts.Logger,
	})
}

// DefaultManager builds the standard stack: the environment, then configFile when it is set.
// The file may override the environment and is watched for changes.
// Non-empty overrides are applied last.
func DefaultManager(ctx context.Context, logger log.Logger, configFile string, overrides map[string]string) (Manager, error) {
	sources := []Source{NewEnvSource(EnvOptions{})}
	if configFile != "" {
		sources = append(sources, NewFileSource(configFile, FileOptions{Watch: true, Logger: logger}))
	}
	if len(overrides) > 0 {
		sources = append(sources, NewStaticSource(overrides))
	}
	return NewManager(ctx, Options{Logger: logger, Sources: sources})
}
