// Package config binds carddesk's settings from the environment, an optional
// YAML file and command-line overrides.
package config

import (
	"context"
	"log/slog"
	"time"

	"go.eggybyte.com/carddesk/configx"
	"go.eggybyte.com/carddesk/core/log"
	"go.eggybyte.com/carddesk/logx"
)

// DefaultRegistryURL is where the Client Registry API listens in local setups.
const DefaultRegistryURL = "http://localhost:8081/api/v1"

// AppConfig is the full carddesk configuration.
type AppConfig struct {
	configx.BaseConfig

	RegistryURL            string        `env:"REGISTRY_URL" default:"http://localhost:8081/api/v1" validate:"required,url"`
	RegistryTimeout        time.Duration `env:"REGISTRY_TIMEOUT" default:"10s" validate:"gt=0"`
	RegistryBreakerEnabled bool          `env:"REGISTRY_BREAKER_ENABLED" default:"false"`

	SessionTTL time.Duration `env:"SESSION_TTL" default:"30m" validate:"gt=0"`

	// OTLP push export is off while OTLP_ENDPOINT is empty.
	OTLPEndpoint string        `env:"OTLP_ENDPOINT" validate:"omitempty,hostname_port"`
	OTLPInsecure bool          `env:"OTLP_INSECURE" default:"true"`
	OTLPInterval time.Duration `env:"OTLP_INTERVAL" default:"30s" validate:"gt=0"`
}

var validate = configx.NewValidator()

// Validate checks every `validate` tag, including the embedded base settings.
func (c *AppConfig) Validate() error {
	return configx.ValidateStruct(validate, c)
}

// Debounce converts CONFIG_DEBOUNCE_MS.
func (c *AppConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMillis) * time.Millisecond
}

// LogLevel parses LOG_LEVEL; the value has already passed validation.
func (c *AppConfig) LogLevel() slog.Level {
	level, _ := logx.ParseLevel(c.BaseConfig.LogLevel)
	return level
}

// LogOptions maps the logging settings onto logx options.
func (c *AppConfig) LogOptions() []logx.Option {
	opts := []logx.Option{
		logx.WithFormat(logx.Format(c.LogFormat)),
		logx.WithLevel(c.LogLevel()),
		logx.WithColor(c.LogColor),
	}
	if len(c.LogSensitiveFields) > 0 {
		opts = append(opts, logx.WithSensitiveFields(c.LogSensitiveFields...))
	}
	return opts
}

// Loader owns the configx manager behind an AppConfig.
type Loader struct {
	mgr    configx.Manager
	logger log.Logger
}

// Load reads the environment, then configFile when set, then overrides.
// The returned loader keeps watching the file until ctx ends.
func Load(ctx context.Context, logger log.Logger, configFile string, overrides map[string]string) (*AppConfig, *Loader, error) {
	mgr, err := configx.DefaultManager(ctx, logger, configFile, overrides)
	if err != nil {
		return nil, nil, err
	}
	l := &Loader{mgr: mgr, logger: logger}
	cfg, err := l.Current()
	if err != nil {
		return nil, nil, err
	}
	return cfg, l, nil
}

// Current binds and validates the latest merged snapshot.
func (l *Loader) Current() (*AppConfig, error) {
	var cfg AppConfig
	if err := l.mgr.Bind(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// OnChange calls fn with every new configuration that binds and validates.
// Invalid updates are logged and skipped.
func (l *Loader) OnChange(fn func(*AppConfig)) (unsubscribe func()) {
	return l.mgr.OnUpdate(func(map[string]string) {
		cfg, err := l.Current()
		if err != nil {
			l.logger.Error(err, "configuration update rejected")
			return
		}
		fn(cfg)
	})
}
