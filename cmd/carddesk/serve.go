package main

import (
	"context"

	"github.com/spf13/cobra"

	"go.eggybyte.com/carddesk/clientx"
	"go.eggybyte.com/carddesk/core/log"
	"go.eggybyte.com/carddesk/internal/config"
	"go.eggybyte.com/carddesk/internal/handler"
	"go.eggybyte.com/carddesk/internal/page"
	"go.eggybyte.com/carddesk/internal/registry"
	"go.eggybyte.com/carddesk/internal/session"
	"go.eggybyte.com/carddesk/internal/version"
	"go.eggybyte.com/carddesk/logx"
	"go.eggybyte.com/carddesk/obsx"
	"go.eggybyte.com/carddesk/runtimex"
)

const meterName = "go.eggybyte.com/carddesk"

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web console with its health and metrics servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, loader, logger, err := flags.load(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			watchLogLevel(loader, logger)
			return serve(ctx, cfg, logger)
		},
	}
}

// watchLogLevel applies LOG_LEVEL changes from the config file without a restart.
func watchLogLevel(loader *config.Loader, logger *logx.Logger) {
	loader.OnChange(func(cfg *config.AppConfig) {
		level := cfg.LogLevel()
		if level == logger.Level() {
			return
		}
		logger.SetLevel(level)
		logger.Info("log level changed", log.Str("level", level.String()))
	})
}

func serve(ctx context.Context, cfg *config.AppConfig, logger log.Logger) error {
	obsOpts := obsx.Options{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version.Version,
		Environment:    cfg.Env,
		SetGlobal:      true,
	}
	if cfg.OTLPEndpoint != "" {
		obsOpts.OTLP = &obsx.OTLPOptions{
			Endpoint: cfg.OTLPEndpoint,
			Insecure: cfg.OTLPInsecure,
			Interval: cfg.OTLPInterval,
		}
	}
	provider, err := obsx.NewProvider(ctx, obsOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Error(err, "metrics provider shutdown failed")
		}
	}()
	if err := provider.EnableRuntimeMetrics(ctx); err != nil {
		return err
	}
	meter := provider.Meter(meterName)

	reg, err := newRegistry(cfg, logger,
		clientx.WithMeter(provider.Meter(meterName+"/registry")),
		clientx.WithTracerProvider(provider.TracerProvider()))
	if err != nil {
		return err
	}
	runtimex.RegisterHealthChecker(registry.HealthChecker{Client: reg})

	pageMetrics, err := page.NewMetrics(meter)
	if err != nil {
		return err
	}
	store, err := session.NewStore(session.Options{
		TTL:    cfg.SessionTTL,
		Logger: logger,
		Meter:  meter,
		NewPage: func() *page.ClientListPage {
			return page.New(page.Options{Registry: reg, Logger: logger, Metrics: pageMetrics})
		},
	})
	if err != nil {
		return err
	}

	router, err := handler.New(handler.Options{Store: store, Logger: logger, Meter: meter})
	if err != nil {
		return err
	}

	logger.Info("carddesk starting",
		log.Str("version", version.Version),
		log.Str("registry_url", reg.BaseURL()),
		log.Bool("circuit_breaker", cfg.RegistryBreakerEnabled),
		log.Str("otlp_endpoint", cfg.OTLPEndpoint))

	opts := runtimex.Options{
		Logger:          logger,
		HTTP:            &runtimex.HTTPOptions{Addr: cfg.HTTPPort, Handler: router},
		ShutdownTimeout: cfg.ShutdownTimeout,
	}
	if cfg.HealthPort != "" {
		opts.Health = &runtimex.Endpoint{Addr: cfg.HealthPort}
	}
	if cfg.MetricsPort != "" {
		opts.Metrics = &runtimex.MetricsOptions{Addr: cfg.MetricsPort, Handler: provider.PrometheusHandler()}
	}
	return runtimex.Run(ctx, nil, opts)
}

// newRegistry builds the registry client described by cfg.
func newRegistry(cfg *config.AppConfig, logger log.Logger, extra ...clientx.Option) (*registry.Client, error) {
	opts := []clientx.Option{
		clientx.WithTimeout(cfg.RegistryTimeout),
		clientx.WithCircuitBreaker(cfg.RegistryBreakerEnabled),
		clientx.WithUserAgent("carddesk/" + version.Version),
		clientx.WithLogger(logger),
	}
	httpClient, err := clientx.NewHTTPClient(append(opts, extra...)...)
	if err != nil {
		return nil, err
	}
	return registry.New(cfg.RegistryURL, httpClient)
}
