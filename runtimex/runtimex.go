// Package runtimex runs carddesk's HTTP servers and services until shutdown.
//
// Overview:
//   - Responsibility: Start app, health and metrics servers; stop them gracefully
//   - Key Types: Service interface, Options for configuration, HealthChecker for readiness
//   - Concurrency Model: Servers serve concurrently; Run blocks until ctx is done or a server fails
//   - Error Semantics: Bind failures are returned before anything serves
//
// Usage:
//
//	err := runtimex.Run(ctx, nil, runtimex.Options{
//	  Logger:  logger,
//	  HTTP:    &runtimex.HTTPOptions{Addr: ":8080", Handler: router},
//	  Health:  &runtimex.Endpoint{Addr: ":8082"},
//	  Metrics: &runtimex.MetricsOptions{Addr: ":9091", Handler: provider.PrometheusHandler()},
//	})
package runtimex

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.eggybyte.com/carddesk/core/log"
	"go.eggybyte.com/carddesk/runtimex/internal"
)

// Service is started before the servers bind and stopped after they drain.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// HealthChecker is consulted by the /readyz endpoint.
type HealthChecker = internal.HealthChecker

// Endpoint represents a network endpoint with an address.
type Endpoint struct {
	Addr string // e.g. ":8082"
}

// HTTPOptions configures the application server.
type HTTPOptions struct {
	Addr              string
	Handler           http.Handler
	ReadHeaderTimeout time.Duration // Defaults to 10s
}

// MetricsOptions configures the metrics server.
type MetricsOptions struct {
	Addr    string
	Handler http.Handler // Served at /metrics
}

// Options holds configuration for the runtime.
type Options struct {
	Logger          log.Logger
	HTTP            *HTTPOptions
	Health          *Endpoint
	Metrics         *MetricsOptions
	ShutdownTimeout time.Duration // Defaults to 15s
	ReadyTimeout    time.Duration // Per /readyz request; defaults to 2s

	// started is invoked with the runtime after Start succeeds.
	started func(*internal.Runtime)
}

// Run starts all services and servers and blocks until ctx is cancelled or a
// server stops unexpectedly, then shuts everything down.
func Run(ctx context.Context, services []Service, opts Options) error {
	if opts.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if opts.HTTP == nil && opts.Health == nil && opts.Metrics == nil && len(services) == 0 {
		return fmt.Errorf("nothing to run")
	}

	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	readyTimeout := opts.ReadyTimeout
	if readyTimeout <= 0 {
		readyTimeout = 2 * time.Second
	}

	internalServices := make([]internal.Service, len(services))
	for i, svc := range services {
		internalServices[i] = svc
	}
	rt := internal.NewRuntime(opts.Logger, internalServices, shutdownTimeout)

	if opts.HTTP != nil {
		if opts.HTTP.Handler == nil {
			return fmt.Errorf("http handler is required")
		}
		readHeader := opts.HTTP.ReadHeaderTimeout
		if readHeader <= 0 {
			readHeader = 10 * time.Second
		}
		rt.AddServer("http", &http.Server{
			Addr:              opts.HTTP.Addr,
			Handler:           opts.HTTP.Handler,
			ReadHeaderTimeout: readHeader,
		})
	}
	if opts.Health != nil {
		rt.AddServer("health", &http.Server{
			Addr:              opts.Health.Addr,
			Handler:           internal.HealthHandler(readyTimeout),
			ReadHeaderTimeout: 5 * time.Second,
		})
	}
	if opts.Metrics != nil {
		if opts.Metrics.Handler == nil {
			return fmt.Errorf("metrics handler is required")
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", opts.Metrics.Handler)
		rt.AddServer("metrics", &http.Server{
			Addr:              opts.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	if err := rt.Start(ctx); err != nil {
		return fmt.Errorf("runtime start failed: %w", err)
	}
	if opts.started != nil {
		opts.started(rt)
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-rt.Errors():
	}

	if err := rt.Stop(context.Background()); err != nil {
		return fmt.Errorf("runtime stop failed: %w", err)
	}
	return serveErr
}

// RegisterHealthChecker adds a readiness check served by the health endpoint.
func RegisterHealthChecker(checker HealthChecker) {
	internal.RegisterHealthChecker(checker)
}

// CheckHealth runs every registered checker and returns the first failure.
func CheckHealth(ctx context.Context) error {
	return internal.CheckHealth(ctx)
}

// ClearHealthCheckers removes all registered checkers (intended for testing).
func ClearHealthCheckers() {
	internal.ClearHealthCheckers()
}

// HealthHandler returns the handler served on the health endpoint, for mounting elsewhere.
func HealthHandler() http.Handler {
	return internal.HealthHandler(2 * time.Second)
}
