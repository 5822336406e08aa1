// Package obsx exposes carddesk metrics in Prometheus format and, optionally,
// pushes metrics and traces to an OpenTelemetry collector.
//
// Overview:
//   - Responsibility: Bootstrap an OpenTelemetry meter provider backed by a Prometheus exporter
//   - Key Types: Options for configuration, Provider for meters and the scrape handler
//   - Concurrency Model: Provider is safe for concurrent use
//   - Error Semantics: NewProvider returns an error for invalid options or exporter failures
//
// Usage:
//
//	provider, err := obsx.NewProvider(ctx, obsx.Options{ServiceName: "carddesk"})
//	if err != nil {
//	    return err
//	}
//	defer provider.Shutdown(ctx)
//	mux.Handle("/metrics", provider.PrometheusHandler())
package obsx

import (
	"context"
	"net/http"
	"sync"
	"time"

	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"go.eggybyte.com/carddesk/obsx/internal"
)

// Options holds configuration for the metrics provider.
type Options struct {
	ServiceName    string            // Required; becomes the service.name resource attribute
	ServiceVersion string            // service.version resource attribute
	Environment    string            // deployment.environment resource attribute, omitted when empty
	ResourceAttrs  map[string]string // Additional resource attributes
	SetGlobal      bool              // Install the providers as the otel globals
	OTLP           *OTLPOptions      // Collector export; Prometheus only when nil
}

// OTLPOptions configures push export over OTLP/gRPC.
type OTLPOptions struct {
	Endpoint string        // Collector host:port, e.g. "otel-collector:4317"
	Insecure bool          // Use plaintext gRPC
	Interval time.Duration // Metric push interval (default 30s)
}

// Provider owns the meter provider and its Prometheus registry.
// It must be shut down when no longer needed.
type Provider struct {
	impl    *internal.Provider
	started time.Time

	runtimeOnce sync.Once
	runtimeErr  error
}

// NewProvider creates a metrics provider with Prometheus export.
func NewProvider(ctx context.Context, opts Options) (*Provider, error) {
	impl, err := internal.NewProvider(ctx, internal.ProviderOptions{
		ServiceName:    opts.ServiceName,
		ServiceVersion: opts.ServiceVersion,
		Environment:    opts.Environment,
		ResourceAttrs:  opts.ResourceAttrs,
		SetGlobal:      opts.SetGlobal,
		OTLP:           otlpOptions(opts.OTLP),
	})
	if err != nil {
		return nil, err
	}
	return &Provider{impl: impl, started: time.Now()}, nil
}

func otlpOptions(o *OTLPOptions) *internal.OTLPOptions {
	if o == nil {
		return nil
	}
	return &internal.OTLPOptions{Endpoint: o.Endpoint, Insecure: o.Insecure, Interval: o.Interval}
}

// MeterProvider returns the underlying SDK meter provider.
func (p *Provider) MeterProvider() *metric.MeterProvider {
	return p.impl.MeterProvider
}

// Meter returns a named meter for creating instruments.
func (p *Provider) Meter(name string) api.Meter {
	return p.impl.MeterProvider.Meter(name)
}

// TracerProvider returns the OTLP tracer provider, or a no-op provider when
// OTLP export is off.
func (p *Provider) TracerProvider() trace.TracerProvider {
	if p.impl.TracerProvider == nil {
		return noop.NewTracerProvider()
	}
	return p.impl.TracerProvider
}

// PrometheusHandler serves every instrument recorded through this provider.
func (p *Provider) PrometheusHandler() http.Handler {
	return p.impl.Handler()
}

// EnableRuntimeMetrics registers Go runtime and process uptime gauges.
// Calling it again returns the result of the first call.
func (p *Provider) EnableRuntimeMetrics(context.Context) error {
	p.runtimeOnce.Do(func() {
		p.runtimeErr = internal.RegisterRuntimeMetrics(p.impl.MeterProvider, p.started)
	})
	return p.runtimeErr
}

// Shutdown flushes and stops the provider. Without a deadline on ctx it
// gives up after five seconds.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.impl.Shutdown(ctx)
}
