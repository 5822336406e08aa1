// Package internal builds the OpenTelemetry providers behind obsx.
package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// ShutdownTimeout bounds Provider.Shutdown when the caller's context has no deadline.
const ShutdownTimeout = 5 * time.Second

// ProviderOptions holds configuration for the metrics provider.
type ProviderOptions struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	ResourceAttrs  map[string]string
	SetGlobal      bool
	OTLP           *OTLPOptions // Push metrics and traces to a collector when set
}

// Provider pairs a meter provider with the Prometheus registry it exports into.
// TracerProvider is nil unless OTLP export is configured.
type Provider struct {
	MeterProvider  *metric.MeterProvider
	TracerProvider *sdktrace.TracerProvider
	Registry       *promclient.Registry
}

// NewProvider creates a meter provider read by a Prometheus exporter and,
// with OTLP options, by a periodic OTLP push reader plus an OTLP tracer provider.
func NewProvider(ctx context.Context, opts ProviderOptions) (*Provider, error) {
	if opts.ServiceName == "" {
		return nil, fmt.Errorf("service name is required")
	}

	res, err := newResource(ctx, opts)
	if err != nil {
		return nil, err
	}

	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(
		prometheus.WithRegisterer(registry),
		prometheus.WithoutUnits(),
		prometheus.WithoutScopeInfo(),
		prometheus.WithoutCounterSuffixes(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mpOpts := []metric.Option{
		metric.WithResource(res),
		metric.WithReader(exporter),
	}
	var tp *sdktrace.TracerProvider
	if opts.OTLP != nil && opts.OTLP.Endpoint != "" {
		reader, err := newMetricReader(ctx, *opts.OTLP)
		if err != nil {
			return nil, err
		}
		mpOpts = append(mpOpts, metric.WithReader(reader))
		if tp, err = newTracerProvider(ctx, res, *opts.OTLP); err != nil {
			return nil, err
		}
	}

	mp := metric.NewMeterProvider(mpOpts...)
	if opts.SetGlobal {
		otel.SetMeterProvider(mp)
		if tp != nil {
			otel.SetTracerProvider(tp)
		}
	}

	return &Provider{MeterProvider: mp, TracerProvider: tp, Registry: registry}, nil
}

func newResource(ctx context.Context, opts ProviderOptions) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(opts.ServiceVersion),
	}
	if opts.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(opts.Environment))
	}

	keys := make([]string, 0, len(opts.ResourceAttrs))
	for k := range opts.ResourceAttrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, attribute.String(k, opts.ResourceAttrs[k]))
	}

	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// Handler serves the registry in Prometheus or OpenMetrics text format.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Shutdown flushes and stops the meter and tracer providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ShutdownTimeout)
		defer cancel()
	}
	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}
	if err := p.MeterProvider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
	}
	return errors.Join(errs...)
}
