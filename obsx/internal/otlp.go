package internal

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// DefaultPushInterval is how often metrics are pushed to a collector.
const DefaultPushInterval = 30 * time.Second

// OTLPOptions points the provider at an OpenTelemetry collector's gRPC receiver.
type OTLPOptions struct {
	Endpoint string // host:port
	Insecure bool   // Plaintext gRPC
	Interval time.Duration
}

func newMetricReader(ctx context.Context, o OTLPOptions) (metric.Reader, error) {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(o.Endpoint)}
	if o.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create otlp metric exporter: %w", err)
	}

	interval := o.Interval
	if interval <= 0 {
		interval = DefaultPushInterval
	}
	return metric.NewPeriodicReader(exporter, metric.WithInterval(interval)), nil
}

func newTracerProvider(ctx context.Context, res *resource.Resource, o OTLPOptions) (*sdktrace.TracerProvider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(o.Endpoint)}
	if o.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create otlp trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	), nil
}
