// Package clientx builds the outbound HTTP clients carddesk uses to reach the
// client registry.
//
// Overview:
//   - Responsibility: Timeouts, an optional circuit breaker and request metrics on one http.Client
//   - Key Types: Options, Option
//   - Concurrency Model: Returned clients are safe for concurrent use
//   - Error Semantics: An open breaker fails fast with a CodeUnavailable error; requests are never retried
//
// Usage:
//
//	client, err := clientx.NewHTTPClient(
//	  clientx.WithTimeout(5*time.Second),
//	  clientx.WithCircuitBreaker(true),
//	  clientx.WithMeter(provider.Meter("carddesk/registry")),
//	)
package clientx

import (
	"context"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"go.eggybyte.com/carddesk/clientx/internal"
	"go.eggybyte.com/carddesk/core/log"
)

// Options configures NewHTTPClient.
type Options struct {
	Name             string        // Breaker and metrics name (default "registry")
	Timeout          time.Duration // Whole-request timeout (default 10s)
	EnableCircuit    bool          // Wrap requests in a circuit breaker (default off)
	CircuitThreshold uint32        // Consecutive failures that open the breaker (default 5)
	CircuitCooldown  time.Duration // Time the breaker stays open (default 30s)
	UserAgent        string
	Meter            metric.Meter         // Records client metrics when set
	TracerProvider   trace.TracerProvider // Starts a client span per request when set
	Logger           log.Logger           // Receives breaker state changes when set
	Base             http.RoundTripper
}

// Option mutates Options.
type Option func(*Options)

// WithName names the client in breaker logs and metric labels.
func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithCircuitBreaker enables or disables the circuit breaker.
func WithCircuitBreaker(enabled bool) Option {
	return func(o *Options) { o.EnableCircuit = enabled }
}

// WithCircuitThreshold sets how many consecutive failures open the breaker.
func WithCircuitThreshold(n uint32) Option {
	return func(o *Options) { o.CircuitThreshold = n }
}

// WithCircuitCooldown sets how long an open breaker rejects calls.
func WithCircuitCooldown(d time.Duration) Option {
	return func(o *Options) { o.CircuitCooldown = d }
}

// WithUserAgent sets the User-Agent of every request that has none.
func WithUserAgent(ua string) Option {
	return func(o *Options) { o.UserAgent = ua }
}

// WithMeter enables client metrics.
func WithMeter(m metric.Meter) Option {
	return func(o *Options) { o.Meter = m }
}

// WithTracerProvider enables client spans and trace context propagation.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Options) { o.TracerProvider = tp }
}

// WithLogger receives breaker state transitions.
func WithLogger(l log.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithTransport replaces http.DefaultTransport as the innermost transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *Options) { o.Base = rt }
}

// NewHTTPClient returns a client whose transport stacks metrics outside the
// breaker, so rejected calls are still counted, and tracing outside metrics.
func NewHTTPClient(opts ...Option) (*http.Client, error) {
	options := Options{
		Name:             "registry",
		Timeout:          10 * time.Second,
		CircuitThreshold: 5,
		CircuitCooldown:  30 * time.Second,
		UserAgent:        "carddesk",
		Base:             http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = log.Nop()
	}

	rt := options.Base
	if options.EnableCircuit {
		rt = internal.NewBreakerTransport(rt, newBreaker(options))
	}
	if options.Meter != nil {
		collector, err := NewClientMetricsCollector(options.Meter, options.Name)
		if err != nil {
			return nil, err
		}
		rt = collector.Transport(rt)
	}
	if options.TracerProvider != nil {
		rt = TracingTransport(options.TracerProvider, rt)
	}
	rt = internal.NewHeaderTransport(rt, options.UserAgent)

	return &http.Client{Timeout: options.Timeout, Transport: rt}, nil
}

func newBreaker(o Options) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        o.Name,
		MaxRequests: 1,
		Timeout:     o.CircuitCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= o.CircuitThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			o.Logger.Warn("circuit breaker state changed",
				log.Str("client", name), log.Str("from", from.String()), log.Str("to", to.String()))
		},
	})
}

type routeKey struct{}

// WithRoute tags ctx with the route template of the call it carries, e.g.
// "/edit-status/{oib}". Metrics use the template instead of the concrete path.
func WithRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, routeKey{}, route)
}

// RouteFrom returns the route template stored by WithRoute.
func RouteFrom(ctx context.Context) string {
	route, _ := ctx.Value(routeKey{}).(string)
	return route
}
