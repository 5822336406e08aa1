package clientx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ClientMetricsCollector holds the instruments recorded for outbound calls.
type ClientMetricsCollector struct {
	client          string
	requestsTotal   metric.Int64Counter
	requestDuration metric.Float64Histogram
}

// NewClientMetricsCollector creates registry_client_requests_total and
// registry_client_request_duration_seconds on meter.
func NewClientMetricsCollector(meter metric.Meter, client string) (*ClientMetricsCollector, error) {
	requestsTotal, err := meter.Int64Counter(
		"registry_client_requests_total",
		metric.WithDescription("Outbound registry requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"registry_client_request_duration_seconds",
		metric.WithDescription("Outbound registry request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 10,
		),
	)
	if err != nil {
		return nil, err
	}

	return &ClientMetricsCollector{
		client:          client,
		requestsTotal:   requestsTotal,
		requestDuration: requestDuration,
	}, nil
}

// Transport wraps next so every round trip is counted and timed.
//
// Labels:
//   - client: the collector's client name
//   - method: HTTP method
//   - route: template from WithRoute, or "unknown"
//   - status_class: 2xx..5xx, or "error" when no response arrived
func (c *ClientMetricsCollector) Transport(next http.RoundTripper) http.RoundTripper {
	return roundTripFunc(func(req *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(req)
		c.record(req.Context(), req.Method, RouteFrom(req.Context()), statusClass(resp, err), time.Since(start))
		return resp, err
	})
}

func (c *ClientMetricsCollector) record(ctx context.Context, method, route, class string, d time.Duration) {
	if route == "" {
		route = "unknown"
	}
	attrs := metric.WithAttributes(
		attribute.String("client", c.client),
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status_class", class),
	)
	c.requestsTotal.Add(ctx, 1, attrs)
	c.requestDuration.Record(ctx, d.Seconds(), attrs)
}

func statusClass(resp *http.Response, err error) string {
	if err != nil || resp == nil {
		return "error"
	}
	return strconv.Itoa(resp.StatusCode/100) + "xx"
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
