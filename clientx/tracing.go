package clientx

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "go.eggybyte.com/carddesk/clientx"

// TracingTransport starts a client span per request and injects W3C trace
// context headers. Spans are named "METHOD route" using the WithRoute template.
func TracingTransport(tp trace.TracerProvider, next http.RoundTripper) http.RoundTripper {
	tracer := tp.Tracer(tracerName)
	propagator := propagation.TraceContext{}

	return roundTripFunc(func(req *http.Request) (*http.Response, error) {
		route := RouteFrom(req.Context())
		name := req.Method
		if route != "" {
			name += " " + route
		}

		ctx, span := tracer.Start(req.Context(), name,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("http.method", req.Method),
				attribute.String("http.route", route),
				attribute.String("server.address", req.URL.Host),
			),
		)
		defer span.End()

		out := req.Clone(ctx)
		propagator.Inject(ctx, propagation.HeaderCarrier(out.Header))

		resp, err := next.RoundTrip(out)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
		if resp.StatusCode >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		}
		return resp, nil
	})
}
