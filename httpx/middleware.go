package httpx

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"go.eggybyte.com/carddesk/core/errors"
	"go.eggybyte.com/carddesk/core/identity"
	"go.eggybyte.com/carddesk/core/log"
	"go.eggybyte.com/carddesk/httpx/internal"
	"go.eggybyte.com/carddesk/logx"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-Id"

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Chain applies mws so that the first one is outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// SecurityHeaders selects the headers SecureMiddleware adds.
type SecurityHeaders struct {
	ContentTypeOptions    bool   // X-Content-Type-Options: nosniff
	FrameOptions          bool   // X-Frame-Options: DENY
	ReferrerPolicy        bool   // Referrer-Policy: same-origin
	StrictTransportSec    bool   // Strict-Transport-Security
	HSTSMaxAge            int    // seconds
	ContentSecurityPolicy string // sent when non-empty
}

// DefaultSecurityHeaders suits the server-rendered console: no framing,
// same-origin forms and stylesheets only. HSTS is left to the ingress.
func DefaultSecurityHeaders() SecurityHeaders {
	return SecurityHeaders{
		ContentTypeOptions:    true,
		FrameOptions:          true,
		ReferrerPolicy:        true,
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'; style-src 'self' 'unsafe-inline'; form-action 'self'; frame-ancestors 'none'",
	}
}

// SecureMiddleware adds headers to every response.
func SecureMiddleware(headers SecurityHeaders) Middleware {
	h := internal.SecurityHeaders(headers)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			internal.ApplySecurityHeaders(w, h)
			next.ServeHTTP(w, r)
		})
	}
}

// RequestIDMiddleware stores identity.RequestMeta in the request context.
// An inbound X-Request-Id is kept, otherwise a UUID is generated; either way it is echoed back.
func RequestIDMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > 128 {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			meta := &identity.RequestMeta{
				RequestID: id,
				RemoteIP:  remoteIP(r),
				UserAgent: r.UserAgent(),
			}
			next.ServeHTTP(w, r.WithContext(identity.WithMeta(r.Context(), meta)))
		})
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RouteFunc names the route that served r, used as a low-cardinality label.
type RouteFunc func(r *http.Request) string

// AccessLogMiddleware logs one line per request. 5xx answers log at error level.
func AccessLogMiddleware(logger log.Logger, route RouteFunc) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := internal.NewStatusRecorder(w)
			next.ServeHTTP(rec, r)

			kv := []any{
				log.Str("method", r.Method),
				log.Str("path", r.URL.Path),
				log.Str("route", routeName(route, r)),
				log.Int("status", rec.Status),
				log.Int("bytes", rec.Bytes),
				log.Dur("duration_ms", time.Since(start)),
			}
			l := logx.FromContext(r.Context(), logger)
			if rec.Status >= http.StatusInternalServerError {
				l.Error(nil, "request served", kv...)
				return
			}
			l.Info("request served", kv...)
		})
	}
}

// RecoverMiddleware converts a panic into a logged INTERNAL error response.
func RecoverMiddleware(logger log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rv := recover()
				if rv == nil {
					return
				}
				if rv == http.ErrAbortHandler {
					panic(rv)
				}
				err := errors.Newf(errors.CodeInternal, "panic: %v", rv)
				logx.FromContext(r.Context(), logger).Error(err, "handler panicked", log.Str("path", r.URL.Path))
				_ = WriteErrorStatus(w, errors.New(errors.CodeInternal, "internal error"), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// MetricsMiddleware records http_server_requests_total and
// http_server_request_duration_seconds by method, route and status.
func MetricsMiddleware(meter metric.Meter, route RouteFunc) (Middleware, error) {
	requests, err := meter.Int64Counter(
		"http_server_requests_total",
		metric.WithDescription("HTTP requests served"),
	)
	if err != nil {
		return nil, fmt.Errorf("create request counter: %w", err)
	}
	duration, err := meter.Float64Histogram(
		"http_server_request_duration_seconds",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := internal.NewStatusRecorder(w)
			next.ServeHTTP(rec, r)

			attrs := metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("route", routeName(route, r)),
				attribute.Int("status", rec.Status),
			)
			requests.Add(r.Context(), 1, attrs)
			duration.Record(r.Context(), time.Since(start).Seconds(), attrs)
		})
	}, nil
}

func routeName(route RouteFunc, r *http.Request) string {
	if route == nil {
		return r.URL.Path
	}
	if name := route(r); name != "" {
		return name
	}
	return "unmatched"
}
