// Package identity carries per-request metadata through context.
//
// carddesk has no authentication, so only request metadata is tracked:
// the request ID assigned at the edge, the caller's address and user agent,
// and the browser session the request belongs to.
package identity

import "context"

// RequestMeta describes the inbound request being served.
type RequestMeta struct {
	RequestID string // Unique request identifier, echoed in X-Request-Id
	SessionID string // Browser session, empty for API and CLI calls
	RemoteIP  string // Client IP address
	UserAgent string // Client user agent string
}

type contextKey struct{}

// WithMeta returns a copy of ctx carrying m.
func WithMeta(ctx context.Context, m *RequestMeta) context.Context {
	return context.WithValue(ctx, contextKey{}, m)
}

// MetaFrom returns the metadata stored in ctx, if any.
func MetaFrom(ctx context.Context) (*RequestMeta, bool) {
	m, ok := ctx.Value(contextKey{}).(*RequestMeta)
	return m, ok && m != nil
}

// RequestID returns the request ID stored in ctx or "".
func RequestID(ctx context.Context) string {
	if m, ok := MetaFrom(ctx); ok {
		return m.RequestID
	}
	return ""
}
