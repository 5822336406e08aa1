// Package internal holds the round trippers behind clientx.
package internal

import (
	"errors"
	"net/http"

	"github.com/sony/gobreaker"

	coreerrors "go.eggybyte.com/carddesk/core/errors"
)

var errServerStatus = errors.New("server error status")

// BreakerTransport routes requests through a circuit breaker. Transport
// errors and 5xx answers count as failures; 5xx responses are still returned
// to the caller unchanged.
type BreakerTransport struct {
	base http.RoundTripper
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerTransport wraps base with cb.
func NewBreakerTransport(base http.RoundTripper, cb *gobreaker.CircuitBreaker) *BreakerTransport {
	return &BreakerTransport{base: base, cb: cb}
}

// RoundTrip implements http.RoundTripper.
func (t *BreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	_, err := t.cb.Execute(func() (interface{}, error) {
		r, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		resp = r
		if r.StatusCode >= http.StatusInternalServerError {
			return r, errServerStatus
		}
		return r, nil
	})

	switch {
	case err == nil, errors.Is(err, errServerStatus):
		return resp, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, coreerrors.Wrapf(coreerrors.CodeUnavailable, "clientx.RoundTrip", err, "circuit %s", t.cb.Name())
	default:
		return nil, err
	}
}

// State reports the breaker state.
func (t *BreakerTransport) State() gobreaker.State {
	return t.cb.State()
}

// HeaderTransport sets default headers on requests that lack them.
type HeaderTransport struct {
	base      http.RoundTripper
	userAgent string
}

// NewHeaderTransport wraps base.
func NewHeaderTransport(base http.RoundTripper, userAgent string) *HeaderTransport {
	return &HeaderTransport{base: base, userAgent: userAgent}
}

// RoundTrip implements http.RoundTripper. The request is cloned before headers change.
func (t *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent == "" || req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(clone)
}
