// Package internal contains the runtime implementation.
package internal

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// HealthChecker defines the interface for readiness checks.
// Implementations should perform quick checks and honor context deadlines.
type HealthChecker interface {
	// Name returns the name of the health check.
	Name() string
	// Check returns an error if the dependency is unhealthy.
	Check(ctx context.Context) error
}

var (
	healthCheckers   []HealthChecker
	healthCheckersMu sync.RWMutex
)

// RegisterHealthChecker registers a global health checker.
func RegisterHealthChecker(checker HealthChecker) {
	healthCheckersMu.Lock()
	defer healthCheckersMu.Unlock()
	healthCheckers = append(healthCheckers, checker)
}

// CheckHealth runs all registered checkers in registration order and
// returns the first failure, prefixed with the checker's name.
func CheckHealth(ctx context.Context) error {
	healthCheckersMu.RLock()
	checkers := make([]HealthChecker, len(healthCheckers))
	copy(checkers, healthCheckers)
	healthCheckersMu.RUnlock()

	for _, checker := range checkers {
		if err := checker.Check(ctx); err != nil {
			return fmt.Errorf("%s: %w", checker.Name(), err)
		}
	}
	return nil
}

// ClearHealthCheckers clears all registered health checkers (intended for testing).
func ClearHealthCheckers() {
	healthCheckersMu.Lock()
	defer healthCheckersMu.Unlock()
	healthCheckers = nil
}

// HealthHandler serves /healthz (always ok) and /readyz (registered checkers).
func HealthHandler(timeout time.Duration) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := CheckHealth(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprintf(w, "not ready: %v\n", err)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})
	return mux
}
