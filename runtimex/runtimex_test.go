package runtimex

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.eggybyte.com/carddesk/runtimex/internal"
	"go.eggybyte.com/carddesk/testingx"
)

func TestRun_Validation(t *testing.T) {
	logger := testingx.NewMockLogger(t)

	tests := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{"missing logger", Options{HTTP: &HTTPOptions{Addr: ":0", Handler: http.NotFoundHandler()}}, "logger is required"},
		{"nothing configured", Options{Logger: logger}, "nothing to run"},
		{"missing http handler", Options{Logger: logger, HTTP: &HTTPOptions{Addr: ":0"}}, "http handler is required"},
		{"missing metrics handler", Options{Logger: logger, Metrics: &MetricsOptions{Addr: ":0"}}, "metrics handler is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Run(context.Background(), nil, tt.opts)
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("Run() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestRun_ServesUntilCancelled(t *testing.T) {
	logger := testingx.NewMockLogger(t)
	ctx, cancel := context.WithCancel(context.Background())

	app := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "Client List")
	})
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "registry_client_requests_total 1\n")
	})

	type addrs struct{ http, health, metrics string }
	bound := make(chan addrs, 1)

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, nil, Options{
			Logger:          logger,
			HTTP:            &HTTPOptions{Addr: "127.0.0.1:0", Handler: app},
			Health:          &Endpoint{Addr: "127.0.0.1:0"},
			Metrics:         &MetricsOptions{Addr: "127.0.0.1:0", Handler: metrics},
			ShutdownTimeout: time.Second,
			started: func(rt *internal.Runtime) {
				bound <- addrs{rt.Addr("http"), rt.Addr("health"), rt.Addr("metrics")}
			},
		})
	}()

	var a addrs
	select {
	case a = <-bound:
	case err := <-done:
		t.Fatalf("Run() returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("runtime did not start")
	}

	if _, body := get(t, "http://"+a.http+"/"); body != "Client List" {
		t.Errorf("app body = %q", body)
	}
	if status, _ := get(t, "http://"+a.health+"/healthz"); status != http.StatusOK {
		t.Errorf("healthz status = %d", status)
	}
	if _, body := get(t, "http://"+a.metrics+"/metrics"); !strings.Contains(body, "registry_client_requests_total") {
		t.Errorf("metrics body = %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	logger.AssertLogged("INFO", "runtime stopped")
}
