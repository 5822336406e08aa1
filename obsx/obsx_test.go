package obsx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{
			name: "valid options",
			opts: Options{ServiceName: "carddesk", ServiceVersion: "1.0.0"},
		},
		{
			name:    "missing service name",
			opts:    Options{ServiceVersion: "1.0.0"},
			wantErr: true,
		},
		{
			name: "with resource attributes",
			opts: Options{
				ServiceName:   "carddesk",
				Environment:   "test",
				ResourceAttrs: map[string]string{"region": "eu-central-1"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(context.Background(), tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer provider.Shutdown(context.Background())
			if provider.MeterProvider() == nil {
				t.Error("MeterProvider() should not be nil")
			}
		})
	}
}

func scrape(t *testing.T, p *Provider) string {
	t.Helper()
	srv := httptest.NewServer(p.PrometheusHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestPrometheusHandler_ExportsCustomCounter(t *testing.T) {
	ctx := context.Background()
	provider, err := NewProvider(ctx, Options{ServiceName: "carddesk"})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	defer provider.Shutdown(ctx)

	counter, err := provider.Meter("test").Int64Counter("card_requests_total")
	if err != nil {
		t.Fatalf("Int64Counter() error = %v", err)
	}
	counter.Add(ctx, 3)

	body := scrape(t, provider)
	if !strings.Contains(body, "card_requests_total") {
		t.Errorf("Expected card_requests_total in scrape output:\n%s", body)
	}
}

func TestEnableRuntimeMetrics(t *testing.T) {
	ctx := context.Background()
	provider, err := NewProvider(ctx, Options{ServiceName: "carddesk"})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	defer provider.Shutdown(ctx)

	if err := provider.EnableRuntimeMetrics(ctx); err != nil {
		t.Fatalf("EnableRuntimeMetrics() error = %v", err)
	}
	if err := provider.EnableRuntimeMetrics(ctx); err != nil {
		t.Fatalf("second EnableRuntimeMetrics() error = %v", err)
	}

	body := scrape(t, provider)
	for _, name := range []string{"process_runtime_go_goroutines", "process_uptime_seconds"} {
		if !strings.Contains(body, name) {
			t.Errorf("Expected %s in scrape output", name)
		}
	}
}

func TestShutdown_WithDeadline(t *testing.T) {
	provider, err := NewProvider(context.Background(), Options{ServiceName: "carddesk"})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := provider.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestTracerProvider_NoopWithoutOTLP(t *testing.T) {
	provider, err := NewProvider(context.Background(), Options{ServiceName: "carddesk"})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	defer provider.Shutdown(context.Background())

	_, span := provider.TracerProvider().Tracer("test").Start(context.Background(), "op")
	defer span.End()
	if span.SpanContext().IsValid() {
		t.Error("Expected a no-op span without OTLP export")
	}
}

func TestNewProvider_WithOTLP(t *testing.T) {
	provider, err := NewProvider(context.Background(), Options{
		ServiceName: "carddesk",
		OTLP:        &OTLPOptions{Endpoint: "127.0.0.1:4317", Insecure: true, Interval: time.Hour},
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	_, span := provider.TracerProvider().Tracer("test").Start(context.Background(), "op")
	if !span.SpanContext().IsValid() {
		t.Error("Expected a recording span with OTLP export")
	}
	span.End()

	// No collector listens; only check that shutdown returns within its deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = provider.Shutdown(ctx)
}
