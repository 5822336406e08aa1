package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.eggybyte.com/carddesk/core/errors"
	"go.eggybyte.com/carddesk/testingx"
)

func TestLoad_Defaults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, _, err := Load(ctx, testingx.NewMockLogger(t), "", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RegistryURL != DefaultRegistryURL {
		t.Errorf("RegistryURL = %q, want %q", cfg.RegistryURL, DefaultRegistryURL)
	}
	if cfg.RegistryTimeout != 10*time.Second {
		t.Errorf("RegistryTimeout = %v", cfg.RegistryTimeout)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.RegistryBreakerEnabled {
		t.Error("breaker should be off by default")
	}
	if cfg.HealthPort != ":8082" {
		t.Errorf("HealthPort = %q", cfg.HealthPort)
	}
	if cfg.OTLPEndpoint != "" || !cfg.OTLPInsecure || cfg.OTLPInterval != 30*time.Second {
		t.Errorf("unexpected OTLP defaults: %q %v %v", cfg.OTLPEndpoint, cfg.OTLPInsecure, cfg.OTLPInterval)
	}
}

func TestLoad_Layering(t *testing.T) {
	t.Setenv("REGISTRY_URL", "http://env:8081/api/v1")
	t.Setenv("REGISTRY_TIMEOUT", "3s")

	path := filepath.Join(t.TempDir(), "carddesk.yaml")
	yaml := "registry:\n  url: http://file:8081/api/v1\nsession_ttl: 5m\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, _, err := Load(ctx, testingx.NewMockLogger(t), path, map[string]string{
		"REGISTRY_URL": "http://flag:8081/api/v1",
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RegistryURL != "http://flag:8081/api/v1" {
		t.Errorf("override should win, got %q", cfg.RegistryURL)
	}
	if cfg.RegistryTimeout != 3*time.Second {
		t.Errorf("env value lost: %v", cfg.RegistryTimeout)
	}
	if cfg.SessionTTL != 5*time.Minute {
		t.Errorf("file value lost: %v", cfg.SessionTTL)
	}
	if cfg.LogLevel() != slog.LevelDebug {
		t.Errorf("LogLevel() = %v", cfg.LogLevel())
	}
}

func TestLoad_InvalidRegistryURL(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, _, err := Load(ctx, testingx.NewMockLogger(t), "", map[string]string{"REGISTRY_URL": "not a url"})
	testingx.AssertError(t, err, errors.CodeInvalidArgument)
}

func TestLoad_OTLPEndpoint(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, _, err := Load(ctx, testingx.NewMockLogger(t), "", map[string]string{"OTLP_ENDPOINT": "otel-collector:4317"})
	testingx.AssertNoError(t, err)
	if cfg.OTLPEndpoint != "otel-collector:4317" {
		t.Errorf("OTLPEndpoint = %q", cfg.OTLPEndpoint)
	}

	_, _, err = Load(ctx, testingx.NewMockLogger(t), "", map[string]string{"OTLP_ENDPOINT": "http://collector"})
	testingx.AssertError(t, err, errors.CodeInvalidArgument)
}

func TestLoader_OnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carddesk.yaml")
	if err := os.WriteFile(path, []byte("log_level: info\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := testingx.NewMockLogger(t)
	_, loader, err := Load(ctx, logger, path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	levels := make(chan slog.Level, 8)
	loader.OnChange(func(cfg *AppConfig) { levels <- cfg.LogLevel() })

	if err := os.WriteFile(path, []byte("log_level: loud\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("log_level: error\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case level := <-levels:
			if level == slog.LevelError {
				return
			}
		case <-deadline:
			t.Fatal("configuration change not observed")
		}
	}
}
