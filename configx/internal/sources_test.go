package internal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEnvSource_Load_WithPrefix(t *testing.T) {
	t.Setenv("CARDDESK_REGISTRY_URL", "http://registry:8081/api/v1")
	t.Setenv("OTHER_KEY", "x")

	config, err := NewEnvSource(EnvOptions{Prefix: "CARDDESK_"}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := config["REGISTRY_URL"]; got != "http://registry:8081/api/v1" {
		t.Errorf("REGISTRY_URL = %q", got)
	}
	if _, ok := config["OTHER_KEY"]; ok {
		t.Error("unprefixed variables should be skipped")
	}
}

func TestEnvSource_Load_Fixed(t *testing.T) {
	src := &EnvSource{environ: func() []string {
		return []string{"A=1", "B=x=y", "broken"}
	}}

	config, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(config) != 2 || config["A"] != "1" || config["B"] != "x=y" {
		t.Errorf("unexpected config: %v", config)
	}
}

func TestEnvSource_WatchClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := NewEnvSource(EnvOptions{}).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("env source should never publish")
		}
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed after cancel")
	}
}

func TestParseDocument_YAML(t *testing.T) {
	doc := []byte(`
log_level: debug
registry:
  url: http://registry:8081/api/v1
  timeout: 5s
  breaker-enabled: true
log:
  sensitive_fields: [oib, token]
empty:
`)

	got, err := ParseDocument(doc, "yaml")
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}

	want := map[string]string{
		"LOG_LEVEL":                "debug",
		"REGISTRY_URL":             "http://registry:8081/api/v1",
		"REGISTRY_TIMEOUT":         "5s",
		"REGISTRY_BREAKER_ENABLED": "true",
		"LOG_SENSITIVE_FIELDS":     "oib,token",
		"EMPTY":                    "",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d keys, want %d: %v", len(got), len(want), got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}

func TestParseDocument_JSON(t *testing.T) {
	got, err := ParseDocument([]byte(`{"http_port": ":9000", "session": {"ttl": "1h"}, "retries": 3}`), "json")
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	if got["HTTP_PORT"] != ":9000" || got["SESSION_TTL"] != "1h" || got["RETRIES"] != "3" {
		t.Errorf("unexpected snapshot: %v", got)
	}
}

func TestParseDocument_Errors(t *testing.T) {
	if _, err := ParseDocument([]byte("a: [unclosed"), "yaml"); err == nil {
		t.Error("expected yaml parse error")
	}
	if _, err := ParseDocument([]byte("{}"), "toml"); err == nil {
		t.Error("expected unsupported format error")
	}
	got, err := ParseDocument(nil, "yaml")
	if err != nil || len(got) != 0 {
		t.Errorf("empty document = %v, %v", got, err)
	}
}

func TestFileSource_LoadMissing(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "absent.yaml"), FileOptions{})
	got, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("missing file should load empty, got %v", got)
	}
}

func TestFileSource_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carddesk.yaml")
	if err := os.WriteFile(path, []byte("log_level: info\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewFileSource(path, FileOptions{Watch: true})
	ch, err := src.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := os.WriteFile(path, []byte("log_level: debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case snap := <-ch:
			if snap["LOG_LEVEL"] == "debug" {
				return
			}
		case <-deadline:
			t.Fatal("no snapshot published after file change")
		}
	}
}

func TestDetectFileFormat(t *testing.T) {
	tests := map[string]string{
		"a.json": "json",
		"a.JSON": "json",
		"a.yaml": "yaml",
		"a.yml":  "yaml",
		"a":      "yaml",
	}
	for path, want := range tests {
		if got := detectFileFormat(path); got != want {
			t.Errorf("detectFileFormat(%q) = %q, want %q", path, got, want)
		}
	}
}
