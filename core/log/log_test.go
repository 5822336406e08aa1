package log

import (
	"errors"
	"testing"
	"time"
)

func TestPairHelpers(t *testing.T) {
	tests := []struct {
		name string
		kv   any
		key  string
		val  any
	}{
		{"Str", Str("oib", "12345678901"), "oib", "12345678901"},
		{"Int", Int("count", 3), "count", 3},
		{"Int64", Int64("id", 7), "id", int64(7)},
		{"Bool", Bool("ok", true), "ok", true},
		{"Dur", Dur("latency", time.Second), "latency", time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, ok := tt.kv.([]any)
			if !ok {
				t.Fatalf("%s should return []any, got %T", tt.name, tt.kv)
			}
			if len(pair) != 2 || pair[0] != tt.key || pair[1] != tt.val {
				t.Fatalf("%s returned %v", tt.name, pair)
			}
		})
	}
}

func TestNop(t *testing.T) {
	logger := Nop().With("k", "v")
	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error(errors.New("boom"), "error")
}
