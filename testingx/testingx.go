// Package testingx holds test helpers shared by carddesk packages.
//
// Usage:
//
//	logger := testingx.NewMockLogger(t)
//	page.Delete(ctx, "12345678901")
//	logger.AssertLogged("ERROR", "delete client failed")
package testingx

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.eggybyte.com/carddesk/core/errors"
	"go.eggybyte.com/carddesk/core/identity"
	"go.eggybyte.com/carddesk/core/log"
)

// LogEntry is one recorded call on a MockLogger.
type LogEntry struct {
	Level   string
	Message string
	Fields  []any // With fields first, then call fields, flattened to key, value pairs
	Error   error
}

// Field returns the value logged under key.
func (e LogEntry) Field(key string) (any, bool) {
	for i := 0; i+1 < len(e.Fields); i += 2 {
		if k, ok := e.Fields[i].(string); ok && k == key {
			return e.Fields[i+1], true
		}
	}
	return nil, false
}

type store struct {
	mu      sync.Mutex
	entries []LogEntry
}

// MockLogger records every call. Loggers returned by With share the record.
type MockLogger struct {
	t      testing.TB
	store  *store
	fields []any
}

// NewMockLogger creates an empty MockLogger bound to t.
func NewMockLogger(t testing.TB) *MockLogger {
	return &MockLogger{t: t, store: &store{}}
}

// With returns a logger that prepends kv to every entry.
func (m *MockLogger) With(kv ...any) log.Logger {
	fields := append(append([]any{}, m.fields...), flatten(kv)...)
	return &MockLogger{t: m.t, store: m.store, fields: fields}
}

// Debug records a debug entry.
func (m *MockLogger) Debug(msg string, kv ...any) { m.record("DEBUG", msg, nil, kv) }

// Info records an info entry.
func (m *MockLogger) Info(msg string, kv ...any) { m.record("INFO", msg, nil, kv) }

// Warn records a warn entry.
func (m *MockLogger) Warn(msg string, kv ...any) { m.record("WARN", msg, nil, kv) }

// Error records an error entry.
func (m *MockLogger) Error(err error, msg string, kv ...any) { m.record("ERROR", msg, err, kv) }

func (m *MockLogger) record(level, msg string, err error, kv []any) {
	fields := append(append([]any{}, m.fields...), flatten(kv)...)
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.entries = append(m.store.entries, LogEntry{Level: level, Message: msg, Fields: fields, Error: err})
}

// flatten expands the two-element pairs built by log.Str and friends.
func flatten(kv []any) []any {
	out := make([]any, 0, len(kv))
	for _, item := range kv {
		if pair, ok := item.([]any); ok && len(pair) == 2 {
			out = append(out, pair[0], pair[1])
			continue
		}
		out = append(out, item)
	}
	return out
}

// Entries returns a copy of all entries.
func (m *MockLogger) Entries() []LogEntry {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return append([]LogEntry(nil), m.store.entries...)
}

// Find returns the first entry with level and msg.
func (m *MockLogger) Find(level, msg string) (LogEntry, bool) {
	for _, e := range m.Entries() {
		if e.Level == level && e.Message == msg {
			return e, true
		}
	}
	return LogEntry{}, false
}

// Count returns how many entries were recorded at level.
func (m *MockLogger) Count(level string) int {
	n := 0
	for _, e := range m.Entries() {
		if e.Level == level {
			n++
		}
	}
	return n
}

// AssertLogged fails the test unless an entry with level and msg exists.
func (m *MockLogger) AssertLogged(level, msg string) {
	m.t.Helper()
	if _, ok := m.Find(level, msg); !ok {
		m.t.Errorf("expected log entry not found: level=%s msg=%q\n%s", level, msg, m.dump())
	}
}

// AssertNotLogged fails the test if any entry at level exists.
func (m *MockLogger) AssertNotLogged(level string) {
	m.t.Helper()
	if n := m.Count(level); n > 0 {
		m.t.Errorf("expected no %s entries, got %d\n%s", level, n, m.dump())
	}
}

func (m *MockLogger) dump() string {
	var b strings.Builder
	for _, e := range m.Entries() {
		fmt.Fprintf(&b, "  %s %q %v", e.Level, e.Message, e.Fields)
		if e.Error != nil {
			fmt.Fprintf(&b, " error=%v", e.Error)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Clear drops all entries.
func (m *MockLogger) Clear() {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.entries = nil
}

// NewContextWithMeta returns a background context carrying meta.
func NewContextWithMeta(t testing.TB, meta *identity.RequestMeta) context.Context {
	t.Helper()
	ctx := context.Background()
	if meta != nil {
		ctx = identity.WithMeta(ctx, meta)
	}
	return ctx
}

// AssertError fails unless err is non-nil and carries expectedCode.
func AssertError(t testing.TB, err error, expectedCode errors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", expectedCode)
	}
	if code := errors.CodeOf(err); code != expectedCode {
		t.Errorf("expected error code %s, got %s (%v)", expectedCode, code, err)
	}
}

// AssertNoError fails the test if err is non-nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}
