// Package log defines the logging contract used across carddesk.
//
// Overview:
//   - Responsibility: A stable, implementation-free structured logging interface
//   - Key Types: Logger with key-value logging, kv helpers
//   - Concurrency Model: Implementations must be safe for concurrent use
//   - Error Semantics: Error takes the error first so every failure log carries it
//
// Usage:
//
//	logger.Info("client deleted", log.Str("oib", oib))
//	logger.Error(err, "registry call failed", log.Str("op", "delete"))
package log

import "time"

// Logger is a structured, leveled logger.
type Logger interface {
	// With returns a Logger that attaches kv to every record.
	With(kv ...any) Logger

	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)

	// Error logs msg at error level with err attached under the "error" key.
	Error(err error, msg string, kv ...any)
}

// Str creates a string key-value pair.
func Str(k, v string) any {
	return []any{k, v}
}

// Int creates an integer key-value pair.
func Int(k string, v int) any {
	return []any{k, v}
}

// Int64 creates an int64 key-value pair.
func Int64(k string, v int64) any {
	return []any{k, v}
}

// Bool creates a boolean key-value pair.
func Bool(k string, v bool) any {
	return []any{k, v}
}

// Dur creates a duration key-value pair.
func Dur(k string, v time.Duration) any {
	return []any{k, v}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return nop{}
}

type nop struct{}

func (n nop) With(...any) Logger { return n }
func (nop) Debug(string, ...any) {}
func (nop) Info(string, ...any) {}
func (nop) Warn(string, ...any) {}
func (nop) Error(error, string, ...any) {}
