// Package logx implements core/log.Logger on top of log/slog.
//
// Overview:
//   - Responsibility: logfmt or JSON output with sorted keys, level colouring and redaction
//   - Key Types: Logger, Option
//   - Concurrency Model: Loggers are safe for concurrent use; SetLevel may race freely with logging
//   - Error Semantics: Write failures are dropped
//
// Usage:
//
//	logger := logx.New(logx.WithFormat(logx.FormatJSON), logx.WithSensitiveFields("oib"))
//	logger.Info("client created", logx.Str("oib", c.OIB))
package logx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.eggybyte.com/carddesk/core/identity"
	"go.eggybyte.com/carddesk/core/log"
	"go.eggybyte.com/carddesk/logx/internal"
)

// Format selects the output encoding.
type Format string

const (
	// FormatLogfmt writes key=value records.
	FormatLogfmt Format = "logfmt"
	// FormatJSON writes one JSON object per record.
	FormatJSON Format = "json"
)

// Options configures a Logger.
type Options struct {
	Format          Format
	Level           slog.Level
	Color           bool      // Colour the level value only
	Writer          io.Writer // Defaults to os.Stderr
	PayloadMaxBytes int       // Truncate long string values (0 = unlimited)
	SensitiveFields []string  // Keys whose values are masked
	Timestamp       bool      // Emit time=; off by default since containers stamp lines
}

// Option mutates Options.
type Option func(*Options)

// WithFormat sets the output format.
func WithFormat(format Format) Option {
	return func(o *Options) { o.Format = format }
}

// WithLevel sets the minimum level.
func WithLevel(level slog.Level) Option {
	return func(o *Options) { o.Level = level }
}

// WithColor enables ANSI colouring of the level value.
func WithColor(enabled bool) Option {
	return func(o *Options) { o.Color = enabled }
}

// WithWriter sets the output writer.
func WithWriter(w io.Writer) Option {
	return func(o *Options) { o.Writer = w }
}

// WithPayloadLimit truncates string values longer than maxBytes.
func WithPayloadLimit(maxBytes int) Option {
	return func(o *Options) { o.PayloadMaxBytes = maxBytes }
}

// WithSensitiveFields masks the values of the named keys.
func WithSensitiveFields(fields ...string) Option {
	return func(o *Options) { o.SensitiveFields = fields }
}

// WithTimestamp enables the time field.
func WithTimestamp(enabled bool) Option {
	return func(o *Options) { o.Timestamp = enabled }
}

var _ log.Logger = (*Logger)(nil)

// Logger is the slog-backed log.Logger.
type Logger struct {
	handler *internal.Handler
	level   *slog.LevelVar
	attrs   []slog.Attr
}

// New builds a Logger from opts.
func New(opts ...Option) *Logger {
	options := Options{
		Format: FormatLogfmt,
		Level:  slog.LevelInfo,
		Writer: os.Stderr,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Writer == nil {
		options.Writer = os.Stderr
	}

	level := new(slog.LevelVar)
	level.Set(options.Level)

	return &Logger{
		level: level,
		handler: internal.NewHandler(internal.Options{
			JSON:            options.Format == FormatJSON,
			Level:           level,
			Color:           options.Color,
			PayloadMaxBytes: options.PayloadMaxBytes,
			SensitiveFields: options.SensitiveFields,
			Timestamp:       options.Timestamp,
		}, options.Writer),
	}
}

// SetLevel changes the minimum level of l and every logger derived from it.
func (l *Logger) SetLevel(level slog.Level) {
	l.level.Set(level)
}

// Level reports the current minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// Slog exposes the handler as a *slog.Logger for libraries that want one.
func (l *Logger) Slog() *slog.Logger {
	return slog.New(l.handler.WithAttrs(l.attrs))
}

// With returns a Logger that attaches kv to every record.
func (l *Logger) With(kv ...any) log.Logger {
	attrs := make([]slog.Attr, 0, len(l.attrs)+len(kv)/2)
	attrs = append(attrs, l.attrs...)
	attrs = append(attrs, internal.KVToAttrs(kv)...)
	return &Logger{handler: l.handler, level: l.level, attrs: attrs}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, kv ...any) {
	l.log(slog.LevelDebug, msg, nil, kv)
}

// Info logs at info level.
func (l *Logger) Info(msg string, kv ...any) {
	l.log(slog.LevelInfo, msg, nil, kv)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, kv ...any) {
	l.log(slog.LevelWarn, msg, nil, kv)
}

// Error logs at error level with err under the "error" key.
func (l *Logger) Error(err error, msg string, kv ...any) {
	l.log(slog.LevelError, msg, err, kv)
}

func (l *Logger) log(level slog.Level, msg string, err error, kv []any) {
	if !l.handler.Enabled(context.Background(), level) {
		return
	}
	attrs := make([]slog.Attr, 0, len(l.attrs)+len(kv)/2+1)
	attrs = append(attrs, l.attrs...)
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	attrs = append(attrs, internal.KVToAttrs(kv)...)
	l.handler.LogRecord(level, msg, attrs)
}

// FromContext returns base enriched with the request_id and session_id found in ctx.
func FromContext(ctx context.Context, base log.Logger) log.Logger {
	meta, ok := identity.MetaFrom(ctx)
	if !ok {
		return base
	}
	var kv []any
	if meta.RequestID != "" {
		kv = append(kv, "request_id", meta.RequestID)
	}
	if meta.SessionID != "" {
		kv = append(kv, "session_id", meta.SessionID)
	}
	if len(kv) == 0 {
		return base
	}
	return base.With(kv...)
}

// ParseLevel parses debug, info, warn or error (case-insensitive).
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logx: unknown level %q", s)
	}
}

// Str creates a string key-value pair.
func Str(k, v string) any { return log.Str(k, v) }

// Int creates an integer key-value pair.
func Int(k string, v int) any { return log.Int(k, v) }
