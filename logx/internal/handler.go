// Package internal holds the slog.Handler behind logx.
package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RedactedValue replaces the value of every sensitive key.
const RedactedValue = "***REDACTED***"

// Options configures a Handler.
type Options struct {
	JSON            bool
	Level           slog.Leveler
	Color           bool
	PayloadMaxBytes int
	SensitiveFields []string
	Timestamp       bool
}

// Handler renders records as logfmt or JSON with keys sorted.
// Clones made by WithAttrs and WithGroup share the writer lock.
type Handler struct {
	opts   Options
	mu     *sync.Mutex
	writer io.Writer
	attrs  []slog.Attr
	prefix string
}

// NewHandler creates a Handler writing to w.
func NewHandler(opts Options, w io.Writer) *Handler {
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	return &Handler{opts: opts, mu: &sync.Mutex{}, writer: w}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

// Handle implements slog.Handler.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	attrs := make([]slog.Attr, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})
	h.LogRecord(r.Level, r.Message, attrs)
	return nil
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), h.qualify(attrs)...)
	return &clone
}

// WithGroup implements slog.Handler. Group names prefix keys with "name.".
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func (h *Handler) qualify(attrs []slog.Attr) []slog.Attr {
	if h.prefix == "" {
		return attrs
	}
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: h.prefix + a.Key, Value: a.Value}
	}
	return out
}

// LogRecord writes one record if level is enabled.
func (h *Handler) LogRecord(level slog.Level, msg string, attrs []slog.Attr) {
	if !h.Enabled(context.Background(), level) {
		return
	}

	all := SortAttrs(append(append([]slog.Attr{}, h.attrs...), h.qualify(attrs)...))

	var line string
	if h.opts.JSON {
		line = h.renderJSON(level, msg, all)
	} else {
		line = h.renderLogfmt(level, msg, all)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, _ = io.WriteString(h.writer, line)
}

func (h *Handler) renderLogfmt(level slog.Level, msg string, attrs []slog.Attr) string {
	var b strings.Builder
	if h.opts.Timestamp {
		b.WriteString("time=")
		b.WriteString(time.Now().UTC().Format(time.RFC3339))
		b.WriteByte(' ')
	}
	b.WriteString("level=")
	if h.opts.Color {
		b.WriteString(ColorizeLevel(LevelString(level)))
	} else {
		b.WriteString(LevelString(level))
	}
	b.WriteString(" msg=")
	b.WriteString(strconv.Quote(msg))
	for _, a := range attrs {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteByte('=')
		b.WriteString(FormatValue(a.Key, a.Value, h.opts))
	}
	b.WriteByte('\n')
	return b.String()
}

func (h *Handler) renderJSON(level slog.Level, msg string, attrs []slog.Attr) string {
	var b strings.Builder
	b.WriteByte('{')
	if h.opts.Timestamp {
		b.WriteString(`"time":`)
		b.WriteString(strconv.Quote(time.Now().UTC().Format(time.RFC3339)))
		b.WriteByte(',')
	}
	b.WriteString(`"level":`)
	b.WriteString(strconv.Quote(LevelString(level)))
	b.WriteString(`,"msg":`)
	b.WriteString(jsonString(msg))
	for _, a := range attrs {
		b.WriteByte(',')
		b.WriteString(jsonString(a.Key))
		b.WriteByte(':')
		b.WriteString(jsonValue(a.Key, a.Value, h.opts))
	}
	b.WriteString("}\n")
	return b.String()
}

func (o Options) sensitive(key string) bool {
	for _, field := range o.SensitiveFields {
		if strings.EqualFold(key, field) {
			return true
		}
		if i := strings.LastIndexByte(key, '.'); i >= 0 && strings.EqualFold(key[i+1:], field) {
			return true
		}
	}
	return false
}

func (o Options) truncate(s string) string {
	if o.PayloadMaxBytes > 0 && len(s) > o.PayloadMaxBytes {
		return fmt.Sprintf("%s...(truncated, %d bytes)", s[:o.PayloadMaxBytes], len(s))
	}
	return s
}

// FormatValue renders v for logfmt. Strings are always quoted and durations are milliseconds.
func FormatValue(key string, v slog.Value, opts Options) string {
	if opts.sensitive(key) {
		return strconv.Quote(RedactedValue)
	}
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return strconv.Quote(opts.truncate(v.String()))
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindDuration:
		return strconv.FormatInt(v.Duration().Milliseconds(), 10)
	case slog.KindTime:
		return strconv.Quote(v.Time().Format(time.RFC3339))
	default:
		return strconv.Quote(opts.truncate(fmt.Sprint(v.Any())))
	}
}

func jsonValue(key string, v slog.Value, opts Options) string {
	if opts.sensitive(key) {
		return jsonString(RedactedValue)
	}
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return jsonString(opts.truncate(v.String()))
	case slog.KindInt64, slog.KindUint64, slog.KindFloat64, slog.KindBool, slog.KindDuration:
		return FormatValue(key, v, opts)
	case slog.KindTime:
		return jsonString(v.Time().Format(time.RFC3339))
	default:
		if err, ok := v.Any().(error); ok {
			return jsonString(opts.truncate(err.Error()))
		}
		raw, err := json.Marshal(v.Any())
		if err != nil {
			return jsonString(fmt.Sprint(v.Any()))
		}
		return string(raw)
	}
}

func jsonString(s string) string {
	raw, _ := json.Marshal(s)
	return string(raw)
}

// KVToAttrs converts alternating key/value arguments, or the two-element
// pairs built by log.Str and friends, into attributes. A trailing key
// without a value is dropped.
func KVToAttrs(kv []any) []slog.Attr {
	flat := make([]any, 0, len(kv))
	for _, item := range kv {
		switch v := item.(type) {
		case []any:
			if len(v) == 2 {
				flat = append(flat, v[0], v[1])
				continue
			}
			flat = append(flat, v)
		case slog.Attr:
			flat = append(flat, v.Key, v.Value)
		default:
			flat = append(flat, v)
		}
	}

	attrs := make([]slog.Attr, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		key, ok := flat[i].(string)
		if !ok {
			key = fmt.Sprint(flat[i])
		}
		if val, ok := flat[i+1].(slog.Value); ok {
			attrs = append(attrs, slog.Attr{Key: key, Value: val})
			continue
		}
		attrs = append(attrs, slog.Any(key, flat[i+1]))
	}
	return attrs
}

// SortAttrs returns attrs sorted by key; equal keys keep their order.
func SortAttrs(attrs []slog.Attr) []slog.Attr {
	sort.SliceStable(attrs, func(i, j int) bool { return attrs[i].Key < attrs[j].Key })
	return attrs
}

// LevelString returns DEBUG, INFO, WARN or ERROR.
func LevelString(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "DEBUG"
	case level < slog.LevelWarn:
		return "INFO"
	case level < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

// ColorizeLevel wraps a level name in its ANSI colour.
func ColorizeLevel(level string) string {
	const reset = "\033[0m"
	colors := map[string]string{
		"DEBUG": "\033[35m",
		"INFO":  "\033[36m",
		"WARN":  "\033[33m",
		"ERROR": "\033[31m",
	}
	if c, ok := colors[level]; ok {
		return c + level + reset
	}
	return level
}
