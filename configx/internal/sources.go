package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"go.eggybyte.com/carddesk/core/log"
)

// EnvOptions configures an EnvSource.
type EnvOptions struct {
	Prefix string // Only variables with this prefix are read; it is stripped from keys
}

// EnvSource reads the process environment once. It never publishes updates.
type EnvSource struct {
	prefix  string
	environ func() []string
}

// NewEnvSource creates an environment variable source.
func NewEnvSource(opts EnvOptions) *EnvSource {
	return &EnvSource{prefix: opts.Prefix, environ: os.Environ}
}

// Load implements Source.
func (s *EnvSource) Load(context.Context) (map[string]string, error) {
	out := map[string]string{}
	for _, kv := range s.environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if s.prefix != "" {
			if !strings.HasPrefix(key, s.prefix) {
				continue
			}
			key = strings.TrimPrefix(key, s.prefix)
		}
		out[key] = value
	}
	return out, nil
}

// Watch implements Source.
func (s *EnvSource) Watch(ctx context.Context) (<-chan map[string]string, error) {
	return idleWatch(ctx), nil
}

// StaticSource serves a fixed snapshot, typically command-line overrides.
type StaticSource struct {
	values map[string]string
}

// NewStaticSource copies values into a source.
func NewStaticSource(values map[string]string) *StaticSource {
	return &StaticSource{values: maps.Clone(values)}
}

// Load implements Source.
func (s *StaticSource) Load(context.Context) (map[string]string, error) {
	return maps.Clone(s.values), nil
}

// Watch implements Source.
func (s *StaticSource) Watch(ctx context.Context) (<-chan map[string]string, error) {
	return idleWatch(ctx), nil
}

// FileOptions configures a FileSource.
type FileOptions struct {
	Watch  bool       // Publish a new snapshot whenever the file changes
	Format string     // "yaml" or "json"; detected from the extension when empty
	Logger log.Logger // Receives watch errors; may be nil
}

// FileSource reads a YAML or JSON document and flattens it into env-style keys:
// nested mappings join with "_" and keys are upper-cased, so
// `registry: {url: x}` yields REGISTRY_URL=x. Sequences become comma-separated values.
type FileSource struct {
	path   string
	format string
	watch  bool
	logger log.Logger
}

// NewFileSource creates a file source for path.
func NewFileSource(path string, opts FileOptions) *FileSource {
	format := opts.Format
	if format == "" {
		format = detectFileFormat(path)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &FileSource{path: filepath.Clean(path), format: format, watch: opts.Watch, logger: logger}
}

// Load implements Source. A missing file yields an empty snapshot.
func (s *FileSource) Load(context.Context) (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return ParseDocument(data, s.format)
}

// Watch implements Source. The parent directory is watched so that editors
// replacing the file and Kubernetes ConfigMap symlink swaps are both seen.
func (s *FileSource) Watch(ctx context.Context) (<-chan map[string]string, error) {
	if !s.watch {
		return idleWatch(ctx), nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}

	ch := make(chan map[string]string)
	go func() {
		defer close(ch)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !s.relevant(ev) {
					continue
				}
				snap, err := s.Load(ctx)
				if err != nil {
					s.logger.Error(err, "config file reload failed", log.Str("path", s.path))
					continue
				}
				select {
				case ch <- snap:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Error(err, "config file watch error", log.Str("path", s.path))
			}
		}
	}()
	return ch, nil
}

func (s *FileSource) relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Clean(ev.Name)
	return name == s.path || filepath.Base(name) == "..data"
}

func detectFileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	default:
		return "yaml"
	}
}

// ParseDocument decodes a YAML or JSON document into a flat snapshot.
func ParseDocument(data []byte, format string) (map[string]string, error) {
	var doc map[string]any
	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case "json":
		if len(strings.TrimSpace(string(data))) == 0 {
			return map[string]string{}, nil
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}

	out := map[string]string{}
	flatten("", doc, out)
	return out, nil
}

func flatten(prefix string, value any, out map[string]string) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flatten(joinKey(prefix, k), v[k], out)
		}
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, scalar(item))
		}
		out[prefix] = strings.Join(parts, ",")
	case nil:
		if prefix != "" {
			out[prefix] = ""
		}
	default:
		out[prefix] = scalar(v)
	}
}

func joinKey(prefix, key string) string {
	key = strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
	if prefix == "" {
		return key
	}
	return prefix + "_" + key
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
