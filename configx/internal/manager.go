package internal

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"go.eggybyte.com/carddesk/core/log"
)

// ManagerImpl merges sources in order and republishes the merge on change.
type ManagerImpl struct {
	logger   log.Logger
	sources  []Source
	debounce time.Duration

	mu       sync.RWMutex
	layers   []map[string]string // last snapshot per source
	snapshot map[string]string

	subsMu    sync.RWMutex
	subs      map[int]func(map[string]string)
	nextSubID int
}

// NewManager validates its inputs and returns an uninitialised manager.
func NewManager(logger log.Logger, sources []Source, debounce time.Duration) (*ManagerImpl, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one source is required")
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	return &ManagerImpl{
		logger:   logger,
		sources:  sources,
		debounce: debounce,
		layers:   make([]map[string]string, len(sources)),
		snapshot: map[string]string{},
		subs:     map[int]func(map[string]string){},
	}, nil
}

// Initialize loads every source and starts a watcher per source that lives until ctx ends.
func (m *ManagerImpl) Initialize(ctx context.Context) error {
	for i, src := range m.sources {
		snap, err := src.Load(ctx)
		if err != nil {
			return fmt.Errorf("source %d load failed: %w", i, err)
		}
		m.layers[i] = snap
	}

	m.mu.Lock()
	m.snapshot = merge(m.layers)
	keys := len(m.snapshot)
	m.mu.Unlock()
	m.logger.Info("configuration loaded", log.Int("keys", keys), log.Int("sources", len(m.sources)))

	for i, src := range m.sources {
		ch, err := src.Watch(ctx)
		if err != nil {
			return fmt.Errorf("source %d watch failed: %w", i, err)
		}
		go m.watchSource(ctx, i, ch)
	}
	return nil
}

func (m *ManagerImpl) watchSource(ctx context.Context, idx int, ch <-chan map[string]string) {
	var (
		timer   *time.Timer
		pending map[string]string
		pmu     sync.Mutex
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			pmu.Lock()
			pending = snap
			pmu.Unlock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(m.debounce, func() {
				pmu.Lock()
				latest := pending
				pmu.Unlock()
				m.apply(idx, latest)
			})
		}
	}
}

func (m *ManagerImpl) apply(idx int, snap map[string]string) {
	m.mu.Lock()
	m.layers[idx] = snap
	merged := merge(m.layers)
	changed := !maps.Equal(merged, m.snapshot)
	m.snapshot = merged
	m.mu.Unlock()

	if !changed {
		m.logger.Debug("configuration unchanged", log.Int("source", idx))
		return
	}
	m.logger.Info("configuration updated", log.Int("source", idx), log.Int("keys", len(merged)))
	m.notify(maps.Clone(merged))
}

// merge overlays layers in order; empty values never override.
func merge(layers []map[string]string) map[string]string {
	out := map[string]string{}
	for _, layer := range layers {
		for k, v := range layer {
			if v != "" {
				out[k] = v
			}
		}
	}
	return out
}

// notify calls subscribers in registration order on the caller's goroutine.
func (m *ManagerImpl) notify(snapshot map[string]string) {
	m.subsMu.RLock()
	ids := make([]int, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	fns := make(map[int]func(map[string]string), len(m.subs))
	maps.Copy(fns, m.subs)
	m.subsMu.RUnlock()

	slices.Sort(ids)
	for _, id := range ids {
		fns[id](snapshot)
	}
}

// Snapshot returns a copy of the merged configuration.
func (m *ManagerImpl) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.snapshot)
}

// Value looks up a single merged key.
func (m *ManagerImpl) Value(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.snapshot[key]
	return v, ok
}

// Bind fills target from the current snapshot.
func (m *ManagerImpl) Bind(target any) error {
	if target == nil {
		return fmt.Errorf("target cannot be nil")
	}
	return BindToStruct(m.Snapshot(), target)
}

// OnUpdate registers fn for every changed snapshot and returns its unsubscribe func.
func (m *ManagerImpl) OnUpdate(fn func(map[string]string)) func() {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	id := m.nextSubID
	m.nextSubID++
	m.subs[id] = fn
	return func() {
		m.subsMu.Lock()
		defer m.subsMu.Unlock()
		delete(m.subs, id)
	}
}
