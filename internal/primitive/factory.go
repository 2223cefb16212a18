package primitive

import (
	"fmt"
	"sync"

	"github.com/kestrelworks/spatial-core/internal/entity"
	"github.com/kestrelworks/spatial-core/internal/pose"
	"github.com/kestrelworks/spatial-core/internal/signal"
)

// Catalog resolves primitive spec ids to their declarations.
type Catalog interface {
	PrimitiveSpec(id string) (*Spec, bool)
}

// Logger is the optional structured logger. Matches slog's signature.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

type cacheKey struct {
	primitiveID string
	pairKey     string
}

type cacheEntry struct {
	shared *signal.Shared[Payload]
	refs   int
}

// Factory builds and caches primitive measurement signals. Entries are
// keyed by (primitive id, pair key) and reference counted: Get and a
// TryGet hit increment, Release decrements, and the entry is evicted
// exactly when the count reaches zero.
//
// Inline overrides apply only when an entry is first built; a later Get
// for the same key returns the cached signal regardless of override.
type Factory struct {
	provider *pose.Provider
	catalog  Catalog
	cfg      pose.Config
	logger   Logger

	mu    sync.Mutex
	cache map[cacheKey]*cacheEntry
}

// NewFactory creates a factory over the given pose provider and spec
// catalog.
func NewFactory(provider *pose.Provider, catalog Catalog, cfg pose.Config) *Factory {
	return &Factory{
		provider: provider,
		catalog:  catalog,
		cfg:      cfg,
		logger:   noopLogger{},
		cache:    make(map[cacheKey]*cacheEntry),
	}
}

// SetLogger installs a structured logger. Nil restores the no-op.
func (f *Factory) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	f.logger = logger
}

// Get returns the named primitive's shared signal for the pair,
// building and caching it on first use. The inline override, if any, is
// merged into the catalog spec before validation. Each successful Get
// must be balanced by one Release.
func (f *Factory) Get(pair entity.Pair, id string, inline *InlineSpec) (signal.Signal[Payload], error) {
	if pair.A == nil {
		return nil, fmt.Errorf("%w: primitive %s", entity.ErrNoPrimary, id)
	}
	key := cacheKey{primitiveID: id, pairKey: pair.Key}

	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.cache[key]; ok {
		e.refs++
		return e.shared, nil
	}

	base, ok := f.catalog.PrimitiveSpec(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSpecNotFound, id)
	}
	spec, err := base.ApplyInline(inline)
	if err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	sig, err := f.build(spec, pair)
	if err != nil {
		return nil, err
	}
	e := &cacheEntry{shared: signal.Share[Payload](sig), refs: 1}
	f.cache[key] = e
	f.logger.Debug("primitive signal built", "primitive", id, "pair", pair.Key, "metric", spec.Metric)
	return e.shared, nil
}

// TryGet returns the cached signal for the key without building one.
// A hit still increments the reference count.
func (f *Factory) TryGet(pair entity.Pair, id string) (signal.Signal[Payload], bool) {
	key := cacheKey{primitiveID: id, pairKey: pair.Key}
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.cache[key]
	if !ok {
		return nil, false
	}
	e.refs++
	return e.shared, true
}

// Release decrements the reference count for the key and evicts the
// entry when it reaches zero. Releasing a key that is not held is an
// error.
func (f *Factory) Release(pair entity.Pair, id string) error {
	key := cacheKey{primitiveID: id, pairKey: pair.Key}
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.cache[key]
	if !ok {
		return fmt.Errorf("%w: %s for %s", ErrNotReleased, id, pair.Key)
	}
	e.refs--
	if e.refs <= 0 {
		delete(f.cache, key)
		f.logger.Debug("primitive signal evicted", "primitive", id, "pair", pair.Key)
	}
	return nil
}

// Refs reports the current reference count for the key. Zero means not
// cached.
func (f *Factory) Refs(pair entity.Pair, id string) int {
	key := cacheKey{primitiveID: id, pairKey: pair.Key}
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.cache[key]; ok {
		return e.refs
	}
	return 0
}
