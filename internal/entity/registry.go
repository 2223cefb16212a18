package entity

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Logger is the minimal logging interface the registry needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry holds the live entities and their latest raw poses. It is
// the engine-side view of the external tracking subsystem.
//
// All public methods are safe for concurrent use; the tracking bridge
// writes from its own goroutines while the tick loop reads.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]*Entity
	poses    map[string]Pose

	evictMu  sync.Mutex
	onEvict  []func(id string)

	logger Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]*Entity),
		poses:    make(map[string]Pose),
		logger:   noopLogger{},
	}
}

// SetLogger sets the registry's logger.
func (r *Registry) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Register adds a new entity. Returns ErrInvalidID for an empty id and
// ErrExists when the id is already registered.
func (r *Registry) Register(e *Entity) error {
	if e == nil || e.ID == "" {
		return ErrInvalidID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entities[e.ID]; ok {
		return ErrExists
	}
	cpy := e.DeepCopy()
	if cpy.RegisteredAt.IsZero() {
		cpy.RegisteredAt = time.Now()
	}
	r.entities[e.ID] = cpy
	r.logger.Info("entity registered", "id", e.ID, "width", e.Width, "height", e.Height)
	return nil
}

// Unregister removes an entity, its stored pose, and notifies eviction
// hooks so per-entity derived signals are torn down. Returns
// ErrNotFound for an unknown id.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	_, ok := r.entities[id]
	delete(r.entities, id)
	delete(r.poses, id)
	r.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	r.evictMu.Lock()
	hooks := make([]func(string), len(r.onEvict))
	copy(hooks, r.onEvict)
	r.evictMu.Unlock()
	for _, hook := range hooks {
		hook(id)
	}

	r.logger.Info("entity unregistered", "id", id)
	return nil
}

// OnEvict registers a hook invoked with the entity id whenever an
// entity is unregistered. Hooks cannot be removed; register once at
// wiring time.
func (r *Registry) OnEvict(hook func(id string)) {
	r.evictMu.Lock()
	r.onEvict = append(r.onEvict, hook)
	r.evictMu.Unlock()
}

// Get retrieves an entity by id. The result is a deep copy.
func (r *Registry) Get(id string) (*Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.DeepCopy(), nil
}

// List returns all entities sorted by id.
func (r *Registry) List() []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entity, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, *e.DeepCopy())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of registered entities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// Resolve resolves a selector term to an entity: either a plain id, or
// a constraint "tag:<label>" matching the lexicographically first
// tagged entity (deterministic under concurrent registration order).
func (r *Registry) Resolve(term string) (*Entity, error) {
	if term == "" {
		return nil, ErrInvalidID
	}
	if label, ok := strings.CutPrefix(term, "tag:"); ok {
		r.mu.RLock()
		defer r.mu.RUnlock()
		var best *Entity
		for _, e := range r.entities {
			if e.HasTag(label) && (best == nil || e.ID < best.ID) {
				best = e
			}
		}
		if best == nil {
			return nil, ErrNoMatch
		}
		return best.DeepCopy(), nil
	}
	return r.Get(term)
}

// ResolvePair resolves a rule selector to an entity pair. The primary
// term must resolve; a missing or unresolvable secondary yields a pair
// with B nil only if the term was empty, otherwise the error is
// returned so the caller can degrade the rule.
func (r *Registry) ResolvePair(sel Selector) (Pair, error) {
	a, err := r.Resolve(sel.A)
	if err != nil {
		return Pair{}, err
	}
	var b *Entity
	if sel.B != "" {
		b, err = r.Resolve(sel.B)
		if err != nil {
			return Pair{}, err
		}
	}
	return NewPair(a, b)
}

// UpdatePose stores the latest raw pose for an entity. Unknown ids are
// ignored with a debug log; the tracking stream may race registration.
func (r *Registry) UpdatePose(id string, pose Pose) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entities[id]; !ok {
		r.logger.Debug("pose for unknown entity dropped", "id", id)
		return
	}
	r.poses[id] = pose
}

// CurrentPose implements PoseSource.
func (r *Registry) CurrentPose(id string) (Pose, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pose, ok := r.poses[id]
	return pose, ok
}
