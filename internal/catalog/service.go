package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kestrelworks/spatial-core/internal/primitive"
	"github.com/kestrelworks/spatial-core/internal/rule"
)

// Logger is the optional structured logger. Matches slog's signature.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Service is the in-memory spec catalog backed by a Repository.
//
// All specs are held in memory after Load so that hot-path lookups
// (every primitive build and composition resolution) never touch the
// database. Writes go through the repository first and update the
// cache only on success.
//
// Service satisfies the factory's and compiler's catalog interfaces:
// PrimitiveSpec and CompositionSpec resolve ids without a context
// because they read the cache only.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Service struct {
	repo   Repository
	logger Logger

	mu           sync.RWMutex
	primitives   map[string]*primitive.Spec
	compositions map[string]*rule.CompositionSpec
	rules        map[string]*rule.Spec
}

// NewService creates a catalog service over the given repository.
// Call Load before first use to warm the cache.
func NewService(repo Repository) *Service {
	return &Service{
		repo:         repo,
		logger:       noopLogger{},
		primitives:   make(map[string]*primitive.Spec),
		compositions: make(map[string]*rule.CompositionSpec),
		rules:        make(map[string]*rule.Spec),
	}
}

// SetLogger installs a structured logger. Nil restores the no-op.
func (s *Service) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.logger = logger
}

// Load populates the in-memory cache from the repository. It replaces
// any previously cached specs.
func (s *Service) Load(ctx context.Context) error {
	prims, err := s.repo.ListPrimitives(ctx)
	if err != nil {
		return fmt.Errorf("loading primitives: %w", err)
	}
	comps, err := s.repo.ListCompositions(ctx)
	if err != nil {
		return fmt.Errorf("loading compositions: %w", err)
	}
	rules, err := s.repo.ListRules(ctx)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.primitives = make(map[string]*primitive.Spec, len(prims))
	for i := range prims {
		s.primitives[prims[i].ID] = &prims[i]
	}
	s.compositions = make(map[string]*rule.CompositionSpec, len(comps))
	for i := range comps {
		s.compositions[comps[i].ID] = &comps[i]
	}
	s.rules = make(map[string]*rule.Spec, len(rules))
	for i := range rules {
		s.rules[rules[i].ID] = &rules[i]
	}

	s.logger.Info("catalog loaded",
		"primitives", len(prims),
		"compositions", len(comps),
		"rules", len(rules),
	)
	return nil
}

// PrimitiveSpec resolves a primitive id from the cache. The returned
// spec is shared; callers must not mutate it.
func (s *Service) PrimitiveSpec(id string) (*primitive.Spec, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	spec, ok := s.primitives[id]
	return spec, ok
}

// CompositionSpec resolves a composition id from the cache. The
// returned spec is shared; callers must not mutate it.
func (s *Service) CompositionSpec(id string) (*rule.CompositionSpec, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	spec, ok := s.compositions[id]
	return spec, ok
}

// Primitives returns all cached primitive specs ordered by id.
func (s *Service) Primitives() []primitive.Spec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]primitive.Spec, 0, len(s.primitives))
	for _, spec := range s.primitives {
		out = append(out, *spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Compositions returns all cached composition specs ordered by id.
func (s *Service) Compositions() []rule.CompositionSpec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]rule.CompositionSpec, 0, len(s.compositions))
	for _, spec := range s.compositions {
		out = append(out, *spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Rules returns all cached rule specs ordered by id.
func (s *Service) Rules() []rule.Spec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]rule.Spec, 0, len(s.rules))
	for _, spec := range s.rules {
		out = append(out, *spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Rule resolves a rule id from the cache.
func (s *Service) Rule(id string) (*rule.Spec, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	spec, ok := s.rules[id]
	return spec, ok
}

// CreatePrimitive validates, persists and caches a new primitive spec.
func (s *Service) CreatePrimitive(ctx context.Context, spec *primitive.Spec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if err := s.repo.CreatePrimitive(ctx, spec); err != nil {
		return err
	}
	s.mu.Lock()
	s.primitives[spec.ID] = spec
	s.mu.Unlock()
	return nil
}

// UpdatePrimitive validates, persists and caches a replacement
// primitive spec. Signals already built from the previous version keep
// running; the new spec applies to builds after the update.
func (s *Service) UpdatePrimitive(ctx context.Context, spec *primitive.Spec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if err := s.repo.UpdatePrimitive(ctx, spec); err != nil {
		return err
	}
	s.mu.Lock()
	s.primitives[spec.ID] = spec
	s.mu.Unlock()
	return nil
}

// DeletePrimitive removes a primitive spec from store and cache.
func (s *Service) DeletePrimitive(ctx context.Context, id string) error {
	if err := s.repo.DeletePrimitive(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.primitives, id)
	s.mu.Unlock()
	return nil
}

// CreateComposition validates, persists and caches a new composition.
func (s *Service) CreateComposition(ctx context.Context, spec *rule.CompositionSpec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if err := s.repo.CreateComposition(ctx, spec); err != nil {
		return err
	}
	s.mu.Lock()
	s.compositions[spec.ID] = spec
	s.mu.Unlock()
	return nil
}

// UpdateComposition validates, persists and caches a replacement
// composition spec.
func (s *Service) UpdateComposition(ctx context.Context, spec *rule.CompositionSpec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if err := s.repo.UpdateComposition(ctx, spec); err != nil {
		return err
	}
	s.mu.Lock()
	s.compositions[spec.ID] = spec
	s.mu.Unlock()
	return nil
}

// DeleteComposition removes a composition spec from store and cache.
func (s *Service) DeleteComposition(ctx context.Context, id string) error {
	if err := s.repo.DeleteComposition(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.compositions, id)
	s.mu.Unlock()
	return nil
}

// CreateRule validates, persists and caches a new rule spec. The
// caller is responsible for registering the rule with the engine.
func (s *Service) CreateRule(ctx context.Context, spec *rule.Spec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if err := s.repo.CreateRule(ctx, spec); err != nil {
		return err
	}
	s.mu.Lock()
	s.rules[spec.ID] = spec
	s.mu.Unlock()
	return nil
}

// UpdateRule validates, persists and caches a replacement rule spec.
func (s *Service) UpdateRule(ctx context.Context, spec *rule.Spec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if err := s.repo.UpdateRule(ctx, spec); err != nil {
		return err
	}
	s.mu.Lock()
	s.rules[spec.ID] = spec
	s.mu.Unlock()
	return nil
}

// DeleteRule removes a rule spec from store and cache.
func (s *Service) DeleteRule(ctx context.Context, id string) error {
	if err := s.repo.DeleteRule(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.rules, id)
	s.mu.Unlock()
	return nil
}
