package rule

import (
	"fmt"
	"sync"

	"github.com/kestrelworks/spatial-core/internal/signal"
)

// Sink receives serialized rule events. Implementations must not
// block: the engine's tick thread delivers events synchronously.
type Sink interface {
	PublishRuleEvent(ev WireEvent)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ev WireEvent)

func (f SinkFunc) PublishRuleEvent(ev WireEvent) { f(ev) }

type registered struct {
	rule *Compiled
	stop signal.Teardown
}

// Registry maps rule ids to their compiled signals and fans serialized
// events out to the configured sinks.
type Registry struct {
	compiler *Compiler
	logger   Logger

	mu    sync.Mutex
	rules map[string]*registered
	sinks []Sink
}

// NewRegistry creates a registry dispatching through the compiler.
func NewRegistry(compiler *Compiler) *Registry {
	return &Registry{
		compiler: compiler,
		logger:   noopLogger{},
		rules:    make(map[string]*registered),
	}
}

// SetLogger installs a structured logger. Nil restores the no-op.
func (r *Registry) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	r.logger = logger
}

// AddSink attaches an event sink. Sinks added after rules are
// registered receive subsequent events only.
func (r *Registry) AddSink(s Sink) {
	r.mu.Lock()
	r.sinks = append(r.sinks, s)
	r.mu.Unlock()
}

// RegisterRule compiles and stores the rule, and starts dispatching
// its events to the sinks. Compilation failure leaves the registry
// unchanged.
func (r *Registry) RegisterRule(spec *Spec) error {
	r.mu.Lock()
	if _, ok := r.rules[spec.ID]; ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrExists, spec.ID)
	}
	r.mu.Unlock()

	compiled, err := r.compiler.Compile(spec)
	if err != nil {
		return err
	}

	stop := compiled.Signal().Subscribe(func(ev Event) {
		r.dispatch(ev)
	})

	r.mu.Lock()
	if _, ok := r.rules[spec.ID]; ok {
		r.mu.Unlock()
		stop()
		compiled.Dispose()
		return fmt.Errorf("%w: %s", ErrExists, spec.ID)
	}
	r.rules[spec.ID] = &registered{rule: compiled, stop: stop}
	r.mu.Unlock()

	r.logger.Debug("rule registered", "rule", spec.ID, "degraded", compiled.Degraded)
	return nil
}

// UnregisterRule removes the rule, stops its dispatch subscription and
// releases its primitive references. External subscribers obtained via
// Rule are responsible for their own teardowns.
func (r *Registry) UnregisterRule(id string) error {
	r.mu.Lock()
	reg, ok := r.rules[id]
	if ok {
		delete(r.rules, id)
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	reg.stop()
	reg.rule.Dispose()
	r.logger.Debug("rule unregistered", "rule", id)
	return nil
}

// Rule returns the compiled rule for external subscription.
func (r *Registry) Rule(id string) (*Compiled, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.rules[id]
	if !ok {
		return nil, false
	}
	return reg.rule, true
}

// IDs returns the registered rule ids.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.rules))
	for id := range r.rules {
		out = append(out, id)
	}
	return out
}

// Count returns the number of registered rules.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rules)
}

func (r *Registry) dispatch(ev Event) {
	wire := Serialize(ev)
	r.mu.Lock()
	sinks := make([]Sink, len(r.sinks))
	copy(sinks, r.sinks)
	r.mu.Unlock()
	for _, s := range sinks {
		s.PublishRuleEvent(wire)
	}
}
