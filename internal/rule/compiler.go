package rule

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kestrelworks/spatial-core/internal/entity"
	"github.com/kestrelworks/spatial-core/internal/geometry"
	"github.com/kestrelworks/spatial-core/internal/pose"
	"github.com/kestrelworks/spatial-core/internal/primitive"
	"github.com/kestrelworks/spatial-core/internal/signal"
)

// Event is one rule emission: the boolean state plus the published
// value snapshot. The pixel mappers are present when the respective
// pair member has a declared resolution and live corner data, and are
// what the serializer uses to attach pixel-space coordinates.
type Event struct {
	RuleID  string
	State   bool
	Streams *Snapshot
	MapperA *geometry.PixelMap
	MapperB *geometry.PixelMap
}

// Catalog resolves composition ids referenced from condition trees.
type Catalog interface {
	CompositionSpec(id string) (*CompositionSpec, bool)
}

// PairResolver turns a rule's entity selector into a concrete pair.
type PairResolver interface {
	ResolvePair(sel entity.Selector) (entity.Pair, error)
}

// Logger is the optional structured logger. Matches slog's signature.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Compiler turns rule specs into live event signals.
type Compiler struct {
	factory  *primitive.Factory
	provider *pose.Provider
	resolver PairResolver
	catalog  Catalog
	logger   Logger
}

// NewCompiler creates a compiler over the given primitive factory,
// pose provider, pair resolver and composition catalog.
func NewCompiler(factory *primitive.Factory, provider *pose.Provider, resolver PairResolver, catalog Catalog) *Compiler {
	return &Compiler{
		factory:  factory,
		provider: provider,
		resolver: resolver,
		catalog:  catalog,
		logger:   noopLogger{},
	}
}

// SetLogger installs a structured logger. Nil restores the no-op.
func (c *Compiler) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.logger = logger
}

// Compiled is one compiled rule: a shared event signal plus the
// primitive references it holds. Dispose releases every primitive
// reference the compilation acquired; it is idempotent.
type Compiled struct {
	ID       string
	Pair     entity.Pair
	Degraded bool

	events   signal.Signal[Event]
	releases []func()
	once     sync.Once
}

// Signal returns the rule's shared event signal.
func (r *Compiled) Signal() signal.Signal[Event] {
	return r.events
}

// Dispose releases every primitive reference held by this rule.
func (r *Compiled) Dispose() {
	r.once.Do(func() {
		for _, release := range r.releases {
			release()
		}
		r.releases = nil
	})
}

// Compile builds the rule's event signal.
//
// Spec errors (bad trigger mode, unknown primitive, wrong refs,
// composition cycles) fail compilation. An unresolvable entity selector
// does not: the rule compiles to a degraded signal emitting a single
// {state: false, empty snapshot} event, so downstream consumers never
// block on a rule whose entities have not arrived.
func (c *Compiler) Compile(spec *Spec) (*Compiled, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	pair, err := c.resolver.ResolvePair(spec.Entities)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) || errors.Is(err, entity.ErrNoMatch) {
			c.logger.Warn("rule entities unresolved, compiling degraded",
				"rule", spec.ID, "selector_a", spec.Entities.A, "selector_b", spec.Entities.B, "error", err)
			return c.compileDegraded(spec), nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRule, spec.ID, err)
	}

	rule := &Compiled{ID: spec.ID, Pair: pair}
	fail := func(err error) (*Compiled, error) {
		rule.Dispose()
		return nil, err
	}

	var state signal.Signal[bool]
	if spec.Condition == nil || len(spec.Condition.Primitives) == 0 {
		state = signal.Just(true)
	} else {
		visited := map[string]bool{}
		state, err = c.resolveTree(rule, spec.Condition.Operator, spec.Condition.Primitives, visited)
		if err != nil {
			return fail(err)
		}
	}
	state = signal.DistinctBy[bool](state, func(prev, cur bool) bool { return prev == cur })

	streams, err := c.streamSignals(rule, spec)
	if err != nil {
		return fail(err)
	}

	rule.events = signal.Share[Event](c.eventPipeline(spec, pair, state, streams))
	c.logger.Debug("rule compiled", "rule", spec.ID, "pair", pair.Key, "mode", spec.Mode(), "streams", len(streams))
	return rule, nil
}

func (c *Compiler) compileDegraded(spec *Spec) *Compiled {
	events := signal.Func[Event](func(o signal.Observer[Event]) signal.Teardown {
		o(Event{RuleID: spec.ID, State: false, Streams: NewSnapshot()})
		return func() {}
	})
	return &Compiled{
		ID:       spec.ID,
		Degraded: true,
		events:   signal.Share[Event](events),
	}
}

// resolveTree turns a condition tree level into one boolean signal.
// Composition references recurse with an explicit visit stack;
// re-entering an id mid-resolution is a cycle.
func (c *Compiler) resolveTree(rule *Compiled, operator string, refs []Ref, visited map[string]bool) (signal.Signal[bool], error) {
	if err := validateOperator(operator); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRule, rule.ID, err)
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: %s: empty condition level", ErrInvalidRule, rule.ID)
	}

	operands := make([]signal.Signal[bool], 0, len(refs))
	for _, ref := range refs {
		operand, err := c.resolveRef(rule, ref, visited)
		if err != nil {
			return nil, err
		}
		operands = append(operands, operand)
	}
	return combineBool(operator, operands), nil
}

func (c *Compiler) resolveRef(rule *Compiled, ref Ref, visited map[string]bool) (signal.Signal[bool], error) {
	if comp, ok := c.catalog.CompositionSpec(ref.ID); ok {
		if ref.Inline != nil {
			return nil, fmt.Errorf("%w: %s: composition %q cannot take an inline override", ErrInvalidRule, rule.ID, ref.ID)
		}
		if visited[ref.ID] {
			return nil, fmt.Errorf("%w: %s via %s", ErrCompositionCycle, ref.ID, rule.ID)
		}
		visited[ref.ID] = true
		child, err := c.resolveTree(rule, comp.Operator, comp.Primitives, visited)
		delete(visited, ref.ID)
		if err != nil {
			return nil, err
		}
		return negate(child, ref.Negated), nil
	}

	payloads, err := c.factory.Get(rule.Pair, ref.ID, ref.Inline)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
	}
	rule.releases = append(rule.releases, c.releaseFunc(rule.Pair, ref.ID))
	valid := signal.Map[primitive.Payload, bool](payloads, func(p primitive.Payload) bool {
		return p.Valid
	})
	valid = signal.DistinctBy[bool](valid, func(prev, cur bool) bool { return prev == cur })
	return negate(valid, ref.Negated), nil
}

func (c *Compiler) releaseFunc(pair entity.Pair, id string) func() {
	return func() {
		if err := c.factory.Release(pair, id); err != nil {
			c.logger.Warn("primitive release failed", "primitive", id, "pair", pair.Key, "error", err)
		}
	}
}

func negate(s signal.Signal[bool], negated bool) signal.Signal[bool] {
	if !negated {
		return s
	}
	return signal.Map[bool, bool](s, func(v bool) bool { return !v })
}

// combineBool reduces N boolean operand signals under the operator.
// Operands that have not emitted yet stand at their seed: false for
// AND and OR, true for the conjunction a NOT wraps.
func combineBool(operator string, operands []signal.Signal[bool]) signal.Signal[bool] {
	switch operator {
	case "OR":
		return signal.CombineSlice[bool, bool](operands, false, func(vs []bool) bool {
			for _, v := range vs {
				if v {
					return true
				}
			}
			return false
		})
	case "NOT":
		all := signal.CombineSlice[bool, bool](operands, true, func(vs []bool) bool {
			for _, v := range vs {
				if !v {
					return false
				}
			}
			return true
		})
		return signal.Map[bool, bool](all, func(v bool) bool { return !v })
	default: // AND
		return signal.CombineSlice[bool, bool](operands, false, func(vs []bool) bool {
			for _, v := range vs {
				if !v {
					return false
				}
			}
			return true
		})
	}
}

// stream is one publish path bound to its live value signal.
type stream struct {
	path string
	sig  signal.Signal[StreamValue]
}

// streamSignals resolves every publish path against the primitive
// factory or the pose provider.
func (c *Compiler) streamSignals(rule *Compiled, spec *Spec) ([]stream, error) {
	if spec.Publish == nil {
		return nil, nil
	}
	out := make([]stream, 0, len(spec.Publish.Streams))
	for _, path := range spec.Publish.Streams {
		sig, err := c.streamSignal(rule, path)
		if err != nil {
			return nil, err
		}
		out = append(out, stream{path: path, sig: sig})
	}
	return out, nil
}

func (c *Compiler) streamSignal(rule *Compiled, path string) (signal.Signal[StreamValue], error) {
	if rest, ok := strings.CutPrefix(path, "primitives."); ok {
		id, field, ok := strings.Cut(rest, ".")
		if !ok || id == "" {
			return nil, fmt.Errorf("%w: %s: malformed publish path %q", ErrInvalidRule, rule.ID, path)
		}
		payloads, err := c.factory.Get(rule.Pair, id, nil)
		if err != nil {
			return nil, fmt.Errorf("rule %s: publish %q: %w", rule.ID, path, err)
		}
		rule.releases = append(rule.releases, c.releaseFunc(rule.Pair, id))
		switch field {
		case "measurement":
			return signal.Map[primitive.Payload, StreamValue](payloads, func(p primitive.Payload) StreamValue {
				if p.Value.Kind == primitive.ValueOverlap {
					return OverlapStream(p.Value.Overlap)
				}
				return ScalarStream(p.Value.Scalar)
			}), nil
		case "value":
			return signal.Map[primitive.Payload, StreamValue](payloads, func(p primitive.Payload) StreamValue {
				return BoolStream(p.Valid)
			}), nil
		default:
			return nil, fmt.Errorf("%w: %s: publish path %q must end in .measurement or .value", ErrInvalidRule, rule.ID, path)
		}
	}
	return c.featureStream(rule, path)
}

func (c *Compiler) featureStream(rule *Compiled, path string) (signal.Signal[StreamValue], error) {
	role, rest, _ := strings.Cut(path, ".")
	e := rule.Pair.Entity(role)
	if e == nil {
		return nil, fmt.Errorf("%w: %s: publish path %q names no pair entity", ErrInvalidRule, rule.ID, path)
	}

	switch {
	case rest == "" || rest == "center":
		return signal.Map[pose.Sample, StreamValue](c.provider.Pose(e), func(s pose.Sample) StreamValue {
			return Vec3Stream(s.Pose.Position)
		}), nil
	case rest == "orientation":
		return signal.Map[pose.Sample, StreamValue](c.provider.Pose(e), func(s pose.Sample) StreamValue {
			return QuatStream(s.Pose.Orientation)
		}), nil
	case rest == "corners", rest == "surface":
		return signal.Map[pose.Corners, StreamValue](c.provider.Corners(e), func(cs pose.Corners) StreamValue {
			return PolygonStream(cs.Polygon())
		}), nil
	case strings.HasPrefix(rest, "corner."):
		name := strings.TrimPrefix(rest, "corner.")
		if _, ok := (pose.Corners{}).Corner(name); !ok {
			return nil, fmt.Errorf("%w: %s: unknown corner %q in publish path %q", ErrInvalidRule, rule.ID, name, path)
		}
		return signal.Map[pose.Corners, StreamValue](c.provider.Corners(e), func(cs pose.Corners) StreamValue {
			p, _ := cs.Corner(name)
			return Vec3Stream(p)
		}), nil
	case strings.HasPrefix(rest, "edge."):
		name := strings.TrimPrefix(rest, "edge.")
		if _, ok := (pose.Corners{}).Edge(name); !ok {
			return nil, fmt.Errorf("%w: %s: unknown edge %q in publish path %q", ErrInvalidRule, rule.ID, name, path)
		}
		return signal.Map[pose.Corners, StreamValue](c.provider.Corners(e), func(cs pose.Corners) StreamValue {
			seg, _ := cs.Edge(name)
			return SegmentStream(seg)
		}), nil
	default:
		return nil, fmt.Errorf("%w: %s: unknown publish path %q", ErrInvalidRule, rule.ID, path)
	}
}

// eventPipeline wires state, streams, corner tracking and mapping into
// the rule's event emissions per its trigger mode.
func (c *Compiler) eventPipeline(spec *Spec, pair entity.Pair, state signal.Signal[bool], streams []stream) signal.Signal[Event] {
	mode := spec.Mode()
	var mapping *Mapping
	if spec.Publish != nil {
		mapping = spec.Publish.Mapping
	}

	return signal.Func[Event](func(o signal.Observer[Event]) signal.Teardown {
		snap := NewSnapshot()
		current := false
		var cornersA, cornersB *pose.Corners
		var teardowns []signal.Teardown

		mapper := func(e *entity.Entity, cs *pose.Corners) *geometry.PixelMap {
			if e == nil || !e.HasResolution() || cs == nil {
				return nil
			}
			m, err := geometry.NewPixelMap(cs.Array(), e.ResolutionW, e.ResolutionH)
			if err != nil {
				return nil
			}
			return m
		}

		emit := func() {
			ma := mapper(pair.A, cornersA)
			mb := mapper(pair.B, cornersB)
			applyMapping(snap, mapping, ma, mb)
			o(Event{
				RuleID:  spec.ID,
				State:   current,
				Streams: snap.Clone(),
				MapperA: ma,
				MapperB: mb,
			})
		}

		// Corner tracking feeds pixel mapping only; it never triggers
		// an event by itself.
		if pair.A != nil && pair.A.HasResolution() {
			teardowns = append(teardowns, c.provider.Corners(pair.A).Subscribe(func(cs pose.Corners) {
				cornersA = &cs
			}))
		}
		if pair.B != nil && pair.B.HasResolution() {
			teardowns = append(teardowns, c.provider.Corners(pair.B).Subscribe(func(cs pose.Corners) {
				cornersB = &cs
			}))
		}

		// Streams attach before the state signal so that within one
		// tick an edge-triggered event sees the tick's published
		// values already in the snapshot.
		for _, st := range streams {
			path := st.path
			teardowns = append(teardowns, st.sig.Subscribe(func(v StreamValue) {
				if !snap.Set(path, v) {
					return
				}
				switch mode {
				case OnAlways:
					emit()
				case OnTrue:
					if current {
						emit()
					}
				case OnFalse:
					if !current {
						emit()
					}
				}
			}))
		}

		// State edges drive only the edge-triggered modes. The
		// value-triggered modes (true, false, always) emit from the
		// stream subscriptions above; a bare state transition merely
		// updates the gate they check.
		teardowns = append(teardowns, state.Subscribe(func(s bool) {
			if s == current {
				return
			}
			current = s
			switch mode {
			case OnEnter:
				if s {
					emit()
				}
			case OnExit:
				if !s {
					emit()
				}
			case OnChange:
				emit()
			}
		}))

		return func() {
			for _, td := range teardowns {
				td()
			}
		}
	})
}

// applyMapping resolves the rule's mapping directives into mapping.*
// streams on the snapshot. A directive whose inputs are unavailable is
// removed rather than treated as an error.
func applyMapping(snap *Snapshot, m *Mapping, mapperA, mapperB *geometry.PixelMap) {
	if m == nil {
		return
	}
	toPixel := func(key, path string, mapper *geometry.PixelMap) {
		if path == "" {
			return
		}
		v, ok := snap.Get(path)
		if !ok || v.Kind != StreamVec3 || mapper == nil {
			snap.Delete(key)
			return
		}
		px, err := mapper.WorldToPixel(v.Vec3)
		if err != nil {
			snap.Delete(key)
			return
		}
		snap.Set(key, Vec2Stream(px))
	}
	fromPixel := func(key string, pt *PixelPoint, mapper *geometry.PixelMap) {
		if pt == nil {
			return
		}
		if mapper == nil {
			snap.Delete(key)
			return
		}
		w, err := mapper.PixelToWorld(geometry.Vec2{X: pt.X, Y: pt.Y})
		if err != nil {
			snap.Delete(key)
			return
		}
		snap.Set(key, Vec3Stream(w))
	}
	toPixel("mapping.toPixelA", m.ToPixelA, mapperA)
	toPixel("mapping.toPixelB", m.ToPixelB, mapperB)
	fromPixel("mapping.fromPixelA", m.FromPixelA, mapperA)
	fromPixel("mapping.fromPixelB", m.FromPixelB, mapperB)
}
