package pose

import (
	"math"
	"sync"

	"github.com/kestrelworks/spatial-core/internal/entity"
	"github.com/kestrelworks/spatial-core/internal/geometry"
	"github.com/kestrelworks/spatial-core/internal/signal"
)

// Logger is the minimal logging interface the provider needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Provider builds and caches the derived signal set for each entity.
//
// Signals are memoized lazily: the first request for an entity's pose
// (or any derivative) builds the chain; later requests return the same
// shared signal. Evict tears an entity's whole set down.
type Provider struct {
	clock  signal.Clock
	source entity.PoseSource
	cfg    Config
	logger Logger

	mu       sync.Mutex
	entities map[string]*entitySignals
}

// entitySignals holds one entity's lazily-built derived signals.
type entitySignals struct {
	ent *entity.Entity

	pose    signal.Signal[Sample]
	axes    signal.Signal[Axes]
	corners signal.Signal[Corners]
	euler   signal.Signal[Euler]
	vel     signal.Signal[Kinematic]
	accel   signal.Signal[Kinematic]
	angVel  signal.Signal[Kinematic]
	accRMS  signal.Signal[Scalar]
	angRMS  signal.Signal[Scalar]

	warnedNoSize bool
}

// NewProvider creates a Provider sampling poses from source on each
// clock tick.
func NewProvider(clock signal.Clock, source entity.PoseSource, cfg Config) *Provider {
	return &Provider{
		clock:    clock,
		source:   source,
		cfg:      cfg,
		logger:   noopLogger{},
		entities: make(map[string]*entitySignals),
	}
}

// SetLogger sets the provider's logger.
func (p *Provider) SetLogger(logger Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// Evict drops all cached signals for an entity. Wire this to the entity
// registry's unregister event.
func (p *Provider) Evict(id string) {
	p.mu.Lock()
	delete(p.entities, id)
	p.mu.Unlock()
	p.logger.Debug("pose signals evicted", "entity", id)
}

// signalsFor returns (building if needed) the entity's signal slot.
func (p *Provider) signalsFor(e *entity.Entity) *entitySignals {
	p.mu.Lock()
	defer p.mu.Unlock()
	es, ok := p.entities[e.ID]
	if !ok {
		es = &entitySignals{ent: e.DeepCopy()}
		p.entities[e.ID] = es
	}
	return es
}

// Pose returns the entity's change-gated pose signal. It emits when the
// position moves beyond the linear epsilon or the orientation rotates
// beyond the angular threshold.
func (p *Provider) Pose(e *entity.Entity) signal.Signal[Sample] {
	es := p.signalsFor(e)
	p.mu.Lock()
	defer p.mu.Unlock()
	if es.pose == nil {
		raw := signal.Collect[signal.Tick, Sample](p.clock, func(tk signal.Tick) (Sample, bool) {
			pose, ok := p.source.CurrentPose(e.ID)
			if !ok {
				return Sample{}, false
			}
			return Sample{Tick: tk, Pose: pose}, true
		})
		gated := signal.DistinctBy[Sample](raw, func(prev, cur Sample) bool {
			if cur.Pose.Position.Sub(prev.Pose.Position).Length() > p.cfg.LinearEpsilon {
				return false
			}
			// Dot-product threshold instead of acos: cheap and
			// monotonic in the rotation delta.
			return 1-math.Abs(prev.Pose.Orientation.Dot(cur.Pose.Orientation)) <= p.cfg.AngularEpsilon
		})
		es.pose = signal.Share[Sample](gated)
	}
	return es.pose
}

// Axes returns the entity's local axes signal, recomputed from each
// gated pose emission.
func (p *Provider) Axes(e *entity.Entity) signal.Signal[Axes] {
	pose := p.Pose(e)
	es := p.signalsFor(e)
	p.mu.Lock()
	defer p.mu.Unlock()
	if es.axes == nil {
		w, h := e.Width, e.Height
		derived := signal.Map[Sample, Axes](pose, func(s Sample) Axes {
			q := s.Pose.Orientation
			right := q.Rotate(geometry.Vec3{X: 1})
			up := q.Rotate(geometry.Vec3{Y: 1})
			forward := q.Rotate(geometry.Vec3{Z: 1})
			major := right.Scale(w).Add(up.Scale(h)).Normalized()
			minor := right.Scale(-w).Add(up.Scale(h)).Normalized()
			if !e.HasSize() {
				// Without a declared size the diagonals fall back
				// to the axis bisectors.
				major = right.Add(up).Normalized()
				minor = up.Sub(right).Normalized()
			}
			return Axes{
				Tick:          s.Tick,
				Up:            up,
				Forward:       forward,
				Right:         right,
				MajorDiagonal: major,
				MinorDiagonal: minor,
			}
		})
		es.axes = signal.Share[Axes](derived)
	}
	return es.axes
}

// Corners returns the entity's world-space rectangle corners signal.
// Entities without a positive declared size get a signal that never
// emits, with a one-time warning.
func (p *Provider) Corners(e *entity.Entity) signal.Signal[Corners] {
	pose := p.Pose(e)
	es := p.signalsFor(e)
	p.mu.Lock()
	defer p.mu.Unlock()
	if es.corners == nil {
		if !e.HasSize() {
			if !es.warnedNoSize {
				es.warnedNoSize = true
				p.logger.Warn("entity has no physical size; corner signals disabled",
					"entity", e.ID, "width", e.Width, "height", e.Height)
			}
			es.corners = signal.Never[Corners]()
			return es.corners
		}
		hw, hh := e.Width/2, e.Height/2
		derived := signal.Map[Sample, Corners](pose, func(s Sample) Corners {
			q := s.Pose.Orientation
			pos := s.Pose.Position
			corner := func(x, y float64) geometry.Vec3 {
				return pos.Add(q.Rotate(geometry.Vec3{X: x, Y: y}))
			}
			return Corners{
				Tick:        s.Tick,
				TopLeft:     corner(-hw, hh),
				TopRight:    corner(hw, hh),
				BottomRight: corner(hw, -hh),
				BottomLeft:  corner(-hw, -hh),
			}
		})
		es.corners = signal.Share[Corners](derived)
	}
	return es.corners
}

// EulerAngles returns the entity's Euler decomposition signal.
func (p *Provider) EulerAngles(e *entity.Entity) signal.Signal[Euler] {
	pose := p.Pose(e)
	es := p.signalsFor(e)
	p.mu.Lock()
	defer p.mu.Unlock()
	if es.euler == nil {
		derived := signal.Map[Sample, Euler](pose, func(s Sample) Euler {
			pitch, yaw, roll := s.Pose.Orientation.Euler()
			return Euler{Tick: s.Tick, Pitch: pitch, Yaw: yaw, Roll: roll}
		})
		es.euler = signal.Share[Euler](derived)
	}
	return es.euler
}

// Velocity returns the finite-difference linear velocity signal (m/s),
// change-gated by the velocity epsilon.
func (p *Provider) Velocity(e *entity.Entity) signal.Signal[Kinematic] {
	pose := p.Pose(e)
	es := p.signalsFor(e)
	p.mu.Lock()
	defer p.mu.Unlock()
	if es.vel == nil {
		diff := signal.Map[[2]Sample, Kinematic](signal.Pairwise[Sample](pose), func(pair [2]Sample) Kinematic {
			dt := p.clampDT(pair[1].Tick.Time.Sub(pair[0].Tick.Time).Seconds())
			v := pair[1].Pose.Position.Sub(pair[0].Pose.Position).Scale(1 / dt)
			return Kinematic{Tick: pair[1].Tick, Value: v}
		})
		gated := p.gateKinematic(diff, p.cfg.VelocityEpsilon)
		es.vel = signal.Share[Kinematic](gated)
	}
	return es.vel
}

// Acceleration returns the finite-difference linear acceleration signal
// (m/s^2), derived from the velocity signal.
func (p *Provider) Acceleration(e *entity.Entity) signal.Signal[Kinematic] {
	vel := p.Velocity(e)
	es := p.signalsFor(e)
	p.mu.Lock()
	defer p.mu.Unlock()
	if es.accel == nil {
		diff := signal.Map[[2]Kinematic, Kinematic](signal.Pairwise[Kinematic](vel), func(pair [2]Kinematic) Kinematic {
			dt := p.clampDT(pair[1].Tick.Time.Sub(pair[0].Tick.Time).Seconds())
			a := pair[1].Value.Sub(pair[0].Value).Scale(1 / dt)
			return Kinematic{Tick: pair[1].Tick, Value: a}
		})
		gated := p.gateKinematic(diff, p.cfg.AccelerationEpsilon)
		es.accel = signal.Share[Kinematic](gated)
	}
	return es.accel
}

// AngularVelocity returns the angular velocity signal (axis scaled by
// rad/s), from per-tick quaternion deltas.
func (p *Provider) AngularVelocity(e *entity.Entity) signal.Signal[Kinematic] {
	pose := p.Pose(e)
	es := p.signalsFor(e)
	p.mu.Lock()
	defer p.mu.Unlock()
	if es.angVel == nil {
		diff := signal.Map[[2]Sample, Kinematic](signal.Pairwise[Sample](pose), func(pair [2]Sample) Kinematic {
			dt := p.clampDT(pair[1].Tick.Time.Sub(pair[0].Tick.Time).Seconds())
			delta := pair[1].Pose.Orientation.Mul(pair[0].Pose.Orientation.Conjugate())
			axis, angle := delta.AxisAngle()
			return Kinematic{Tick: pair[1].Tick, Value: axis.Scale(angle / dt)}
		})
		gated := p.gateKinematic(diff, p.cfg.AngularVelocityEpsilon)
		es.angVel = signal.Share[Kinematic](gated)
	}
	return es.angVel
}

// AccelerationRMS returns the RMS-smoothed acceleration magnitude
// signal, using the provider's default half-life.
func (p *Provider) AccelerationRMS(e *entity.Entity) signal.Signal[Scalar] {
	accel := p.Acceleration(e)
	es := p.signalsFor(e)
	p.mu.Lock()
	defer p.mu.Unlock()
	if es.accRMS == nil {
		mag := signal.Map[Kinematic, Scalar](accel, func(k Kinematic) Scalar {
			return Scalar{Tick: k.Tick, Value: k.Value.Length()}
		})
		es.accRMS = signal.Share[Scalar](RMS(mag, p.cfg.RMSHalfLife))
	}
	return es.accRMS
}

// AngularVelocityRMS returns the RMS-smoothed angular speed signal.
func (p *Provider) AngularVelocityRMS(e *entity.Entity) signal.Signal[Scalar] {
	angVel := p.AngularVelocity(e)
	es := p.signalsFor(e)
	p.mu.Lock()
	defer p.mu.Unlock()
	if es.angRMS == nil {
		mag := signal.Map[Kinematic, Scalar](angVel, func(k Kinematic) Scalar {
			return Scalar{Tick: k.Tick, Value: k.Value.Length()}
		})
		es.angRMS = signal.Share[Scalar](RMS(mag, p.cfg.RMSHalfLife))
	}
	return es.angRMS
}

// clampDT applies the minimum-dt clamp to a finite-difference
// denominator in seconds.
func (p *Provider) clampDT(dt float64) float64 {
	min := p.cfg.MinDT.Seconds()
	if dt < min {
		return min
	}
	return dt
}

// gateKinematic suppresses kinematic emissions whose vector moved less
// than eps since the last emission.
func (p *Provider) gateKinematic(s signal.Signal[Kinematic], eps float64) signal.Signal[Kinematic] {
	return signal.DistinctBy[Kinematic](s, func(prev, cur Kinematic) bool {
		return cur.Value.Sub(prev.Value).Length() <= eps
	})
}
