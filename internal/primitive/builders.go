package primitive

import (
	"fmt"
	"time"

	"github.com/kestrelworks/spatial-core/internal/entity"
	"github.com/kestrelworks/spatial-core/internal/geometry"
	"github.com/kestrelworks/spatial-core/internal/pose"
	"github.com/kestrelworks/spatial-core/internal/signal"
)

// raw is a metric measurement before unit conversion and comparator
// evaluation.
type raw struct {
	Tick  signal.Tick
	Value Value
}

// vecSample is an intermediate vector quantity (offset, kinematic)
// stamped with its tick.
type vecSample struct {
	Tick signal.Tick
	V    geometry.Vec3
}

// build dispatches the validated spec to its metric builder and
// finishes the raw signal with unit conversion, comparator evaluation,
// and tolerance-based change gating.
func (f *Factory) build(spec *Spec, pair entity.Pair) (signal.Signal[Payload], error) {
	var (
		s   signal.Signal[raw]
		err error
	)
	switch spec.MetricName() {
	case MetricDistance:
		s, err = f.buildDistance(spec, pair)
	case MetricAngle:
		s, err = f.buildAngle(spec, pair)
	case MetricVelocity:
		s, err = f.buildRate(spec, pair, 1)
	case MetricAcceleration:
		s, err = f.buildRate(spec, pair, 2)
	case MetricProjection:
		s, err = f.buildProjection(spec, pair)
	case MetricAccelerationRMS:
		s, err = f.buildRMS(spec, pair, false)
	case MetricAngularVelocityRMS:
		s, err = f.buildRMS(spec, pair, true)
	default:
		return nil, fmt.Errorf("%w: %s: unsupported metric %q", ErrInvalidSpec, spec.ID, spec.Metric)
	}
	if err != nil {
		return nil, err
	}
	return finish(spec, s)
}

// finish applies the unit factor and the spec's comparator, then gates
// re-emissions of measurements equal within tolerance.
func finish(spec *Spec, s signal.Signal[raw]) (signal.Signal[Payload], error) {
	factor, err := unitFactor(spec.Unit)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSpec, spec.ID, err)
	}
	cond := spec.Condition
	payloads := signal.Map[raw, Payload](s, func(r raw) Payload {
		p := Payload{ID: spec.ID, Value: r.Value, Tick: r.Tick}
		switch r.Value.Kind {
		case ValueScalar:
			p.Value.Scalar = r.Value.Scalar * factor
			p.Valid = cond.Evaluate(p.Value.Scalar)
		case ValueOverlap:
			o := r.Value.Overlap
			if o.Empty() {
				p.Valid = false
			} else if cond.Empty() {
				p.Valid = o.Ratio > 0
			} else {
				p.Valid = cond.Evaluate(o.Ratio)
			}
		}
		return p
	})
	return signal.DistinctBy[Payload](payloads, func(prev, cur Payload) bool {
		return prev.Equal(cur)
	}), nil
}

// parseLocationRefs parses the spec's two feature refs as locations.
func parseLocationRefs(spec *Spec) (FeatureRef, FeatureRef, error) {
	ra, err := ParseFeatureRef(spec.Refs[0])
	if err != nil {
		return FeatureRef{}, FeatureRef{}, fmt.Errorf("%s: %w", spec.ID, err)
	}
	rb, err := ParseFeatureRef(spec.Refs[1])
	if err != nil {
		return FeatureRef{}, FeatureRef{}, fmt.Errorf("%s: %w", spec.ID, err)
	}
	return ra, rb, nil
}

// offsetSignal combines two location features into their nearest-point
// offset vector, from a towards b. Emits once both sides have emitted.
func offsetSignal(sa, sb signal.Signal[shapeSample]) signal.Signal[vecSample] {
	both := signal.Combine2[shapeSample, shapeSample, [2]shapeSample](
		sa, sb, shapeSample{}, shapeSample{},
		func(a, b shapeSample) [2]shapeSample { return [2]shapeSample{a, b} })
	return signal.Collect[[2]shapeSample, vecSample](both, func(p [2]shapeSample) (vecSample, bool) {
		a, b := p[0], p[1]
		if a.Tick.Seq == 0 || b.Tick.Seq == 0 {
			return vecSample{}, false
		}
		tick := a.Tick
		if b.Tick.Seq > tick.Seq {
			tick = b.Tick
		}
		return vecSample{Tick: tick, V: shapeOffset(a.Shape, b.Shape)}, true
	})
}

// shapeOffset is the nearest-point offset from shape a to shape b.
// Only point and segment shapes reach here.
func shapeOffset(a, b geometry.Shape) geometry.Vec3 {
	switch {
	case a.Kind == geometry.ShapePoint && b.Kind == geometry.ShapePoint:
		return b.P.Sub(a.P)
	case a.Kind == geometry.ShapePoint && b.Kind == geometry.ShapeSegment:
		cp, _ := b.Seg.ClosestPointTo(a.P)
		return cp.Sub(a.P)
	case a.Kind == geometry.ShapeSegment && b.Kind == geometry.ShapePoint:
		cp, _ := a.Seg.ClosestPointTo(b.P)
		return b.P.Sub(cp)
	case a.Kind == geometry.ShapeSegment && b.Kind == geometry.ShapeSegment:
		pa, pb := a.Seg.ClosestPoints(b.Seg)
		return pb.Sub(pa)
	default:
		return geometry.Vec3{}
	}
}

// specAxis parses the spec's axis suffix, if present.
func specAxis(spec *Spec) (Axis, bool, error) {
	token, ok := spec.MetricAxis()
	if !ok {
		return Axis{}, false, nil
	}
	ax, err := ParseAxis(token)
	if err != nil {
		return Axis{}, false, fmt.Errorf("%s: %w", spec.ID, err)
	}
	return ax, true, nil
}

// axisScalar reduces a vector signal to a scalar: the magnitude when no
// axis is configured, otherwise the signed projection onto the axis.
func (f *Factory) axisScalar(spec *Spec, pair entity.Pair, vecs signal.Signal[vecSample]) (signal.Signal[raw], error) {
	ax, ok, err := specAxis(spec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return signal.Map[vecSample, raw](vecs, func(v vecSample) raw {
			return raw{Tick: v.Tick, Value: ScalarValue(v.V.Length())}
		}), nil
	}
	if dir, world := ax.World(); world {
		return signal.Map[vecSample, raw](vecs, func(v vecSample) raw {
			return raw{Tick: v.Tick, Value: ScalarValue(v.V.Dot(dir))}
		}), nil
	}
	dirs, err := f.localAxisSignal(pair, ax, spec.ID)
	if err != nil {
		return nil, err
	}
	both := signal.Combine2[vecSample, dirSample, [2]vecSample](
		vecs, dirs, vecSample{}, dirSample{},
		func(v vecSample, d dirSample) [2]vecSample {
			return [2]vecSample{v, {Tick: d.Tick, V: d.Dir}}
		})
	return signal.Collect[[2]vecSample, raw](both, func(p [2]vecSample) (raw, bool) {
		v, d := p[0], p[1]
		if v.Tick.Seq == 0 || d.Tick.Seq == 0 {
			return raw{}, false
		}
		tick := v.Tick
		if d.Tick.Seq > tick.Seq {
			tick = d.Tick
		}
		return raw{Tick: tick, Value: ScalarValue(v.V.Dot(d.V))}, true
	}), nil
}

// localAxisSignal resolves an entity-local axis against the owning pair
// member's live axes.
func (f *Factory) localAxisSignal(pair entity.Pair, ax Axis, specID string) (signal.Signal[dirSample], error) {
	e := pair.Entity(ax.Role)
	if e == nil {
		return nil, fmt.Errorf("%w: %s: axis role %s not in pair", ErrInvalidSpec, specID, ax.Role)
	}
	return signal.Map[pose.Axes, dirSample](f.provider.Axes(e), func(a pose.Axes) dirSample {
		return dirSample{Tick: a.Tick, Dir: ax.Resolve(a)}
	}), nil
}

func (f *Factory) buildDistance(spec *Spec, pair entity.Pair) (signal.Signal[raw], error) {
	ra, rb, err := parseLocationRefs(spec)
	if err != nil {
		return nil, err
	}
	if ra.Kind == "surface" || rb.Kind == "surface" {
		return nil, fmt.Errorf("%w: %s: distance between surfaces is undefined, use projection", ErrUnsupportedGeometry, spec.ID)
	}
	sa, err := shapeSignal(f.provider, pair, ra)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.ID, err)
	}
	sb, err := shapeSignal(f.provider, pair, rb)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.ID, err)
	}
	return f.axisScalar(spec, pair, offsetSignal(sa, sb))
}

func (f *Factory) buildAngle(spec *Spec, pair entity.Pair) (signal.Signal[raw], error) {
	if len(spec.Refs) == 2 {
		ra, rb, err := parseLocationRefs(spec)
		if err != nil {
			return nil, err
		}
		da, err := directionSignal(f.provider, pair, ra)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", spec.ID, err)
		}
		db, err := directionSignal(f.provider, pair, rb)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", spec.ID, err)
		}
		both := signal.Combine2[dirSample, dirSample, [2]dirSample](
			da, db, dirSample{}, dirSample{},
			func(a, b dirSample) [2]dirSample { return [2]dirSample{a, b} })
		return signal.Collect[[2]dirSample, raw](both, func(p [2]dirSample) (raw, bool) {
			a, b := p[0], p[1]
			if a.Tick.Seq == 0 || b.Tick.Seq == 0 {
				return raw{}, false
			}
			tick := a.Tick
			if b.Tick.Seq > tick.Seq {
				tick = b.Tick
			}
			return raw{Tick: tick, Value: ScalarValue(geometry.AngleBetween(a.Dir, b.Dir))}, true
		}), nil
	}

	// Without refs the axis suffix names the Euler component of the
	// primary entity.
	component, _ := spec.MetricAxis()
	switch component {
	case "pitch", "yaw", "roll":
	default:
		return nil, fmt.Errorf("%w: %s: angle without refs needs :pitch, :yaw or :roll", ErrInvalidSpec, spec.ID)
	}
	return signal.Map[pose.Euler, raw](f.provider.EulerAngles(pair.A), func(e pose.Euler) raw {
		var v float64
		switch component {
		case "pitch":
			v = e.Pitch
		case "yaw":
			v = e.Yaw
		case "roll":
			v = e.Roll
		}
		return raw{Tick: e.Tick, Value: ScalarValue(v)}
	}), nil
}

// buildRate builds velocity (order 1) or acceleration (order 2).
//
// With two refs the measurement is the finite-difference derivative of
// the pairwise separation, sign convention positive = closing. Without
// refs it is the primary entity's own kinematic signal, reduced by
// axisScalar.
func (f *Factory) buildRate(spec *Spec, pair entity.Pair, order int) (signal.Signal[raw], error) {
	if len(spec.Refs) == 0 {
		var kin signal.Signal[pose.Kinematic]
		if order == 1 {
			kin = f.provider.Velocity(pair.A)
		} else {
			kin = f.provider.Acceleration(pair.A)
		}
		vecs := signal.Map[pose.Kinematic, vecSample](kin, func(k pose.Kinematic) vecSample {
			return vecSample{Tick: k.Tick, V: k.Value}
		})
		return f.axisScalar(spec, pair, vecs)
	}

	ra, rb, err := parseLocationRefs(spec)
	if err != nil {
		return nil, err
	}
	if ra.Kind == "surface" || rb.Kind == "surface" {
		return nil, fmt.Errorf("%w: %s: rate between surfaces is undefined", ErrUnsupportedGeometry, spec.ID)
	}
	sa, err := shapeSignal(f.provider, pair, ra)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.ID, err)
	}
	sb, err := shapeSignal(f.provider, pair, rb)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.ID, err)
	}
	sep, err := f.axisScalar(spec, pair, offsetSignal(sa, sb))
	if err != nil {
		return nil, err
	}
	// Separation decreasing means closing, hence the negation.
	rate := signal.Map[raw, raw](f.differentiate(sep), func(r raw) raw {
		r.Value.Scalar = -r.Value.Scalar
		return r
	})
	if order == 1 {
		return rate, nil
	}
	return f.differentiate(rate), nil
}

// differentiate finite-differences consecutive scalar emissions, with
// the dt denominator clamped to the configured minimum.
func (f *Factory) differentiate(s signal.Signal[raw]) signal.Signal[raw] {
	minDT := f.cfg.MinDT.Seconds()
	pairs := signal.Pairwise[raw](s)
	return signal.Collect[[2]raw, raw](pairs, func(p [2]raw) (raw, bool) {
		prev, cur := p[0], p[1]
		dt := cur.Tick.Time.Sub(prev.Tick.Time).Seconds()
		if dt < minDT {
			dt = minDT
		}
		d := (cur.Value.Scalar - prev.Value.Scalar) / dt
		return raw{Tick: cur.Tick, Value: ScalarValue(d)}, true
	})
}

func (f *Factory) buildProjection(spec *Spec, pair entity.Pair) (signal.Signal[raw], error) {
	ra, rb, err := parseLocationRefs(spec)
	if err != nil {
		return nil, err
	}
	sa, err := shapeSignal(f.provider, pair, ra)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.ID, err)
	}
	sb, err := shapeSignal(f.provider, pair, rb)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.ID, err)
	}
	ax, ok, err := specAxis(spec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s: projection requires an axis", ErrInvalidSpec, spec.ID)
	}

	both := signal.Combine2[shapeSample, shapeSample, [2]shapeSample](
		sa, sb, shapeSample{}, shapeSample{},
		func(a, b shapeSample) [2]shapeSample { return [2]shapeSample{a, b} })

	overlapAt := func(a, b geometry.Shape, dir geometry.Vec3) Value {
		// A degenerate configuration is "no overlap", not an error.
		o, _ := geometry.ProjectedOverlap(a, b, dir)
		return OverlapValue(o)
	}

	if dir, world := ax.World(); world {
		return signal.Collect[[2]shapeSample, raw](both, func(p [2]shapeSample) (raw, bool) {
			a, b := p[0], p[1]
			if a.Tick.Seq == 0 || b.Tick.Seq == 0 {
				return raw{}, false
			}
			tick := a.Tick
			if b.Tick.Seq > tick.Seq {
				tick = b.Tick
			}
			return raw{Tick: tick, Value: overlapAt(a.Shape, b.Shape, dir)}, true
		}), nil
	}

	dirs, err := f.localAxisSignal(pair, ax, spec.ID)
	if err != nil {
		return nil, err
	}
	all := signal.Combine2[[2]shapeSample, dirSample, projInput](
		both, dirs, [2]shapeSample{}, dirSample{},
		func(p [2]shapeSample, d dirSample) projInput {
			return projInput{A: p[0], B: p[1], Dir: d}
		})
	return signal.Collect[projInput, raw](all, func(in projInput) (raw, bool) {
		if in.A.Tick.Seq == 0 || in.B.Tick.Seq == 0 || in.Dir.Tick.Seq == 0 {
			return raw{}, false
		}
		tick := in.A.Tick
		if in.B.Tick.Seq > tick.Seq {
			tick = in.B.Tick
		}
		if in.Dir.Tick.Seq > tick.Seq {
			tick = in.Dir.Tick
		}
		return raw{Tick: tick, Value: overlapAt(in.A.Shape, in.B.Shape, in.Dir.Dir)}, true
	}), nil
}

type projInput struct {
	A, B shapeSample
	Dir  dirSample
}

// buildRMS builds acceleration_rms or angular_velocity_rms. Without an
// axis the provider's pre-smoothed magnitude signal is used directly;
// with an axis the projected component is smoothed here with the spec's
// half-life.
func (f *Factory) buildRMS(spec *Spec, pair entity.Pair, angular bool) (signal.Signal[raw], error) {
	_, ok, err := specAxis(spec)
	if err != nil {
		return nil, err
	}
	if !ok {
		var s signal.Signal[pose.Scalar]
		if angular {
			s = f.provider.AngularVelocityRMS(pair.A)
		} else {
			s = f.provider.AccelerationRMS(pair.A)
		}
		return signal.Map[pose.Scalar, raw](s, func(v pose.Scalar) raw {
			return raw{Tick: v.Tick, Value: ScalarValue(v.Value)}
		}), nil
	}

	var kin signal.Signal[pose.Kinematic]
	if angular {
		kin = f.provider.AngularVelocity(pair.A)
	} else {
		kin = f.provider.Acceleration(pair.A)
	}
	vecs := signal.Map[pose.Kinematic, vecSample](kin, func(k pose.Kinematic) vecSample {
		return vecSample{Tick: k.Tick, V: k.Value}
	})
	projected, err := f.axisScalar(spec, pair, vecs)
	if err != nil {
		return nil, err
	}
	component := signal.Map[raw, pose.Scalar](projected, func(r raw) pose.Scalar {
		return pose.Scalar{Tick: r.Tick, Value: r.Value.Scalar}
	})
	smoothed := pose.RMS(component, f.halfLife(spec))
	return signal.Map[pose.Scalar, raw](smoothed, func(v pose.Scalar) raw {
		return raw{Tick: v.Tick, Value: ScalarValue(v.Value)}
	}), nil
}

// halfLife returns the spec's RMS half-life, falling back to the engine
// default.
func (f *Factory) halfLife(spec *Spec) time.Duration {
	if spec.Params != nil && spec.Params.HalfLifeSec > 0 {
		return time.Duration(spec.Params.HalfLifeSec * float64(time.Second))
	}
	return f.cfg.RMSHalfLife
}
