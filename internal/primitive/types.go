package primitive

import (
	"fmt"
	"math"
	"strings"

	"github.com/kestrelworks/spatial-core/internal/geometry"
	"github.com/kestrelworks/spatial-core/internal/signal"
)

// Metric names supported by the factory. A metric string is the name
// optionally followed by ":<axis>".
const (
	MetricDistance           = "distance"
	MetricAngle              = "angle"
	MetricVelocity           = "velocity"
	MetricAcceleration       = "acceleration"
	MetricProjection         = "projection"
	MetricAccelerationRMS    = "acceleration_rms"
	MetricAngularVelocityRMS = "angular_velocity_rms"
)

// defaultTolerance is the comparison tolerance used when a condition
// specifies eq without its own tolerance, and for payload equality.
const defaultTolerance = 1e-4

// Condition is the comparator a metric value is evaluated against to
// produce isValid. Thresholds that are nil do not participate; when
// several are set, all must hold.
type Condition struct {
	Eq        *float64 `json:"eq,omitempty" yaml:"eq,omitempty"`
	Lt        *float64 `json:"lt,omitempty" yaml:"lt,omitempty"`
	Gt        *float64 `json:"gt,omitempty" yaml:"gt,omitempty"`
	Tolerance float64  `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
}

// Empty reports whether no threshold is set.
func (c *Condition) Empty() bool {
	return c == nil || (c.Eq == nil && c.Lt == nil && c.Gt == nil)
}

// Evaluate applies the comparator to a value. An empty condition is
// trivially true.
func (c *Condition) Evaluate(v float64) bool {
	if c.Empty() {
		return true
	}
	tol := c.Tolerance
	if tol <= 0 {
		tol = defaultTolerance
	}
	if c.Eq != nil && math.Abs(v-*c.Eq) > tol {
		return false
	}
	if c.Lt != nil && v >= *c.Lt {
		return false
	}
	if c.Gt != nil && v <= *c.Gt {
		return false
	}
	return true
}

// Params carries optional per-metric parameters.
type Params struct {
	// HalfLifeSec is the RMS smoothing half-life in seconds for the
	// RMS metrics. Zero means the engine default.
	HalfLifeSec float64 `json:"halfLifeSec,omitempty" yaml:"halfLifeSec,omitempty"`
}

// Spec is a declarative primitive: a named measurement over an entity
// pair. Field names are the stable wire contract.
type Spec struct {
	ID          string     `json:"id" yaml:"id"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Metric      string     `json:"metric" yaml:"metric"`
	Refs        []string   `json:"refs,omitempty" yaml:"refs,omitempty"`
	Condition   *Condition `json:"condition,omitempty" yaml:"condition,omitempty"`
	Unit        string     `json:"unit,omitempty" yaml:"unit,omitempty"`
	Params      *Params    `json:"params,omitempty" yaml:"params,omitempty"`
}

// InlineSpec is a per-use override of a catalog spec. Only description,
// condition, unit, and params may be overridden; the id must match the
// base spec.
type InlineSpec struct {
	ID          string     `json:"id" yaml:"id"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Condition   *Condition `json:"condition,omitempty" yaml:"condition,omitempty"`
	Unit        string     `json:"unit,omitempty" yaml:"unit,omitempty"`
	Params      *Params    `json:"params,omitempty" yaml:"params,omitempty"`
}

// DeepCopy returns an independent copy of the spec.
func (s *Spec) DeepCopy() *Spec {
	if s == nil {
		return nil
	}
	cpy := *s
	if s.Refs != nil {
		cpy.Refs = make([]string, len(s.Refs))
		copy(cpy.Refs, s.Refs)
	}
	if s.Condition != nil {
		c := *s.Condition
		if s.Condition.Eq != nil {
			v := *s.Condition.Eq
			c.Eq = &v
		}
		if s.Condition.Lt != nil {
			v := *s.Condition.Lt
			c.Lt = &v
		}
		if s.Condition.Gt != nil {
			v := *s.Condition.Gt
			c.Gt = &v
		}
		cpy.Condition = &c
	}
	if s.Params != nil {
		p := *s.Params
		cpy.Params = &p
	}
	return &cpy
}

// ApplyInline merges an inline override into a copy of the catalog
// spec. Returns ErrInlineIDMismatch when the ids differ.
func (s *Spec) ApplyInline(in *InlineSpec) (*Spec, error) {
	out := s.DeepCopy()
	if in == nil {
		return out, nil
	}
	if in.ID != "" && in.ID != s.ID {
		return nil, fmt.Errorf("%w: %q overrides %q", ErrInlineIDMismatch, in.ID, s.ID)
	}
	if in.Description != "" {
		out.Description = in.Description
	}
	if in.Condition != nil {
		out.Condition = in.Condition
	}
	if in.Unit != "" {
		out.Unit = in.Unit
	}
	if in.Params != nil {
		out.Params = in.Params
	}
	return out, nil
}

// MetricName returns the metric name without its axis suffix.
func (s *Spec) MetricName() string {
	name, _, _ := strings.Cut(s.Metric, ":")
	return name
}

// MetricAxis returns the axis suffix of the metric, if any.
func (s *Spec) MetricAxis() (string, bool) {
	_, axis, ok := strings.Cut(s.Metric, ":")
	return axis, ok && axis != ""
}

// Validate checks the spec's static shape: non-empty id and metric, a
// supported metric name, and the metric's required ref count.
// Axis and feature references are validated at build time where the
// entity pair is known.
func (s *Spec) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidSpec)
	}
	if s.Metric == "" {
		return fmt.Errorf("%w: %s: empty metric", ErrInvalidSpec, s.ID)
	}
	name := s.MetricName()
	switch name {
	case MetricDistance, MetricProjection:
		if len(s.Refs) != 2 {
			return fmt.Errorf("%w: %s: metric %q requires exactly 2 refs, got %d",
				ErrInvalidSpec, s.ID, name, len(s.Refs))
		}
	case MetricAngle:
		if len(s.Refs) != 0 && len(s.Refs) != 2 {
			return fmt.Errorf("%w: %s: metric %q takes 0 or 2 refs, got %d",
				ErrInvalidSpec, s.ID, name, len(s.Refs))
		}
	case MetricVelocity, MetricAcceleration:
		if len(s.Refs) > 2 || len(s.Refs) == 1 {
			return fmt.Errorf("%w: %s: metric %q takes 0 or 2 refs, got %d",
				ErrInvalidSpec, s.ID, name, len(s.Refs))
		}
	case MetricAccelerationRMS, MetricAngularVelocityRMS:
		if len(s.Refs) > 0 {
			return fmt.Errorf("%w: %s: metric %q takes no refs",
				ErrInvalidSpec, s.ID, name)
		}
	default:
		return fmt.Errorf("%w: %s: unsupported metric %q", ErrInvalidSpec, s.ID, name)
	}
	if name == MetricProjection {
		if _, ok := s.MetricAxis(); !ok {
			return fmt.Errorf("%w: %s: projection requires an axis", ErrInvalidSpec, s.ID)
		}
	}
	if s.Unit != "" {
		if _, err := unitFactor(s.Unit); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidSpec, s.ID, err)
		}
	}
	return nil
}

// ValueKind discriminates the payload value variants.
type ValueKind int

const (
	// ValueScalar is a plain numeric measurement.
	ValueScalar ValueKind = iota
	// ValueOverlap is a structured projection result.
	ValueOverlap
)

// Value is the tagged measurement value of a payload: a scalar for the
// numeric metrics, a structured overlap for projection.
type Value struct {
	Kind    ValueKind
	Scalar  float64
	Overlap geometry.Overlap
}

// ScalarValue wraps a float as a Value.
func ScalarValue(v float64) Value {
	return Value{Kind: ValueScalar, Scalar: v}
}

// OverlapValue wraps a projection result as a Value.
func OverlapValue(o geometry.Overlap) Value {
	return Value{Kind: ValueOverlap, Overlap: o}
}

// Payload is one primitive emission: the measurement value plus the
// comparator verdict.
type Payload struct {
	ID    string
	Value Value
	Valid bool
	Tick  signal.Tick
}

// Equal compares payloads with measurement tolerance: scalars within
// defaultTolerance, overlaps structurally with the same tolerance on
// ratio and vertices. Tick stamps are ignored.
func (p Payload) Equal(o Payload) bool {
	if p.ID != o.ID || p.Valid != o.Valid || p.Value.Kind != o.Value.Kind {
		return false
	}
	switch p.Value.Kind {
	case ValueScalar:
		return math.Abs(p.Value.Scalar-o.Value.Scalar) <= defaultTolerance
	case ValueOverlap:
		return overlapsEqual(p.Value.Overlap, o.Value.Overlap)
	default:
		return false
	}
}

func overlapsEqual(a, b geometry.Overlap) bool {
	if a.Kind != b.Kind || math.Abs(a.Ratio-b.Ratio) > defaultTolerance {
		return false
	}
	if len(a.Points) != len(b.Points) {
		return false
	}
	for i := range a.Points {
		if a.Points[i].Sub(b.Points[i]).LengthSq() > defaultTolerance*defaultTolerance {
			return false
		}
	}
	return true
}

// unitFactor maps a unit to the multiplier applied to the raw value
// (SI metres / degrees / per-second rates).
func unitFactor(unit string) (float64, error) {
	switch unit {
	case "", "m", "m/s", "m/s^2", "deg", "rad/s":
		// Native units: metres, degrees for angles, rad/s for
		// angular rates.
		return 1, nil
	case "cm", "cm/s", "cm/s^2":
		return 100, nil
	case "mm", "mm/s", "mm/s^2":
		return 1000, nil
	case "rad":
		return math.Pi / 180, nil
	case "deg/s":
		return 180 / math.Pi, nil
	default:
		return 0, fmt.Errorf("unknown unit %q", unit)
	}
}
