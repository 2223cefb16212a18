package rule

import (
	"math"

	"github.com/kestrelworks/spatial-core/internal/geometry"
)

// streamTolerance gates snapshot re-emissions: scalar deltas below it,
// and vector deltas below its square, are not considered changes.
const streamTolerance = 1e-4

// StreamKind discriminates the published value variants.
type StreamKind int

const (
	StreamScalar StreamKind = iota
	StreamBool
	StreamVec2
	StreamVec3
	StreamQuat
	StreamSegment
	StreamPolygon
	StreamOverlap
)

// StreamValue is one published snapshot entry.
type StreamValue struct {
	Kind    StreamKind
	Scalar  float64
	Bool    bool
	Vec2    geometry.Vec2
	Vec3    geometry.Vec3
	Quat    geometry.Quat
	Points  []geometry.Vec3
	Overlap geometry.Overlap
}

func ScalarStream(v float64) StreamValue  { return StreamValue{Kind: StreamScalar, Scalar: v} }
func BoolStream(v bool) StreamValue       { return StreamValue{Kind: StreamBool, Bool: v} }
func Vec2Stream(v geometry.Vec2) StreamValue { return StreamValue{Kind: StreamVec2, Vec2: v} }
func Vec3Stream(v geometry.Vec3) StreamValue { return StreamValue{Kind: StreamVec3, Vec3: v} }
func QuatStream(q geometry.Quat) StreamValue { return StreamValue{Kind: StreamQuat, Quat: q} }

func SegmentStream(s geometry.Segment) StreamValue {
	return StreamValue{Kind: StreamSegment, Points: []geometry.Vec3{s.A, s.B}}
}

func PolygonStream(points []geometry.Vec3) StreamValue {
	return StreamValue{Kind: StreamPolygon, Points: points}
}

func OverlapStream(o geometry.Overlap) StreamValue {
	return StreamValue{Kind: StreamOverlap, Overlap: o}
}

// Equal compares stream values within the snapshot tolerance: scalars
// by absolute delta, vectors by squared distance, orientations by dot
// product, structured results field by field.
func (v StreamValue) Equal(o StreamValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case StreamScalar:
		return math.Abs(v.Scalar-o.Scalar) <= streamTolerance
	case StreamBool:
		return v.Bool == o.Bool
	case StreamVec2:
		d := v.Vec2.Sub(o.Vec2)
		return d.Dot(d) <= streamTolerance*streamTolerance
	case StreamVec3:
		return v.Vec3.Sub(o.Vec3).LengthSq() <= streamTolerance*streamTolerance
	case StreamQuat:
		return 1-math.Abs(v.Quat.Dot(o.Quat)) <= streamTolerance
	case StreamSegment, StreamPolygon:
		return pointsEqual(v.Points, o.Points)
	case StreamOverlap:
		if v.Overlap.Kind != o.Overlap.Kind {
			return false
		}
		if math.Abs(v.Overlap.Ratio-o.Overlap.Ratio) > streamTolerance {
			return false
		}
		return pointsEqual(v.Overlap.Points, o.Overlap.Points)
	default:
		return false
	}
}

func pointsEqual(a, b []geometry.Vec3) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Sub(b[i]).LengthSq() > streamTolerance*streamTolerance {
			return false
		}
	}
	return true
}

// Snapshot is the rule's published value map, ordered by first
// insertion so serialized events keep a stable stream order.
type Snapshot struct {
	keys   []string
	values map[string]StreamValue
}

// NewSnapshot creates an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{values: make(map[string]StreamValue)}
}

// Set stores a value under the path and reports whether the stored
// value changed beyond tolerance.
func (s *Snapshot) Set(path string, v StreamValue) bool {
	old, ok := s.values[path]
	if ok && old.Equal(v) {
		return false
	}
	if !ok {
		s.keys = append(s.keys, path)
	}
	s.values[path] = v
	return true
}

// Delete removes a path. Used when a mapping directive becomes
// unavailable.
func (s *Snapshot) Delete(path string) {
	if _, ok := s.values[path]; !ok {
		return
	}
	delete(s.values, path)
	for i, k := range s.keys {
		if k == path {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
}

// Get returns the value stored under the path.
func (s *Snapshot) Get(path string) (StreamValue, bool) {
	v, ok := s.values[path]
	return v, ok
}

// Paths returns the paths in insertion order.
func (s *Snapshot) Paths() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of stored streams.
func (s *Snapshot) Len() int {
	return len(s.keys)
}

// Clone returns an independent copy so emitted events are not mutated
// by later updates.
func (s *Snapshot) Clone() *Snapshot {
	cpy := NewSnapshot()
	cpy.keys = make([]string, len(s.keys))
	copy(cpy.keys, s.keys)
	for k, v := range s.values {
		if len(v.Points) > 0 {
			pts := make([]geometry.Vec3, len(v.Points))
			copy(pts, v.Points)
			v.Points = pts
		}
		if len(v.Overlap.Points) > 0 {
			pts := make([]geometry.Vec3, len(v.Overlap.Points))
			copy(pts, v.Overlap.Points)
			v.Overlap.Points = pts
		}
		cpy.values[k] = v
	}
	return cpy
}
