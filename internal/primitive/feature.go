package primitive

import (
	"fmt"
	"strings"

	"github.com/kestrelworks/spatial-core/internal/entity"
	"github.com/kestrelworks/spatial-core/internal/geometry"
	"github.com/kestrelworks/spatial-core/internal/pose"
	"github.com/kestrelworks/spatial-core/internal/signal"
)

// FeatureRef names one geometric feature of a pair member. The textual
// form is the role optionally followed by a feature path:
//
//	A                      entity A's position (alias for A.center)
//	B.center               entity B's position
//	A.corner.topLeft       a named rectangle corner
//	B.edge.bottom          a named rectangle edge
//	A.surface              the full rectangle polygon
//	A.axis.forward         a local direction (angle metrics only)
type FeatureRef struct {
	Role string
	Kind string
	Name string
	// Flip negates axis features parsed from an alias such as "down".
	Flip bool
}

func (r FeatureRef) String() string {
	if r.Kind == "center" {
		return r.Role
	}
	if r.Name == "" {
		return r.Role + "." + r.Kind
	}
	return r.Role + "." + r.Kind + "." + r.Name
}

// ParseFeatureRef parses the textual feature reference grammar.
func ParseFeatureRef(ref string) (FeatureRef, error) {
	parts := strings.Split(ref, ".")
	if parts[0] != "A" && parts[0] != "B" {
		return FeatureRef{}, fmt.Errorf("%w: feature ref %q must start with A or B", ErrInvalidSpec, ref)
	}
	out := FeatureRef{Role: parts[0]}
	switch len(parts) {
	case 1:
		out.Kind = "center"
		return out, nil
	case 2:
		switch parts[1] {
		case "center", "surface":
			out.Kind = parts[1]
			return out, nil
		}
	case 3:
		out.Kind, out.Name = parts[1], parts[2]
		switch out.Kind {
		case "corner":
			switch out.Name {
			case "topLeft", "topRight", "bottomRight", "bottomLeft":
				return out, nil
			}
		case "edge":
			switch out.Name {
			case "top", "bottom", "left", "right":
				return out, nil
			}
		case "axis":
			switch out.Name {
			case "up", "forward", "right", "majorDiagonal", "minorDiagonal":
				return out, nil
			case "forth":
				out.Name = "forward"
				return out, nil
			case "down":
				out.Name, out.Flip = "up", true
				return out, nil
			case "left":
				out.Name, out.Flip = "right", true
				return out, nil
			case "back", "backward":
				out.Name, out.Flip = "forward", true
				return out, nil
			}
		}
	}
	return FeatureRef{}, fmt.Errorf("%w: unknown feature reference %q", ErrInvalidSpec, ref)
}

// shapeSample is a world-space location feature stamped with its tick.
type shapeSample struct {
	Tick  signal.Tick
	Shape geometry.Shape
}

// dirSample is a world-space unit direction stamped with its tick.
type dirSample struct {
	Tick signal.Tick
	Dir  geometry.Vec3
}

// pairEntity returns the pair member the ref points at, or an error
// when the ref names an absent member.
func pairEntity(pair entity.Pair, r FeatureRef) (*entity.Entity, error) {
	e := pair.Entity(r.Role)
	if e == nil {
		return nil, fmt.Errorf("%w: feature %s: pair has no entity %s", ErrInvalidSpec, r, r.Role)
	}
	return e, nil
}

// shapeSignal resolves a location feature (center, corner, edge,
// surface) into a live shape signal. Axis features are directions, not
// locations, and are rejected.
func shapeSignal(pv *pose.Provider, pair entity.Pair, r FeatureRef) (signal.Signal[shapeSample], error) {
	e, err := pairEntity(pair, r)
	if err != nil {
		return nil, err
	}
	switch r.Kind {
	case "center":
		return signal.Map[pose.Sample, shapeSample](pv.Pose(e), func(s pose.Sample) shapeSample {
			return shapeSample{Tick: s.Tick, Shape: geometry.PointShape(s.Pose.Position)}
		}), nil
	case "corner":
		name := r.Name
		return signal.Map[pose.Corners, shapeSample](pv.Corners(e), func(c pose.Corners) shapeSample {
			p, _ := c.Corner(name)
			return shapeSample{Tick: c.Tick, Shape: geometry.PointShape(p)}
		}), nil
	case "edge":
		name := r.Name
		return signal.Map[pose.Corners, shapeSample](pv.Corners(e), func(c pose.Corners) shapeSample {
			seg, _ := c.Edge(name)
			return shapeSample{Tick: c.Tick, Shape: geometry.SegmentShape(seg)}
		}), nil
	case "surface":
		return signal.Map[pose.Corners, shapeSample](pv.Corners(e), func(c pose.Corners) shapeSample {
			return shapeSample{Tick: c.Tick, Shape: geometry.PolygonShape(c.Polygon())}
		}), nil
	case "axis":
		return nil, fmt.Errorf("%w: feature %s: axis is not a location", ErrUnsupportedGeometry, r)
	default:
		return nil, fmt.Errorf("%w: unknown feature reference %q", ErrInvalidSpec, r)
	}
}

// directionSignal resolves a feature into a live unit direction: an
// axis directly, an edge by its direction, a surface by its normal.
// Point features carry no direction.
func directionSignal(pv *pose.Provider, pair entity.Pair, r FeatureRef) (signal.Signal[dirSample], error) {
	e, err := pairEntity(pair, r)
	if err != nil {
		return nil, err
	}
	switch r.Kind {
	case "axis":
		ax := Axis{Role: r.Role, Name: r.Name, Flip: r.Flip}
		return signal.Map[pose.Axes, dirSample](pv.Axes(e), func(a pose.Axes) dirSample {
			return dirSample{Tick: a.Tick, Dir: ax.Resolve(a)}
		}), nil
	case "edge":
		name := r.Name
		return signal.Map[pose.Corners, dirSample](pv.Corners(e), func(c pose.Corners) dirSample {
			seg, _ := c.Edge(name)
			return dirSample{Tick: c.Tick, Dir: seg.Direction().Normalized()}
		}), nil
	case "surface":
		return signal.Map[pose.Corners, dirSample](pv.Corners(e), func(c pose.Corners) dirSample {
			return dirSample{Tick: c.Tick, Dir: geometry.NewellNormal(c.Polygon()).Normalized()}
		}), nil
	default:
		return nil, fmt.Errorf("%w: feature %s has no direction", ErrUnsupportedGeometry, r)
	}
}
