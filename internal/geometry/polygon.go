package geometry

import "math"

// NewellNormal computes the (non-normalized) normal of a planar polygon
// via Newell's method. Robust for nearly-degenerate polygons; a polygon
// with fewer than 3 vertices yields the zero vector.
func NewellNormal(poly []Vec3) Vec3 {
	if len(poly) < 3 {
		return Vec3{}
	}
	var n Vec3
	for i := range poly {
		cur := poly[i]
		next := poly[(i+1)%len(poly)]
		n.X += (cur.Y - next.Y) * (cur.Z + next.Z)
		n.Y += (cur.Z - next.Z) * (cur.X + next.X)
		n.Z += (cur.X - next.X) * (cur.Y + next.Y)
	}
	return n
}

// PolygonArea returns the area of a planar 3D polygon.
//
// The shoelace sum is evaluated on the two coordinates orthogonal to the
// polygon normal's dominant axis, then rescaled by the normal to recover
// the true 3D area. Degenerate polygons yield 0.
func PolygonArea(poly []Vec3) float64 {
	if len(poly) < 3 {
		return 0
	}
	n := NewellNormal(poly)
	an := n.Length()
	if an < Epsilon {
		return 0
	}

	// Dominant axis of the normal: project onto the plane where the
	// polygon casts its largest shadow.
	ax, ay, az := math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)
	var sum, dom float64
	switch {
	case ax >= ay && ax >= az:
		for i := range poly {
			c, nx := poly[i], poly[(i+1)%len(poly)]
			sum += c.Y*nx.Z - nx.Y*c.Z
		}
		dom = n.X
	case ay >= az:
		for i := range poly {
			c, nx := poly[i], poly[(i+1)%len(poly)]
			sum += c.Z*nx.X - nx.Z*c.X
		}
		dom = n.Y
	default:
		for i := range poly {
			c, nx := poly[i], poly[(i+1)%len(poly)]
			sum += c.X*nx.Y - nx.X*c.Y
		}
		dom = n.Z
	}

	if math.Abs(dom) < Epsilon {
		return 0
	}
	return math.Abs(sum * an / (2 * dom))
}

// PlaneBasis is an orthonormal 2D coordinate frame on a plane in world
// space. U and V span the plane, N is the plane normal, Origin anchors
// the frame.
type PlaneBasis struct {
	Origin Vec3
	U      Vec3
	V      Vec3
	N      Vec3
}

// BasisFromPolygon derives a PlaneBasis from a polygon's first edge and
// its Newell normal. Returns false when the polygon is degenerate (fewer
// than 3 vertices, zero-length first edge, or zero normal).
func BasisFromPolygon(poly []Vec3) (PlaneBasis, bool) {
	if len(poly) < 3 {
		return PlaneBasis{}, false
	}
	u := poly[1].Sub(poly[0]).Normalized()
	n := NewellNormal(poly).Normalized()
	if u.IsZero() || n.IsZero() {
		return PlaneBasis{}, false
	}
	v := n.Cross(u)
	return PlaneBasis{Origin: poly[0], U: u, V: v, N: n}, true
}

// BasisFromNormal builds an arbitrary but deterministic PlaneBasis
// perpendicular to the given normal, anchored at origin. Used when no
// polygon operand supplies an in-plane edge. Returns false for a
// degenerate normal.
func BasisFromNormal(origin, normal Vec3) (PlaneBasis, bool) {
	n := normal.Normalized()
	if n.IsZero() {
		return PlaneBasis{}, false
	}
	// Pick the world axis least aligned with n to seed the frame.
	ref := Vec3{X: 1}
	if math.Abs(n.X) > math.Abs(n.Y) {
		ref = Vec3{Y: 1}
	}
	u := n.Cross(ref).Normalized()
	v := n.Cross(u)
	return PlaneBasis{Origin: origin, U: u, V: v, N: n}, true
}

// Project maps a world point into the basis's 2D plane coordinates,
// discarding the out-of-plane component.
func (b PlaneBasis) Project(p Vec3) Vec2 {
	d := p.Sub(b.Origin)
	return Vec2{X: d.Dot(b.U), Y: d.Dot(b.V)}
}

// Unproject maps 2D plane coordinates back to a world point on the plane.
func (b PlaneBasis) Unproject(p Vec2) Vec3 {
	return b.Origin.Add(b.U.Scale(p.X)).Add(b.V.Scale(p.Y))
}

// ProjectAlong maps a world point into the plane by sliding it along the
// given axis until it meets the plane, then expressing it in the basis.
// Returns false when the axis is (near-)parallel to the plane.
func (b PlaneBasis) ProjectAlong(p, axis Vec3) (Vec2, bool) {
	denom := axis.Dot(b.N)
	if math.Abs(denom) < Epsilon {
		return Vec2{}, false
	}
	t := -p.Sub(b.Origin).Dot(b.N) / denom
	return b.Project(p.Add(axis.Scale(t))), true
}

// SignedArea2D returns the signed shoelace area of a 2D polygon.
// Positive for counter-clockwise winding.
func SignedArea2D(poly []Vec2) float64 {
	if len(poly) < 3 {
		return 0
	}
	var sum float64
	for i := range poly {
		c, n := poly[i], poly[(i+1)%len(poly)]
		sum += c.X*n.Y - n.X*c.Y
	}
	return sum / 2
}

// ensureCCW returns the polygon in counter-clockwise winding, reversing
// it if necessary. Clipping assumes CCW clip polygons.
func ensureCCW(poly []Vec2) []Vec2 {
	if SignedArea2D(poly) >= 0 {
		return poly
	}
	out := make([]Vec2, len(poly))
	for i, p := range poly {
		out[len(poly)-1-i] = p
	}
	return out
}

// ClipPolygon clips the subject polygon against a convex clip polygon
// using Sutherland-Hodgman. Both polygons are 2D; winding of either input
// is normalized internally. The result may be empty when there is no
// overlap.
func ClipPolygon(subject, clip []Vec2) []Vec2 {
	if len(subject) < 3 || len(clip) < 3 {
		return nil
	}
	clip = ensureCCW(clip)
	output := subject

	for i := range clip {
		if len(output) == 0 {
			return nil
		}
		edgeA := clip[i]
		edgeB := clip[(i+1)%len(clip)]
		input := output
		output = nil

		for j := range input {
			cur := input[j]
			prev := input[(j+len(input)-1)%len(input)]
			curIn := insideEdge(edgeA, edgeB, cur)
			prevIn := insideEdge(edgeA, edgeB, prev)

			switch {
			case curIn && prevIn:
				output = append(output, cur)
			case curIn && !prevIn:
				if p, ok := edgeIntersect(edgeA, edgeB, prev, cur); ok {
					output = append(output, p)
				}
				output = append(output, cur)
			case !curIn && prevIn:
				if p, ok := edgeIntersect(edgeA, edgeB, prev, cur); ok {
					output = append(output, p)
				}
			}
		}
	}
	return output
}

// insideEdge reports whether p lies on the inner (left) side of the
// directed clip edge a->b, boundary inclusive.
func insideEdge(a, b, p Vec2) bool {
	return b.Sub(a).Cross(p.Sub(a)) >= -Epsilon
}

// edgeIntersect intersects the infinite line through clip edge a->b with
// the segment p->q. Returns false for parallel (near-zero denominator)
// configurations.
func edgeIntersect(a, b, p, q Vec2) (Vec2, bool) {
	dir := b.Sub(a)
	seg := q.Sub(p)
	denom := dir.Cross(seg)
	if math.Abs(denom) < Epsilon {
		return Vec2{}, false
	}
	t := dir.Cross(p.Sub(a)) / -denom
	return p.Add(seg.Scale(t)), true
}

// ClipSegment clips the 2D segment a->b against a convex polygon using a
// Cyrus-Beck style parametric half-plane clip. Returns the clipped
// endpoints and false when the segment lies entirely outside.
func ClipSegment(a, b Vec2, poly []Vec2) (Vec2, Vec2, bool) {
	if len(poly) < 3 {
		return Vec2{}, Vec2{}, false
	}
	poly = ensureCCW(poly)
	d := b.Sub(a)

	tEnter, tExit := 0.0, 1.0
	for i := range poly {
		ea := poly[i]
		eb := poly[(i+1)%len(poly)]
		edge := eb.Sub(ea)
		// Inward normal of the CCW edge.
		normal := Vec2{X: -edge.Y, Y: edge.X}

		num := normal.Dot(a.Sub(ea))
		den := normal.Dot(d)

		if math.Abs(den) < Epsilon {
			// Parallel to this edge: fully outside means no overlap.
			if num < -Epsilon {
				return Vec2{}, Vec2{}, false
			}
			continue
		}

		t := -num / den
		if den > 0 {
			// Entering the half-plane.
			if t > tEnter {
				tEnter = t
			}
		} else if t < tExit {
			tExit = t
		}
		if tEnter > tExit {
			return Vec2{}, Vec2{}, false
		}
	}

	p1 := a.Add(d.Scale(tEnter))
	p2 := a.Add(d.Scale(tExit))
	return p1, p2, true
}

// PointInPolygon2D reports whether p lies inside (or on the boundary of)
// a convex 2D polygon.
func PointInPolygon2D(p Vec2, poly []Vec2) bool {
	if len(poly) < 3 {
		return false
	}
	poly = ensureCCW(poly)
	for i := range poly {
		a := poly[i]
		b := poly[(i+1)%len(poly)]
		if b.Sub(a).Cross(p.Sub(a)) < -Epsilon {
			return false
		}
	}
	return true
}
