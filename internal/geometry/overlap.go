package geometry

import "math"

// ShapeKind discriminates the geometric feature kinds that participate
// in projection overlaps.
type ShapeKind int

const (
	ShapePoint ShapeKind = iota
	ShapeSegment
	ShapePolygon
)

func (k ShapeKind) String() string {
	switch k {
	case ShapePoint:
		return "point"
	case ShapeSegment:
		return "segment"
	case ShapePolygon:
		return "polygon"
	default:
		return "unknown"
	}
}

// Shape is a tagged union of the feature geometries: a point, a segment,
// or a convex planar polygon. Exactly the field matching Kind is valid.
type Shape struct {
	Kind ShapeKind
	P    Vec3
	Seg  Segment
	Poly []Vec3
}

// PointShape wraps a point as a Shape.
func PointShape(p Vec3) Shape { return Shape{Kind: ShapePoint, P: p} }

// SegmentShape wraps a segment as a Shape.
func SegmentShape(s Segment) Shape { return Shape{Kind: ShapeSegment, Seg: s} }

// PolygonShape wraps a polygon as a Shape.
func PolygonShape(poly []Vec3) Shape { return Shape{Kind: ShapePolygon, Poly: poly} }

// OverlapKind tags the shape combination that produced an Overlap.
type OverlapKind int

const (
	OverlapPointPoint OverlapKind = iota
	OverlapPointSegment
	OverlapPointPolygon
	OverlapSegmentSegment
	OverlapSegmentPolygon
	OverlapPolygonPolygon
)

func (k OverlapKind) String() string {
	switch k {
	case OverlapPointPoint:
		return "point_point"
	case OverlapPointSegment:
		return "point_segment"
	case OverlapPointPolygon:
		return "point_polygon"
	case OverlapSegmentSegment:
		return "segment_segment"
	case OverlapSegmentPolygon:
		return "segment_polygon"
	case OverlapPolygonPolygon:
		return "polygon_polygon"
	default:
		return "unknown"
	}
}

// Overlap is the structured result of projecting two shapes onto a common
// plane and intersecting them there.
//
// Ratio is the normalized overlap in [0, 1]: intersection area over the
// smaller projected polygon area for polygon pairs, clipped length over
// projected length for segments, and a 0/1 containment flag for points.
// Points holds the world-space geometry of the overlap (empty when there
// is none): a single point, two segment endpoints, or the clipped polygon
// vertices.
type Overlap struct {
	Kind   OverlapKind
	Ratio  float64
	Points []Vec3
}

// Empty reports whether the overlap is empty.
func (o Overlap) Empty() bool {
	return o.Ratio <= 0 || len(o.Points) == 0
}

// coincidenceTol is the in-plane distance below which projected points
// are considered coincident for point/point and point/segment overlaps.
const coincidenceTol = 1e-4

// ProjectedOverlap projects shapes a and b along axis onto a shared plane
// and intersects them there.
//
// The plane basis comes from the first polygon operand's edges; with no
// polygon operand the plane is taken perpendicular to the axis through
// a's reference point. Returns false when the configuration is degenerate
// (zero axis, axis parallel to the plane, degenerate polygon) - callers
// treat that as "no overlap" rather than an error.
func ProjectedOverlap(a, b Shape, axis Vec3) (Overlap, bool) {
	kind, swapped := overlapKind(a, b)
	if swapped {
		a, b = b, a
	}

	basis, ok := overlapBasis(a, b, axis)
	if !ok {
		return Overlap{Kind: kind}, false
	}
	dir := axis.Normalized()
	if dir.IsZero() {
		return Overlap{Kind: kind}, false
	}

	switch kind {
	case OverlapPointPoint:
		return pointPointOverlap(a.P, b.P, basis, dir)
	case OverlapPointSegment:
		return pointSegmentOverlap(a.P, b.Seg, basis, dir)
	case OverlapPointPolygon:
		return pointPolygonOverlap(a.P, b.Poly, basis, dir)
	case OverlapSegmentSegment:
		return segmentSegmentOverlap(a.Seg, b.Seg, basis, dir)
	case OverlapSegmentPolygon:
		return segmentPolygonOverlap(a.Seg, b.Poly, basis, dir)
	case OverlapPolygonPolygon:
		return polygonPolygonOverlap(a.Poly, b.Poly, basis, dir)
	default:
		return Overlap{Kind: kind}, false
	}
}

// overlapKind normalizes the operand order to the canonical kinds
// (point <= segment <= polygon) and reports whether operands swapped.
func overlapKind(a, b Shape) (OverlapKind, bool) {
	if a.Kind > b.Kind {
		k, _ := overlapKind(b, a)
		return k, true
	}
	switch {
	case a.Kind == ShapePoint && b.Kind == ShapePoint:
		return OverlapPointPoint, false
	case a.Kind == ShapePoint && b.Kind == ShapeSegment:
		return OverlapPointSegment, false
	case a.Kind == ShapePoint && b.Kind == ShapePolygon:
		return OverlapPointPolygon, false
	case a.Kind == ShapeSegment && b.Kind == ShapeSegment:
		return OverlapSegmentSegment, false
	case a.Kind == ShapeSegment && b.Kind == ShapePolygon:
		return OverlapSegmentPolygon, false
	default:
		return OverlapPolygonPolygon, false
	}
}

// overlapBasis selects the projection plane: the polygon operand's plane
// when one exists, otherwise a plane perpendicular to the axis anchored
// at a's reference point.
func overlapBasis(a, b Shape, axis Vec3) (PlaneBasis, bool) {
	if b.Kind == ShapePolygon {
		return BasisFromPolygon(b.Poly)
	}
	return BasisFromNormal(shapeAnchor(a), axis)
}

func shapeAnchor(s Shape) Vec3 {
	switch s.Kind {
	case ShapeSegment:
		return s.Seg.A
	case ShapePolygon:
		if len(s.Poly) > 0 {
			return s.Poly[0]
		}
		return Vec3{}
	default:
		return s.P
	}
}

// projectPoly projects each vertex along dir onto the basis plane.
// Returns false when any vertex cannot reach the plane along dir.
func projectPoly(poly []Vec3, basis PlaneBasis, dir Vec3) ([]Vec2, bool) {
	out := make([]Vec2, 0, len(poly))
	for _, p := range poly {
		q, ok := basis.ProjectAlong(p, dir)
		if !ok {
			return nil, false
		}
		out = append(out, q)
	}
	return out, true
}

func pointPointOverlap(a, b Vec3, basis PlaneBasis, dir Vec3) (Overlap, bool) {
	pa, ok1 := basis.ProjectAlong(a, dir)
	pb, ok2 := basis.ProjectAlong(b, dir)
	if !ok1 || !ok2 {
		return Overlap{Kind: OverlapPointPoint}, false
	}
	if pa.Sub(pb).Length() > coincidenceTol {
		return Overlap{Kind: OverlapPointPoint}, true
	}
	return Overlap{
		Kind:   OverlapPointPoint,
		Ratio:  1,
		Points: []Vec3{basis.Unproject(pa)},
	}, true
}

func pointSegmentOverlap(p Vec3, seg Segment, basis PlaneBasis, dir Vec3) (Overlap, bool) {
	pp, ok1 := basis.ProjectAlong(p, dir)
	sa, ok2 := basis.ProjectAlong(seg.A, dir)
	sb, ok3 := basis.ProjectAlong(seg.B, dir)
	if !ok1 || !ok2 || !ok3 {
		return Overlap{Kind: OverlapPointSegment}, false
	}

	// Closest point on the projected segment, in plane coordinates.
	d := sb.Sub(sa)
	dd := d.Dot(d)
	t := 0.0
	if dd > Epsilon*Epsilon {
		t = Clamp01(pp.Sub(sa).Dot(d) / dd)
	}
	closest := sa.Add(d.Scale(t))
	if pp.Sub(closest).Length() > coincidenceTol {
		return Overlap{Kind: OverlapPointSegment}, true
	}
	return Overlap{
		Kind:   OverlapPointSegment,
		Ratio:  1,
		Points: []Vec3{basis.Unproject(closest)},
	}, true
}

func pointPolygonOverlap(p Vec3, poly []Vec3, basis PlaneBasis, dir Vec3) (Overlap, bool) {
	pp, ok := basis.ProjectAlong(p, dir)
	if !ok {
		return Overlap{Kind: OverlapPointPolygon}, false
	}
	clip := make([]Vec2, len(poly))
	for i, v := range poly {
		clip[i] = basis.Project(v)
	}
	if !PointInPolygon2D(pp, clip) {
		return Overlap{Kind: OverlapPointPolygon}, true
	}
	return Overlap{
		Kind:   OverlapPointPolygon,
		Ratio:  1,
		Points: []Vec3{basis.Unproject(pp)},
	}, true
}

func segmentSegmentOverlap(a, b Segment, basis PlaneBasis, dir Vec3) (Overlap, bool) {
	aa, ok1 := basis.ProjectAlong(a.A, dir)
	ab, ok2 := basis.ProjectAlong(a.B, dir)
	ba, ok3 := basis.ProjectAlong(b.A, dir)
	bb, ok4 := basis.ProjectAlong(b.B, dir)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return Overlap{Kind: OverlapSegmentSegment}, false
	}

	// Overlap of a's projection onto b's direction, normalized by a's
	// projected length. Perpendicular separation is not gated here; the
	// measure is intentionally a shadow overlap.
	bd := bb.Sub(ba)
	blen := bd.Length()
	if blen < Epsilon {
		return Overlap{Kind: OverlapSegmentSegment}, false
	}
	bu := bd.Scale(1 / blen)

	t0 := aa.Sub(ba).Dot(bu)
	t1 := ab.Sub(ba).Dot(bu)
	if t0 > t1 {
		t0, t1 = t1, t0
	}
	lo := math.Max(t0, 0)
	hi := math.Min(t1, blen)
	alen := t1 - t0
	if hi <= lo || alen < Epsilon {
		return Overlap{Kind: OverlapSegmentSegment}, true
	}

	ratio := Clamp01((hi - lo) / math.Min(alen, blen))
	p1 := basis.Unproject(ba.Add(bu.Scale(lo)))
	p2 := basis.Unproject(ba.Add(bu.Scale(hi)))
	return Overlap{
		Kind:   OverlapSegmentSegment,
		Ratio:  ratio,
		Points: []Vec3{p1, p2},
	}, true
}

func segmentPolygonOverlap(seg Segment, poly []Vec3, basis PlaneBasis, dir Vec3) (Overlap, bool) {
	sa, ok1 := basis.ProjectAlong(seg.A, dir)
	sb, ok2 := basis.ProjectAlong(seg.B, dir)
	if !ok1 || !ok2 {
		return Overlap{Kind: OverlapSegmentPolygon}, false
	}
	clip := make([]Vec2, len(poly))
	for i, v := range poly {
		clip[i] = basis.Project(v)
	}

	full := sb.Sub(sa).Length()
	if full < Epsilon {
		return Overlap{Kind: OverlapSegmentPolygon}, false
	}
	c1, c2, ok := ClipSegment(sa, sb, clip)
	if !ok {
		return Overlap{Kind: OverlapSegmentPolygon}, true
	}
	ratio := Clamp01(c2.Sub(c1).Length() / full)
	if ratio <= 0 {
		return Overlap{Kind: OverlapSegmentPolygon}, true
	}
	return Overlap{
		Kind:   OverlapSegmentPolygon,
		Ratio:  ratio,
		Points: []Vec3{basis.Unproject(c1), basis.Unproject(c2)},
	}, true
}

func polygonPolygonOverlap(a, b []Vec3, basis PlaneBasis, dir Vec3) (Overlap, bool) {
	subj, ok := projectPoly(a, basis, dir)
	if !ok {
		return Overlap{Kind: OverlapPolygonPolygon}, false
	}
	clip := make([]Vec2, len(b))
	for i, v := range b {
		clip[i] = basis.Project(v)
	}

	subjArea := math.Abs(SignedArea2D(subj))
	clipArea := math.Abs(SignedArea2D(clip))
	if subjArea < Epsilon || clipArea < Epsilon {
		return Overlap{Kind: OverlapPolygonPolygon}, false
	}

	inter := ClipPolygon(ensureCCW(subj), clip)
	if len(inter) < 3 {
		return Overlap{Kind: OverlapPolygonPolygon}, true
	}
	interArea := math.Abs(SignedArea2D(inter))
	ratio := Clamp01(interArea / math.Min(subjArea, clipArea))

	pts := make([]Vec3, len(inter))
	for i, p := range inter {
		pts[i] = basis.Unproject(p)
	}
	return Overlap{
		Kind:   OverlapPolygonPolygon,
		Ratio:  ratio,
		Points: pts,
	}, true
}
