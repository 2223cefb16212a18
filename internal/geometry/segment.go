package geometry

// Segment is a line segment between two world-space points.
type Segment struct {
	A Vec3 `json:"a"`
	B Vec3 `json:"b"`
}

// Direction returns the (non-normalized) direction B - A.
func (s Segment) Direction() Vec3 {
	return s.B.Sub(s.A)
}

// Length returns the length of the segment.
func (s Segment) Length() float64 {
	return s.Direction().Length()
}

// Midpoint returns the segment's midpoint.
func (s Segment) Midpoint() Vec3 {
	return Lerp(s.A, s.B, 0.5)
}

// ClosestPointTo returns the point on the segment closest to p, together
// with the clamped parametric position t in [0, 1]. A degenerate segment
// is treated as the point A (t = 0).
func (s Segment) ClosestPointTo(p Vec3) (Vec3, float64) {
	d := s.Direction()
	dd := d.LengthSq()
	if dd < Epsilon*Epsilon {
		return s.A, 0
	}
	t := Clamp01(p.Sub(s.A).Dot(d) / dd)
	return Lerp(s.A, s.B, t), t
}

// ClosestPoints returns the pair of closest points between segments s and
// o (first on s, then on o), using the standard clamped two-segment
// distance algorithm. Degenerate segments reduce to point cases.
func (s Segment) ClosestPoints(o Segment) (Vec3, Vec3) {
	d1 := s.Direction()
	d2 := o.Direction()
	r := s.A.Sub(o.A)

	a := d1.LengthSq()
	e := d2.LengthSq()
	f := d2.Dot(r)

	eps2 := Epsilon * Epsilon

	// Both segments degenerate to points.
	if a < eps2 && e < eps2 {
		return s.A, o.A
	}

	var t1, t2 float64
	switch {
	case a < eps2:
		// First segment is a point.
		t1 = 0
		t2 = Clamp01(f / e)
	case e < eps2:
		// Second segment is a point.
		t2 = 0
		t1 = Clamp01(-d1.Dot(r) / a)
	default:
		c := d1.Dot(r)
		b := d1.Dot(d2)
		denom := a*e - b*b

		// Parallel segments leave t1 free; pick 0 for determinism.
		if denom > eps2 {
			t1 = Clamp01((b*f - c*e) / denom)
		} else {
			t1 = 0
		}

		t2 = (b*t1 + f) / e
		// Clamping t2 may force t1 to be recomputed against the clamp.
		if t2 < 0 {
			t2 = 0
			t1 = Clamp01(-c / a)
		} else if t2 > 1 {
			t2 = 1
			t1 = Clamp01((b - c) / a)
		}
	}

	return Lerp(s.A, s.B, t1), Lerp(o.A, o.B, t2)
}

// Distance returns the smallest distance between segments s and o.
func (s Segment) Distance(o Segment) float64 {
	p1, p2 := s.ClosestPoints(o)
	return p1.DistanceTo(p2)
}
