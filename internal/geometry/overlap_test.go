package geometry

import (
	"math"
	"testing"
)

// squareAt returns a unit square in the XY plane offset by (dx, dy, dz).
func squareAt(dx, dy, dz float64) []Vec3 {
	return []Vec3{
		{X: dx, Y: dy, Z: dz},
		{X: dx + 1, Y: dy, Z: dz},
		{X: dx + 1, Y: dy + 1, Z: dz},
		{X: dx, Y: dy + 1, Z: dz},
	}
}

var downZ = Vec3{Z: -1}

func TestPolygonPolygonOverlap(t *testing.T) {
	tests := []struct {
		name      string
		a, b      []Vec3
		wantRatio float64
	}{
		{"identical squares", squareAt(0, 0, 1), squareAt(0, 0, 0), 1},
		{"half offset", squareAt(0.5, 0, 1), squareAt(0, 0, 0), 0.5},
		{"quarter offset", squareAt(0.5, 0.5, 1), squareAt(0, 0, 0), 0.25},
		{"disjoint", squareAt(5, 5, 1), squareAt(0, 0, 0), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ov, ok := ProjectedOverlap(PolygonShape(tt.a), PolygonShape(tt.b), downZ)
			if !ok {
				t.Fatal("expected overlap computation to succeed")
			}
			if ov.Kind != OverlapPolygonPolygon {
				t.Errorf("kind = %v, want polygon_polygon", ov.Kind)
			}
			if math.Abs(ov.Ratio-tt.wantRatio) > 1e-6 {
				t.Errorf("ratio = %v, want %v", ov.Ratio, tt.wantRatio)
			}
			if ov.Ratio < 0 || ov.Ratio > 1 {
				t.Errorf("ratio %v outside [0,1]", ov.Ratio)
			}
		})
	}
}

func TestPolygonOverlapOperandOrder(t *testing.T) {
	// Kind dispatch must not depend on which operand carries the polygon.
	seg := SegmentShape(Segment{A: Vec3{X: 0.2, Y: 0.5, Z: 1}, B: Vec3{X: 0.8, Y: 0.5, Z: 1}})
	poly := PolygonShape(squareAt(0, 0, 0))

	ov1, ok1 := ProjectedOverlap(seg, poly, downZ)
	ov2, ok2 := ProjectedOverlap(poly, seg, downZ)
	if !ok1 || !ok2 {
		t.Fatal("expected both orders to succeed")
	}
	if ov1.Kind != OverlapSegmentPolygon || ov2.Kind != OverlapSegmentPolygon {
		t.Errorf("kinds = %v, %v; want segment_polygon for both", ov1.Kind, ov2.Kind)
	}
	if math.Abs(ov1.Ratio-ov2.Ratio) > 1e-9 {
		t.Errorf("ratios differ across operand order: %v vs %v", ov1.Ratio, ov2.Ratio)
	}
}

func TestSegmentPolygonOverlap(t *testing.T) {
	poly := PolygonShape(squareAt(0, 0, 0))

	tests := []struct {
		name      string
		seg       Segment
		wantRatio float64
	}{
		{
			"fully inside",
			Segment{A: Vec3{X: 0.25, Y: 0.5, Z: 2}, B: Vec3{X: 0.75, Y: 0.5, Z: 2}},
			1,
		},
		{
			"half inside",
			Segment{A: Vec3{X: 0.5, Y: 0.5, Z: 2}, B: Vec3{X: 1.5, Y: 0.5, Z: 2}},
			0.5,
		},
		{
			"outside",
			Segment{A: Vec3{X: 3, Y: 3, Z: 2}, B: Vec3{X: 4, Y: 3, Z: 2}},
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ov, ok := ProjectedOverlap(SegmentShape(tt.seg), poly, downZ)
			if !ok {
				t.Fatal("expected overlap computation to succeed")
			}
			if math.Abs(ov.Ratio-tt.wantRatio) > 1e-6 {
				t.Errorf("ratio = %v, want %v", ov.Ratio, tt.wantRatio)
			}
			if tt.wantRatio == 0 && !ov.Empty() {
				t.Error("expected empty overlap")
			}
		})
	}
}

func TestPointPolygonOverlap(t *testing.T) {
	poly := PolygonShape(squareAt(0, 0, 0))

	inside, ok := ProjectedOverlap(PointShape(Vec3{X: 0.5, Y: 0.5, Z: 3}), poly, downZ)
	if !ok || inside.Ratio != 1 {
		t.Errorf("inside point ratio = %v (ok=%v), want 1", inside.Ratio, ok)
	}
	if len(inside.Points) != 1 {
		t.Fatalf("inside overlap points = %d, want 1", len(inside.Points))
	}
	vecNear(t, inside.Points[0], Vec3{X: 0.5, Y: 0.5}, 1e-9)

	outside, ok := ProjectedOverlap(PointShape(Vec3{X: 5, Y: 5, Z: 3}), poly, downZ)
	if !ok || outside.Ratio != 0 {
		t.Errorf("outside point ratio = %v (ok=%v), want 0", outside.Ratio, ok)
	}
}

func TestSegmentSegmentOverlap(t *testing.T) {
	a := SegmentShape(Segment{A: Vec3{X: 0, Z: 1}, B: Vec3{X: 2, Z: 1}})
	b := SegmentShape(Segment{A: Vec3{X: 1}, B: Vec3{X: 3}})

	ov, ok := ProjectedOverlap(a, b, downZ)
	if !ok {
		t.Fatal("expected overlap computation to succeed")
	}
	if ov.Kind != OverlapSegmentSegment {
		t.Errorf("kind = %v, want segment_segment", ov.Kind)
	}
	// Shadow overlap is [1,2] of two length-2 segments.
	if math.Abs(ov.Ratio-0.5) > 1e-6 {
		t.Errorf("ratio = %v, want 0.5", ov.Ratio)
	}
}

func TestOverlapDegenerateAxis(t *testing.T) {
	a := PolygonShape(squareAt(0, 0, 1))
	b := PolygonShape(squareAt(0, 0, 0))
	if _, ok := ProjectedOverlap(a, b, Vec3{}); ok {
		t.Error("expected zero axis to fail")
	}
	// Axis lying in the target plane cannot project onto it.
	if _, ok := ProjectedOverlap(a, b, Vec3{X: 1}); ok {
		t.Error("expected in-plane axis to fail")
	}
}
