package geometry

import (
	"math"
	"testing"
)

const testTol = 1e-9

func vecNear(t *testing.T, got, want Vec3, tol float64) {
	t.Helper()
	if got.Sub(want).Length() > tol {
		t.Fatalf("vector = %+v, want %+v", got, want)
	}
}

func TestClosestPointOnSegment(t *testing.T) {
	seg := Segment{A: Vec3{X: 0}, B: Vec3{X: 2}}

	tests := []struct {
		name  string
		point Vec3
		want  Vec3
		wantT float64
	}{
		{"interior projection", Vec3{X: 1, Y: 1}, Vec3{X: 1}, 0.5},
		{"clamped to start", Vec3{X: -5, Y: 3}, Vec3{X: 0}, 0},
		{"clamped to end", Vec3{X: 9}, Vec3{X: 2}, 1},
		{"on the segment", Vec3{X: 0.5}, Vec3{X: 0.5}, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, gotT := seg.ClosestPointTo(tt.point)
			vecNear(t, got, tt.want, testTol)
			if math.Abs(gotT-tt.wantT) > testTol {
				t.Errorf("t = %v, want %v", gotT, tt.wantT)
			}
		})
	}
}

func TestClosestPointDegenerateSegment(t *testing.T) {
	seg := Segment{A: Vec3{X: 1, Y: 2, Z: 3}, B: Vec3{X: 1, Y: 2, Z: 3}}
	got, gotT := seg.ClosestPointTo(Vec3{X: 10})
	vecNear(t, got, seg.A, testTol)
	if gotT != 0 {
		t.Errorf("t = %v, want 0", gotT)
	}
}

func TestClosestPointsBetweenSegments(t *testing.T) {
	tests := []struct {
		name     string
		s1, s2   Segment
		wantDist float64
	}{
		{
			name:     "crossing at right angles, unit apart",
			s1:       Segment{A: Vec3{X: -1}, B: Vec3{X: 1}},
			s2:       Segment{A: Vec3{Y: -1, Z: 1}, B: Vec3{Y: 1, Z: 1}},
			wantDist: 1,
		},
		{
			name:     "parallel segments",
			s1:       Segment{A: Vec3{X: 0}, B: Vec3{X: 1}},
			s2:       Segment{A: Vec3{X: 0, Y: 2}, B: Vec3{X: 1, Y: 2}},
			wantDist: 2,
		},
		{
			name:     "endpoint to endpoint",
			s1:       Segment{A: Vec3{X: 0}, B: Vec3{X: 1}},
			s2:       Segment{A: Vec3{X: 4}, B: Vec3{X: 6}},
			wantDist: 3,
		},
		{
			name:     "both degenerate",
			s1:       Segment{A: Vec3{X: 1}, B: Vec3{X: 1}},
			s2:       Segment{A: Vec3{X: 5}, B: Vec3{X: 5}},
			wantDist: 4,
		},
		{
			name:     "one degenerate",
			s1:       Segment{A: Vec3{Y: 3}, B: Vec3{Y: 3}},
			s2:       Segment{A: Vec3{X: -1}, B: Vec3{X: 1}},
			wantDist: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s1.Distance(tt.s2); math.Abs(got-tt.wantDist) > 1e-9 {
				t.Errorf("Distance() = %v, want %v", got, tt.wantDist)
			}
			// Symmetry: distance does not depend on operand order.
			if got := tt.s2.Distance(tt.s1); math.Abs(got-tt.wantDist) > 1e-9 {
				t.Errorf("reversed Distance() = %v, want %v", got, tt.wantDist)
			}
		})
	}
}

func TestAngleBetween(t *testing.T) {
	tests := []struct {
		name string
		a, b Vec3
		want float64
	}{
		{"orthogonal", Vec3{X: 1}, Vec3{Y: 1}, 90},
		{"parallel", Vec3{X: 2}, Vec3{X: 5}, 0},
		{"opposite", Vec3{X: 1}, Vec3{X: -1}, 180},
		{"degenerate operand", Vec3{}, Vec3{X: 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AngleBetween(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("AngleBetween() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizedDegenerate(t *testing.T) {
	if got := (Vec3{X: 1e-12}).Normalized(); !got.IsZero() {
		t.Errorf("Normalized near-zero vector = %+v, want zero", got)
	}
}
