package geometry

import (
	"math"
	"testing"
)

func TestQuatRotate(t *testing.T) {
	tests := []struct {
		name string
		q    Quat
		v    Vec3
		want Vec3
	}{
		{"identity", QuatIdentity, Vec3{X: 1, Y: 2, Z: 3}, Vec3{X: 1, Y: 2, Z: 3}},
		{
			name: "90 degrees about Y",
			q:    QuatFromAxisAngle(Vec3{Y: 1}, math.Pi/2),
			v:    Vec3{X: 1},
			want: Vec3{Z: -1},
		},
		{
			name: "180 degrees about Z",
			q:    QuatFromAxisAngle(Vec3{Z: 1}, math.Pi),
			v:    Vec3{X: 1},
			want: Vec3{X: -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vecNear(t, tt.q.Rotate(tt.v), tt.want, 1e-9)
		})
	}
}

func TestQuatAxisAngle(t *testing.T) {
	axis := Vec3{X: 0, Y: 1, Z: 0}
	angle := 0.7
	q := QuatFromAxisAngle(axis, angle)

	gotAxis, gotAngle := q.AxisAngle()
	vecNear(t, gotAxis, axis, 1e-9)
	if math.Abs(gotAngle-angle) > 1e-9 {
		t.Errorf("angle = %v, want %v", gotAngle, angle)
	}
}

func TestQuatAxisAngleIdentity(t *testing.T) {
	axis, angle := QuatIdentity.AxisAngle()
	if !axis.IsZero() || angle != 0 {
		t.Errorf("identity axis-angle = %+v, %v; want zero", axis, angle)
	}
}

func TestQuatAxisAngleShortestArc(t *testing.T) {
	// q and -q encode the same rotation; AxisAngle must agree.
	q := QuatFromAxisAngle(Vec3{X: 1}, 1.0)
	neg := Quat{W: -q.W, X: -q.X, Y: -q.Y, Z: -q.Z}

	a1, ang1 := q.AxisAngle()
	a2, ang2 := neg.AxisAngle()
	vecNear(t, a1, a2, 1e-9)
	if math.Abs(ang1-ang2) > 1e-9 {
		t.Errorf("angles differ: %v vs %v", ang1, ang2)
	}
}

func TestQuatEuler(t *testing.T) {
	tests := []struct {
		name                 string
		q                    Quat
		pitch, yaw, roll     float64
	}{
		{"identity", QuatIdentity, 0, 0, 0},
		{"yaw 90", QuatFromAxisAngle(Vec3{Y: 1}, math.Pi/2), 0, 90, 0},
		{"pitch 45", QuatFromAxisAngle(Vec3{X: 1}, math.Pi/4), 45, 0, 0},
		{"roll -30", QuatFromAxisAngle(Vec3{Z: 1}, -math.Pi/6), 0, 0, -30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pitch, yaw, roll := tt.q.Euler()
			if math.Abs(pitch-tt.pitch) > 1e-6 ||
				math.Abs(yaw-tt.yaw) > 1e-6 ||
				math.Abs(roll-tt.roll) > 1e-6 {
				t.Errorf("Euler() = (%v, %v, %v), want (%v, %v, %v)",
					pitch, yaw, roll, tt.pitch, tt.yaw, tt.roll)
			}
		})
	}
}

func TestQuatFromEulerRoundTrip(t *testing.T) {
	tests := []struct {
		name             string
		pitch, yaw, roll float64
	}{
		{"identity", 0, 0, 0},
		{"yaw only", 0, 30, 0},
		{"combined", 20, -45, 10},
		{"negative pitch", -35, 120, -80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := QuatFromEuler(tt.pitch, tt.yaw, tt.roll)
			pitch, yaw, roll := q.Euler()
			if math.Abs(pitch-tt.pitch) > 1e-6 ||
				math.Abs(yaw-tt.yaw) > 1e-6 ||
				math.Abs(roll-tt.roll) > 1e-6 {
				t.Errorf("round trip = (%v, %v, %v), want (%v, %v, %v)",
					pitch, yaw, roll, tt.pitch, tt.yaw, tt.roll)
			}
		})
	}
}

func TestQuatDotGating(t *testing.T) {
	// Small rotations keep |dot| near 1; the pose gate relies on this.
	small := QuatFromAxisAngle(Vec3{Y: 1}, 0.001)
	if dot := QuatIdentity.Dot(small); math.Abs(dot) < 0.999999 {
		t.Errorf("dot for tiny rotation = %v, want ~1", dot)
	}

	big := QuatFromAxisAngle(Vec3{Y: 1}, math.Pi/2)
	if dot := QuatIdentity.Dot(big); math.Abs(dot) > 0.8 {
		t.Errorf("dot for large rotation = %v, want well below 1", dot)
	}
}
