package geometry

import (
	"errors"
	"math"
	"testing"
)

// testSurface is a 0.4m x 0.3m rectangle lying in the XY plane at z=0,
// mapped to a 1920x1080 pixel grid.
func testSurface(t *testing.T) *PixelMap {
	t.Helper()
	corners := [4]Vec3{
		{X: 0, Y: 0},     // top-left
		{X: 0.4, Y: 0},   // top-right
		{X: 0.4, Y: 0.3}, // bottom-right
		{X: 0, Y: 0.3},   // bottom-left
	}
	m, err := NewPixelMap(corners, 1920, 1080)
	if err != nil {
		t.Fatalf("NewPixelMap: %v", err)
	}
	return m
}

func TestWorldToPixel(t *testing.T) {
	m := testSurface(t)

	tests := []struct {
		name    string
		world   Vec3
		want    Vec2
		wantErr error
	}{
		{"top-left corner", Vec3{}, Vec2{0, 0}, nil},
		{"centre", Vec3{X: 0.2, Y: 0.15}, Vec2{960, 540}, nil},
		{"bottom-right clamps inside grid", Vec3{X: 0.4, Y: 0.3}, Vec2{1919, 1079}, nil},
		{"off plane", Vec3{X: 0.2, Y: 0.15, Z: 0.5}, Vec2{}, ErrOutOfPlane},
		{"outside rectangle", Vec3{X: 2, Y: 0.15}, Vec2{}, ErrOutOfBounds},
		{"just outside, within edge tolerance", Vec3{X: -0.004, Y: 0.15}, Vec2{0, 540}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.WorldToPixel(tt.world)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if math.Abs(got.X-tt.want.X) > 1e-6 || math.Abs(got.Y-tt.want.Y) > 1e-6 {
				t.Errorf("pixel = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPixelToWorld(t *testing.T) {
	m := testSurface(t)

	world, err := m.PixelToWorld(Vec2{X: 960, Y: 540})
	if err != nil {
		t.Fatalf("PixelToWorld: %v", err)
	}
	vecNear(t, world, Vec3{X: 0.2, Y: 0.15}, 1e-9)

	if _, err := m.PixelToWorld(Vec2{X: 5000, Y: 540}); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("err = %v, want ErrOutOfBounds", err)
	}
}

func TestPixelRoundTrip(t *testing.T) {
	// Tilted surface: round-tripping interior points must reproduce them.
	corners := [4]Vec3{
		{X: 1, Y: 2, Z: 0},
		{X: 1.4, Y: 2, Z: 0.1},
		{X: 1.4, Y: 2.3, Z: 0.1},
		{X: 1, Y: 2.3, Z: 0},
	}
	m, err := NewPixelMap(corners, 800, 600)
	if err != nil {
		t.Fatalf("NewPixelMap: %v", err)
	}

	pixels := []Vec2{{X: 10, Y: 10}, {X: 400, Y: 300}, {X: 790, Y: 590}}
	for _, px := range pixels {
		world, err := m.PixelToWorld(px)
		if err != nil {
			t.Fatalf("PixelToWorld(%+v): %v", px, err)
		}
		back, err := m.WorldToPixel(world)
		if err != nil {
			t.Fatalf("WorldToPixel round trip (%+v): %v", px, err)
		}
		if math.Abs(back.X-px.X) > 1 || math.Abs(back.Y-px.Y) > 1 {
			t.Errorf("round trip %+v -> %+v", px, back)
		}
	}
}

func TestNewPixelMapDegenerate(t *testing.T) {
	corners := [4]Vec3{{}, {}, {}, {}}
	if _, err := NewPixelMap(corners, 100, 100); !errors.Is(err, ErrDegenerateSurface) {
		t.Errorf("err = %v, want ErrDegenerateSurface", err)
	}
	good := [4]Vec3{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}}
	if _, err := NewPixelMap(good, 0, 100); !errors.Is(err, ErrDegenerateSurface) {
		t.Errorf("err = %v, want ErrDegenerateSurface for zero resolution", err)
	}
}
