package pose

import (
	"time"

	"github.com/kestrelworks/spatial-core/internal/entity"
	"github.com/kestrelworks/spatial-core/internal/geometry"
	"github.com/kestrelworks/spatial-core/internal/signal"
)

// Sample is a raw pose stamped with the tick that sampled it.
type Sample struct {
	Tick signal.Tick
	Pose entity.Pose
}

// Axes are the entity's local unit directions in world space, plus the
// two diagonal directions of its rectangle plane.
//
// The local frame convention: the rectangle lies in the entity's local
// XY plane with Right = +X, Up = +Y, and Forward = +Z (the surface
// normal). MajorDiagonal points from the bottom-left corner towards the
// top-right, MinorDiagonal from the bottom-right towards the top-left.
type Axes struct {
	Tick          signal.Tick
	Up            geometry.Vec3
	Forward       geometry.Vec3
	Right         geometry.Vec3
	MajorDiagonal geometry.Vec3
	MinorDiagonal geometry.Vec3
}

// Corners are the entity rectangle's four corners in world space.
type Corners struct {
	Tick        signal.Tick
	TopLeft     geometry.Vec3
	TopRight    geometry.Vec3
	BottomRight geometry.Vec3
	BottomLeft  geometry.Vec3
}

// Array returns the corners in topLeft, topRight, bottomRight,
// bottomLeft order, the order geometry.NewPixelMap expects.
func (c Corners) Array() [4]geometry.Vec3 {
	return [4]geometry.Vec3{c.TopLeft, c.TopRight, c.BottomRight, c.BottomLeft}
}

// Polygon returns the corners as a polygon in winding order.
func (c Corners) Polygon() []geometry.Vec3 {
	return []geometry.Vec3{c.TopLeft, c.TopRight, c.BottomRight, c.BottomLeft}
}

// Edge returns the named edge segment ("top", "bottom", "left",
// "right"). Unknown names return false.
func (c Corners) Edge(name string) (geometry.Segment, bool) {
	switch name {
	case "top":
		return geometry.Segment{A: c.TopLeft, B: c.TopRight}, true
	case "bottom":
		return geometry.Segment{A: c.BottomLeft, B: c.BottomRight}, true
	case "left":
		return geometry.Segment{A: c.TopLeft, B: c.BottomLeft}, true
	case "right":
		return geometry.Segment{A: c.TopRight, B: c.BottomRight}, true
	default:
		return geometry.Segment{}, false
	}
}

// Corner returns the named corner point. Unknown names return false.
func (c Corners) Corner(name string) (geometry.Vec3, bool) {
	switch name {
	case "topLeft":
		return c.TopLeft, true
	case "topRight":
		return c.TopRight, true
	case "bottomRight":
		return c.BottomRight, true
	case "bottomLeft":
		return c.BottomLeft, true
	default:
		return geometry.Vec3{}, false
	}
}

// Euler carries the pose's Euler decomposition in degrees.
type Euler struct {
	Tick  signal.Tick
	Pitch float64
	Yaw   float64
	Roll  float64
}

// Kinematic is a derived vector quantity (velocity, acceleration,
// angular velocity) stamped with its tick.
type Kinematic struct {
	Tick  signal.Tick
	Value geometry.Vec3
}

// Scalar is a derived scalar quantity (RMS magnitudes) stamped with its
// tick.
type Scalar struct {
	Tick  signal.Tick
	Value float64
}

// Config holds the gating thresholds and smoothing defaults.
type Config struct {
	// LinearEpsilon is the positional movement (metres) below which
	// pose changes are suppressed.
	LinearEpsilon float64
	// AngularEpsilon gates orientation changes: the pose emits when
	// 1 - |q1 . q2| exceeds this value.
	AngularEpsilon float64
	// VelocityEpsilon gates velocity changes (m/s).
	VelocityEpsilon float64
	// AccelerationEpsilon gates acceleration changes (m/s^2).
	AccelerationEpsilon float64
	// AngularVelocityEpsilon gates angular velocity changes (rad/s).
	AngularVelocityEpsilon float64
	// MinDT clamps finite-difference denominators so a burst of
	// near-simultaneous samples cannot blow derivatives up.
	MinDT time.Duration
	// RMSHalfLife is the default half-life for RMS smoothing when a
	// primitive spec does not configure its own.
	RMSHalfLife time.Duration
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		LinearEpsilon:          0.001, // 1mm
		AngularEpsilon:         1e-6,
		VelocityEpsilon:        0.001,
		AccelerationEpsilon:    0.005,
		AngularVelocityEpsilon: 0.001,
		MinDT:                  time.Millisecond,
		RMSHalfLife:            500 * time.Millisecond,
	}
}
