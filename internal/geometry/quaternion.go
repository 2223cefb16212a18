package geometry

import "math"

// Quat is a rotation quaternion (w + xi + yj + zk).
// Identity is {W: 1}. Quaternions are expected to be unit length; callers
// feeding raw tracking data should Normalize first.
type Quat struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// QuatIdentity is the identity rotation.
var QuatIdentity = Quat{W: 1}

// Mul returns the Hamilton product q * o (apply o, then q).
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
	}
}

// Conjugate returns the conjugate of q. For unit quaternions this is the
// inverse rotation.
func (q Quat) Conjugate() Quat {
	return Quat{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
}

// Dot returns the 4D dot product of q and o. |Dot| close to 1 means the
// two rotations are nearly identical; this is the cheap rotation-change
// test used by the pose gating (no inverse trigonometry required).
func (q Quat) Dot(o Quat) float64 {
	return q.W*o.W + q.X*o.X + q.Y*o.Y + q.Z*o.Z
}

// Normalize returns q scaled to unit length. A near-zero quaternion
// normalizes to the identity rotation.
func (q Quat) Normalize() Quat {
	l := math.Sqrt(q.Dot(q))
	if l < Epsilon {
		return QuatIdentity
	}
	return Quat{W: q.W / l, X: q.X / l, Y: q.Y / l, Z: q.Z / l}
}

// Rotate applies the rotation q to vector v.
func (q Quat) Rotate(v Vec3) Vec3 {
	// v' = v + 2w(u x v) + 2(u x (u x v)) with u = (x,y,z)
	u := Vec3{q.X, q.Y, q.Z}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(u.Cross(t))
}

// AxisAngle decomposes q into a unit rotation axis and an angle in
// radians in [0, pi]. The identity rotation yields a zero axis and zero
// angle.
func (q Quat) AxisAngle() (Vec3, float64) {
	n := q.Normalize()
	// Keep the shortest arc: q and -q encode the same rotation.
	if n.W < 0 {
		n = Quat{W: -n.W, X: -n.X, Y: -n.Y, Z: -n.Z}
	}
	w := math.Max(-1, math.Min(1, n.W))
	angle := 2 * math.Acos(w)
	s := math.Sqrt(1 - w*w)
	if s < Epsilon {
		return Vec3{}, 0
	}
	axis := Vec3{n.X / s, n.Y / s, n.Z / s}
	return axis, angle
}

// Euler returns the pitch, yaw, and roll of q in degrees.
//
// Convention: yaw about +Y (up), pitch about +X (right), roll about +Z
// (forward), extracted in YXZ order. Pitch saturates at +/-90 at the
// gimbal singularity instead of producing NaN.
func (q Quat) Euler() (pitch, yaw, roll float64) {
	n := q.Normalize()

	// Pitch (X axis rotation).
	sinp := 2 * (n.W*n.X - n.Y*n.Z)
	if math.Abs(sinp) >= 1 {
		pitch = math.Copysign(90, sinp)
	} else {
		pitch = math.Asin(sinp) * 180 / math.Pi
	}

	// Yaw (Y axis rotation).
	siny := 2 * (n.W*n.Y + n.X*n.Z)
	cosy := 1 - 2*(n.X*n.X+n.Y*n.Y)
	yaw = math.Atan2(siny, cosy) * 180 / math.Pi

	// Roll (Z axis rotation).
	sinr := 2 * (n.W*n.Z + n.X*n.Y)
	cosr := 1 - 2*(n.X*n.X+n.Z*n.Z)
	roll = math.Atan2(sinr, cosr) * 180 / math.Pi

	return pitch, yaw, roll
}

// QuatFromAxisAngle builds a quaternion rotating by angle radians about
// the given axis. A degenerate axis yields the identity rotation.
func QuatFromAxisAngle(axis Vec3, angle float64) Quat {
	a := axis.Normalized()
	if a.IsZero() {
		return QuatIdentity
	}
	half := angle / 2
	s := math.Sin(half)
	return Quat{W: math.Cos(half), X: a.X * s, Y: a.Y * s, Z: a.Z * s}
}

// QuatFromEuler builds a quaternion from pitch, yaw and roll in
// degrees, composed in YXZ order. Inverse of Euler away from the
// gimbal singularity.
func QuatFromEuler(pitch, yaw, roll float64) Quat {
	const degToRad = math.Pi / 180
	qy := QuatFromAxisAngle(Vec3{Y: 1}, yaw*degToRad)
	qx := QuatFromAxisAngle(Vec3{X: 1}, pitch*degToRad)
	qz := QuatFromAxisAngle(Vec3{Z: 1}, roll*degToRad)
	return qy.Mul(qx).Mul(qz)
}
