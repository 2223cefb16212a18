package geometry

import (
	"errors"
	"math"
)

// Pixel-mapping errors.
var (
	// ErrDegenerateSurface is returned when the rectangle corners or
	// resolution cannot form a valid mapping.
	ErrDegenerateSurface = errors.New("geometry: degenerate surface")

	// ErrOutOfPlane is returned when a query point is too far off the
	// rectangle's plane.
	ErrOutOfPlane = errors.New("geometry: point out of plane")

	// ErrOutOfBounds is returned when a query point lies outside the
	// rectangle beyond the edge tolerance.
	ErrOutOfBounds = errors.New("geometry: point out of bounds")
)

// Default mapping tolerances (metres / normalized units). Overridable
// per-map via SetTolerances.
const (
	defaultPlaneTol = 0.01
	defaultEdgeTol  = 0.02
)

// PixelMap converts between world coordinates and pixel coordinates on a
// planar rectangular surface, given its four corners and a pixel
// resolution.
//
// The in-plane frame is built from two adjacent edges at the top-left
// corner: U points along the top edge (left to right), V down the left
// edge. Pixel space is [0, width) x [0, height) with the origin at the
// top-left corner ((0,0) = top-left, X right, Y down), the usual screen
// convention.
type PixelMap struct {
	origin Vec3 // top-left corner
	u      Vec3 // unit vector along the top edge
	v      Vec3 // unit vector down the left edge
	n      Vec3 // plane normal
	uLen   float64
	vLen   float64
	resW   float64
	resH   float64

	planeTol float64 // max out-of-plane distance (metres)
	edgeTol  float64 // slack outside [0,1] in normalized units
}

// NewPixelMap builds a PixelMap from the rectangle's corners in the order
// topLeft, topRight, bottomRight, bottomLeft, and a pixel resolution.
// Returns ErrDegenerateSurface for near-zero edges or a non-positive
// resolution.
func NewPixelMap(corners [4]Vec3, resW, resH int) (*PixelMap, error) {
	if resW <= 0 || resH <= 0 {
		return nil, ErrDegenerateSurface
	}
	uEdge := corners[1].Sub(corners[0]) // top-left -> top-right
	vEdge := corners[3].Sub(corners[0]) // top-left -> bottom-left
	uLen := uEdge.Length()
	vLen := vEdge.Length()
	if uLen < Epsilon || vLen < Epsilon {
		return nil, ErrDegenerateSurface
	}
	u := uEdge.Scale(1 / uLen)
	n := u.Cross(vEdge).Normalized()
	if n.IsZero() {
		return nil, ErrDegenerateSurface
	}
	// Re-orthogonalize V against U so slightly skewed corner data still
	// yields an orthonormal frame.
	v := n.Cross(u)

	return &PixelMap{
		origin:   corners[0],
		u:        u,
		v:        v,
		n:        n,
		uLen:     uLen,
		vLen:     vLen,
		resW:     float64(resW),
		resH:     float64(resH),
		planeTol: defaultPlaneTol,
		edgeTol:  defaultEdgeTol,
	}, nil
}

// SetTolerances overrides the out-of-plane distance tolerance (metres)
// and the edge tolerance (normalized units outside [0,1] still accepted).
func (m *PixelMap) SetTolerances(planeTol, edgeTol float64) {
	m.planeTol = planeTol
	m.edgeTol = edgeTol
}

// WorldToPixel maps a world point onto the surface's pixel grid.
//
// Returns ErrOutOfPlane when the point is further than the plane
// tolerance off the surface, and ErrOutOfBounds when its in-plane
// position falls outside the rectangle beyond the edge tolerance.
// In-bounds results are clamped into [0, resW) x [0, resH).
func (m *PixelMap) WorldToPixel(p Vec3) (Vec2, error) {
	d := p.Sub(m.origin)
	if math.Abs(d.Dot(m.n)) > m.planeTol {
		return Vec2{}, ErrOutOfPlane
	}

	s := d.Dot(m.u) / m.uLen
	t := d.Dot(m.v) / m.vLen
	if s < -m.edgeTol || s > 1+m.edgeTol || t < -m.edgeTol || t > 1+m.edgeTol {
		return Vec2{}, ErrOutOfBounds
	}

	s = Clamp01(s)
	t = Clamp01(t)
	px := math.Min(s*m.resW, m.resW-1)
	py := math.Min(t*m.resH, m.resH-1)
	return Vec2{X: px, Y: py}, nil
}

// PixelToWorld reconstructs the world point for a pixel coordinate.
// Returns ErrOutOfBounds for pixels outside the resolution beyond the
// edge tolerance (scaled to pixels).
func (m *PixelMap) PixelToWorld(px Vec2) (Vec3, error) {
	s := px.X / m.resW
	t := px.Y / m.resH
	if s < -m.edgeTol || s > 1+m.edgeTol || t < -m.edgeTol || t > 1+m.edgeTol {
		return Vec3{}, ErrOutOfBounds
	}
	return m.origin.
		Add(m.u.Scale(s * m.uLen)).
		Add(m.v.Scale(t * m.vLen)), nil
}

// Resolution returns the pixel resolution of the map.
func (m *PixelMap) Resolution() (int, int) {
	return int(m.resW), int(m.resH)
}
