// Package geometry provides the stateless 3D/2D math underpinning the
// spatial rule engine: vectors, quaternions, segment and polygon
// closest-point and overlap algorithms, and the world-to-pixel mapping
// for planar rectangular surfaces.
//
// All functions are pure and deterministic: the same floating-point
// inputs always produce the same outputs. Degenerate inputs (near-zero
// length segments, axes, or denominators) return defined fallback values
// rather than NaN or Inf; every division is guarded by Epsilon.
//
// Nothing in this package knows about entities, signals, or rules. It is
// the leaf dependency of the engine and must stay that way.
package geometry
