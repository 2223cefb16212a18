// Package pose converts per-tick raw entity poses into shared,
// change-gated derived signals: the gated pose itself, local axes,
// world-space rectangle corners, Euler angles, finite-difference
// kinematics (velocity, acceleration, angular velocity), and RMS
// smoothed magnitudes for shake-style metrics.
//
// Signals are built lazily, memoized per entity for the entity's
// lifetime, and multicast: additional subscribers never duplicate the
// computation. Eviction (driven by the entity registry's unregister
// event) drops an entity's whole signal set.
//
// Gating thresholds suppress tracking noise: the pose signal emits only
// when the position moves beyond a linear epsilon or the orientation
// rotates beyond an angular threshold, tested via quaternion dot product
// rather than inverse trigonometry.
package pose
