package primitive

import "errors"

// Domain errors for the primitive package. Check with errors.Is.
var (
	// ErrSpecNotFound is returned when a primitive id is not in the
	// catalog.
	ErrSpecNotFound = errors.New("primitive: spec not found")

	// ErrInvalidSpec is returned when a spec fails validation (empty
	// id or metric, unsupported metric, wrong ref count, bad axis or
	// unit, missing primary entity).
	ErrInvalidSpec = errors.New("primitive: invalid spec")

	// ErrInlineIDMismatch is returned when an inline override names a
	// different id than the catalog spec it overrides.
	ErrInlineIDMismatch = errors.New("primitive: inline id mismatch")

	// ErrUnsupportedGeometry is returned when a metric cannot be
	// built for the referenced feature shape combination.
	ErrUnsupportedGeometry = errors.New("primitive: unsupported geometry combination")

	// ErrNotReleased is returned when releasing a primitive that has
	// no cache entry for the pair.
	ErrNotReleased = errors.New("primitive: not cached for pair")
)
