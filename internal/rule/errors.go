package rule

import "errors"

// Domain errors for the rule package. Check with errors.Is.
var (
	// ErrInvalidRule is returned when a rule spec is malformed.
	ErrInvalidRule = errors.New("rule: invalid spec")

	// ErrCompositionCycle is returned when composition resolution
	// re-enters an id already on the visit stack.
	ErrCompositionCycle = errors.New("rule: composition cycle")

	// ErrExists is returned when registering a rule id twice.
	ErrExists = errors.New("rule: already registered")

	// ErrNotFound is returned when a rule id is not registered.
	ErrNotFound = errors.New("rule: not found")
)
