package entity

import "errors"

// Domain errors for the entity package. Check with errors.Is.
var (
	// ErrNotFound is returned when an entity id does not exist.
	ErrNotFound = errors.New("entity: not found")

	// ErrExists is returned when registering an id that is already
	// registered.
	ErrExists = errors.New("entity: already exists")

	// ErrNoPrimary is returned when a pair is built without a primary
	// entity.
	ErrNoPrimary = errors.New("entity: no primary entity")

	// ErrNoMatch is returned when a constraint selector matches no
	// registered entity.
	ErrNoMatch = errors.New("entity: no constraint match")

	// ErrInvalidID is returned when an entity id is empty.
	ErrInvalidID = errors.New("entity: invalid id")
)
