package catalog

import "errors"

// Domain errors for the catalog package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, catalog.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrNotFound is returned when a spec id does not exist.
	ErrNotFound = errors.New("catalog: not found")

	// ErrExists is returned when creating a spec with an id that already exists.
	ErrExists = errors.New("catalog: already exists")

	// ErrInvalidSpec is returned when a spec fails validation.
	ErrInvalidSpec = errors.New("catalog: invalid spec")
)
