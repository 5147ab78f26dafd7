package lifecycle

import "fmt"

// ValidationError rejects an operation before any mutation: a required
// field was empty or referenced a record that must exist. The input state
// is returned unchanged alongside it.
type ValidationError struct {
	Field  string // Which input field failed validation
	Reason string // Human-readable explanation
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError reports that a freshly generated access code collided
// with an existing one even after retrying. At the scale this system is
// designed for this indicates a broken randomness source.
type ConflictError struct {
	Resource string // What kind of value collided
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("could not allocate a unique %s", e.Resource)
}
