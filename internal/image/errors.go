package image

import (
	"fmt"

	"go.uber.org/multierr"
)

// NoImageError is returned when every strategy failed for an entity.
// Labels feed the presentation layer's fallback glyph lookup.
type NoImageError struct {
	EntityID string
	Labels   []string // Union of instance-of, subclass-of and part-of values, then the entity label
	Attempts error    // Combined strategy failures
}

func (e *NoImageError) Error() string {
	return fmt.Sprintf("no image for %s (%d attempts)", e.EntityID, len(multierr.Errors(e.Attempts)))
}

// Unwrap exposes the individual strategy failures to errors.Is and errors.As
func (e *NoImageError) Unwrap() []error {
	return multierr.Errors(e.Attempts)
}
