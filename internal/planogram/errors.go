package planogram

import "fmt"

// ValidationError reports malformed input. The operation that returned it
// did not change any state.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SlotOccupiedError is returned when an add or move targets a slot that
// already holds a different product.
type SlotOccupiedError struct {
	X          float64
	Y          float64
	OccupantID string
}

func (e *SlotOccupiedError) Error() string {
	return fmt.Sprintf("slot (%g,%g) is already occupied by product %s", e.X, e.Y, e.OccupantID)
}

// NotFoundError reports an unknown planogram or product id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
