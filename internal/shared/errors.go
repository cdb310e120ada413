package shared

import "errors"

// Domain error taxonomy. Services return these (wrapped with context via
// fmt.Errorf and %w); handlers map them onto HTTP problem responses.
var (
	// ErrValidation indicates a missing or malformed input field.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock indicates a decrease larger than the available quantity.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidState indicates an operation not permitted in the current lifecycle state.
	ErrInvalidState = errors.New("invalid state")
	// ErrConstraint indicates a unique-key or referential conflict.
	ErrConstraint = errors.New("constraint violation")
)
