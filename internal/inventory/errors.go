package inventory

import (
	"fmt"

	"github.com/innkeep-pms/innkeep/internal/shared"
)

func errValidation(format string, args ...any) error {
	return fmt.Errorf("inventory: %s: %w", fmt.Sprintf(format, args...), shared.ErrValidation)
}

func errNotFound(format string, args ...any) error {
	return fmt.Errorf("inventory: %s: %w", fmt.Sprintf(format, args...), shared.ErrNotFound)
}

func errInsufficient(format string, args ...any) error {
	return fmt.Errorf("inventory: %s: %w", fmt.Sprintf(format, args...), shared.ErrInsufficientStock)
}

func errInvalidState(format string, args ...any) error {
	return fmt.Errorf("inventory: %s: %w", fmt.Sprintf(format, args...), shared.ErrInvalidState)
}

func errConstraint(format string, args ...any) error {
	return fmt.Errorf("inventory: %s: %w", fmt.Sprintf(format, args...), shared.ErrConstraint)
}
