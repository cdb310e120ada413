package procurement

import (
	"fmt"

	"github.com/innkeep-pms/innkeep/internal/shared"
)

func errValidation(format string, args ...any) error {
	return fmt.Errorf("procurement: "+format+": %w", append(args, shared.ErrValidation)...)
}

func errNotFound(format string, args ...any) error {
	return fmt.Errorf("procurement: "+format+": %w", append(args, shared.ErrNotFound)...)
}

func errInvalidState(format string, args ...any) error {
	return fmt.Errorf("procurement: "+format+": %w", append(args, shared.ErrInvalidState)...)
}

func errConstraint(format string, args ...any) error {
	return fmt.Errorf("procurement: "+format+": %w", append(args, shared.ErrConstraint)...)
}
