package pulse

import (
	"errors"
	"fmt"
)

// TimingConstraintError reports timing parameters that cannot be compiled
// into a valid instruction stream. It is returned before any hardware is
// touched; values are never rounded or clamped to make them fit.
type TimingConstraintError struct {
	Family string // "duty-cycle" or "block"
	Field  string
	Reason string
}

func (e *TimingConstraintError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("pulse: %s timing: %s", e.Family, e.Reason)
	}
	return fmt.Sprintf("pulse: %s timing: %s: %s", e.Family, e.Field, e.Reason)
}

// IsTimingConstraint reports whether err is or wraps a TimingConstraintError.
func IsTimingConstraint(err error) bool {
	var tce *TimingConstraintError
	return errors.As(err, &tce)
}

func constraintf(family, field, format string, args ...any) error {
	return &TimingConstraintError{
		Family: family,
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}
