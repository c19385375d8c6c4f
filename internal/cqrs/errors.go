package cqrs

import (
	"errors"
	"fmt"
)

// ErrInvariantViolation marks a defect in event application. It is never a
// business outcome and nothing is committed when it occurs.
var ErrInvariantViolation = errors.New("invariant violation")

// Violation builds an error wrapping ErrInvariantViolation.
func Violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}

// IsInvariantViolation reports whether err is or wraps ErrInvariantViolation.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}
