package matching

import (
	"errors"
	"fmt"
)

// Business rejections. None of them changes the books.
var (
	ErrTradingNotAllowed = errors.New("trading not allowed")
	ErrInvalidCommand    = errors.New("invalid command")
	ErrEntryNotFound     = errors.New("entry not found")
)

// TradingNotAllowedError represents a gate denial with details
type TradingNotAllowedError struct {
	Status TradingStatus
	Kind   CommandKind
}

func (e *TradingNotAllowedError) Error() string {
	return fmt.Sprintf("trading not allowed: %s denied while %s", e.Kind, e.Status)
}

func (e *TradingNotAllowedError) Is(target error) bool {
	return target == ErrTradingNotAllowed
}

// InvalidCommandError represents a structurally malformed command
type InvalidCommandError struct {
	Field  string
	Reason string
}

func (e *InvalidCommandError) Error() string {
	return fmt.Sprintf("invalid command: %s %s", e.Field, e.Reason)
}

func (e *InvalidCommandError) Is(target error) bool {
	return target == ErrInvalidCommand
}

func invalid(field, reason string) error {
	return &InvalidCommandError{Field: field, Reason: reason}
}
