package config

import (
	"errors"
	"fmt"
)

// Error codes for user-facing failures.
const (
	ErrCodeConfigNotFound     = "CONFIG_NOT_FOUND"
	ErrCodeConfigParse        = "CONFIG_PARSE"
	ErrCodeConfigInvalid      = "CONFIG_INVALID"
	ErrCodeServiceUnreachable = "SERVICE_UNREACHABLE"
	ErrCodeOrderNotFound      = "ORDER_NOT_FOUND"
)

// UserError is an error meant to be shown to the operator. It carries a
// stable code, optional context and a suggestion for fixing the problem.
type UserError struct {
	Code       string
	Message    string
	Context    string
	Suggestion string
	Underlying error
}

// Error implements the error interface.
func (e *UserError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Context)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *UserError) Unwrap() error {
	return e.Underlying
}

// Is matches UserErrors with the same code.
func (e *UserError) Is(target error) bool {
	var ue *UserError
	if errors.As(target, &ue) {
		return e.Code == ue.Code
	}
	return false
}

// Format renders the error for terminal display, including the
// suggestion when present.
func (e *UserError) Format() string {
	out := fmt.Sprintf("Error: %s", e.Message)
	if e.Context != "" {
		out += fmt.Sprintf("\n  Context: %s", e.Context)
	}
	if e.Suggestion != "" {
		out += fmt.Sprintf("\n  Suggestion: %s", e.Suggestion)
	}
	return out
}
