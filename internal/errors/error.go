package errors

import (
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryBinding  Category = "binding"
	CategoryStore    Category = "store"
	CategorySnapshot Category = "snapshot"
	CategoryServer   Category = "server"
	CategoryConfig   Category = "config"
	CategoryCLI      Category = "cli"
)

// FocusError is a structured error with a registered code, a suggestion and documentation.
type FocusError struct {
	// Code is a unique error identifier (e.g., "F001").
	Code string

	// Category is the error type (binding, store, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *FocusError) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *FocusError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is a FocusError with the same code.
// Errors without a code only match themselves.
func (e *FocusError) Is(target error) bool {
	t, ok := target.(*FocusError)
	if !ok {
		return false
	}
	if e.Code == "" || t.Code == "" {
		return e == t
	}
	return e.Code == t.Code
}

// WithSuggestion adds a fix suggestion to the error.
func (e *FocusError) WithSuggestion(s string) *FocusError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *FocusError) WithDetail(d string) *FocusError {
	e.Detail = d
	return e
}

// WithDetailf adds a formatted detail to the error.
func (e *FocusError) WithDetailf(format string, args ...any) *FocusError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *FocusError) Wrap(err error) *FocusError {
	e.Wrapped = err
	return e
}

// New creates a FocusError from a registered error code.
func New(code string) *FocusError {
	template, ok := registry[code]
	if !ok {
		return &FocusError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &FocusError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new FocusError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *FocusError {
	return &FocusError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a FocusError.
func FromError(err error, code string) *FocusError {
	if err == nil {
		return nil
	}
	if fe, ok := err.(*FocusError); ok {
		return fe
	}
	return New(code).Wrap(err)
}

// Explain returns the long explanation registered for a code.
func Explain(code string) string {
	return registry[code].Detail
}
