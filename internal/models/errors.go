package models

import "fmt"

// ErrorType represents different categories of errors
type ErrorType int

const (
	ErrFetch ErrorType = iota
	ErrValidation
	ErrTemplate
	ErrRender
	ErrInvalidConfig
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrFetch:
		return "Fetch"
	case ErrValidation:
		return "Validation"
	case ErrTemplate:
		return "Template"
	case ErrRender:
		return "Render"
	case ErrInvalidConfig:
		return "InvalidConfig"
	default:
		return "Unknown"
	}
}

// IndexError represents an error during index generation
type IndexError struct {
	Type   ErrorType
	Source string
	Err    error
}

// Error implements the error interface
func (e *IndexError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Source, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Type, e.Err)
}

// Unwrap returns the wrapped error
func (e *IndexError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the error must abort the whole run. Per-source
// fetch and validation failures only exclude the affected entry.
func (e *IndexError) IsFatal() bool {
	switch e.Type {
	case ErrFetch, ErrValidation:
		return false
	default:
		return true
	}
}
