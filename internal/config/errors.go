package config

import (
	"errors"
	"fmt"
)

// Errors returned by settings operations.
var (
	// ErrInvalidSettings indicates a value failed validation.
	ErrInvalidSettings = errors.New("invalid settings")

	// ErrTypeMismatch indicates a source value has the wrong type.
	ErrTypeMismatch = errors.New("type mismatch")
)

// FieldError reports an invalid settings field.
type FieldError struct {
	// Path is the dot-separated settings path, e.g. "report.mode".
	Path string
	// Value is the rejected value.
	Value any
	// Err is the underlying error.
	Err error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s = %v: %v", e.Path, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
