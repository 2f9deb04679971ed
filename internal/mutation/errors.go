package mutation

import (
	"fmt"
)

// HandlerPanicError wraps a panic raised by a mutation handler.
type HandlerPanicError struct {
	// Record is the record being delivered when the handler panicked.
	Record Record

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *HandlerPanicError) Error() string {
	return fmt.Sprintf("mutation handler panicked on %s: %v", e.Record.Kind, e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *HandlerPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
