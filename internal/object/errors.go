package object

import (
	"errors"
	"fmt"
)

// Sentinel errors for object operations.
var (
	// ErrNotCallable is returned when calling an object without the callable
	// capability.
	ErrNotCallable = errors.New("object is not callable")

	// ErrInvalidJSON is returned when JSON input does not parse.
	ErrInvalidJSON = errors.New("invalid JSON")

	// ErrCycle is returned when serializing an object graph that refers back
	// to itself.
	ErrCycle = errors.New("object graph contains a cycle")
)

// InvariantError reports a proxy read that broke the object model's read
// invariant for non-configurable properties.
type InvariantError struct {
	// Key is the property that was read.
	Key Key

	// Want is the value the property must read as.
	Want Value

	// Got is the value the trap produced.
	Got Value
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("proxy invariant violated reading %q: got %s, want %s",
		e.Key, Describe(e.Got), Describe(e.Want))
}
