package script

import "errors"

// Errors for script operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when a run exceeds its deadline.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrOperationLimit is returned when a run performs more bridged object
	// operations than the sandbox allows.
	ErrOperationLimit = errors.New("lua operation limit exceeded")

	// ErrExecutorClosed is returned when attempting to use a closed executor.
	ErrExecutorClosed = errors.New("lua executor is closed")

	// ErrQueueFull is returned by ExecuteAsync when the queue has no room.
	ErrQueueFull = errors.New("lua executor queue full")
)
