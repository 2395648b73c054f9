package core

import (
	"errors"
	"fmt"
)

var (
	// ErrRegistrationClosed is returned by AddUnits once the Context has left UNINITIALIZED.
	ErrRegistrationClosed = errors.New("unit registration closed")

	// ErrInvalidState is returned when an operation is not legal in the current state.
	ErrInvalidState = errors.New("invalid lifecycle state")

	// ErrLaneClosed is returned when submitting to a lane that was shut down.
	ErrLaneClosed = errors.New("lane is shut down")

	// ErrShutdownTimeout is returned when the system lane did not drain in time.
	ErrShutdownTimeout = errors.New("system lane did not terminate in time")

	// ErrUnitNotFound reports an id with no registered unit.
	ErrUnitNotFound = errors.New("unit not found")
)

// LifecycleError is returned when a unit's start or stop hook fails.
type LifecycleError struct {
	Op   string
	Unit string
	Err  error
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("%s failed for unit %s: %v", e.Op, e.Unit, e.Err)
}

func (e *LifecycleError) Unwrap() error {
	return e.Err
}
