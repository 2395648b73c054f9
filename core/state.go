package core

import "sync/atomic"

// LifecycleState is shared by the Context and every unit it hosts.
type LifecycleState int32

const (
	StateUninitialized LifecycleState = iota
	StateInitialized
	StateStarting
	StateStarted
	StateStopping
	StateStopped
	StateShuttingDown
	StateShutdown
)

// String returns the string representation of LifecycleState.
func (s LifecycleState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateStarting:
		return "starting"
	case StateStarted:
		return "started"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateShuttingDown:
		return "shutting_down"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// AcceptsMessages reports whether a unit in this state has messages delivered to it.
// STOPPING and STOPPED units still accept messages.
func (s LifecycleState) AcceptsMessages() bool {
	switch s {
	case StateStarted, StateStopped, StateStopping:
		return true
	default:
		return false
	}
}

// stateCell is an atomic LifecycleState.
type stateCell struct {
	v atomic.Int32
}

func (c *stateCell) load() LifecycleState {
	return LifecycleState(c.v.Load())
}

func (c *stateCell) store(s LifecycleState) {
	c.v.Store(int32(s))
}

func (c *stateCell) cas(expected, next LifecycleState) bool {
	return c.v.CompareAndSwap(int32(expected), int32(next))
}

// MarshalText encodes the state by name.
func (s LifecycleState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
