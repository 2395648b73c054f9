package core

import (
	"context"
	"time"
)

// EventType identifies what changed in a Context.
type EventType uint8

const (
	// EventContextState reports a Context lifecycle transition
	EventContextState EventType = iota

	// EventUnitState reports a unit lifecycle transition
	EventUnitState

	// EventUnitRegistered reports a unit added to the registry
	EventUnitRegistered

	// EventUnitReplaced reports a unit registered under an id already in use
	EventUnitReplaced
)

// String returns the string representation of EventType.
func (t EventType) String() string {
	switch t {
	case EventContextState:
		return "context_state"
	case EventUnitState:
		return "unit_state"
	case EventUnitRegistered:
		return "unit_registered"
	case EventUnitReplaced:
		return "unit_replaced"
	default:
		return "unknown"
	}
}

// Event is a change observed through Context.Watch.
type Event struct {
	Type EventType

	// Unit is empty for EventContextState
	Unit string

	State     LifecycleState
	Timestamp time.Time
}

const watchBuffer = 100

// Watch returns a channel of lifecycle events. The channel is closed when ctx
// is done or the Context reaches SHUTDOWN. Events are dropped for watchers
// that fall behind.
func (c *Context) Watch(ctx context.Context) <-chan Event {
	c.watchMu.Lock()
	c.watchID++
	id := c.watchID
	ch := make(chan Event, watchBuffer)
	c.watchers[id] = ch
	c.watchMu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-c.base.Done():
		}
		c.watchMu.Lock()
		if w, ok := c.watchers[id]; ok {
			delete(c.watchers, id)
			close(w)
		}
		c.watchMu.Unlock()
	}()

	return ch
}

func (c *Context) notify(ev Event) {
	ev.Timestamp = time.Now()

	c.watchMu.RLock()
	defer c.watchMu.RUnlock()
	for _, w := range c.watchers {
		select {
		case w <- ev:
		default:
		}
	}
}

func (c *Context) transition(from, to LifecycleState) bool {
	if !c.state.cas(from, to) {
		return false
	}
	c.notify(Event{Type: EventContextState, State: to})
	return true
}

func (c *Context) setState(s LifecycleState) {
	c.state.store(s)
	c.notify(Event{Type: EventContextState, State: s})
}

func (c *Context) setUnitState(u *Unit, s LifecycleState) {
	u.setState(s)
	c.notify(Event{Type: EventUnitState, Unit: u.id, State: s})
}
