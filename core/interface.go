package core

import (
	"context"
	"time"

	"github.com/najoast/unitrt/config"
)

// Handler is the typed mailbox of a unit. OnMessage is invoked by the runtime
// only, on the lane selected by the unit's DeliveryPolicy.
type Handler[T any] interface {
	// OnMessage processes a single message. A returned error or a panic is
	// logged by the runtime and never reaches the sender.
	OnMessage(ctx context.Context, msg T) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc[T any] func(ctx context.Context, msg T) error

// OnMessage calls f(ctx, msg).
func (f HandlerFunc[T]) OnMessage(ctx context.Context, msg T) error {
	return f(ctx, msg)
}

// Initializer receives the unit's configuration before registration.
type Initializer interface {
	OnInitialize(settings config.Section) error
}

// Starter is invoked while the Context starts. A failure aborts the start.
type Starter interface {
	OnStart(ctx context.Context) error
}

// Stopper is invoked while the Context stops. A failure aborts the stop.
type Stopper interface {
	OnStop(ctx context.Context) error
}

// Shutdowner is invoked on the system lane while the Context shuts down.
// Failures are logged.
type Shutdowner interface {
	OnShutdown(ctx context.Context) error
}

// AttributeSource publishes introspectable unit state.
type AttributeSource interface {
	// KnownAttributes lists the descriptors the unit can resolve.
	KnownAttributes() []AttributeDescriptor

	// OnGetAttribute resolves a descriptor; ok is false when there is no value.
	// It runs on the system lane, concurrently with message delivery.
	OnGetAttribute(d AttributeDescriptor) (value any, ok bool)
}

// Scheduler runs tasks on a lane, immediately or after a delay.
type Scheduler interface {
	// Execute enqueues task.
	Execute(task func()) error

	// Schedule enqueues task once after delay.
	Schedule(delay time.Duration, task func()) (*ScheduledTask, error)

	// ScheduleAtFixedRate enqueues task after initialDelay and then every period
	// until cancelled or the lane shuts down.
	ScheduleAtFixedRate(initialDelay, period time.Duration, task func()) (*ScheduledTask, error)
}
