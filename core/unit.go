package core

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/najoast/unitrt/config"
)

// Unit is an addressable actor with a typed mailbox. It is created with NewUnit,
// handed to Context.AddUnits and from then on reached only through a Reference.
// Its lifecycle state is driven by the owning Context.
type Unit struct {
	id      string
	msgType reflect.Type
	policy  Policy
	handler any

	accepts func(msg any) bool
	deliver func(ctx context.Context, msg any) error

	state stateCell

	settingsMu sync.RWMutex
	settings   config.Section

	// submitMu guards submissions for ThreadingCritical units
	submitMu sync.Mutex

	delivered atomic.Uint64
	failed    atomic.Uint64
	discarded atomic.Uint64
}

type unitOptions struct {
	policy    *Policy
	traits    []Trait
	hasTraits bool
	settings  config.Section
}

// UnitOption configures NewUnit.
type UnitOption func(*unitOptions)

// WithPolicy sets the unit's policy explicitly.
func WithPolicy(p Policy) UnitOption {
	return func(o *unitOptions) {
		o.policy = &p
	}
}

// WithTraits derives the unit's policy from traits, see PolicyFromTraits.
func WithTraits(traits ...Trait) UnitOption {
	return func(o *unitOptions) {
		o.traits = append(o.traits, traits...)
		o.hasTraits = true
	}
}

// WithSettings attaches a configuration without running the initialization hook.
func WithSettings(settings config.Section) UnitOption {
	return func(o *unitOptions) {
		o.settings = settings
	}
}

// NewUnit creates a unit whose mailbox accepts messages of type T.
//
// The policy is resolved once, in order of precedence: WithPolicy, WithTraits,
// the handler's PolicyProvider traits, and finally system/normal. The id is not
// checked for uniqueness.
func NewUnit[T any](id string, handler Handler[T], opts ...UnitOption) *Unit {
	o := unitOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	var policy Policy
	switch {
	case o.policy != nil:
		policy = *o.policy
	case o.hasTraits:
		policy = PolicyFromTraits(o.traits...)
	default:
		if pp, ok := handler.(PolicyProvider); ok {
			policy = PolicyFromTraits(pp.Traits()...)
		} else {
			policy = PolicyFromTraits()
		}
	}

	u := &Unit{
		id:      id,
		msgType: reflect.TypeOf((*T)(nil)).Elem(),
		policy:  policy,
		handler: handler,
		accepts: func(msg any) bool {
			_, ok := msg.(T)
			return ok
		},
		deliver: func(ctx context.Context, msg any) error {
			return handler.OnMessage(ctx, msg.(T))
		},
		settings: o.settings,
	}
	u.state.store(StateUninitialized)
	return u
}

// ID returns the caller supplied identity of the unit.
func (u *Unit) ID() string {
	return u.id
}

// State returns the unit's current lifecycle state.
func (u *Unit) State() LifecycleState {
	return u.state.load()
}

// Configuration returns the settings the unit was initialized with.
func (u *Unit) Configuration() config.Section {
	u.settingsMu.RLock()
	defer u.settingsMu.RUnlock()
	return u.settings
}

// MessageType returns the static type of messages the unit accepts.
func (u *Unit) MessageType() reflect.Type {
	return u.msgType
}

// Policy returns the unit's delivery and threading policy.
func (u *Unit) Policy() Policy {
	return u.policy
}

// KnownAttributes returns the descriptors the unit publishes.
func (u *Unit) KnownAttributes() []AttributeDescriptor {
	if src, ok := u.handler.(AttributeSource); ok {
		return src.KnownAttributes()
	}
	return nil
}

// Initialize passes settings to the handler's Initializer hook and moves the
// unit to INITIALIZED. It must be called before the unit is registered.
func (u *Unit) Initialize(settings config.Section) error {
	if st := u.State(); st != StateUninitialized {
		return fmt.Errorf("%w: unit %s is %s", ErrInvalidState, u.id, st)
	}
	if settings == nil {
		settings = config.Section{}
	}

	u.settingsMu.Lock()
	u.settings = settings
	u.settingsMu.Unlock()

	if init, ok := u.handler.(Initializer); ok {
		if err := init.OnInitialize(settings); err != nil {
			return &LifecycleError{Op: "initialize", Unit: u.id, Err: err}
		}
	}
	u.state.store(StateInitialized)
	return nil
}

// String returns a diagnostic representation of the unit.
func (u *Unit) String() string {
	return fmt.Sprintf("unit(%s, %s, %s)", u.id, u.msgType, u.policy)
}

// Stats returns current runtime statistics for this unit.
func (u *Unit) Stats() UnitStats {
	return UnitStats{
		ID:        u.id,
		State:     u.State(),
		Policy:    u.policy,
		Delivered: u.delivered.Load(),
		Failed:    u.failed.Load(),
		Discarded: u.discarded.Load(),
	}
}

func (u *Unit) setState(s LifecycleState) {
	u.state.store(s)
}

func (u *Unit) start(ctx context.Context) error {
	if s, ok := u.handler.(Starter); ok {
		return s.OnStart(ctx)
	}
	return nil
}

func (u *Unit) stop(ctx context.Context) error {
	if s, ok := u.handler.(Stopper); ok {
		return s.OnStop(ctx)
	}
	return nil
}

func (u *Unit) shutdown(ctx context.Context) error {
	if s, ok := u.handler.(Shutdowner); ok {
		return s.OnShutdown(ctx)
	}
	return nil
}

// getAttribute resolves d; values not matching the descriptor type count as no value.
func (u *Unit) getAttribute(d AttributeDescriptor) (any, bool) {
	src, ok := u.handler.(AttributeSource)
	if !ok {
		return nil, false
	}
	v, ok := src.OnGetAttribute(d)
	if !ok || !d.Accepts(v) {
		return nil, false
	}
	return v, true
}

func (u *Unit) getAttributes() map[AttributeDescriptor]any {
	result := make(map[AttributeDescriptor]any)
	for _, d := range u.KnownAttributes() {
		if v, ok := u.getAttribute(d); ok {
			result[d] = v
		}
	}
	return result
}
