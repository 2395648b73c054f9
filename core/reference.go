package core

import (
	"context"
	"fmt"
	"reflect"

	"github.com/najoast/unitrt/config"
)

// Reference is the only handle through which code outside the Context reaches a
// unit. There is exactly one Reference per registered unit; it is safe for
// concurrent use.
type Reference struct {
	rt     *Context
	unit   *Unit
	policy Policy
	lane   *Lane
}

func newReference(rt *Context, unit *Unit) *Reference {
	policy := unit.Policy()
	return &Reference{
		rt:     rt,
		unit:   unit,
		policy: policy,
		lane:   rt.laneFor(policy.Delivery),
	}
}

// ID returns the unit id.
func (r *Reference) ID() string {
	return r.unit.ID()
}

// State returns the unit's current lifecycle state.
func (r *Reference) State() LifecycleState {
	return r.unit.State()
}

// Configuration returns the unit's settings.
func (r *Reference) Configuration() config.Section {
	return r.unit.Configuration()
}

// MessageType returns the type of messages the unit accepts.
func (r *Reference) MessageType() reflect.Type {
	return r.unit.MessageType()
}

// Policy returns the policy cached when the reference was created.
func (r *Reference) Policy() Policy {
	return r.policy
}

// KnownAttributes returns the descriptors the unit publishes.
func (r *Reference) KnownAttributes() []AttributeDescriptor {
	return r.unit.KnownAttributes()
}

// Send enqueues msg for asynchronous delivery and never blocks on delivery.
//
// The message is accepted only while the unit is STARTED, STOPPING or STOPPED
// and only if it is of the unit's message type; otherwise it is discarded
// without error. The return value reports whether the message was accepted
// onto a lane. For ThreadingCritical units the submission happens under a
// per-unit lock that is released before the message executes.
func (r *Reference) Send(msg any) bool {
	state := r.unit.State()
	if !state.AcceptsMessages() {
		r.unit.discarded.Add(1)
		r.rt.logger.Debug("message discarded", "unit", r.unit.id, "state", state)
		return false
	}
	if !r.unit.accepts(msg) {
		r.unit.discarded.Add(1)
		r.rt.logger.Warn("message of wrong type discarded",
			"unit", r.unit.id, "expected", r.unit.msgType, "got", fmt.Sprintf("%T", msg))
		return false
	}

	if r.policy.Threading == ThreadingCritical {
		r.unit.submitMu.Lock()
		defer r.unit.submitMu.Unlock()
	}
	return r.deliverOnLane(msg)
}

func (r *Reference) deliverOnLane(msg any) bool {
	m := &messenger{ctx: r.rt.base, unit: r.unit, msg: msg, logger: r.rt.logger}
	if err := r.lane.Submit(m.run); err != nil {
		r.unit.discarded.Add(1)
		r.rt.logger.Debug("message discarded", "unit", r.unit.id, "error", err)
		return false
	}
	return true
}

// Query resolves one attribute on the system lane, whatever the unit's own
// delivery policy. An unknown descriptor resolves to no value.
func (r *Reference) Query(d AttributeDescriptor) *Future[any] {
	f := newFuture[any]()
	err := r.rt.system.Submit(func() {
		defer func() {
			if p := recover(); p != nil {
				f.complete(nil, false, fmt.Errorf("attribute %s of unit %s: panic: %v", d, r.unit.id, p))
			}
		}()
		v, ok := r.unit.getAttribute(d)
		f.complete(v, ok, nil)
	})
	if err != nil {
		f.complete(nil, false, err)
	}
	return f
}

// QueryAll resolves every known attribute that has a value.
func (r *Reference) QueryAll() *Future[map[AttributeDescriptor]any] {
	f := newFuture[map[AttributeDescriptor]any]()
	err := r.rt.system.Submit(func() {
		defer func() {
			if p := recover(); p != nil {
				f.complete(nil, false, fmt.Errorf("attributes of unit %s: panic: %v", r.unit.id, p))
			}
		}()
		f.complete(r.unit.getAttributes(), true, nil)
	})
	if err != nil {
		f.complete(nil, false, err)
	}
	return f
}

// QueryAs queries d and waits for a value of type T.
func QueryAs[T any](ctx context.Context, ref *Reference, d AttributeDescriptor) (T, bool, error) {
	var zero T
	v, ok, err := ref.Query(d).Get(ctx)
	if err != nil || !ok {
		return zero, false, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false, nil
	}
	return typed, true, nil
}
