package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/najoast/unitrt/logging"
)

const (
	laneSystem   = "system"
	laneWork     = "work"
	laneBlocking = "blocking"
)

// Context is the runtime: it owns the unit registry, the three lanes, the
// lifecycle state and the reference cache.
//
// Units are registered while the Context is UNINITIALIZED and are read-only
// afterwards. State transitions are attempted with compare-and-set; Start and
// Stop then force their end state.
type Context struct {
	id     string
	logger logging.Logger
	state  stateCell

	mu    sync.RWMutex
	units map[string]*Unit

	refMu sync.Mutex
	refs  map[*Unit]*Reference

	system   *Lane
	work     *Lane
	blocking *Lane

	shutdownTimeout time.Duration
	shutdownMu      sync.Mutex

	watchMu  sync.RWMutex
	watchID  uint64
	watchers map[uint64]chan Event

	// base is handed to message handlers and hooks; cancelled at SHUTDOWN
	base       context.Context
	cancelBase context.CancelFunc
}

// NewContext creates a Context and starts its lanes.
func NewContext(opts Options) *Context {
	opts = opts.withDefaults()

	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	logger := opts.Logger.With("context", id)
	base, cancel := context.WithCancel(context.Background())

	c := &Context{
		id:              id,
		logger:          logger,
		units:           make(map[string]*Unit),
		refs:            make(map[*Unit]*Reference),
		watchers:        make(map[uint64]chan Event),
		system:          NewLane(id, laneSystem, opts.SystemPoolSize, logger),
		work:            NewLane(id, laneWork, opts.WorkPoolSize, logger),
		blocking:        NewLane(id, laneBlocking, opts.BlockingPoolSize, logger),
		shutdownTimeout: opts.ShutdownTimeout,
		base:            base,
		cancelBase:      cancel,
	}
	c.state.store(StateUninitialized)

	logger.Debug("context created",
		"system_pool_size", opts.SystemPoolSize,
		"work_pool_size", opts.WorkPoolSize,
		"blocking_pool_size", opts.BlockingPoolSize)
	return c
}

// ID returns the Context id.
func (c *Context) ID() string {
	return c.id
}

// State returns the Context's lifecycle state.
func (c *Context) State() LifecycleState {
	return c.state.load()
}

// Logger returns the logger carrying the Context id.
func (c *Context) Logger() logging.Logger {
	return c.logger
}

// Scheduler returns the system lane for scheduling lightweight tasks.
func (c *Context) Scheduler() Scheduler {
	return c.system
}

// AddUnits registers units. It fails with ErrRegistrationClosed once the Context
// has left UNINITIALIZED, leaving the registry unchanged. A unit registered under
// an id already in use replaces the earlier one.
func (c *Context) AddUnits(units ...*Unit) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if st := c.state.load(); st != StateUninitialized {
		return fmt.Errorf("%w: context %s is %s", ErrRegistrationClosed, c.id, st)
	}

	for _, u := range units {
		if u == nil {
			continue
		}
		if old, exists := c.units[u.id]; exists && old != u {
			c.invalidateReference(old)
			c.logger.Debug("unit replaced", "unit", u.id)
			c.notify(Event{Type: EventUnitReplaced, Unit: u.id, State: u.State()})
		} else {
			c.notify(Event{Type: EventUnitRegistered, Unit: u.id, State: u.State()})
		}
		c.units[u.id] = u
	}
	return nil
}

// Initialize closes registration by moving the Context to INITIALIZED.
func (c *Context) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.transition(StateUninitialized, StateInitialized) {
		return fmt.Errorf("%w: context %s is %s", ErrInvalidState, c.id, c.state.load())
	}
	return nil
}

// Start starts every unit and moves the Context to STARTED.
//
// Units are started only when the Context is STOPPED, INITIALIZED or
// UNINITIALIZED; each goes STARTING, runs its start hook, then STARTED. The
// Context state is set to STARTED afterwards even when no transition matched.
// A failing hook aborts the rollout and is returned as a *LifecycleError.
func (c *Context) Start(ctx context.Context) error {
	if c.transition(StateStopped, StateStarting) ||
		c.transition(StateInitialized, StateStarting) ||
		c.transition(StateUninitialized, StateStarting) {
		for _, u := range c.sortedUnits() {
			c.setUnitState(u, StateStarting)
			if err := u.start(ctx); err != nil {
				c.logger.Error("unit failed to start", "unit", u.id, "error", err)
				return &LifecycleError{Op: "start", Unit: u.id, Err: err}
			}
			c.setUnitState(u, StateStarted)
		}
	}
	c.setState(StateStarted)
	c.logger.Info("context started")
	return nil
}

// Stop runs every unit's stop hook sequentially when the Context is STARTED,
// then sets the Context to STOPPED regardless. A failing hook aborts the
// rollout and is returned as a *LifecycleError.
func (c *Context) Stop(ctx context.Context) error {
	if c.transition(StateStarted, StateStopping) {
		for _, u := range c.sortedUnits() {
			c.setUnitState(u, StateStopping)
			if err := u.stop(ctx); err != nil {
				c.logger.Error("unit failed to stop", "unit", u.id, "error", err)
				return &LifecycleError{Op: "stop", Unit: u.id, Err: err}
			}
			c.setUnitState(u, StateStopped)
		}
	}
	c.setState(StateStopped)
	c.logger.Info("context stopped")
	return nil
}

// Shutdown stops the Context and releases its lanes.
//
// The work and blocking lanes stop accepting tasks at once; messages already
// queued there may or may not run and nothing waits for them. Unit shutdown
// hooks run concurrently on the system lane, which is then drained for at most
// the shutdown timeout (or until ctx is done). The Context always ends in
// SHUTDOWN; a drain timeout is logged and returned wrapping ErrShutdownTimeout.
// Calling Shutdown again is a no-op.
func (c *Context) Shutdown(ctx context.Context) error {
	c.shutdownMu.Lock()
	defer c.shutdownMu.Unlock()

	if c.state.load() == StateShutdown {
		return nil
	}

	if err := c.Stop(ctx); err != nil {
		c.logger.Error("stop failed during shutdown", "error", err)
	}

	c.setState(StateShuttingDown)
	units := c.sortedUnits()
	for _, u := range units {
		c.setUnitState(u, StateShuttingDown)
	}

	c.work.Shutdown()
	c.blocking.Shutdown()

	for _, u := range units {
		unit := u
		if err := c.system.Submit(func() { c.shutdownUnit(unit) }); err != nil {
			c.logger.Error("failed to schedule unit shutdown", "unit", unit.id, "error", err)
		}
	}

	c.system.Shutdown()

	var result error
	waitCtx, cancel := context.WithTimeout(ctx, c.shutdownTimeout)
	if err := c.system.AwaitTermination(waitCtx); err != nil {
		result = fmt.Errorf("%w: %v", ErrShutdownTimeout, err)
		c.logger.Error("system lane was interrupted when shutting down", "error", err)
	}
	cancel()

	c.setState(StateShutdown)
	c.cancelBase()
	c.logger.Info("context shut down")
	return result
}

func (c *Context) shutdownUnit(u *Unit) {
	defer c.setUnitState(u, StateShutdown)
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("unit panicked during shutdown", "unit", u.id, "panic", r)
		}
	}()

	if err := u.shutdown(c.base); err != nil {
		c.logger.Error("unit failed to shut down", "unit", u.id, "error", err)
	}
}

// Reference returns the canonical Reference of the unit registered under id.
func (c *Context) Reference(id string) (*Reference, bool) {
	c.mu.RLock()
	u, ok := c.units[id]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return c.referenceFor(u), true
}

// Lookup is Reference with ErrUnitNotFound for unknown ids.
func (c *Context) Lookup(id string) (*Reference, error) {
	ref, ok := c.Reference(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnitNotFound, id)
	}
	return ref, nil
}

// Units returns the references of all registered units, ordered by id.
func (c *Context) Units() []*Reference {
	units := c.sortedUnits()
	refs := make([]*Reference, 0, len(units))
	for _, u := range units {
		refs = append(refs, c.referenceFor(u))
	}
	return refs
}

// Stats returns a snapshot of lanes and units.
func (c *Context) Stats() Stats {
	units := c.sortedUnits()
	stats := Stats{
		ID:    c.id,
		State: c.State(),
		Lanes: []LaneStats{c.system.Stats(), c.work.Stats(), c.blocking.Stats()},
		Units: make([]UnitStats, 0, len(units)),
	}
	for _, u := range units {
		stats.Units = append(stats.Units, u.Stats())
	}
	return stats
}

func (c *Context) referenceFor(u *Unit) *Reference {
	c.refMu.Lock()
	defer c.refMu.Unlock()

	if ref, ok := c.refs[u]; ok {
		return ref
	}
	ref := newReference(c, u)
	c.refs[u] = ref
	return ref
}

func (c *Context) invalidateReference(u *Unit) {
	c.refMu.Lock()
	delete(c.refs, u)
	c.refMu.Unlock()
}

func (c *Context) laneFor(p DeliveryPolicy) *Lane {
	switch p {
	case DeliveryWork:
		return c.work
	case DeliveryBlocking:
		return c.blocking
	default:
		return c.system
	}
}

// sortedUnits returns the registered units in a stable order.
func (c *Context) sortedUnits() []*Unit {
	c.mu.RLock()
	defer c.mu.RUnlock()

	units := make([]*Unit, 0, len(c.units))
	for _, u := range c.units {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].id < units[j].id })
	return units
}
