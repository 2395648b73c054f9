package core

import (
	"time"

	"github.com/najoast/unitrt/config"
	"github.com/najoast/unitrt/logging"
)

const (
	DefaultSystemPoolSize   = 2
	DefaultWorkPoolSize     = 2
	DefaultBlockingPoolSize = 4
	DefaultShutdownTimeout  = 10 * time.Second
)

// Options contains configuration options for creating a Context.
type Options struct {
	// ID identifies the Context; a random UUID is used when empty.
	ID string

	// Worker counts of the three lanes. Non-positive values select the defaults.
	SystemPoolSize   int
	WorkPoolSize     int
	BlockingPoolSize int

	// ShutdownTimeout bounds the wait for the system lane to drain.
	ShutdownTimeout time.Duration

	// Logger receives runtime diagnostics. Nil discards them.
	Logger logging.Logger
}

// DefaultOptions returns the default lane sizes and timeout.
func DefaultOptions() Options {
	return Options{
		SystemPoolSize:   DefaultSystemPoolSize,
		WorkPoolSize:     DefaultWorkPoolSize,
		BlockingPoolSize: DefaultBlockingPoolSize,
		ShutdownTimeout:  DefaultShutdownTimeout,
	}
}

// OptionsFromConfig maps the runtime section of a configuration onto Options.
func OptionsFromConfig(cfg config.RuntimeConfig, logger logging.Logger) Options {
	return Options{
		ID:               cfg.ID,
		SystemPoolSize:   cfg.SystemPoolSize,
		WorkPoolSize:     cfg.WorkPoolSize,
		BlockingPoolSize: cfg.BlockingPoolSize,
		ShutdownTimeout:  cfg.ShutdownTimeout,
		Logger:           logger,
	}
}

func (o Options) withDefaults() Options {
	if o.SystemPoolSize <= 0 {
		o.SystemPoolSize = DefaultSystemPoolSize
	}
	if o.WorkPoolSize <= 0 {
		o.WorkPoolSize = DefaultWorkPoolSize
	}
	if o.BlockingPoolSize <= 0 {
		o.BlockingPoolSize = DefaultBlockingPoolSize
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = DefaultShutdownTimeout
	}
	if o.Logger == nil {
		o.Logger = logging.NewNopLogger()
	}
	return o
}

// LaneStats contains runtime statistics for a lane.
type LaneStats struct {
	Name     string
	Workers  int
	Queued   int
	Active   int
	Shutdown bool

	// Tasks accepted, finished, and refused after shutdown
	Submitted uint64
	Completed uint64
	Rejected  uint64

	// Tasks that panicked outside of a messenger
	Panicked uint64
}

// UnitStats contains runtime statistics for a unit.
type UnitStats struct {
	ID     string
	State  LifecycleState
	Policy Policy

	// Messages handled without error
	Delivered uint64

	// Messages whose handler returned an error or panicked
	Failed uint64

	// Messages refused by Send
	Discarded uint64
}

// Stats is a snapshot of a Context.
type Stats struct {
	ID    string
	State LifecycleState
	Lanes []LaneStats
	Units []UnitStats
}
