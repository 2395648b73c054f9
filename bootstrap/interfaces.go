// Package bootstrap assembles a runtime Context from configuration and manages
// it, together with auxiliary services, as one application.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/najoast/unitrt/config"
	"github.com/najoast/unitrt/core"
)

// Service represents a service that can be managed by the lifecycle manager
type Service interface {
	// Start starts the service
	Start(ctx context.Context) error

	// Stop stops the service
	Stop(ctx context.Context) error

	// Health returns the health status of the service
	Health(ctx context.Context) (HealthStatus, error)

	// Name returns the service name
	Name() string
}

// HealthStatus represents the health status of a service
type HealthStatus struct {
	State     HealthState            `json:"state"`
	Message   string                 `json:"message,omitempty"`
	LastCheck time.Time              `json:"last_check,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// HealthState represents the health state of a service
type HealthState string

const (
	HealthUnknown   HealthState = "unknown"
	HealthStarting  HealthState = "starting"
	HealthHealthy   HealthState = "healthy"
	HealthUnhealthy HealthState = "unhealthy"
	HealthStopping  HealthState = "stopping"
	HealthStopped   HealthState = "stopped"
)

// Container holds the named instances an application shares with its services
type Container interface {
	// Register registers a lazily created instance
	Register(name string, factory ServiceFactory) error

	// RegisterInstance registers an existing instance
	RegisterInstance(name string, instance interface{}) error

	// Resolve returns the instance registered under name, creating it if needed
	Resolve(name string) (interface{}, error)

	// Has checks if a name is registered
	Has(name string) bool

	// Names returns all registered names, sorted
	Names() []string
}

// ServiceFactory creates a container instance
type ServiceFactory func(container Container) (interface{}, error)

// LifecycleManager starts and stops services in dependency order
type LifecycleManager interface {
	// Register registers a service with optional dependencies
	Register(name string, service Service, deps ...string) error

	// Start starts all services in dependency order
	Start(ctx context.Context) error

	// Stop stops all started services in reverse order
	Stop(ctx context.Context) error

	// Health returns the health status of all services
	Health(ctx context.Context) (map[string]HealthStatus, error)

	// Services returns all registered service names
	Services() []string

	// AddListener adds a lifecycle event listener
	AddListener(listener func(LifecycleEvent))
}

// UnitFactory builds an uninitialized unit of one kind for the runtime rt.
type UnitFactory func(id string, rt *core.Context) (*core.Unit, error)

// Application runs one runtime Context built from a configuration
type Application interface {
	// RegisterKind makes a unit kind available to Configure
	RegisterKind(kind string, factory UnitFactory) error

	// Configure builds the runtime and its units from cfg
	Configure(cfg *config.Config) error

	// Run starts the application and blocks until ctx is done or a signal arrives
	Run(ctx context.Context) error

	// Shutdown shuts down the application gracefully
	Shutdown(ctx context.Context) error

	// Runtime returns the configured runtime, nil before Configure
	Runtime() *core.Context

	// Container returns the shared instance container
	Container() Container

	// LifecycleManager returns the lifecycle manager
	LifecycleManager() LifecycleManager
}

// Service lifecycle event types
const (
	EventServiceRegistered  = "service.registered"
	EventServiceStarting    = "service.starting"
	EventServiceStarted     = "service.started"
	EventServiceStartFailed = "service.start_failed"
	EventServiceStopping    = "service.stopping"
	EventServiceStopped     = "service.stopped"
	EventServiceStopFailed  = "service.stop_failed"
	EventLifecycleStarted   = "lifecycle.started"
	EventLifecycleStopped   = "lifecycle.stopped"
)

// LifecycleEvent represents an event in the service lifecycle
type LifecycleEvent struct {
	Type      string                 `json:"type"`
	Service   string                 `json:"service,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Error     error                  `json:"error,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// ApplicationError represents an error that occurred during application lifecycle
type ApplicationError struct {
	Operation string
	Service   string
	Err       error
}

func (e *ApplicationError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Operation, e.Service, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
}

func (e *ApplicationError) Unwrap() error {
	return e.Err
}
