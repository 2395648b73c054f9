package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"sort"
	"sync"
	"syscall"

	"github.com/najoast/unitrt/config"
	"github.com/najoast/unitrt/core"
	"github.com/najoast/unitrt/logging"
)

// Names of the services every application registers
const (
	ServiceUnitContext   = "unit-context"
	ServiceConfigWatcher = "config-watcher"
)

var (
	errNotConfigured = errors.New("application is not configured")
	errShutDown      = errors.New("application runtime is shut down")
)

// DefaultApplication implements the Application interface
type DefaultApplication struct {
	cfg        *config.Config
	configFile string
	logger     logging.Logger

	container *DefaultContainer
	lifecycle *DefaultLifecycleManager

	kinds   map[string]UnitFactory
	runtime *core.Context
	watcher *config.Watcher

	mutex   sync.RWMutex
	running bool
	signals chan os.Signal
}

// Option configures NewApplication
type Option func(*DefaultApplication)

// WithLogger sets the application logger; it is handed to the runtime too
func WithLogger(logger logging.Logger) Option {
	return func(app *DefaultApplication) {
		app.logger = logger
	}
}

// WithConfigFile names the file the configuration was loaded from. It is
// watched for changes when app.watch is enabled.
func WithConfigFile(path string) Option {
	return func(app *DefaultApplication) {
		app.configFile = path
	}
}

// NewApplication creates an unconfigured application
func NewApplication(opts ...Option) *DefaultApplication {
	app := &DefaultApplication{
		logger:  logging.NewNopLogger(),
		kinds:   make(map[string]UnitFactory),
		signals: make(chan os.Signal, 1),
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.logger == nil {
		app.logger = logging.NewNopLogger()
	}
	app.container = NewContainer()
	app.lifecycle = NewLifecycleManager(app.logger)

	app.registerCoreServices()
	return app
}

// RegisterKind makes a unit kind available to Configure
func (app *DefaultApplication) RegisterKind(kind string, factory UnitFactory) error {
	if kind == "" {
		return fmt.Errorf("unit kind cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("unit factory cannot be nil")
	}

	app.mutex.Lock()
	defer app.mutex.Unlock()

	if _, exists := app.kinds[kind]; exists {
		return fmt.Errorf("unit kind %s is already registered", kind)
	}
	app.kinds[kind] = factory
	return nil
}

// Kinds returns the registered unit kinds, sorted
func (app *DefaultApplication) Kinds() []string {
	app.mutex.RLock()
	defer app.mutex.RUnlock()

	kinds := make([]string, 0, len(app.kinds))
	for kind := range app.kinds {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Configure validates cfg, builds the runtime Context, and creates, initializes
// and registers every declared unit before closing registration. It can be
// called once.
func (app *DefaultApplication) Configure(cfg *config.Config) error {
	if cfg == nil {
		return &ApplicationError{Operation: "configure", Err: errors.New("nil configuration")}
	}

	app.mutex.Lock()
	defer app.mutex.Unlock()

	if app.running {
		return fmt.Errorf("cannot configure application while running")
	}
	if app.runtime != nil {
		return fmt.Errorf("application is already configured")
	}
	if err := cfg.Validate(); err != nil {
		return &ApplicationError{Operation: "configure", Err: err}
	}

	rt := core.NewContext(core.OptionsFromConfig(cfg.Runtime, app.logger))
	units, err := app.buildUnits(rt, cfg.Units)
	if err == nil {
		err = rt.AddUnits(units...)
	}
	if err == nil {
		err = rt.Initialize()
	}
	if err != nil {
		_ = rt.Shutdown(context.Background())
		return err
	}

	app.cfg = cfg
	app.runtime = rt
	app.container.RegisterInstance(InstanceConfig, cfg)
	app.container.RegisterInstance(InstanceLogger, app.logger)
	app.container.RegisterInstance(InstanceRuntime, rt)

	app.logger.Info("application configured",
		"context", rt.ID(), "units", len(units), "environment", cfg.App.Environment)
	return nil
}

// buildUnits creates units in id order. Caller holds the mutex.
func (app *DefaultApplication) buildUnits(rt *core.Context, decls map[string]config.UnitConfig) ([]*core.Unit, error) {
	ids := make([]string, 0, len(decls))
	for id := range decls {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	units := make([]*core.Unit, 0, len(ids))
	for _, id := range ids {
		decl := decls[id]
		factory, ok := app.kinds[decl.Kind]
		if !ok {
			return nil, &ApplicationError{
				Operation: "configure",
				Service:   id,
				Err:       fmt.Errorf("%w: unknown kind %q", config.ErrInvalidUnit, decl.Kind),
			}
		}

		u, err := factory(id, rt)
		if err != nil {
			return nil, &ApplicationError{Operation: "create", Service: id, Err: err}
		}
		if err := u.Initialize(decl.Settings); err != nil {
			return nil, &ApplicationError{Operation: "initialize", Service: id, Err: err}
		}
		units = append(units, u)
	}
	return units, nil
}

// Start starts all services without blocking
func (app *DefaultApplication) Start(ctx context.Context) error {
	app.mutex.Lock()
	if app.runtime == nil {
		app.mutex.Unlock()
		return errNotConfigured
	}
	if app.running {
		app.mutex.Unlock()
		return fmt.Errorf("application is already running")
	}
	if app.runtime.State() == core.StateShutdown {
		app.mutex.Unlock()
		return errShutDown
	}
	app.running = true
	rt := app.runtime
	app.mutex.Unlock()

	if err := app.lifecycle.Start(ctx); err != nil {
		app.mutex.Lock()
		app.running = false
		app.mutex.Unlock()
		if rt.State() != core.StateShutdown {
			_ = rt.Shutdown(ctx)
		}
		return fmt.Errorf("failed to start services: %w", err)
	}
	return nil
}

// Run starts the application and blocks until ctx is done or SIGINT/SIGTERM
// arrives, then shuts down
func (app *DefaultApplication) Run(ctx context.Context) error {
	signal.Notify(app.signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(app.signals)

	if err := app.Start(ctx); err != nil {
		return err
	}

	select {
	case sig := <-app.signals:
		app.logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		app.logger.Info("context cancelled, shutting down")
	}

	return app.Shutdown(context.Background())
}

// Shutdown stops all services; the runtime ends in SHUTDOWN
func (app *DefaultApplication) Shutdown(ctx context.Context) error {
	app.mutex.Lock()
	if !app.running {
		app.mutex.Unlock()
		return nil
	}
	app.running = false
	app.mutex.Unlock()

	if err := app.lifecycle.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop services: %w", err)
	}
	return nil
}

// Config returns the current configuration, updated on reload
func (app *DefaultApplication) Config() *config.Config {
	app.mutex.RLock()
	defer app.mutex.RUnlock()
	return app.cfg
}

// Runtime returns the runtime Context, nil before Configure
func (app *DefaultApplication) Runtime() *core.Context {
	app.mutex.RLock()
	defer app.mutex.RUnlock()
	return app.runtime
}

// Container returns the shared instance container
func (app *DefaultApplication) Container() Container {
	return app.container
}

// LifecycleManager returns the lifecycle manager
func (app *DefaultApplication) LifecycleManager() LifecycleManager {
	return app.lifecycle
}

func (app *DefaultApplication) registerCoreServices() {
	app.lifecycle.Register(ServiceUnitContext, &UnitContextService{app: app})
	app.lifecycle.Register(ServiceConfigWatcher, &ConfigWatcherService{app: app}, ServiceUnitContext)
}

// onConfigChange records a reloaded configuration. Units and lanes are fixed
// once the runtime is built, so changes to them only take effect on restart.
func (app *DefaultApplication) onConfigChange(oldConfig, newConfig *config.Config) {
	app.mutex.Lock()
	app.cfg = newConfig
	app.mutex.Unlock()

	app.logger.Info("configuration reloaded", "file", app.configFile)
	if !reflect.DeepEqual(oldConfig.Units, newConfig.Units) || oldConfig.Runtime != newConfig.Runtime {
		app.logger.Warn("runtime or unit configuration changed, restart to apply")
	}
}

// UnitContextService runs the runtime Context as a managed service
type UnitContextService struct {
	app *DefaultApplication
}

func (s *UnitContextService) Name() string {
	return ServiceUnitContext
}

func (s *UnitContextService) Start(ctx context.Context) error {
	rt := s.app.Runtime()
	if rt == nil {
		return errNotConfigured
	}
	return rt.Start(ctx)
}

// Stop shuts the runtime down; it cannot be started again
func (s *UnitContextService) Stop(ctx context.Context) error {
	rt := s.app.Runtime()
	if rt == nil {
		return nil
	}
	return rt.Shutdown(ctx)
}

func (s *UnitContextService) Health(ctx context.Context) (HealthStatus, error) {
	rt := s.app.Runtime()
	if rt == nil {
		return HealthStatus{State: HealthUnknown, Message: "runtime not configured"}, nil
	}

	stats := rt.Stats()
	queued := 0
	for _, lane := range stats.Lanes {
		queued += lane.Queued
	}
	return HealthStatus{
		State:   healthOf(stats.State),
		Message: "runtime " + stats.State.String(),
		Data: map[string]interface{}{
			"context": stats.ID,
			"units":   len(stats.Units),
			"queued":  queued,
		},
	}, nil
}

func healthOf(state core.LifecycleState) HealthState {
	switch state {
	case core.StateStarted:
		return HealthHealthy
	case core.StateStarting:
		return HealthStarting
	case core.StateStopping, core.StateShuttingDown:
		return HealthStopping
	case core.StateStopped, core.StateShutdown:
		return HealthStopped
	default:
		return HealthUnknown
	}
}

// ConfigWatcherService reloads the configuration file on change when
// app.watch is enabled and the application knows its configuration file
type ConfigWatcherService struct {
	app *DefaultApplication
}

func (s *ConfigWatcherService) Name() string {
	return ServiceConfigWatcher
}

func (s *ConfigWatcherService) enabled() bool {
	cfg := s.app.Config()
	return cfg != nil && cfg.App.Watch && s.app.configFile != ""
}

func (s *ConfigWatcherService) Start(ctx context.Context) error {
	if !s.enabled() {
		return nil
	}

	watcher, err := config.NewWatcher(s.app.configFile, config.NewLoader(), s.app.logger)
	if err != nil {
		return err
	}
	watcher.OnConfigChange(s.app.onConfigChange)
	if err := watcher.Start(); err != nil {
		watcher.Stop()
		return err
	}

	s.app.mutex.Lock()
	s.app.watcher = watcher
	s.app.mutex.Unlock()
	return nil
}

func (s *ConfigWatcherService) Stop(ctx context.Context) error {
	s.app.mutex.Lock()
	watcher := s.app.watcher
	s.app.watcher = nil
	s.app.mutex.Unlock()

	if watcher == nil {
		return nil
	}
	return watcher.Stop()
}

func (s *ConfigWatcherService) Health(ctx context.Context) (HealthStatus, error) {
	s.app.mutex.RLock()
	watching := s.app.watcher != nil
	s.app.mutex.RUnlock()

	switch {
	case watching:
		return HealthStatus{State: HealthHealthy, Message: "watching " + s.app.configFile}, nil
	case s.enabled():
		return HealthStatus{State: HealthStopped, Message: "not watching"}, nil
	default:
		return HealthStatus{State: HealthUnknown, Message: "watch disabled"}, nil
	}
}

var _ Application = (*DefaultApplication)(nil)
