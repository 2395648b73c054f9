// Package config provides configuration management for the unitrt runtime
package config

import (
	"time"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// String returns the string representation of Environment
func (e Environment) String() string {
	return string(e)
}

// IsValid checks if the environment is valid
func (e Environment) IsValid() bool {
	switch e {
	case EnvDevelopment, EnvTesting, EnvStaging, EnvProduction:
		return true
	default:
		return false
	}
}

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
	LogLevelFatal LogLevel = "fatal"
)

// String returns the string representation of LogLevel
func (l LogLevel) String() string {
	return string(l)
}

// IsValid checks if the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, LogLevelFatal:
		return true
	default:
		return false
	}
}

// Config represents the complete runtime configuration
type Config struct {
	// Application configuration
	App AppConfig `yaml:"app" json:"app"`

	// Logging configuration
	Log LogConfig `yaml:"log" json:"log"`

	// Runtime (lane pools) configuration
	Runtime RuntimeConfig `yaml:"runtime" json:"runtime"`

	// Units to instantiate, keyed by unit id
	Units map[string]UnitConfig `yaml:"units,omitempty" json:"units,omitempty"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	// Application name
	Name string `yaml:"name" json:"name"`

	// Application version
	Version string `yaml:"version" json:"version"`

	// Deployment environment
	Environment Environment `yaml:"environment" json:"environment"`

	// Debug mode
	Debug bool `yaml:"debug" json:"debug"`

	// Watch the configuration file and reload it on change
	Watch bool `yaml:"watch" json:"watch"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	// Log level
	Level LogLevel `yaml:"level" json:"level"`

	// Log format (json, text)
	Format string `yaml:"format" json:"format"`

	// Output destination (stdout, stderr, file path)
	Output string `yaml:"output" json:"output"`

	// Fields to include in log output
	Fields map[string]interface{} `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// RuntimeConfig sizes the three lanes of a runtime context
type RuntimeConfig struct {
	// Context id; a random one is generated when empty
	ID string `yaml:"id,omitempty" json:"id,omitempty"`

	// Worker count of the system lane
	SystemPoolSize int `yaml:"system_pool_size" json:"system_pool_size"`

	// Worker count of the CPU-bound work lane
	WorkPoolSize int `yaml:"work_pool_size" json:"work_pool_size"`

	// Worker count of the I/O-bound blocking lane
	BlockingPoolSize int `yaml:"blocking_pool_size" json:"blocking_pool_size"`

	// Bounded wait for the system lane to drain on shutdown
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// UnitConfig declares one unit instance
type UnitConfig struct {
	// Kind selects the registered unit factory
	Kind string `yaml:"kind" json:"kind"`

	// Settings is passed through to the unit's initialization hook
	Settings Section `yaml:"settings,omitempty" json:"settings,omitempty"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "unitrt",
			Version:     "1.0.0",
			Environment: EnvDevelopment,
			Debug:       false,
		},
		Log: LogConfig{
			Level:  LogLevelInfo,
			Format: "text",
			Output: "stderr",
		},
		Runtime: RuntimeConfig{
			SystemPoolSize:   2,
			WorkPoolSize:     2,
			BlockingPoolSize: 4,
			ShutdownTimeout:  10 * time.Second,
		},
		Units: make(map[string]UnitConfig),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return ErrInvalidAppName
	}
	if !c.App.Environment.IsValid() {
		return ErrInvalidEnvironment
	}

	if !c.Log.Level.IsValid() {
		return ErrInvalidLogLevel
	}

	if c.Runtime.SystemPoolSize <= 0 || c.Runtime.WorkPoolSize <= 0 || c.Runtime.BlockingPoolSize <= 0 {
		return ErrInvalidPoolSize
	}
	if c.Runtime.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	for id, unit := range c.Units {
		if id == "" || unit.Kind == "" {
			return ErrInvalidUnit
		}
	}

	return nil
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// IsDebugEnabled returns true if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.Log.Level == LogLevelDebug || c.Log.Level == LogLevelTrace
}
