// Package config provides error definitions for configuration management
package config

import "errors"

// Configuration validation errors
var (
	ErrInvalidAppName         = errors.New("invalid application name")
	ErrInvalidEnvironment     = errors.New("invalid environment")
	ErrInvalidLogLevel        = errors.New("invalid log level")
	ErrInvalidPoolSize        = errors.New("invalid lane pool size")
	ErrInvalidShutdownTimeout = errors.New("invalid shutdown timeout")
	ErrInvalidUnit            = errors.New("invalid unit declaration")
)

// Configuration loading errors
var (
	ErrConfigFileNotFound  = errors.New("configuration file not found")
	ErrConfigParseError    = errors.New("configuration parse error")
	ErrConfigWatchError    = errors.New("configuration watch error")
	ErrEnvironmentVarError = errors.New("environment variable error")
)
