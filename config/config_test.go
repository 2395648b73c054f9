package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	return path
}

// TestDefaultConfig tests the built-in defaults
func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if err := config.Validate(); err != nil {
		t.Fatalf("Default config validation failed: %v", err)
	}

	assert.Equal(t, 2, config.Runtime.SystemPoolSize)
	assert.Equal(t, 2, config.Runtime.WorkPoolSize)
	assert.Equal(t, 4, config.Runtime.BlockingPoolSize)
	assert.Equal(t, 10*time.Second, config.Runtime.ShutdownTimeout)
}

// TestConfigValidation tests configuration validation
func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "invalid app name",
			mutate:  func(c *Config) { c.App.Name = "" },
			wantErr: ErrInvalidAppName,
		},
		{
			name:    "invalid environment",
			mutate:  func(c *Config) { c.App.Environment = "moon" },
			wantErr: ErrInvalidEnvironment,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Log.Level = "chatty" },
			wantErr: ErrInvalidLogLevel,
		},
		{
			name:    "zero work pool",
			mutate:  func(c *Config) { c.Runtime.WorkPoolSize = 0 },
			wantErr: ErrInvalidPoolSize,
		},
		{
			name:    "negative shutdown timeout",
			mutate:  func(c *Config) { c.Runtime.ShutdownTimeout = -time.Second },
			wantErr: ErrInvalidShutdownTimeout,
		},
		{
			name:    "unit without kind",
			mutate:  func(c *Config) { c.Units["consumer"] = UnitConfig{} },
			wantErr: ErrInvalidUnit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// TestLoader tests YAML configuration loading
func TestLoader(t *testing.T) {
	yamlContent := `
app:
  name: test-app
  environment: staging

log:
  level: debug
  format: json

runtime:
  id: ctx-1
  work_pool_size: 3
  shutdown_timeout: 2s

units:
  consumer:
    kind: string-consumer
    settings:
      totalMessages: 3
  producer:
    kind: string-producer
    settings:
      target: consumer
`
	path := writeFile(t, t.TempDir(), "unitrt.yaml", yamlContent)

	config, err := NewLoader().LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "test-app", config.App.Name)
	assert.Equal(t, EnvStaging, config.App.Environment)
	assert.Equal(t, LogLevelDebug, config.Log.Level)
	assert.Equal(t, "ctx-1", config.Runtime.ID)
	assert.Equal(t, 2, config.Runtime.SystemPoolSize, "unset sizes keep their defaults")
	assert.Equal(t, 3, config.Runtime.WorkPoolSize)
	assert.Equal(t, 2*time.Second, config.Runtime.ShutdownTimeout)

	require.Len(t, config.Units, 2)
	assert.Equal(t, "string-consumer", config.Units["consumer"].Kind)
	assert.Equal(t, 3, config.Units["consumer"].Settings.Int("totalMessages", 0))
	assert.Equal(t, "consumer", config.Units["producer"].Settings.String("target", ""))
}

// TestLoaderJSON tests JSON configuration loading
func TestLoaderJSON(t *testing.T) {
	jsonContent := `{
	"app": {"name": "json-test-app", "environment": "production"},
	"log": {"level": "warn"},
	"runtime": {"blocking_pool_size": 8},
	"units": {"sink": {"kind": "string-consumer", "settings": {"label": "x"}}}
}`
	path := writeFile(t, t.TempDir(), "unitrt.json", jsonContent)

	config, err := NewLoader().LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "json-test-app", config.App.Name)
	assert.Equal(t, EnvProduction, config.App.Environment)
	assert.Equal(t, LogLevelWarn, config.Log.Level)
	assert.Equal(t, 8, config.Runtime.BlockingPoolSize)
	assert.Equal(t, "x", config.Units["sink"].Settings.String("label", ""))
}

func TestLoaderRejects(t *testing.T) {
	dir := t.TempDir()

	_, err := NewLoader().LoadFromFile(writeFile(t, dir, "bad.toml", "x = 1"))
	assert.Error(t, err)

	_, err = NewLoader().LoadFromFile(writeFile(t, dir, "bad.yaml", "app: [unterminated"))
	assert.ErrorIs(t, err, ErrConfigParseError)

	_, err = NewLoader().LoadFromFile(writeFile(t, dir, "invalid.yaml", "runtime:\n  work_pool_size: -1\n"))
	assert.ErrorIs(t, err, ErrInvalidPoolSize)
}

func TestLoadFromReader(t *testing.T) {
	config, err := NewLoader().LoadFromReader(strings.NewReader("app:\n  name: reader\n"), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "reader", config.App.Name)
	assert.Equal(t, LogLevelInfo, config.Log.Level)
}

// TestEnvironmentOverrides tests environment variable overrides
func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("UNITRT_APP_NAME", "env-test-app")
	t.Setenv("UNITRT_LOG_LEVEL", "error")
	t.Setenv("UNITRT_RUNTIME_WORK_POOL_SIZE", "6")
	t.Setenv("UNITRT_RUNTIME_SHUTDOWN_TIMEOUT", "750ms")

	path := writeFile(t, t.TempDir(), "unitrt.yaml", "app:\n  name: base-app\n")

	config, err := NewLoader().LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "env-test-app", config.App.Name)
	assert.Equal(t, LogLevelError, config.Log.Level)
	assert.Equal(t, 6, config.Runtime.WorkPoolSize)
	assert.Equal(t, 750*time.Millisecond, config.Runtime.ShutdownTimeout)
}

func TestEnvironmentOverrideInvalid(t *testing.T) {
	t.Setenv("UNITRT_RUNTIME_SYSTEM_POOL_SIZE", "many")

	_, err := NewLoader().Load("")
	if !errors.Is(err, ErrEnvironmentVarError) {
		t.Fatalf("Expected ErrEnvironmentVarError, got %v", err)
	}
}

// TestAutoLoad tests automatic configuration discovery
func TestAutoLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "app:\n  name: auto-load-app\n")

	config, err := NewLoader().SetSearchPaths([]string{dir}).AutoLoad()
	require.NoError(t, err)
	assert.Equal(t, "auto-load-app", config.App.Name)

	config, err = NewLoader().SetSearchPaths([]string{t.TempDir()}).AutoLoad()
	require.NoError(t, err)
	assert.Equal(t, "unitrt", config.App.Name, "falls back to defaults")
}

// TestWatcher tests configuration file watching
func TestWatcher(t *testing.T) {
	path := writeFile(t, t.TempDir(), "watch.yaml", "runtime:\n  work_pool_size: 2\n")

	watcher, err := NewWatcher(path, NewLoader(), nil)
	require.NoError(t, err)
	watcher.SetDebounce(20 * time.Millisecond)
	defer watcher.Stop()

	assert.Equal(t, 2, watcher.GetConfig().Runtime.WorkPoolSize)

	changeDetected := make(chan int, 1)
	watcher.OnConfigChange(func(oldConfig, newConfig *Config) {
		select {
		case changeDetected <- newConfig.Runtime.WorkPoolSize:
		default:
		}
	})
	require.NoError(t, watcher.Start())

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("runtime:\n  work_pool_size: 5\n"), 0644))

	select {
	case size := <-changeDetected:
		assert.Equal(t, 5, size)
	case <-time.After(3 * time.Second):
		t.Fatal("Configuration change was not detected within timeout")
	}
	assert.Equal(t, 5, watcher.GetConfig().Runtime.WorkPoolSize)
}

func TestWatcherReload(t *testing.T) {
	path := writeFile(t, t.TempDir(), "reload.yaml", "app:\n  name: before\n")

	watcher, err := NewWatcher(path, NewLoader(), nil)
	require.NoError(t, err)
	defer watcher.Stop()

	var seen string
	watcher.OnConfigChange(func(oldConfig, newConfig *Config) {
		seen = oldConfig.App.Name + "->" + newConfig.App.Name
	})

	require.NoError(t, os.WriteFile(path, []byte("app:\n  name: after\n"), 0644))
	require.NoError(t, watcher.Reload())
	assert.Equal(t, "before->after", seen)
}
