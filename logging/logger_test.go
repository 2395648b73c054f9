package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"trace", LevelDebug, false},
		{"", LevelInfo, false},
		{"INFO", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"fatal", LevelError, false},
		{"loud", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestWriterLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, Config{Level: LevelInfo, Format: "json", Fields: map[string]any{"app": "test"}})

	logger.Debug("hidden")
	logger.With("unit", "consumer").Info("delivered", "lane", "work")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "delivered", entry["msg"])
	assert.Equal(t, "consumer", entry["unit"])
	assert.Equal(t, "work", entry["lane"])
	assert.Equal(t, "test", entry["app"])
}

func TestNewLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unitrt.log")

	logger, closer, err := NewLogger(Config{Level: LevelDebug, Output: path})
	require.NoError(t, err)
	logger.Debug("written")
	require.NoError(t, closer.Close())

	assert.FileExists(t, path)
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.With("k", "v").Error("ignored")
	assert.IsType(t, NopLogger{}, logger.With())
}
