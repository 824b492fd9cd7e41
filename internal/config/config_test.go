package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(env(nil))
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, ":8000", cfg.Addr())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Empty(t, cfg.Analytics.RedisAddr)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoad_FromEnv(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"PORT":             "9100",
		"LOG_LEVEL":        "debug",
		"LOG_FORMAT":       "console",
		"TRACING_ENABLED":  "true",
		"REDIS_ADDR":       "localhost:6379",
		"SHUTDOWN_TIMEOUT": "5s",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Addr())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Analytics.RedisAddr)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoad_InvalidPort(t *testing.T) {
	_, err := LoadFrom(env(map[string]string{"PORT": "eight"}))
	assert.ErrorIs(t, err, ErrInvalidPort)

	_, err = LoadFrom(env(map[string]string{"PORT": "70000"}))
	assert.ErrorIs(t, err, ErrInvalidPort)
}

func TestLoad_InvalidValues(t *testing.T) {
	_, err := LoadFrom(env(map[string]string{"SHUTDOWN_TIMEOUT": "soon"}))
	assert.ErrorIs(t, err, ErrInvalidDuration)

	_, err = LoadFrom(env(map[string]string{"TRACING_ENABLED": "maybe"}))
	assert.Error(t, err)
}

func TestLoad_EmptyValuesKeepDefaults(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"LOG_LEVEL":         "",
		"LOG_FORMAT":        "",
		"OTEL_SERVICE_NAME": "",
	}))
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)
	assert.Equal(t, "load-simulator", cfg.Tracing.ServiceName)
}
