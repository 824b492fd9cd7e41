package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Load builds the configuration from the environment on top of Default.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom is Load with a custom lookup, used by tests.
func LoadFrom(getenv func(string) string) (*Config, error) {
	cfg := Default()

	if port := getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPort, port)
		}
		cfg.Server.Port = p
	}

	if v := getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%w: SHUTDOWN_TIMEOUT=%q", ErrInvalidDuration, v)
		}
		cfg.Server.ShutdownTimeout = d
	}

	cfg.Log.Level = valueOr(getenv("LOG_LEVEL"), cfg.Log.Level)
	cfg.Log.Format = valueOr(getenv("LOG_FORMAT"), cfg.Log.Format)

	if v := getenv("TRACING_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("config: TRACING_ENABLED=%q: %w", v, err)
		}
		cfg.Tracing.Enabled = enabled
	}
	cfg.Tracing.ServiceName = valueOr(getenv("OTEL_SERVICE_NAME"), cfg.Tracing.ServiceName)

	cfg.Analytics.RedisAddr = getenv("REDIS_ADDR")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func valueOr(value, defaultValue string) string {
	if value != "" {
		return value
	}
	return defaultValue
}
