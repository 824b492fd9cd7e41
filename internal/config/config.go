package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	ErrInvalidPort     = errors.New("invalid port")
	ErrInvalidDuration = errors.New("invalid duration")
)

const (
	DefaultPort            = 8000
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultShutdownTimeout = 30 * time.Second
)

type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Tracing   TracingConfig
	Analytics AnalyticsConfig
}

type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string // json or console
}

type TracingConfig struct {
	Enabled     bool
	ServiceName string
}

type AnalyticsConfig struct {
	RedisAddr string // empty disables analytics
}

// Default returns the configuration used when no environment is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Tracing: TracingConfig{
			ServiceName: "load-simulator",
		},
	}
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: shutdown timeout %s", ErrInvalidDuration, c.Server.ShutdownTimeout)
	}
	return nil
}
