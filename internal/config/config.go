package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the irrigation controller
type Config struct {
	// Server configuration
	HTTPHost string `env:"IRRIGATION_HTTP_HOST" envDefault:"0.0.0.0"`
	HTTPPort int    `env:"IRRIGATION_HTTP_PORT" envDefault:"5000"`
	GRPCPort int    `env:"IRRIGATION_GRPC_PORT" envDefault:"9090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Safety configuration
	Safety SafetyConfig

	// Live stream configuration
	Stream StreamConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// SafetyConfig holds the automatic safety settings
type SafetyConfig struct {
	MoistureThreshold float64       `env:"SAFETY_MOISTURE_THRESHOLD" envDefault:"95"`
	SensorStaleAfter  time.Duration `env:"SENSOR_STALE_AFTER" envDefault:"5m"`
}

// StreamConfig holds WebSocket stream settings
type StreamConfig struct {
	BufferSize int `env:"WS_BUFFER_SIZE" envDefault:"16"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	// 0 disables the gRPC health server
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}
	if c.GRPCPort == c.HTTPPort {
		return fmt.Errorf("gRPC port %d collides with HTTP port", c.GRPCPort)
	}
	if c.HTTPHost != "" && net.ParseIP(c.HTTPHost) == nil {
		return fmt.Errorf("invalid HTTP host: %s", c.HTTPHost)
	}

	if c.Safety.MoistureThreshold <= 0 {
		return fmt.Errorf("safety moisture threshold must be positive")
	}
	if c.Safety.SensorStaleAfter < 0 {
		return fmt.Errorf("sensor stale duration must not be negative")
	}

	if c.Stream.BufferSize < 1 {
		return fmt.Errorf("stream buffer size must be at least 1")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return net.JoinHostPort(c.HTTPHost, strconv.Itoa(c.HTTPPort))
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return net.JoinHostPort(c.HTTPHost, strconv.Itoa(c.GRPCPort))
}
