// Package config loads the control plane's environment: database
// connection URL, RPC pool size, session acquisition timeout, and the
// task-runner polling interval (spec.md section 6). Values come from an
// optional YAML file with environment-variable overrides of the same name,
// mirroring the teacher's ParseFromFile/SetDefaults/Validate three-stage
// load (pkg/config/load.go in the teacher repo).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every environment-sourced value the control plane consumes.
type Config struct {
	DatabaseURL     string        `yaml:"databaseURL"`
	RPCPoolSize     int           `yaml:"rpcPoolSize"`
	SessionTimeout  time.Duration `yaml:"sessionTimeout"`
	PollInterval    time.Duration `yaml:"pollInterval"`
}

const (
	DefaultRPCPoolSize    = 5
	DefaultSessionTimeout = 30 * time.Second
	DefaultPollInterval   = 5 * time.Second
)

// SetDefaults fills in zero-valued fields with the documented defaults.
func SetDefaults(c *Config) {
	if c.RPCPoolSize == 0 {
		c.RPCPoolSize = DefaultRPCPoolSize
	}
	if c.SessionTimeout == 0 {
		c.SessionTimeout = DefaultSessionTimeout
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
}

// Validate rejects a Config that cannot be used to start the control plane.
func Validate(c *Config) error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("databaseURL is required")
	}
	if c.RPCPoolSize <= 0 {
		return fmt.Errorf("rpcPoolSize must be positive, got %d", c.RPCPoolSize)
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("sessionTimeout must be positive, got %s", c.SessionTimeout)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("pollInterval must be positive, got %s", c.PollInterval)
	}
	return nil
}

// ParseFromFile reads a YAML config file, applies environment overrides,
// fills defaults, and validates the result.
func ParseFromFile(path string) (*Config, error) {
	var c Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal YAML from %s: %w", path, err)
		}
	}

	applyEnvOverrides(&c)
	SetDefaults(&c)

	if err := Validate(&c); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

// applyEnvOverrides mirrors spec.md section 6: DATABASE_URL, RPC_POOL_SIZE,
// SESSION_TIMEOUT, POLL_INTERVAL, each overriding the file value when set.
func applyEnvOverrides(c *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("RPC_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RPCPoolSize = n
		}
	}
	if v := os.Getenv("SESSION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.SessionTimeout = d
		}
	}
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.PollInterval = d
		}
	}
}
