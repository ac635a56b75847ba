package tracing

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds OTLP trace export settings.
type Config struct {
	Enabled     bool   `toml:"enabled"`
	Endpoint    string `toml:"endpoint"`
	Protocol    string `toml:"protocol"`
	Insecure    bool   `toml:"insecure"`
	ServiceName string `toml:"service_name"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Enabled     string
	Endpoint    string
	Protocol    string
	Insecure    string
	ServiceName string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites fields from overlay. Boolean fields only apply when true.
func (c *Config) Merge(overlay *Config) {
	if overlay.Enabled {
		c.Enabled = true
	}
	if overlay.Insecure {
		c.Insecure = true
	}
	if overlay.Endpoint != "" {
		c.Endpoint = overlay.Endpoint
	}
	if overlay.Protocol != "" {
		c.Protocol = overlay.Protocol
	}
	if overlay.ServiceName != "" {
		c.ServiceName = overlay.ServiceName
	}
}

func (c *Config) loadDefaults() {
	if c.Protocol == "" {
		c.Protocol = "grpc"
	}
	if c.ServiceName == "" {
		c.ServiceName = "agentflow"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Enabled != "" {
		if v := os.Getenv(env.Enabled); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Enabled = b
			}
		}
	}
	if env.Endpoint != "" {
		if v := os.Getenv(env.Endpoint); v != "" {
			c.Endpoint = v
		}
	}
	if env.Protocol != "" {
		if v := os.Getenv(env.Protocol); v != "" {
			c.Protocol = v
		}
	}
	if env.Insecure != "" {
		if v := os.Getenv(env.Insecure); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Insecure = b
			}
		}
	}
	if env.ServiceName != "" {
		if v := os.Getenv(env.ServiceName); v != "" {
			c.ServiceName = v
		}
	}
}

func (c *Config) validate() error {
	if c.Protocol != "grpc" && c.Protocol != "http" {
		return fmt.Errorf("invalid protocol %q: must be grpc or http", c.Protocol)
	}
	if c.Enabled && c.Endpoint == "" {
		return fmt.Errorf("endpoint required when tracing is enabled")
	}
	return nil
}
