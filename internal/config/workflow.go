package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvWorkflowNodeTimeout   = "AGENTFLOW_WORKFLOW_NODE_TIMEOUT"
	EnvWorkflowStrictOutputs = "AGENTFLOW_WORKFLOW_STRICT_OUTPUTS"
)

// WorkflowConfig holds agent execution settings. An empty NodeTimeout
// leaves node actions bounded only by the caller's context.
type WorkflowConfig struct {
	NodeTimeout   string `toml:"node_timeout"`
	StrictOutputs bool   `toml:"strict_outputs"`
}

// NodeTimeoutDuration returns NodeTimeout as a time.Duration.
func (c *WorkflowConfig) NodeTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.NodeTimeout)
	return d
}

// Finalize applies environment variable overrides and validation.
func (c *WorkflowConfig) Finalize() error {
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *WorkflowConfig) Merge(overlay *WorkflowConfig) {
	if overlay.NodeTimeout != "" {
		c.NodeTimeout = overlay.NodeTimeout
	}
	if overlay.StrictOutputs {
		c.StrictOutputs = true
	}
}

func (c *WorkflowConfig) loadEnv() {
	if v := os.Getenv(EnvWorkflowNodeTimeout); v != "" {
		c.NodeTimeout = v
	}
	if v := os.Getenv(EnvWorkflowStrictOutputs); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.StrictOutputs = b
		}
	}
}

func (c *WorkflowConfig) validate() error {
	if c.NodeTimeout == "" {
		return nil
	}
	d, err := time.ParseDuration(c.NodeTimeout)
	if err != nil {
		return fmt.Errorf("invalid node_timeout: %w", err)
	}
	if d < 0 {
		return fmt.Errorf("node_timeout cannot be negative")
	}
	return nil
}
