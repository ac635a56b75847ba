package provider

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Kind identifies the client implementation for a provider.
type Kind string

const (
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
	KindOllama    Kind = "ollama"
)

// RequiresKey reports whether the provider kind needs an API key to be callable.
func (k Kind) RequiresKey() bool {
	return k == KindOpenAI || k == KindAnthropic
}

// ProviderConfig describes one model provider and the models it serves.
// APIKeyEnv names an environment variable read when APIKey is empty.
type ProviderConfig struct {
	Name              string   `toml:"name"`
	Kind              Kind     `toml:"kind"`
	BaseURL           string   `toml:"base_url"`
	APIKey            string   `toml:"api_key"`
	APIKeyEnv         string   `toml:"api_key_env"`
	Models            []string `toml:"models"`
	RequestsPerMinute int      `toml:"requests_per_minute"`
	Burst             int      `toml:"burst"`
}

// Config holds the provider registry settings.
type Config struct {
	CallTimeout string           `toml:"call_timeout"`
	CacheSize   int              `toml:"cache_size"`
	Providers   []ProviderConfig `toml:"providers"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	CallTimeout string
	CacheSize   string
}

// CallTimeoutDuration returns CallTimeout as a time.Duration.
func (c *Config) CallTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.CallTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	c.loadKeys()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. A non-empty provider list
// replaces the base list.
func (c *Config) Merge(overlay *Config) {
	if overlay.CallTimeout != "" {
		c.CallTimeout = overlay.CallTimeout
	}
	if overlay.CacheSize != 0 {
		c.CacheSize = overlay.CacheSize
	}
	if len(overlay.Providers) > 0 {
		c.Providers = overlay.Providers
	}
}

// DefaultProviders is used when no providers are configured: gpt-4o through
// OpenAI with the key read from OPENAI_API_KEY.
func DefaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{
			Name:      "openai",
			Kind:      KindOpenAI,
			APIKeyEnv: "OPENAI_API_KEY",
			Models:    []string{"gpt-4o"},
		},
	}
}

func (c *Config) loadDefaults() {
	if c.CallTimeout == "" {
		c.CallTimeout = "2m"
	}
	if c.CacheSize <= 0 {
		c.CacheSize = 32
	}
	if len(c.Providers) == 0 {
		c.Providers = DefaultProviders()
	}
	for i := range c.Providers {
		p := &c.Providers[i]
		if p.Name == "" {
			p.Name = string(p.Kind)
		}
		if p.APIKeyEnv == "" {
			switch p.Kind {
			case KindOpenAI:
				p.APIKeyEnv = "OPENAI_API_KEY"
			case KindAnthropic:
				p.APIKeyEnv = "ANTHROPIC_API_KEY"
			}
		}
		if p.Burst <= 0 {
			p.Burst = 1
		}
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.CallTimeout != "" {
		if v := os.Getenv(env.CallTimeout); v != "" {
			c.CallTimeout = v
		}
	}
	if env.CacheSize != "" {
		if v := os.Getenv(env.CacheSize); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.CacheSize = n
			}
		}
	}
}

func (c *Config) loadKeys() {
	for i := range c.Providers {
		p := &c.Providers[i]
		if p.APIKey == "" && p.APIKeyEnv != "" {
			p.APIKey = os.Getenv(p.APIKeyEnv)
		}
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.CallTimeout); err != nil {
		return fmt.Errorf("invalid call_timeout: %w", err)
	}

	names := make(map[string]bool, len(c.Providers))
	models := make(map[string]string)
	for _, p := range c.Providers {
		switch p.Kind {
		case KindOpenAI, KindAnthropic, KindOllama:
		default:
			return fmt.Errorf("provider %s: unknown kind %q", p.Name, p.Kind)
		}
		if names[p.Name] {
			return fmt.Errorf("duplicate provider name %q", p.Name)
		}
		names[p.Name] = true

		if p.RequestsPerMinute < 0 {
			return fmt.Errorf("provider %s: requests_per_minute cannot be negative", p.Name)
		}
		for _, m := range p.Models {
			if owner, ok := models[m]; ok {
				return fmt.Errorf("model %q served by both %s and %s", m, owner, p.Name)
			}
			models[m] = p.Name
		}
	}
	return nil
}
