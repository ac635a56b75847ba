package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/agentflow/pkg/checkpoint"
	"github.com/JaimeStill/agentflow/pkg/database"
	"github.com/JaimeStill/agentflow/pkg/provider"
	"github.com/JaimeStill/agentflow/pkg/storage"
	"github.com/JaimeStill/agentflow/pkg/tracing"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvAgentflowEnv             = "AGENTFLOW_ENV"
	EnvAgentflowConfig          = "AGENTFLOW_CONFIG"
	EnvAgentflowLogLevel        = "AGENTFLOW_LOG_LEVEL"
	EnvAgentflowShutdownTimeout = "AGENTFLOW_SHUTDOWN_TIMEOUT"
	EnvAgentflowVersion         = "AGENTFLOW_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "AGENTFLOW_DB_HOST",
	Port:            "AGENTFLOW_DB_PORT",
	Name:            "AGENTFLOW_DB_NAME",
	User:            "AGENTFLOW_DB_USER",
	Password:        "AGENTFLOW_DB_PASSWORD",
	SSLMode:         "AGENTFLOW_DB_SSL_MODE",
	ApplicationName: "AGENTFLOW_DB_APPLICATION_NAME",
	MaxOpenConns:    "AGENTFLOW_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "AGENTFLOW_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "AGENTFLOW_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "AGENTFLOW_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Enabled:          "AGENTFLOW_STORAGE_ENABLED",
	ContainerName:    "AGENTFLOW_STORAGE_CONTAINER_NAME",
	ConnectionString: "AGENTFLOW_STORAGE_CONNECTION_STRING",
	ServiceURL:       "AGENTFLOW_STORAGE_SERVICE_URL",
	MaxListSize:      "AGENTFLOW_STORAGE_MAX_LIST_SIZE",
}

var checkpointEnv = &checkpoint.Env{
	Backend:       "AGENTFLOW_CHECKPOINT_BACKEND",
	SQLitePath:    "AGENTFLOW_CHECKPOINT_SQLITE_PATH",
	RedisAddr:     "AGENTFLOW_CHECKPOINT_REDIS_ADDR",
	RedisPassword: "AGENTFLOW_CHECKPOINT_REDIS_PASSWORD",
	RedisDB:       "AGENTFLOW_CHECKPOINT_REDIS_DB",
	RedisTTL:      "AGENTFLOW_CHECKPOINT_REDIS_TTL",
}

var modelsEnv = &provider.Env{
	CallTimeout: "AGENTFLOW_MODELS_CALL_TIMEOUT",
	CacheSize:   "AGENTFLOW_MODELS_CACHE_SIZE",
}

var tracingEnv = &tracing.Env{
	Enabled:     "AGENTFLOW_TRACING_ENABLED",
	Endpoint:    "AGENTFLOW_TRACING_ENDPOINT",
	Protocol:    "AGENTFLOW_TRACING_PROTOCOL",
	Insecure:    "AGENTFLOW_TRACING_INSECURE",
	ServiceName: "AGENTFLOW_TRACING_SERVICE_NAME",
}

// Config is the root configuration for the agentflow service and CLI.
type Config struct {
	Server          ServerConfig      `toml:"server"`
	Database        database.Config   `toml:"database"`
	Storage         storage.Config    `toml:"storage"`
	API             APIConfig         `toml:"api"`
	Checkpoint      checkpoint.Config `toml:"checkpoint"`
	Models          provider.Config   `toml:"models"`
	Workflow        WorkflowConfig    `toml:"workflow"`
	Tracing         tracing.Config    `toml:"tracing"`
	LogLevel        string            `toml:"log_level"`
	ShutdownTimeout string            `toml:"shutdown_timeout"`
	Version         string            `toml:"version"`
}

// Env returns the AGENTFLOW_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvAgentflowEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Level returns LogLevel as a slog.Level.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. AGENTFLOW_CONFIG replaces the base file path.
// If no base file exists, defaults and environment variables provide all
// configuration.
func Load() (*Config, error) {
	return LoadFile(basePath())
}

// LoadFile is Load with an explicit base file path.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(path); err == nil {
		loaded, err := load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.LogLevel != "" {
		c.LogLevel = overlay.LogLevel
	}
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Checkpoint.Merge(&overlay.Checkpoint)
	c.Models.Merge(&overlay.Models)
	c.Workflow.Merge(&overlay.Workflow)
	c.Tracing.Merge(&overlay.Tracing)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Checkpoint.Finalize(checkpointEnv); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := c.Models.Finalize(modelsEnv); err != nil {
		return fmt.Errorf("models: %w", err)
	}
	if err := c.Workflow.Finalize(); err != nil {
		return fmt.Errorf("workflow: %w", err)
	}
	if err := c.Tracing.Finalize(tracingEnv); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvAgentflowLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvAgentflowShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvAgentflowVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func basePath() string {
	if path := os.Getenv(EnvAgentflowConfig); path != "" {
		return path
	}
	return BaseConfigFile
}

func overlayPath() string {
	if env := os.Getenv(EnvAgentflowEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
