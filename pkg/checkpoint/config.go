package checkpoint

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Supported store backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
)

// Config selects and configures the checkpoint store.
type Config struct {
	Backend    string      `toml:"backend"`
	SQLitePath string      `toml:"sqlite_path"`
	Redis      RedisConfig `toml:"redis"`
}

// RedisConfig holds connection settings for the redis backend.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
	TTL      string `toml:"ttl"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Backend       string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       string
	RedisTTL      string
}

// TTLDuration returns TTL as a time.Duration. Zero disables expiry.
func (c *RedisConfig) TTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.TTL)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	if overlay.SQLitePath != "" {
		c.SQLitePath = overlay.SQLitePath
	}
	if overlay.Redis.Addr != "" {
		c.Redis.Addr = overlay.Redis.Addr
	}
	if overlay.Redis.Password != "" {
		c.Redis.Password = overlay.Redis.Password
	}
	if overlay.Redis.DB != 0 {
		c.Redis.DB = overlay.Redis.DB
	}
	if overlay.Redis.Prefix != "" {
		c.Redis.Prefix = overlay.Redis.Prefix
	}
	if overlay.Redis.TTL != "" {
		c.Redis.TTL = overlay.Redis.TTL
	}
}

func (c *Config) loadDefaults() {
	if c.Backend == "" {
		c.Backend = BackendPostgres
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "checkpoints.db"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "agentflow:checkpoints:"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Backend != "" {
		if v := os.Getenv(env.Backend); v != "" {
			c.Backend = v
		}
	}
	if env.SQLitePath != "" {
		if v := os.Getenv(env.SQLitePath); v != "" {
			c.SQLitePath = v
		}
	}
	if env.RedisAddr != "" {
		if v := os.Getenv(env.RedisAddr); v != "" {
			c.Redis.Addr = v
		}
	}
	if env.RedisPassword != "" {
		if v := os.Getenv(env.RedisPassword); v != "" {
			c.Redis.Password = v
		}
	}
	if env.RedisDB != "" {
		if v := os.Getenv(env.RedisDB); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Redis.DB = n
			}
		}
	}
	if env.RedisTTL != "" {
		if v := os.Getenv(env.RedisTTL); v != "" {
			c.Redis.TTL = v
		}
	}
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendPostgres, BackendMemory, BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	if c.Redis.TTL != "" {
		if _, err := time.ParseDuration(c.Redis.TTL); err != nil {
			return fmt.Errorf("invalid redis ttl: %w", err)
		}
	}
	return nil
}

// New creates the configured store. The postgres backend shares db with the
// domain repositories; the other backends ignore it.
func New(ctx context.Context, cfg *Config, db *sql.DB) (Store, error) {
	switch cfg.Backend {
	case BackendPostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres checkpoint backend requires a database connection")
		}
		return NewPostgres(db), nil
	case BackendMemory:
		return NewMemory(), nil
	case BackendSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return NewRedis(client, cfg.Redis.Prefix, cfg.Redis.TTLDuration()), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
}
