// Package database manages the PostgreSQL connection pool and ties it to the
// application lifecycle.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/agentflow/pkg/lifecycle"
)

// System owns the connection pool.
type System interface {
	// Connection returns the pool. It is usable before Start; connections
	// are opened lazily.
	Connection() *sql.DB
	// Ready pings the database. It returns ErrNotReady until the startup
	// ping has succeeded.
	Ready(ctx context.Context) error
	// Start registers the startup ping, the readiness check and pool
	// shutdown with lc.
	Start(lc *lifecycle.Coordinator) error
}

type database struct {
	conn        *sql.DB
	logger      *slog.Logger
	connTimeout time.Duration
	connected   atomic.Bool
}

// New opens the pool without connecting.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	db, err := sql.Open("pgx", cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &database{
		conn:        db,
		logger:      logger.With("system", "database", "host", cfg.Host, "name", cfg.Name),
		connTimeout: cfg.ConnTimeoutDuration(),
	}, nil
}

func (d *database) Connection() *sql.DB {
	return d.conn
}

func (d *database) Ready(ctx context.Context) error {
	if !d.connected.Load() {
		return ErrNotReady
	}
	return d.ping(ctx)
}

func (d *database) Start(lc *lifecycle.Coordinator) error {
	d.logger.Info("starting database connection")

	lc.OnStartup(func() {
		if err := d.ping(lc.Context()); err != nil {
			d.logger.Error("database ping failed", "error", err)
			return
		}
		d.connected.Store(true)
		d.logger.Info("database connection established")
	})

	lc.RegisterCheck("database", d.Ready)

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		d.connected.Store(false)

		if err := d.conn.Close(); err != nil {
			d.logger.Error("database close failed", "error", err)
			return
		}
		d.logger.Info("database connection closed")
	})

	return nil
}

func (d *database) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.connTimeout)
	defer cancel()
	return d.conn.PingContext(ctx)
}
