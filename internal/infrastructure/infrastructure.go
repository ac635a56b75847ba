// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, storage, checkpoints,
// models, tracing) that domain systems and agent runs require.
package infrastructure

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/JaimeStill/agentflow/internal/config"
	"github.com/JaimeStill/agentflow/internal/workflow"
	"github.com/JaimeStill/agentflow/pkg/checkpoint"
	"github.com/JaimeStill/agentflow/pkg/database"
	"github.com/JaimeStill/agentflow/pkg/lifecycle"
	"github.com/JaimeStill/agentflow/pkg/provider"
	"github.com/JaimeStill/agentflow/pkg/storage"
	"github.com/JaimeStill/agentflow/pkg/tracing"
)

// Infrastructure holds the core systems required by all domain modules.
// Storage is nil when the run archive is disabled.
type Infrastructure struct {
	Lifecycle   *lifecycle.Coordinator
	Logger      *slog.Logger
	Database    database.System
	Storage     storage.System
	Checkpoints checkpoint.Store
	Models      *provider.Registry
	Tracing     tracing.System
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	return NewWithLogger(cfg, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Level(),
	})))
}

// NewWithLogger is New with a caller-supplied logger.
func NewWithLogger(cfg *config.Config, logger *slog.Logger) (*Infrastructure, error) {
	lc := lifecycle.New()

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	var store storage.System
	if cfg.Storage.Enabled {
		store, err = storage.New(&cfg.Storage, logger)
		if err != nil {
			return nil, fmt.Errorf("storage init failed: %w", err)
		}
	}

	checkpoints, err := checkpoint.New(lc.Context(), &cfg.Checkpoint, db.Connection())
	if err != nil {
		return nil, fmt.Errorf("checkpoint init failed: %w", err)
	}

	models, err := provider.New(&cfg.Models, logger)
	if err != nil {
		return nil, fmt.Errorf("models init failed: %w", err)
	}

	tracer, err := tracing.New(lc.Context(), &cfg.Tracing, cfg.Version, logger)
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle:   lc,
		Logger:      logger,
		Database:    db,
		Storage:     store,
		Checkpoints: checkpoints,
		Models:      models,
		Tracing:     tracer,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if i.Storage != nil {
		if err := i.Storage.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("storage start failed: %w", err)
		}
	}
	if err := i.Tracing.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("tracing start failed: %w", err)
	}

	if closer, ok := i.Checkpoints.(io.Closer); ok {
		i.Lifecycle.OnShutdown(func() {
			<-i.Lifecycle.Context().Done()
			if err := closer.Close(); err != nil {
				i.Logger.Error("checkpoint store close failed", "error", err)
			}
		})
	}
	return nil
}

// Runtime assembles the dependencies agent runs execute against.
func (i *Infrastructure) Runtime(cfg *config.WorkflowConfig) *workflow.Runtime {
	rt := &workflow.Runtime{
		Checkpoints:   i.Checkpoints,
		Logger:        i.Logger.With("workflow", "agents"),
		Tracer:        i.Tracing.Tracer("agentflow/workflow"),
		NodeTimeout:   cfg.NodeTimeoutDuration(),
		StrictOutputs: cfg.StrictOutputs,
	}
	if i.Models != nil {
		rt.Models = i.Models
	}
	if i.Storage != nil {
		rt.Archive = i.Storage
	}
	return rt
}
