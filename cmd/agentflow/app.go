package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/agentflow/internal/agents"
	"github.com/JaimeStill/agentflow/internal/config"
	"github.com/JaimeStill/agentflow/internal/infrastructure"
	"github.com/JaimeStill/agentflow/internal/nodes"
	"github.com/JaimeStill/agentflow/internal/projects"
)

// app is the per-invocation wiring of domain systems over infrastructure.
type app struct {
	cfg      *config.Config
	infra    *infrastructure.Infrastructure
	projects projects.System
	agents   agents.System
	nodes    nodes.System
	out      io.Writer
	json     bool
}

// withApp loads configuration, starts infrastructure, runs fn and shuts the
// infrastructure down again.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	infra, err := infrastructure.NewWithLogger(cfg, logger)
	if err != nil {
		return err
	}
	if err := infra.Start(); err != nil {
		return err
	}
	infra.Lifecycle.WaitForStartup()

	defer func() {
		if err := infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration()); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	db := infra.Database.Connection()
	pagination := cfg.API.Pagination

	a := &app{
		cfg:      cfg,
		infra:    infra,
		projects: projects.New(db, logger, pagination),
		agents:   agents.New(db, infra.Runtime(&cfg.Workflow), logger, pagination),
		nodes:    nodes.New(db, logger, pagination),
		out:      cmd.OutOrStdout(),
		json:     opts.json,
	}

	return fn(cmd.Context(), a)
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	if opts.configPath != "" {
		return config.LoadFile(opts.configPath)
	}
	return config.Load()
}

// render writes v as indented JSON when --json is set and otherwise hands a
// tabwriter to table.
func (a *app) render(v any, table func(w *tabwriter.Writer)) error {
	if a.json {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		fmt.Fprintln(a.out, string(data))
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	table(w)
	return w.Flush()
}
