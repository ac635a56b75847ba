package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/JaimeStill/agentflow/internal/config"
	"github.com/JaimeStill/agentflow/internal/infrastructure"
	"github.com/JaimeStill/agentflow/pkg/module"
)

// Server owns the process: infrastructure, the mounted modules and the
// HTTP listener.
type Server struct {
	cfg    *config.Config
	infra  *infrastructure.Infrastructure
	router *module.Router
	http   *httpServer
	logger *slog.Logger
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra, cfg.Version)
	modules.Mount(router)

	return &Server{
		cfg:    cfg,
		infra:  infra,
		router: router,
		http:   newHTTPServer(&cfg.Server, router, infra.Logger),
		logger: infra.Logger.With("version", cfg.Version, "env", cfg.Env()),
	}, nil
}

// Run starts every subsystem, serves until ctx is cancelled, then shuts
// down within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting agentflow",
		"addr", s.cfg.Server.Addr(),
		"modules", s.router.Prefixes(),
		"checkpoint_backend", s.cfg.Checkpoint.Backend,
		"archive", s.cfg.Storage.Enabled,
	)

	if err := s.infra.Start(); err != nil {
		return err
	}
	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}
	go s.reportStartup(ctx)

	<-ctx.Done()

	timeout := s.cfg.ShutdownTimeoutDuration()
	s.logger.Info("shutting down", "timeout", timeout)
	return s.infra.Lifecycle.Shutdown(timeout)
}

// reportStartup logs once startup hooks finish, warning about any readiness
// check that is still failing.
func (s *Server) reportStartup(ctx context.Context) {
	began := time.Now()
	s.infra.Lifecycle.WaitForStartup()

	status := s.infra.Lifecycle.Readiness(ctx)
	if status.Ready {
		s.logger.Info("ready", "elapsed", time.Since(began))
		return
	}
	for name, result := range status.Checks {
		if result != "ok" {
			s.logger.Warn("readiness check failing", "check", name, "result", result)
		}
	}
}
