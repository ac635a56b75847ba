// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/JaimeStill/agentflow/internal/config"
	"github.com/JaimeStill/agentflow/internal/infrastructure"
	"github.com/JaimeStill/agentflow/pkg/middleware"
	"github.com/JaimeStill/agentflow/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(
		middleware.Recover(runtime.Logger),
		middleware.CORS(&cfg.API.CORS),
		middleware.Logger(runtime.Logger),
		middleware.MaxBytes(cfg.API.MaxBodySizeBytes()),
	)

	return m, nil
}
