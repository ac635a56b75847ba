package main

import (
	"net/http"

	"github.com/JaimeStill/agentflow/internal/api"
	"github.com/JaimeStill/agentflow/internal/config"
	"github.com/JaimeStill/agentflow/internal/infrastructure"
	"github.com/JaimeStill/agentflow/pkg/handlers"
	"github.com/JaimeStill/agentflow/pkg/module"
)

// Modules are the prefixed sub-applications mounted on the root router.
type Modules struct {
	API *module.Module
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}
	return &Modules{API: apiModule}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
}

// buildRouter creates the root router with the liveness and readiness
// checks. /readyz reports each registered check and answers 503 until all
// pass.
func buildRouter(infra *infrastructure.Infrastructure, version string) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		status := infra.Lifecycle.Readiness(r.Context())
		code := http.StatusOK
		if !status.Ready {
			code = http.StatusServiceUnavailable
		}
		handlers.RespondJSON(w, code, status)
	})

	return router
}
