package api

import (
	"net/http"

	"github.com/JaimeStill/agentflow/internal/config"
	"github.com/JaimeStill/agentflow/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	agents := domain.Agents.Handler()

	groups := []routes.Group{
		domain.Projects.Handler().Routes(),
		agents.Routes(),
		agents.RunRoutes(),
		domain.Nodes.Handler().Routes(),
	}

	if runtime.Storage != nil {
		groups = append(groups, newArchiveHandler(
			runtime.Storage,
			runtime.Logger,
			cfg.Storage.MaxListSize,
		).routes()...)
	}

	for _, pattern := range routes.Register(mux, groups...) {
		runtime.Logger.Debug("route registered", "pattern", pattern)
	}
}
