package api

import (
	"github.com/JaimeStill/agentflow/internal/config"
	"github.com/JaimeStill/agentflow/internal/infrastructure"
	"github.com/JaimeStill/agentflow/internal/workflow"
	"github.com/JaimeStill/agentflow/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration and the
// dependencies agent runs execute against.
type Runtime struct {
	*infrastructure.Infrastructure
	Workflow   *workflow.Runtime
	Pagination pagination.Config
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	scoped := *infra
	scoped.Logger = infra.Logger.With("module", "api")

	return &Runtime{
		Infrastructure: &scoped,
		Workflow:       scoped.Runtime(&cfg.Workflow),
		Pagination:     cfg.API.Pagination,
	}
}
