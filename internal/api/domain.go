package api

import (
	"github.com/JaimeStill/agentflow/internal/agents"
	"github.com/JaimeStill/agentflow/internal/nodes"
	"github.com/JaimeStill/agentflow/internal/projects"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Projects projects.System
	Agents   agents.System
	Nodes    nodes.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	return &Domain{
		Projects: projects.New(db, runtime.Logger, runtime.Pagination),
		Agents:   agents.New(db, runtime.Workflow, runtime.Logger, runtime.Pagination),
		Nodes:    nodes.New(db, runtime.Logger, runtime.Pagination),
	}
}
