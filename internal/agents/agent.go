// Package agents implements the agent domain: named node sets within a project
// and the operations that compile and run them.
package agents

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/agentflow/internal/nodes"
)

// Agent owns an ordered set of nodes. Nodes is populated by Find.
type Agent struct {
	ID          uuid.UUID    `json:"id"`
	ProjectID   uuid.UUID    `json:"project_id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Nodes       []nodes.Node `json:"nodes,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// CreateCommand carries the data needed to create an agent under a project.
type CreateCommand struct {
	ProjectID   uuid.UUID `json:"project_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

// UpdateCommand replaces an agent's editable fields.
type UpdateCommand struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
