// Package projects implements the project domain: named groupings of agents.
package projects

import (
	"time"

	"github.com/google/uuid"
)

// Project groups agents under a unique name. Agents lists the ids of the
// project's agents in creation order and is derived from the agents table.
type Project struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Agents      []uuid.UUID `json:"agents"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// CreateCommand carries the data needed to create a project.
type CreateCommand struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateCommand replaces a project's editable fields.
type UpdateCommand struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
