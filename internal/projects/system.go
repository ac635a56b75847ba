package projects

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/agentflow/pkg/pagination"
)

// System defines the public contract for project domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Project], error)

	Find(ctx context.Context, id uuid.UUID) (*Project, error)
	Create(ctx context.Context, cmd CreateCommand) (*Project, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Project, error)

	// Delete removes a project and, by cascade, its agents and their nodes.
	Delete(ctx context.Context, id uuid.UUID) error
}
