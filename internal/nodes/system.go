package nodes

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/agentflow/pkg/pagination"
)

// System defines the public contract for node domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Node], error)

	// ListByAgent returns every node of an agent in declaration order.
	ListByAgent(ctx context.Context, agentID uuid.UUID) ([]Node, error)

	Find(ctx context.Context, id uuid.UUID) (*Node, error)
	Create(ctx context.Context, cmd CreateCommand) (*Node, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Node, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
