package agents

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/agentflow/internal/workflow"
	"github.com/JaimeStill/agentflow/pkg/checkpoint"
	"github.com/JaimeStill/agentflow/pkg/pagination"
)

// System defines the public contract for agent domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Agent], error)

	// Find returns the agent with its nodes in declaration order.
	Find(ctx context.Context, id uuid.UUID) (*Agent, error)
	Create(ctx context.Context, cmd CreateCommand) (*Agent, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Agent, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Graph compiles the agent's current nodes and returns the topology.
	Graph(ctx context.Context, id uuid.UUID) (*workflow.Topology, error)
	Run(ctx context.Context, id uuid.UUID, opts workflow.Options) (*workflow.Result, error)
	Resume(ctx context.Context, id uuid.UUID, runID string) (*workflow.Result, error)

	// State returns the latest checkpoint of runID, which defaults to the agent id.
	State(ctx context.Context, id uuid.UUID, runID string) (*checkpoint.Checkpoint, error)
	Checkpoints(ctx context.Context, runID string) ([]checkpoint.Checkpoint, error)

	// Import creates an agent and its nodes from a manifest in one transaction.
	Import(ctx context.Context, m Manifest) (*Agent, error)
	Export(ctx context.Context, id uuid.UUID) (*Manifest, error)
}
