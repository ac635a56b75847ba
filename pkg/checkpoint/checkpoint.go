// Package checkpoint persists per-step execution snapshots keyed by run id.
// Stores are append-only: each run is an ordered sequence of checkpoints with
// strictly increasing step numbers.
package checkpoint

import (
	"context"
	"time"

	"github.com/JaimeStill/agentflow/pkg/state"
)

// Checkpoint is the persisted record written after a vertex completes.
// Frontier lists the vertices still pending on the run's worklist.
// Completed lists the vertices that have executed, in execution order.
type Checkpoint struct {
	RunID     string         `json:"run_id"`
	Step      int            `json:"step"`
	Vertex    string         `json:"vertex"`
	Frontier  []string       `json:"frontier"`
	Completed []string       `json:"completed"`
	State     state.Snapshot `json:"state"`
	CreatedAt time.Time      `json:"created_at"`
}

// Store persists and retrieves checkpoints.
type Store interface {
	// Save appends a checkpoint. Step must be greater than the run's latest step.
	Save(ctx context.Context, cp Checkpoint) error
	// Latest returns the highest-step checkpoint for a run, or ErrNotFound.
	Latest(ctx context.Context, runID string) (*Checkpoint, error)
	// List returns every checkpoint for a run in step order.
	List(ctx context.Context, runID string) ([]Checkpoint, error)
}
