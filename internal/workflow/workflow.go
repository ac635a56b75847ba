package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/agentflow/internal/nodes"
	"github.com/JaimeStill/agentflow/pkg/graph"
	"github.com/JaimeStill/agentflow/pkg/state"
)

// Options adjusts a single run. An empty RunID defaults to the agent id.
type Options struct {
	RunID   string
	Initial state.State
}

// Result is the outcome of an agent run.
type Result struct {
	RunID       string      `json:"run_id"`
	AgentID     uuid.UUID   `json:"agent_id"`
	Steps       int         `json:"steps"`
	LastStep    int         `json:"last_step"`
	State       state.State `json:"state"`
	CompletedAt time.Time   `json:"completed_at"`
}

// Execute builds the agent's graph from ns and runs it to completion.
func Execute(ctx context.Context, rt *Runtime, agentID uuid.UUID, ns []nodes.Node, opts Options) (*Result, error) {
	g, err := Build(rt, agentID.String(), ns)
	if err != nil {
		return nil, fmt.Errorf("build agent %s: %w", agentID, err)
	}

	runID := opts.RunID
	if runID == "" {
		runID = agentID.String()
	}

	out, err := rt.executor().Run(ctx, g.Compiled, opts.Initial, runID)
	if err != nil {
		return nil, fmt.Errorf("run agent %s: %w", agentID, err)
	}

	return finish(ctx, rt, agentID, out), nil
}

// Resume rebuilds the agent's graph and continues runID from its latest
// checkpoint. An empty runID defaults to the agent id.
func Resume(ctx context.Context, rt *Runtime, agentID uuid.UUID, ns []nodes.Node, runID string) (*Result, error) {
	g, err := Build(rt, agentID.String(), ns)
	if err != nil {
		return nil, fmt.Errorf("build agent %s: %w", agentID, err)
	}

	if runID == "" {
		runID = agentID.String()
	}

	out, err := rt.executor().Resume(ctx, g.Compiled, runID)
	if err != nil {
		return nil, fmt.Errorf("resume agent %s: %w", agentID, err)
	}

	return finish(ctx, rt, agentID, out), nil
}

func finish(ctx context.Context, rt *Runtime, agentID uuid.UUID, out *graph.Result) *Result {
	result := &Result{
		RunID:       out.RunID,
		AgentID:     agentID,
		Steps:       out.Steps,
		LastStep:    out.LastStep,
		State:       out.State,
		CompletedAt: time.Now().UTC(),
	}

	if rt.Archive != nil {
		if err := archive(ctx, rt.Archive, result); err != nil {
			rt.logger().WarnContext(ctx, "archive run result failed",
				"run_id", result.RunID,
				"error", err,
			)
		}
	}

	return result
}

// ArchivePrefix is the blob prefix shared by every archived result of a run.
func ArchivePrefix(runID string) string {
	return "runs/" + runID + "/"
}

// ArchiveKey is the blob key a run result is archived under.
func ArchiveKey(runID string, step int) string {
	return fmt.Sprintf("%sstep-%d.json", ArchivePrefix(runID), step)
}

func archive(ctx context.Context, a Archive, result *Result) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return a.Upload(ctx, ArchiveKey(result.RunID, result.LastStep), bytes.NewReader(body), "application/json")
}
