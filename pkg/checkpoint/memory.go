package checkpoint

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Memory is a process-local Store.
type Memory struct {
	mu   sync.RWMutex
	runs map[string][]Checkpoint
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{runs: make(map[string][]Checkpoint)}
}

func (m *Memory) Save(_ context.Context, cp Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := m.runs[cp.RunID]
	if n := len(history); n > 0 && history[n-1].Step >= cp.Step {
		return persistenceError("save", cp.RunID,
			fmt.Errorf("%w: step %d after %d", ErrStepOrder, cp.Step, history[n-1].Step))
	}

	m.runs[cp.RunID] = append(history, clone(cp))
	return nil
}

func (m *Memory) Latest(_ context.Context, runID string) (*Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.runs[runID]
	if len(history) == 0 {
		return nil, ErrNotFound
	}

	cp := clone(history[len(history)-1])
	return &cp, nil
}

func (m *Memory) List(_ context.Context, runID string) ([]Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.runs[runID]
	out := make([]Checkpoint, len(history))
	for i, cp := range history {
		out[i] = clone(cp)
	}
	return out, nil
}

func clone(cp Checkpoint) Checkpoint {
	cp.Frontier = slices.Clone(cp.Frontier)
	cp.Completed = slices.Clone(cp.Completed)
	cp.State = maps.Clone(cp.State)
	return cp
}
