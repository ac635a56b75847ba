package checkpoint

import (
	"encoding/json"
	"fmt"

	"github.com/JaimeStill/agentflow/pkg/repository"
)

type row struct {
	frontier  []byte
	completed []byte
	state     []byte
}

func encodeRow(cp Checkpoint) (row, error) {
	var r row
	var err error

	if r.frontier, err = json.Marshal(nonNil(cp.Frontier)); err != nil {
		return r, fmt.Errorf("encode frontier: %w", err)
	}
	if r.completed, err = json.Marshal(nonNil(cp.Completed)); err != nil {
		return r, fmt.Errorf("encode completed: %w", err)
	}
	if r.state, err = json.Marshal(cp.State); err != nil {
		return r, fmt.Errorf("encode state: %w", err)
	}
	return r, nil
}

func (r row) decode(cp *Checkpoint) error {
	if err := json.Unmarshal(r.frontier, &cp.Frontier); err != nil {
		return fmt.Errorf("decode frontier: %w", err)
	}
	if err := json.Unmarshal(r.completed, &cp.Completed); err != nil {
		return fmt.Errorf("decode completed: %w", err)
	}
	if err := json.Unmarshal(r.state, &cp.State); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}
	cp.Frontier = nonNil(cp.Frontier)
	cp.Completed = nonNil(cp.Completed)
	return nil
}

func scanCheckpoint(s repository.Scanner) (Checkpoint, error) {
	var cp Checkpoint
	var r row

	if err := s.Scan(
		&cp.RunID,
		&cp.Step,
		&cp.Vertex,
		&r.frontier,
		&r.completed,
		&r.state,
		&cp.CreatedAt,
	); err != nil {
		return cp, err
	}

	return cp, r.decode(&cp)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
