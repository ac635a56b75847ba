package graph

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyGraph      = errors.New("graph has no vertices")
	ErrNoEntryPoint    = errors.New("graph has no entry point")
	ErrDanglingEdge    = errors.New("edge references an undefined vertex")
	ErrDuplicateVertex = errors.New("vertex already defined")
	ErrUnknownVertex   = errors.New("vertex is not defined")
	ErrNilAction       = errors.New("vertex action is nil")

	ErrMultipleSuccessors = errors.New("vertex already has a successor")
)

// StepError reports a failure while executing a single vertex.
// No checkpoint is written for a failed step.
type StepError struct {
	RunID  string
	Step   int
	Vertex string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("run %s step %d vertex %s: %v", e.RunID, e.Step, e.Vertex, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
