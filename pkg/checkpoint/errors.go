package checkpoint

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates no checkpoint exists for the requested run.
	ErrNotFound = errors.New("checkpoint not found")
	// ErrPersistence indicates a checkpoint could not be written or read.
	ErrPersistence = errors.New("checkpoint persistence failed")
	// ErrStepOrder indicates a save whose step does not advance the run.
	ErrStepOrder = errors.New("checkpoint step must increase")
	// ErrUnknownBackend indicates an unsupported store backend in configuration.
	ErrUnknownBackend = errors.New("unknown checkpoint backend")
)

func persistenceError(op, runID string, err error) error {
	if errors.Is(err, ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %s run %s: %w", ErrPersistence, op, runID, err)
}
