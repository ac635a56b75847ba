package main

import (
	"errors"

	"github.com/JaimeStill/agentflow/internal/agents"
	"github.com/JaimeStill/agentflow/internal/nodes"
	"github.com/JaimeStill/agentflow/internal/projects"
	"github.com/JaimeStill/agentflow/internal/workflow"
	"github.com/JaimeStill/agentflow/pkg/checkpoint"
)

const (
	exitOK       = 0
	exitFailure  = 1
	exitNotFound = 2
)

// exitCode maps a command error to the process exit status. A joined error
// exits with 2 only if every member is a not-found condition.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		code := exitNotFound
		for _, e := range joined.Unwrap() {
			if exitCode(e) != exitNotFound {
				code = exitFailure
			}
		}
		return code
	}
	if isNotFound(err) {
		return exitNotFound
	}
	return exitFailure
}

func isNotFound(err error) bool {
	for _, target := range []error{
		projects.ErrNotFound,
		agents.ErrNotFound,
		agents.ErrProjectNotFound,
		nodes.ErrNotFound,
		nodes.ErrAgentNotFound,
		workflow.ErrNoNodes,
		checkpoint.ErrNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func errorKind(err error) string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		if errs := joined.Unwrap(); len(errs) > 0 {
			return errorKind(errs[0])
		}
	}
	switch {
	case errors.Is(err, projects.ErrNotFound), errors.Is(err, nodes.ErrNotFound):
		return "NotFound"
	case errors.Is(err, projects.ErrDuplicate), errors.Is(err, nodes.ErrDuplicate):
		return "Duplicate"
	case errors.Is(err, projects.ErrInvalidName), errors.Is(err, nodes.ErrInvalidNode),
		errors.Is(err, projects.ErrInvalidID), errors.Is(err, nodes.ErrInvalidID):
		return "Invalid"
	}
	return agents.Kind(err)
}
