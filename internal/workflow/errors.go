// Package workflow coordinates agent runs: it compiles an agent's nodes into a
// graph, executes it against the checkpoint store, and archives the result.
package workflow

import (
	"context"
	"errors"
	"net/http"

	"github.com/JaimeStill/agentflow/internal/nodes"
	"github.com/JaimeStill/agentflow/pkg/checkpoint"
	"github.com/JaimeStill/agentflow/pkg/graph"
	"github.com/JaimeStill/agentflow/pkg/provider"
	"github.com/JaimeStill/agentflow/pkg/state"
)

// Sentinel errors for run coordination.
var (
	ErrNoNodes         = errors.New("agent has no nodes")
	ErrDuplicateOutput = errors.New("output name declared by more than one node")
)

var kinds = []struct {
	err  error
	name string
}{
	{checkpoint.ErrStepOrder, "Conflict"},
	{checkpoint.ErrPersistence, "PersistenceFailure"},
	{ErrNoNodes, "NoNodes"},
	{ErrDuplicateOutput, "DuplicateOutputName"},
	{graph.ErrEmptyGraph, "EmptyGraph"},
	{graph.ErrNoEntryPoint, "NoEntryPoint"},
	{graph.ErrDanglingEdge, "DanglingEdge"},
	{nodes.ErrInvalidNode, "InvalidNode"},
	{nodes.ErrMissingField, "MissingField"},
	{nodes.ErrTemplate, "TemplateError"},
	{provider.ErrProviderUnavailable, "ProviderUnavailable"},
	{provider.ErrUpstream, "UpstreamError"},
	{state.ErrTypeMismatch, "TypeMismatch"},
	{state.ErrUndeclaredField, "UndeclaredField"},
	{checkpoint.ErrNotFound, "NotFound"},
	{context.DeadlineExceeded, "Timeout"},
	{context.Canceled, "Cancelled"},
}

// Kind names the failure category of err. Unrecognized errors are "Internal".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Internal"
}

// MapHTTPStatus maps run errors to HTTP status codes. An agent without nodes
// and a run without checkpoints are not found, and a checkpoint rejected for
// step order means another run holds the lineage. Every other failure is a 500.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNoNodes), errors.Is(err, checkpoint.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, checkpoint.ErrStepOrder):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
