package agents

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/agentflow/internal/workflow"
)

// Domain errors for agent operations.
var (
	ErrNotFound        = errors.New("agent not found")
	ErrInvalidID       = errors.New("invalid agent id")
	ErrDuplicate       = errors.New("agent name already exists in project")
	ErrProjectNotFound = errors.New("project not found")
	ErrInvalidAgent    = errors.New("invalid agent")
	ErrInvalidManifest = errors.New("invalid agent manifest")
)

// MapHTTPStatus maps agent domain and run errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrProjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidID), errors.Is(err, ErrInvalidAgent), errors.Is(err, ErrInvalidManifest):
		return http.StatusBadRequest
	}
	return workflow.MapHTTPStatus(err)
}

// Kind names the failure category of err for error responses and CLI output.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrProjectNotFound):
		return "NotFound"
	case errors.Is(err, ErrDuplicate):
		return "Duplicate"
	case errors.Is(err, ErrInvalidID), errors.Is(err, ErrInvalidAgent), errors.Is(err, ErrInvalidManifest):
		return "Invalid"
	}
	return workflow.Kind(err)
}
