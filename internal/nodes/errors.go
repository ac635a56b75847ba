package nodes

import (
	"errors"
	"net/http"
)

// Domain errors for node operations.
var (
	ErrNotFound      = errors.New("node not found")
	ErrInvalidID     = errors.New("invalid node id")
	ErrDuplicate     = errors.New("node name already exists for agent")
	ErrInvalidNode   = errors.New("invalid node")
	ErrAgentNotFound = errors.New("agent not found")
)

// Action errors raised while a node executes.
var (
	ErrMissingField = errors.New("input field missing from state")
	ErrTemplate     = errors.New("template error")
)

// MapHTTPStatus maps node domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAgentNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidID) || errors.Is(err, ErrInvalidNode) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
