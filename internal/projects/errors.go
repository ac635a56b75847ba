package projects

import (
	"errors"
	"net/http"
)

// Domain errors for project operations.
var (
	ErrNotFound    = errors.New("project not found")
	ErrInvalidID   = errors.New("invalid project id")
	ErrDuplicate   = errors.New("project name already exists")
	ErrInvalidName = errors.New("project name required")
)

// MapHTTPStatus maps project domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidID) || errors.Is(err, ErrInvalidName) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
