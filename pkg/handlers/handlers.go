// Package handlers provides JSON request and response helpers shared by HTTP
// handlers.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// ErrEmptyBody is returned by DecodeJSON when the request has no body.
var ErrEmptyBody = errors.New("request body is empty")

// DecodeJSON decodes a single JSON value from the request body. Trailing
// content after the value is rejected.
func DecodeJSON[T any](r *http.Request) (T, error) {
	var v T
	if r.Body == nil || r.Body == http.NoBody {
		return v, ErrEmptyBody
	}

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return v, ErrEmptyBody
		}
		return v, fmt.Errorf("decode request body: %w", err)
	}
	if dec.More() {
		return v, fmt.Errorf("decode request body: unexpected data after JSON value")
	}
	return v, nil
}

// RespondJSON writes data as a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError logs err and writes it as a JSON error body.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, err error) {
	RespondErrorKind(w, logger, status, "", err)
}

// RespondErrorKind logs err and writes it with a machine-readable kind. An
// empty kind is omitted. Server errors log at error level and client errors
// at warn.
func RespondErrorKind(w http.ResponseWriter, logger *slog.Logger, status int, kind string, err error) {
	attrs := []any{"error", err, "status", status}
	body := map[string]string{"error": err.Error()}
	if kind != "" {
		attrs = append(attrs, "kind", kind)
		body["kind"] = kind
	}

	if status >= http.StatusInternalServerError {
		logger.Error("handler error", attrs...)
	} else {
		logger.Warn("request rejected", attrs...)
	}
	RespondJSON(w, status, body)
}
