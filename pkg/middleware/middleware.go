// Package middleware provides the HTTP middleware stack applied to modules:
// panic recovery, request logging, CORS and body size limits.
package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/JaimeStill/agentflow/pkg/handlers"
)

// Func wraps a handler.
type Func = func(http.Handler) http.Handler

// System is an ordered middleware stack. The first registered middleware
// runs outermost.
type System interface {
	Use(mw ...Func)
	Apply(handler http.Handler) http.Handler
}

type stack struct {
	mws []Func
}

// New creates an empty System.
func New() System {
	return &stack{}
}

func (s *stack) Use(mw ...Func) {
	s.mws = append(s.mws, mw...)
}

func (s *stack) Apply(handler http.Handler) http.Handler {
	for i := len(s.mws) - 1; i >= 0; i-- {
		handler = s.mws[i](handler)
	}
	return handler
}

// Recover converts a handler panic into a 500 response with kind "Internal".
// http.ErrAbortHandler is re-panicked so the server aborts the connection.
func Recover(logger *slog.Logger) Func {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				logger.ErrorContext(r.Context(), "handler panic",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", fmt.Sprint(v),
					"stack", string(debug.Stack()),
				)
				handlers.RespondJSON(w, http.StatusInternalServerError, map[string]string{
					"error": fmt.Sprintf("panic serving %s %s: %v", r.Method, r.URL.Path, v),
					"kind":  "Internal",
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// MaxBytes caps request bodies at limit bytes. Reads past the limit fail,
// which the JSON decoding in handlers reports as 400.
func MaxBytes(limit int64) Func {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
