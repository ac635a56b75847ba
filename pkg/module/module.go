// Package module mounts prefixed HTTP sub-applications, each with its own
// middleware stack, behind a single router.
package module

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/JaimeStill/agentflow/pkg/middleware"
)

// Module serves an inner router under a single-level path prefix. The
// prefix is stripped before dispatch.
type Module struct {
	prefix     string
	router     http.Handler
	middleware middleware.System

	once    sync.Once
	handler http.Handler
}

// New creates a Module for prefix (e.g. "/api"). Panics if the prefix is
// empty, lacks a leading slash, or has more than one segment.
func New(prefix string, router http.Handler) *Module {
	if err := validatePrefix(prefix); err != nil {
		panic(err)
	}
	return &Module{
		prefix:     prefix,
		router:     router,
		middleware: middleware.New(),
	}
}

// Use appends middleware to the stack. The stack is frozen on the first
// request; middleware added after that is ignored.
func (m *Module) Use(mw ...middleware.Func) {
	m.middleware.Use(mw...)
}

// Handler returns the inner router wrapped with the middleware stack.
func (m *Module) Handler() http.Handler {
	m.once.Do(func() {
		m.handler = m.middleware.Apply(m.router)
	})
	return m.handler
}

// Prefix returns the module's path prefix.
func (m *Module) Prefix() string {
	return m.prefix
}

// Serve strips the prefix from the request path and dispatches through the
// middleware stack.
func (m *Module) Serve(w http.ResponseWriter, req *http.Request) {
	m.Handler().ServeHTTP(w, withPath(req, stripPrefix(req.URL.Path, m.prefix)))
}

func withPath(req *http.Request, path string) *http.Request {
	r := req.Clone(req.Context())
	u := *req.URL
	u.Path = path
	u.RawPath = ""
	r.URL = &u
	return r
}

func stripPrefix(path, prefix string) string {
	rest := strings.TrimPrefix(path, prefix)
	if rest == "" {
		return "/"
	}
	return rest
}

func validatePrefix(prefix string) error {
	switch {
	case prefix == "":
		return fmt.Errorf("module prefix cannot be empty")
	case !strings.HasPrefix(prefix, "/"):
		return fmt.Errorf("module prefix must start with /: %s", prefix)
	case strings.Count(prefix, "/") != 1 || prefix == "/":
		return fmt.Errorf("module prefix must be a single path segment: %s", prefix)
	}
	return nil
}
