// Package routes declares HTTP route groups and registers them on a ServeMux.
package routes

import "net/http"

// Route binds a method and a pattern, relative to its group, to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Group shares a path prefix across its routes and nested groups.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Walk calls fn with the fully qualified "METHOD /path" pattern of every
// route in groups, depth first in declaration order.
func Walk(fn func(pattern string, h http.HandlerFunc), groups ...Group) {
	for _, g := range groups {
		walk("", g, fn)
	}
}

func walk(parent string, g Group, fn func(string, http.HandlerFunc)) {
	prefix := parent + g.Prefix
	for _, r := range g.Routes {
		fn(r.Method+" "+prefix+r.Pattern, r.Handler)
	}
	for _, child := range g.Children {
		walk(prefix, child, fn)
	}
}

// Register adds every route in groups to mux and returns the registered
// patterns.
func Register(mux *http.ServeMux, groups ...Group) []string {
	var patterns []string
	Walk(func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, h)
		patterns = append(patterns, pattern)
	}, groups...)
	return patterns
}
