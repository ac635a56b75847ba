// Package graph compiles vertex and edge declarations into an executable state graph
// and runs it step by step, persisting a checkpoint after every vertex.
package graph

import (
	"context"
	"fmt"
	"maps"

	"github.com/JaimeStill/agentflow/pkg/state"
)

// Action executes a vertex. It receives a copy of the full state and returns
// a partial update containing only the fields it writes.
type Action func(ctx context.Context, s state.State) (state.State, error)

type edge struct {
	from string
	to   string
}

// Graph accumulates vertex and edge declarations prior to compilation.
type Graph struct {
	name    string
	shape   state.Shape
	ids     []string
	actions map[string]Action
	edges   []edge
	succ    map[string]string
	entries []string
	exits   map[string]bool
}

// New creates an empty graph over the given state shape.
func New(name string, shape state.Shape) *Graph {
	return &Graph{
		name:    name,
		shape:   maps.Clone(shape),
		actions: make(map[string]Action),
		succ:    make(map[string]string),
		exits:   make(map[string]bool),
	}
}

// AddNode declares a vertex. Declaration order determines entry order and topology order.
func (g *Graph) AddNode(id string, action Action) error {
	if action == nil {
		return fmt.Errorf("%w: %s", ErrNilAction, id)
	}
	if _, ok := g.actions[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateVertex, id)
	}
	g.ids = append(g.ids, id)
	g.actions[id] = action
	return nil
}

// AddEdge declares a directed edge. A vertex has at most one successor;
// endpoints are resolved by Compile.
func (g *Graph) AddEdge(from, to string) error {
	if prev, ok := g.succ[from]; ok {
		return fmt.Errorf("%w: %s -> %s (already -> %s)", ErrMultipleSuccessors, from, to, prev)
	}
	g.succ[from] = to
	g.edges = append(g.edges, edge{from: from, to: to})
	return nil
}

// SetEntryPoint marks a vertex as an entry point. Multiple entry points are
// executed in the order they are set.
func (g *Graph) SetEntryPoint(id string) error {
	if _, ok := g.actions[id]; !ok {
		return fmt.Errorf("%w: entry %s", ErrUnknownVertex, id)
	}
	for _, e := range g.entries {
		if e == id {
			return nil
		}
	}
	g.entries = append(g.entries, id)
	return nil
}

// SetExitPoint marks a vertex as an exit. Executing an exit ends its path.
func (g *Graph) SetExitPoint(id string) error {
	if _, ok := g.actions[id]; !ok {
		return fmt.Errorf("%w: exit %s", ErrUnknownVertex, id)
	}
	g.exits[id] = true
	return nil
}

// Compile validates the declarations and produces an immutable executable graph.
func (g *Graph) Compile() (*Compiled, error) {
	if len(g.ids) == 0 {
		return nil, ErrEmptyGraph
	}

	index := make(map[string]int, len(g.ids))
	vertices := make([]vertex, len(g.ids))
	for i, id := range g.ids {
		index[id] = i
		vertices[i] = vertex{id: id, action: g.actions[id], exit: g.exits[id]}
	}

	succ := make([][]int, len(vertices))
	edges := make([][2]int, 0, len(g.edges))
	for _, e := range g.edges {
		from, ok := index[e.from]
		if !ok {
			return nil, fmt.Errorf("%w: %s -> %s (source)", ErrDanglingEdge, e.from, e.to)
		}
		to, ok := index[e.to]
		if !ok {
			return nil, fmt.Errorf("%w: %s -> %s (target)", ErrDanglingEdge, e.from, e.to)
		}
		succ[from] = append(succ[from], to)
		edges = append(edges, [2]int{from, to})
	}

	if len(g.entries) == 0 {
		return nil, ErrNoEntryPoint
	}

	entries := make([]int, len(g.entries))
	for i, id := range g.entries {
		entries[i] = index[id]
	}

	return &Compiled{
		name:     g.name,
		shape:    maps.Clone(g.shape),
		vertices: vertices,
		index:    index,
		succ:     succ,
		edges:    edges,
		entries:  entries,
	}, nil
}
