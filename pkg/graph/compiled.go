package graph

import (
	"maps"

	"github.com/JaimeStill/agentflow/pkg/state"
)

type vertex struct {
	id     string
	action Action
	exit   bool
}

// Compiled is an executable graph. Vertices live in a slice and edges are
// stored as index pairs, so traversal never follows pointers between vertices.
type Compiled struct {
	name     string
	shape    state.Shape
	vertices []vertex
	index    map[string]int
	succ     [][]int
	edges    [][2]int
	entries  []int
}

// Edge is a directed edge between two vertex ids.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Topology is the structural view of a compiled graph, in declaration order.
type Topology struct {
	Name     string      `json:"name"`
	Vertices []string    `json:"vertices"`
	Edges    []Edge      `json:"edges"`
	Entries  []string    `json:"entries"`
	Exits    []string    `json:"exits"`
	Shape    state.Shape `json:"shape"`
}

// Name returns the graph's name.
func (c *Compiled) Name() string {
	return c.name
}

// Shape returns a copy of the graph's state shape.
func (c *Compiled) Shape() state.Shape {
	return maps.Clone(c.shape)
}

// Len returns the number of vertices.
func (c *Compiled) Len() int {
	return len(c.vertices)
}

// Topology describes the compiled structure.
func (c *Compiled) Topology() Topology {
	t := Topology{
		Name:     c.name,
		Vertices: make([]string, len(c.vertices)),
		Edges:    make([]Edge, len(c.edges)),
		Entries:  make([]string, len(c.entries)),
		Exits:    []string{},
		Shape:    c.Shape(),
	}

	for i, v := range c.vertices {
		t.Vertices[i] = v.id
		if v.exit {
			t.Exits = append(t.Exits, v.id)
		}
	}
	for i, e := range c.edges {
		t.Edges[i] = Edge{From: c.vertices[e[0]].id, To: c.vertices[e[1]].id}
	}
	for i, e := range c.entries {
		t.Entries[i] = c.vertices[e].id
	}

	return t
}

func (c *Compiled) ids(indices []int) []string {
	out := make([]string, len(indices))
	for i, idx := range indices {
		out[i] = c.vertices[idx].id
	}
	return out
}
