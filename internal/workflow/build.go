package workflow

import (
	"fmt"

	"github.com/JaimeStill/agentflow/internal/nodes"
	"github.com/JaimeStill/agentflow/pkg/graph"
	"github.com/JaimeStill/agentflow/pkg/state"
)

// Graph is a compiled agent graph together with the output collisions found
// while inferring its state shape.
type Graph struct {
	Compiled   *graph.Compiled
	Collisions []state.Collision
}

// Topology returns the compiled structure with any collisions.
func (g *Graph) Topology() Topology {
	return Topology{
		Topology:   g.Compiled.Topology(),
		Collisions: g.Collisions,
	}
}

// Topology is the serializable view of a built agent graph.
type Topology struct {
	graph.Topology
	Collisions []state.Collision `json:"collisions,omitempty"`
}

// Build compiles ns, in declaration order, into an executable graph named name.
// Every call recompiles from the given node set.
func Build(rt *Runtime, name string, ns []nodes.Node) (*Graph, error) {
	if len(ns) == 0 {
		return nil, ErrNoNodes
	}

	logger := rt.logger().With("graph", name)

	outputs := make([]state.Output, 0, len(ns))
	for _, n := range ns {
		if n.Output != nil {
			outputs = append(outputs, state.Output{
				Owner: n.VertexID(),
				Name:  n.Output.Name,
				Kind:  n.Output.Type,
			})
		}
	}

	shape, collisions := state.Infer(outputs)
	for _, c := range collisions {
		logger.Warn("output name collision",
			"field", c.Field,
			"shadowed", c.Shadowed,
			"winner", c.Winner,
		)
	}
	if rt.StrictOutputs && len(collisions) > 0 {
		c := collisions[0]
		return nil, fmt.Errorf("%w: %s (nodes %s and %s)", ErrDuplicateOutput, c.Field, c.Shadowed, c.Winner)
	}

	g := graph.New(name, shape)
	env := rt.env()

	for _, n := range ns {
		action, err := n.Action(env)
		if err != nil {
			return nil, err
		}
		if err := g.AddNode(n.VertexID(), action); err != nil {
			return nil, err
		}
	}

	for _, n := range ns {
		id := n.VertexID()
		if n.SuccessorID != nil {
			if err := g.AddEdge(id, n.SuccessorID.String()); err != nil {
				return nil, err
			}
		}
		if n.IsStart {
			if err := g.SetEntryPoint(id); err != nil {
				return nil, err
			}
		}
		if n.IsEnd {
			if err := g.SetExitPoint(id); err != nil {
				return nil, err
			}
		}
	}

	compiled, err := g.Compile()
	if err != nil {
		return nil, err
	}

	logger.Debug("graph compiled", "vertices", compiled.Len(), "fields", len(shape))
	return &Graph{Compiled: compiled, Collisions: collisions}, nil
}
