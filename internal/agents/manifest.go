package agents

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/agentflow/internal/nodes"
)

// Manifest is the portable form of an agent. Nodes reference their successor
// by ref instead of by id, so a manifest can be imported into any project.
type Manifest struct {
	ProjectID   uuid.UUID      `json:"project_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Nodes       []ManifestNode `json:"nodes"`
}

// ManifestNode is a node definition addressed by ref. An empty Ref defaults
// to the node name.
type ManifestNode struct {
	Ref       string `json:"ref,omitempty"`
	Successor string `json:"successor,omitempty"`
	nodes.Definition
}

func (n ManifestNode) ref() string {
	if n.Ref != "" {
		return n.Ref
	}
	return n.Name
}

// Validate checks that refs are unique and every successor resolves.
func (m Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: name required", ErrInvalidManifest)
	}

	refs := make(map[string]bool, len(m.Nodes))
	names := make(map[string]bool, len(m.Nodes))
	for i, n := range m.Nodes {
		r := n.ref()
		if r == "" {
			return fmt.Errorf("%w: node %d has no ref or name", ErrInvalidManifest, i)
		}
		if refs[r] {
			return fmt.Errorf("%w: duplicate ref %q", ErrInvalidManifest, r)
		}
		if names[n.Name] {
			return fmt.Errorf("%w: duplicate node name %q", ErrInvalidManifest, n.Name)
		}
		refs[r] = true
		names[n.Name] = true
	}

	for _, n := range m.Nodes {
		if n.Successor != "" && !refs[n.Successor] {
			return fmt.Errorf("%w: node %q successor %q is not defined", ErrInvalidManifest, n.ref(), n.Successor)
		}
	}

	return nil
}

// NewManifest describes an agent and its nodes. Successors outside the node
// set are exported by id.
func NewManifest(a Agent, ns []nodes.Node) Manifest {
	names := make(map[uuid.UUID]string, len(ns))
	for _, n := range ns {
		names[n.ID] = n.Name
	}

	m := Manifest{
		ProjectID:   a.ProjectID,
		Name:        a.Name,
		Description: a.Description,
		Nodes:       make([]ManifestNode, 0, len(ns)),
	}

	for _, n := range ns {
		mn := ManifestNode{Ref: n.Name, Definition: n.Definition}
		if n.SuccessorID != nil {
			if name, ok := names[*n.SuccessorID]; ok {
				mn.Successor = name
			} else {
				mn.Successor = n.SuccessorID.String()
			}
		}
		mn.SuccessorID = nil
		m.Nodes = append(m.Nodes, mn)
	}

	return m
}
