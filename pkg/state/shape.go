package state

import (
	"maps"
	"slices"
)

// Shape declares the fields of a state record and their kinds.
type Shape map[string]Kind

// Fields returns declared field names in sorted order.
func (s Shape) Fields() []string {
	return slices.Sorted(maps.Keys(s))
}

// Init returns a state with every declared field at its zero value.
func (s Shape) Init() State {
	out := make(State, len(s))
	for key, kind := range s {
		out[key] = Zero(kind)
	}
	return out
}

// Output is a single field declaration contributed by an owner, typically a node.
type Output struct {
	Owner string
	Name  string
	Kind  Kind
}

// Collision records an output declaration that replaced an earlier one.
type Collision struct {
	Field        string `json:"field"`
	Shadowed     string `json:"shadowed"`
	ShadowedKind Kind   `json:"shadowed_kind"`
	Winner       string `json:"winner"`
	WinnerKind   Kind   `json:"winner_kind"`
}

// Infer builds a shape from output declarations in the given order.
// When two outputs share a name the later declaration wins and the
// replacement is reported as a collision. Outputs without a name are skipped.
func Infer(outputs []Output) (Shape, []Collision) {
	shape := make(Shape, len(outputs))
	owners := make(map[string]Output, len(outputs))
	var collisions []Collision

	for _, o := range outputs {
		if o.Name == "" {
			continue
		}
		if prev, ok := owners[o.Name]; ok {
			collisions = append(collisions, Collision{
				Field:        o.Name,
				Shadowed:     prev.Owner,
				ShadowedKind: prev.Kind,
				Winner:       o.Owner,
				WinnerKind:   o.Kind,
			})
		}
		owners[o.Name] = o
		shape[o.Name] = o.Kind
	}

	return shape, collisions
}
