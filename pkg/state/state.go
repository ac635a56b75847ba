package state

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// State maps field names to typed values. States are treated as immutable;
// Merge and Clone return new maps.
type State map[string]Value

// Get returns the value for a field and whether it exists.
func (s State) Get(key string) (Value, bool) {
	v, ok := s[key]
	return v, ok
}

// Keys returns field names in sorted order.
func (s State) Keys() []string {
	return slices.Sorted(maps.Keys(s))
}

// Clone returns a shallow copy. Values are immutable so a shallow copy is sufficient.
func (s State) Clone() State {
	out := make(State, len(s))
	maps.Copy(out, s)
	return out
}

// Merge applies a partial update on top of s and returns the result.
// Every updated field must be declared in shape with a matching kind;
// fields absent from the update keep their current value.
func (s State) Merge(update State, shape Shape) (State, error) {
	out := s.Clone()
	for _, key := range update.Keys() {
		v := update[key]
		kind, ok := shape[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUndeclaredField, key)
		}
		if v.Kind() != kind {
			return nil, fmt.Errorf("%w: %s is %s, got %s", ErrTypeMismatch, key, kind, v.Kind())
		}
		if f, ok := v.Float64(); ok && !finite(f) {
			return nil, fmt.Errorf("%w: %s is not a finite float", ErrTypeMismatch, key)
		}
		out[key] = v
	}
	return out, nil
}

// Snapshot converts the state into its self-describing persisted form.
func (s State) Snapshot() (Snapshot, error) {
	snap := make(Snapshot, len(s))
	for key, v := range s {
		raw, err := v.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		snap[key] = Typed{Kind: v.Kind(), Value: raw}
	}
	return snap, nil
}

// Typed is a persisted value carrying its kind.
type Typed struct {
	Kind  Kind            `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// Snapshot is the persisted form of a State.
type Snapshot map[string]Typed

// State decodes a snapshot back into typed values.
func (s Snapshot) State() (State, error) {
	out := make(State, len(s))
	for key, t := range s {
		v, err := Decode(t.Kind, t.Value)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		out[key] = v
	}
	return out, nil
}
