// Package state defines the typed state record that flows through a compiled graph:
// field kinds, tagged values, shape inference, and the merge rules applied after each step.
package state

import (
	"fmt"
	"strings"
)

// Kind is the declared type of a state field.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindJSON   Kind = "json"
)

// ParseKind resolves a kind name. "str" is accepted as an alias for string.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "str":
		return KindString, nil
	case "int":
		return KindInt, nil
	case "float":
		return KindFloat, nil
	case "json":
		return KindJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindString, KindInt, KindFloat, KindJSON:
		return true
	}
	return false
}

// UnmarshalText normalizes aliases when decoding from JSON, TOML, or YAML.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
