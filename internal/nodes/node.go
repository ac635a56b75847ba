// Package nodes implements the node domain: typed units of work that belong to an
// agent and become vertices of the agent's compiled graph. It provides the node
// data model, persistence, HTTP endpoints, and the action each node variant
// contributes to a run.
package nodes

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/agentflow/pkg/state"
)

// Type identifies a node variant.
type Type string

const (
	TypeInput       Type = "input"
	TypePrompt      Type = "prompt"
	TypeLLM         Type = "llm"
	TypeConditional Type = "conditional"
)

// Valid reports whether t is a known node variant.
func (t Type) Valid() bool {
	switch t {
	case TypeInput, TypePrompt, TypeLLM, TypeConditional:
		return true
	}
	return false
}

// Output declares the state field a node writes.
type Output struct {
	Name string     `json:"name"`
	Type state.Kind `json:"type"`
}

// InputConfig holds the literal an input node writes to its output.
type InputConfig struct {
	Value string `json:"value"`
}

// PromptConfig holds an f-string template rendered from named state fields.
type PromptConfig struct {
	Template string   `json:"template"`
	Version  string   `json:"version"`
	Inputs   []string `json:"inputs"`
}

// ModelSettings selects the model and sampling temperature for an llm node.
type ModelSettings struct {
	Name        string  `json:"name"`
	Temperature float64 `json:"temperature"`
}

// LLMConfig holds the model settings and the state field sent as the prompt.
type LLMConfig struct {
	Model ModelSettings `json:"model"`
	Input string        `json:"input,omitempty"`
}

// Condition compares the conditional node's input against a value.
type Condition struct {
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// ConditionalConfig maps result keys to conditions over a single input field.
type ConditionalConfig struct {
	Input        string               `json:"input"`
	Conditionals map[string]Condition `json:"conditionals"`
}

// Definition holds the editable fields of a node. Exactly one variant block,
// matching Type, is set.
type Definition struct {
	Type        Type       `json:"type"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	IsStart     bool       `json:"is_start"`
	IsEnd       bool       `json:"is_end"`
	SuccessorID *uuid.UUID `json:"successor_id,omitempty"`
	Output      *Output    `json:"output,omitempty"`

	Input       *InputConfig       `json:"input,omitempty"`
	Prompt      *PromptConfig      `json:"prompt,omitempty"`
	LLM         *LLMConfig         `json:"llm,omitempty"`
	Conditional *ConditionalConfig `json:"conditional,omitempty"`
}

// Node is a persisted node belonging to an agent.
type Node struct {
	ID      uuid.UUID `json:"id"`
	AgentID uuid.UUID `json:"agent_id"`
	Definition
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VertexID is the identifier the node's vertex has in a compiled graph.
func (n Node) VertexID() string {
	return n.ID.String()
}

// CreateCommand carries the data needed to create a node under an agent.
type CreateCommand struct {
	AgentID uuid.UUID `json:"agent_id"`
	Definition
}

// UpdateCommand replaces a node's editable fields. The owning agent cannot change.
type UpdateCommand struct {
	Definition
}

// Validate checks that the definition is complete for its variant.
func (d Definition) Validate() error {
	if !d.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidNode, d.Type)
	}
	if d.Name == "" {
		return fmt.Errorf("%w: name required", ErrInvalidNode)
	}

	if d.Output != nil {
		if d.Output.Name == "" {
			return fmt.Errorf("%w: output name required", ErrInvalidNode)
		}
		if !d.Output.Type.Valid() {
			return fmt.Errorf("%w: output %s has unknown type %q", ErrInvalidNode, d.Output.Name, d.Output.Type)
		}
	} else if d.Type != TypeConditional {
		return fmt.Errorf("%w: %s node requires an output", ErrInvalidNode, d.Type)
	}

	switch d.Type {
	case TypeInput:
		if d.Input == nil {
			return fmt.Errorf("%w: input block required", ErrInvalidNode)
		}
	case TypePrompt:
		if d.Prompt == nil {
			return fmt.Errorf("%w: prompt block required", ErrInvalidNode)
		}
		if _, err := placeholders(d.Prompt.Template); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidNode, err)
		}
	case TypeLLM:
		if d.LLM == nil {
			return fmt.Errorf("%w: llm block required", ErrInvalidNode)
		}
		if d.LLM.Model.Name == "" {
			return fmt.Errorf("%w: model name required", ErrInvalidNode)
		}
	case TypeConditional:
		if d.Conditional == nil {
			return fmt.Errorf("%w: conditional block required", ErrInvalidNode)
		}
		if d.Conditional.Input == "" {
			return fmt.Errorf("%w: conditional input required", ErrInvalidNode)
		}
		for key, c := range d.Conditional.Conditionals {
			if !validOperator(c.Operator) {
				return fmt.Errorf("%w: condition %s has unknown operator %q", ErrInvalidNode, key, c.Operator)
			}
		}
		if d.Output != nil && d.Output.Type != state.KindString {
			return fmt.Errorf("%w: conditional output must be a string", ErrInvalidNode)
		}
	}

	return nil
}
