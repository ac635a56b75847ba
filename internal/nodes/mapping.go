package nodes

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/JaimeStill/agentflow/pkg/query"
	"github.com/JaimeStill/agentflow/pkg/repository"
	"github.com/JaimeStill/agentflow/pkg/state"
)

var projection = query.
	NewProjectionMap("public", "nodes", "n").
	Project("id", "ID").
	Project("agent_id", "AgentID").
	Project("type", "Type").
	Project("name", "Name").
	Project("description", "Description").
	Project("is_start", "IsStart").
	Project("is_end", "IsEnd").
	Project("successor_id", "SuccessorID").
	Project("output_name", "OutputName").
	Project("output_type", "OutputType").
	Project("config", "Config").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field: "CreatedAt",
}

// declarationOrder sorts nodes in insertion order. Shape inference and entry
// point order depend on it being stable.
var declarationOrder = query.SortField{
	Field: "n.seq",
}

// Filters contains optional filtering criteria for node queries.
// Nil fields are ignored. AgentID and Type use exact matching; Name uses
// case-insensitive contains matching.
type Filters struct {
	AgentID *uuid.UUID `json:"agent_id,omitempty"`
	Type    *string    `json:"type,omitempty"`
	Name    *string    `json:"name,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("AgentID", f.AgentID).
		WhereEquals("Type", f.Type).
		WhereContains("Name", f.Name)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if a := values.Get("agent_id"); a != "" {
		if id, err := uuid.Parse(a); err == nil {
			f.AgentID = &id
		}
	}

	if t := values.Get("type"); t != "" {
		f.Type = &t
	}

	if n := values.Get("name"); n != "" {
		f.Name = &n
	}

	return f
}

// config is the persisted form of a node's variant block.
func (d Definition) config() ([]byte, error) {
	var block any
	switch d.Type {
	case TypeInput:
		block = d.Input
	case TypePrompt:
		block = d.Prompt
	case TypeLLM:
		block = d.LLM
	case TypeConditional:
		block = d.Conditional
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidNode, d.Type)
	}
	return json.Marshal(block)
}

func (d *Definition) decodeConfig(raw []byte) error {
	var target any
	switch d.Type {
	case TypeInput:
		d.Input = &InputConfig{}
		target = d.Input
	case TypePrompt:
		d.Prompt = &PromptConfig{}
		target = d.Prompt
	case TypeLLM:
		d.LLM = &LLMConfig{}
		target = d.LLM
	case TypeConditional:
		d.Conditional = &ConditionalConfig{}
		target = d.Conditional
	default:
		return fmt.Errorf("unknown node type %q", d.Type)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, target)
}

func (o *Output) columns() (sql.NullString, sql.NullString) {
	if o == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return sql.NullString{String: o.Name, Valid: true},
		sql.NullString{String: string(o.Type), Valid: true}
}

func scanNode(s repository.Scanner) (Node, error) {
	var (
		n          Node
		outputName sql.NullString
		outputType sql.NullString
		config     []byte
	)

	err := s.Scan(
		&n.ID,
		&n.AgentID,
		&n.Type,
		&n.Name,
		&n.Description,
		&n.IsStart,
		&n.IsEnd,
		&n.SuccessorID,
		&outputName,
		&outputType,
		&config,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return n, err
	}

	if outputName.Valid {
		kind, err := state.ParseKind(outputType.String)
		if err != nil {
			return n, fmt.Errorf("node %s output: %w", n.ID, err)
		}
		n.Output = &Output{Name: outputName.String, Type: kind}
	}

	if err := n.decodeConfig(config); err != nil {
		return n, fmt.Errorf("node %s config: %w", n.ID, err)
	}

	return n, nil
}
