package projects

import (
	"encoding/json"
	"net/url"

	"github.com/google/uuid"

	"github.com/JaimeStill/agentflow/pkg/query"
	"github.com/JaimeStill/agentflow/pkg/repository"
)

const agentIDs = `COALESCE((
	SELECT json_agg(a.id ORDER BY a.created_at, a.id)
	FROM public.agents a
	WHERE a.project_id = p.id
), '[]'::json)`

var projection = query.
	NewProjectionMap("public", "projects", "p").
	Project("id", "ID").
	Project("name", "Name").
	Project("description", "Description").
	ProjectExpr(agentIDs, "Agents").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field: "Name",
}

// Filters contains optional filtering criteria for project queries.
// Name uses case-insensitive contains matching.
type Filters struct {
	Name *string `json:"name,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.WhereContains("Name", f.Name)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if n := values.Get("name"); n != "" {
		f.Name = &n
	}

	return f
}

func scanProject(s repository.Scanner) (Project, error) {
	var (
		p      Project
		agents []byte
	)
	err := s.Scan(&p.ID, &p.Name, &p.Description, &agents, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}

	p.Agents = make([]uuid.UUID, 0)
	if len(agents) > 0 {
		if err := json.Unmarshal(agents, &p.Agents); err != nil {
			return p, err
		}
	}
	return p, nil
}
