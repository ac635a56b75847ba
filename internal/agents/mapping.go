package agents

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/JaimeStill/agentflow/pkg/query"
	"github.com/JaimeStill/agentflow/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "agents", "a").
	Project("id", "ID").
	Project("project_id", "ProjectID").
	Project("name", "Name").
	Project("description", "Description").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field: "Name",
}

// Filters contains optional filtering criteria for agent queries.
// ProjectID uses exact matching; Name uses case-insensitive contains matching.
type Filters struct {
	ProjectID *uuid.UUID `json:"project_id,omitempty"`
	Name      *string    `json:"name,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("ProjectID", f.ProjectID).
		WhereContains("Name", f.Name)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if p := values.Get("project_id"); p != "" {
		if id, err := uuid.Parse(p); err == nil {
			f.ProjectID = &id
		}
	}

	if n := values.Get("name"); n != "" {
		f.Name = &n
	}

	return f
}

func scanAgent(s repository.Scanner) (Agent, error) {
	var a Agent
	err := s.Scan(&a.ID, &a.ProjectID, &a.Name, &a.Description, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}
