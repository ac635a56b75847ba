package agents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/agentflow/internal/nodes"
	"github.com/JaimeStill/agentflow/internal/workflow"
	"github.com/JaimeStill/agentflow/pkg/checkpoint"
	"github.com/JaimeStill/agentflow/pkg/pagination"
	"github.com/JaimeStill/agentflow/pkg/query"
	"github.com/JaimeStill/agentflow/pkg/repository"
)

const returning = `
		RETURNING id, project_id, name, description, created_at, updated_at`

type repo struct {
	db         *sql.DB
	rt         *workflow.Runtime
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates an agent repository implementing the System interface.
// Runs execute against rt.
func New(
	db *sql.DB,
	rt *workflow.Runtime,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		rt:         rt,
		logger:     logger.With("system", "agents"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Agent], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Name", "Description")

	filters.Apply(qb)

	qb.OrderByFields(page.Sort)

	result, err := repository.QueryPage(ctx, r.db, qb, page, scanAgent)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	return result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Agent, error) {
	a, ns, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Nodes = ns
	return a, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Agent, error) {
	if strings.TrimSpace(cmd.Name) == "" {
		return nil, fmt.Errorf("%w: name required", ErrInvalidAgent)
	}

	a, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Agent, error) {
		return insert(ctx, tx, cmd)
	})

	if err != nil {
		return nil, mapError(err)
	}

	r.logger.Info("agent created", "id", a.ID, "project_id", a.ProjectID, "name", a.Name)
	return &a, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Agent, error) {
	if strings.TrimSpace(cmd.Name) == "" {
		return nil, fmt.Errorf("%w: name required", ErrInvalidAgent)
	}

	q := `
		UPDATE agents
		SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3` + returning

	a, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Agent, error) {
		return repository.QueryOne(ctx, tx, q, []any{cmd.Name, cmd.Description, id}, scanAgent)
	})

	if err != nil {
		return nil, mapError(err)
	}

	r.logger.Info("agent updated", "id", a.ID, "name", a.Name)
	return &a, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM agents WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("agent deleted", "id", id)
	return nil
}

func (r *repo) Graph(ctx context.Context, id uuid.UUID) (*workflow.Topology, error) {
	a, ns, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}

	g, err := workflow.Build(r.rt, a.ID.String(), ns)
	if err != nil {
		return nil, fmt.Errorf("build agent %s: %w", a.ID, err)
	}

	topo := g.Topology()
	return &topo, nil
}

func (r *repo) Run(ctx context.Context, id uuid.UUID, opts workflow.Options) (*workflow.Result, error) {
	a, ns, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err := workflow.Execute(ctx, r.rt, a.ID, ns, opts)
	if err != nil {
		return nil, err
	}

	r.logger.Info("agent run complete",
		"id", a.ID,
		"run_id", result.RunID,
		"steps", result.Steps,
	)
	return result, nil
}

func (r *repo) Resume(ctx context.Context, id uuid.UUID, runID string) (*workflow.Result, error) {
	a, ns, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err := workflow.Resume(ctx, r.rt, a.ID, ns, runID)
	if err != nil {
		return nil, err
	}

	r.logger.Info("agent run resumed",
		"id", a.ID,
		"run_id", result.RunID,
		"steps", result.Steps,
	)
	return result, nil
}

func (r *repo) State(ctx context.Context, id uuid.UUID, runID string) (*checkpoint.Checkpoint, error) {
	if runID == "" {
		runID = id.String()
	}

	cp, err := r.rt.Checkpoints.Latest(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("state %s: %w", runID, err)
	}
	return cp, nil
}

func (r *repo) Checkpoints(ctx context.Context, runID string) ([]checkpoint.Checkpoint, error) {
	cps, err := r.rt.Checkpoints.List(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("checkpoints %s: %w", runID, err)
	}
	return cps, nil
}

func (r *repo) Import(ctx context.Context, m Manifest) (*Agent, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	a, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Agent, error) {
		a, err := insert(ctx, tx, CreateCommand{
			ProjectID:   m.ProjectID,
			Name:        m.Name,
			Description: m.Description,
		})
		if err != nil {
			return Agent{}, err
		}

		ids := make(map[string]uuid.UUID, len(m.Nodes))
		a.Nodes = make([]nodes.Node, 0, len(m.Nodes))

		for _, mn := range m.Nodes {
			d := mn.Definition
			d.SuccessorID = nil

			n, err := nodes.Insert(ctx, tx, a.ID, d)
			if err != nil {
				return Agent{}, fmt.Errorf("node %q: %w", mn.ref(), err)
			}
			ids[mn.ref()] = n.ID
			a.Nodes = append(a.Nodes, n)
		}

		for i, mn := range m.Nodes {
			if mn.Successor == "" {
				continue
			}
			succ := ids[mn.Successor]
			if err := nodes.SetSuccessor(ctx, tx, a.Nodes[i].ID, &succ); err != nil {
				return Agent{}, fmt.Errorf("node %q successor: %w", mn.ref(), err)
			}
			a.Nodes[i].SuccessorID = &succ
		}

		return a, nil
	})

	if err != nil {
		return nil, mapError(err)
	}

	r.logger.Info("agent imported",
		"id", a.ID,
		"project_id", a.ProjectID,
		"name", a.Name,
		"nodes", len(a.Nodes),
	)
	return &a, nil
}

func (r *repo) Export(ctx context.Context, id uuid.UUID) (*Manifest, error) {
	a, ns, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}

	m := NewManifest(*a, ns)
	return &m, nil
}

func (r *repo) load(ctx context.Context, id uuid.UUID) (*Agent, []nodes.Node, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	a, err := repository.QueryOne(ctx, r.db, q, args, scanAgent)
	if err != nil {
		return nil, nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	ns, err := nodes.ListByAgent(ctx, r.db, id)
	if err != nil {
		return nil, nil, err
	}

	return &a, ns, nil
}

func insert(ctx context.Context, tx *sql.Tx, cmd CreateCommand) (Agent, error) {
	q := `
		INSERT INTO agents(project_id, name, description)
		VALUES ($1, $2, $3)` + returning

	return repository.QueryOne(ctx, tx, q, []any{cmd.ProjectID, cmd.Name, cmd.Description}, scanAgent)
}

// mapError translates persistence errors. A foreign key violation means the
// referenced project is missing; node validation errors pass through.
func mapError(err error) error {
	if repository.IsForeignKeyViolation(err) {
		return ErrProjectNotFound
	}
	if errors.Is(err, nodes.ErrInvalidNode) {
		return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}
