package nodes

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/agentflow/pkg/pagination"
	"github.com/JaimeStill/agentflow/pkg/query"
	"github.com/JaimeStill/agentflow/pkg/repository"
)

const returning = `
		RETURNING id, agent_id, type, name, description, is_start, is_end,
				  successor_id, output_name, output_type, config,
				  created_at, updated_at`

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a node repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "nodes"),
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
) (*pagination.PageResult[Node], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Name", "Description")

	filters.Apply(qb)

	qb.OrderByFields(page.Sort)

	result, err := repository.QueryPage(ctx, r.db, qb, page, scanNode)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	return result, nil
}

func (r *repo) ListByAgent(ctx context.Context, agentID uuid.UUID) ([]Node, error) {
	return ListByAgent(ctx, r.db, agentID)
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Node, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	n, err := repository.QueryOne(ctx, r.db, q, args, scanNode)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &n, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Node, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	n, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Node, error) {
		return Insert(ctx, tx, cmd.AgentID, cmd.Definition)
	})

	if err != nil {
		return nil, mapError(err)
	}

	r.logger.Info("node created",
		"id", n.ID,
		"agent_id", n.AgentID,
		"type", n.Type,
		"name", n.Name,
	)
	return &n, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Node, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	config, err := cmd.config()
	if err != nil {
		return nil, err
	}
	outputName, outputType := cmd.Output.columns()

	q := `
		UPDATE nodes
		SET type = $1, name = $2, description = $3, is_start = $4, is_end = $5,
			successor_id = $6, output_name = $7, output_type = $8, config = $9,
			updated_at = NOW()
		WHERE id = $10` + returning

	args := []any{
		cmd.Type, cmd.Name, cmd.Description, cmd.IsStart, cmd.IsEnd,
		cmd.SuccessorID, outputName, outputType, config, id,
	}

	n, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Node, error) {
		return repository.QueryOne(ctx, tx, q, args, scanNode)
	})

	if err != nil {
		return nil, mapError(err)
	}

	r.logger.Info("node updated", "id", n.ID, "name", n.Name)
	return &n, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM nodes WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("node deleted", "id", id)
	return nil
}

// ListByAgent returns an agent's nodes in declaration order using q.
func ListByAgent(ctx context.Context, q repository.Querier, agentID uuid.UUID) ([]Node, error) {
	qb := query.
		NewBuilder(projection, declarationOrder).
		WhereEquals("AgentID", agentID)

	stmt, args := qb.Build()
	nodes, err := repository.QueryMany(ctx, q, stmt, args, scanNode)
	if err != nil {
		return nil, fmt.Errorf("query agent %s nodes: %w", agentID, err)
	}
	return nodes, nil
}

// Insert writes a node under agentID using q, which may be a transaction.
// The definition is validated first.
func Insert(ctx context.Context, q repository.Querier, agentID uuid.UUID, d Definition) (Node, error) {
	if err := d.Validate(); err != nil {
		return Node{}, err
	}

	config, err := d.config()
	if err != nil {
		return Node{}, err
	}
	outputName, outputType := d.Output.columns()

	stmt := `
		INSERT INTO nodes(
			agent_id, type, name, description, is_start, is_end,
			successor_id, output_name, output_type, config
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)` + returning

	args := []any{
		agentID, d.Type, d.Name, d.Description, d.IsStart, d.IsEnd,
		d.SuccessorID, outputName, outputType, config,
	}

	return repository.QueryOne(ctx, q, stmt, args, scanNode)
}

// SetSuccessor points node id at successor using e.
func SetSuccessor(ctx context.Context, e repository.Executor, id uuid.UUID, successor *uuid.UUID) error {
	return repository.ExecExpectOne(
		ctx, e,
		"UPDATE nodes SET successor_id = $1, updated_at = NOW() WHERE id = $2",
		successor, id,
	)
}

func mapError(err error) error {
	if repository.IsForeignKeyViolation(err) {
		return ErrAgentNotFound
	}
	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}
