package projects

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/agentflow/pkg/pagination"
	"github.com/JaimeStill/agentflow/pkg/query"
	"github.com/JaimeStill/agentflow/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a project repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "projects"),
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
) (*pagination.PageResult[Project], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Name", "Description")

	filters.Apply(qb)

	qb.OrderByFields(page.Sort)

	result, err := repository.QueryPage(ctx, r.db, qb, page, scanProject)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Project, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	p, err := repository.QueryOne(ctx, r.db, q, args, scanProject)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Project, error) {
	if strings.TrimSpace(cmd.Name) == "" {
		return nil, ErrInvalidName
	}

	q := `
		INSERT INTO projects(name, description)
		VALUES ($1, $2)
		RETURNING id`

	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Project, error) {
		var id uuid.UUID
		if err := tx.QueryRowContext(ctx, q, cmd.Name, cmd.Description).Scan(&id); err != nil {
			return Project{}, err
		}
		return findTx(ctx, tx, id)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("project created", "id", p.ID, "name", p.Name)
	return &p, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Project, error) {
	if strings.TrimSpace(cmd.Name) == "" {
		return nil, ErrInvalidName
	}

	q := `
		UPDATE projects
		SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3`

	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Project, error) {
		if err := repository.ExecExpectOne(ctx, tx, q, cmd.Name, cmd.Description, id); err != nil {
			return Project{}, err
		}
		return findTx(ctx, tx, id)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("project updated", "id", p.ID, "name", p.Name)
	return &p, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM projects WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("project deleted", "id", id)
	return nil
}

func findTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) (Project, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)
	return repository.QueryOne(ctx, tx, q, args, scanProject)
}
