package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/JaimeStill/agentflow/pkg/repository"
)

const postgresColumns = "run_id, step, vertex, frontier, completed, state, created_at"

// Postgres stores checkpoints in the service database's checkpoints table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a store over an open PostgreSQL pool. The schema is owned by migrations.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Save(ctx context.Context, cp Checkpoint) error {
	r, err := encodeRow(cp)
	if err != nil {
		return persistenceError("save", cp.RunID, err)
	}

	q := `
		INSERT INTO checkpoints (run_id, step, vertex, frontier, completed, state, created_at)
		SELECT $1::text, $2::int, $3::text, $4::jsonb, $5::jsonb, $6::jsonb, $7::timestamptz
		WHERE NOT EXISTS (
			SELECT 1 FROM checkpoints WHERE run_id = $1::text AND step >= $2::int
		)`

	err = repository.ExecExpectOne(ctx, p.db, q,
		cp.RunID, cp.Step, cp.Vertex, r.frontier, r.completed, r.state, cp.CreatedAt,
	)
	// A concurrent insert of the same step surfaces as a primary key violation.
	err = repository.MapError(err, ErrStepOrder, ErrStepOrder)
	if errors.Is(err, ErrStepOrder) {
		return persistenceError("save", cp.RunID, fmt.Errorf("%w: step %d", ErrStepOrder, cp.Step))
	}
	if err != nil {
		return persistenceError("save", cp.RunID, err)
	}
	return nil
}

func (p *Postgres) Latest(ctx context.Context, runID string) (*Checkpoint, error) {
	q := "SELECT " + postgresColumns + " FROM checkpoints WHERE run_id = $1 ORDER BY step DESC LIMIT 1"

	cp, err := repository.QueryOne(ctx, p.db, q, []any{runID}, scanCheckpoint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistenceError("latest", runID, err)
	}
	return &cp, nil
}

func (p *Postgres) List(ctx context.Context, runID string) ([]Checkpoint, error) {
	q := "SELECT " + postgresColumns + " FROM checkpoints WHERE run_id = $1 ORDER BY step"

	items, err := repository.QueryMany(ctx, p.db, q, []any{runID}, scanCheckpoint)
	if err != nil {
		return nil, persistenceError("list", runID, err)
	}
	return items, nil
}
