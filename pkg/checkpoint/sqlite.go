package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JaimeStill/agentflow/pkg/repository"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	run_id     TEXT    NOT NULL,
	step       INTEGER NOT NULL,
	vertex     TEXT    NOT NULL,
	frontier   TEXT    NOT NULL,
	completed  TEXT    NOT NULL,
	state      TEXT    NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (run_id, step)
)`

// SQLite stores checkpoints in a local database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database file at path and ensures the schema exists.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create checkpoint schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close releases the database file.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Save(ctx context.Context, cp Checkpoint) error {
	r, err := encodeRow(cp)
	if err != nil {
		return persistenceError("save", cp.RunID, err)
	}

	_, err = repository.WithTx(ctx, s.db, func(tx *sql.Tx) (struct{}, error) {
		var latest sql.NullInt64
		if err := tx.QueryRowContext(ctx,
			"SELECT MAX(step) FROM checkpoints WHERE run_id = ?", cp.RunID,
		).Scan(&latest); err != nil {
			return struct{}{}, err
		}
		if latest.Valid && latest.Int64 >= int64(cp.Step) {
			return struct{}{}, fmt.Errorf("%w: step %d after %d", ErrStepOrder, cp.Step, latest.Int64)
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO checkpoints (run_id, step, vertex, frontier, completed, state, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			cp.RunID, cp.Step, cp.Vertex,
			string(r.frontier), string(r.completed), string(r.state),
			cp.CreatedAt.UnixNano(),
		)
		return struct{}{}, err
	})
	if err != nil {
		return persistenceError("save", cp.RunID, err)
	}
	return nil
}

func (s *SQLite) Latest(ctx context.Context, runID string) (*Checkpoint, error) {
	q := `SELECT run_id, step, vertex, frontier, completed, state, created_at
	      FROM checkpoints WHERE run_id = ? ORDER BY step DESC LIMIT 1`

	cp, err := repository.QueryOne(ctx, s.db, q, []any{runID}, scanSQLite)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistenceError("latest", runID, err)
	}
	return &cp, nil
}

func (s *SQLite) List(ctx context.Context, runID string) ([]Checkpoint, error) {
	q := `SELECT run_id, step, vertex, frontier, completed, state, created_at
	      FROM checkpoints WHERE run_id = ? ORDER BY step`

	items, err := repository.QueryMany(ctx, s.db, q, []any{runID}, scanSQLite)
	if err != nil {
		return nil, persistenceError("list", runID, err)
	}
	return items, nil
}

func scanSQLite(sc repository.Scanner) (Checkpoint, error) {
	var cp Checkpoint
	var frontier, completed, snap string
	var created int64

	if err := sc.Scan(&cp.RunID, &cp.Step, &cp.Vertex, &frontier, &completed, &snap, &created); err != nil {
		return cp, err
	}

	cp.CreatedAt = time.Unix(0, created).UTC()
	r := row{frontier: []byte(frontier), completed: []byte(completed), state: []byte(snap)}
	return cp, r.decode(&cp)
}
