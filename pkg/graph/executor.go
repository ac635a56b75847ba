package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/JaimeStill/agentflow/pkg/checkpoint"
	"github.com/JaimeStill/agentflow/pkg/state"
)

// Result is the outcome of a run or resume.
// Steps counts the vertices executed by this invocation; LastStep is the
// run's latest persisted step number.
type Result struct {
	RunID    string      `json:"run_id"`
	Steps    int         `json:"steps"`
	LastStep int         `json:"last_step"`
	State    state.State `json:"state"`
}

// Executor runs compiled graphs against a checkpoint store.
type Executor struct {
	store  checkpoint.Store
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithTracer sets the tracer used for per-step spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Executor) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithClock overrides the checkpoint timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

// NewExecutor creates an executor persisting to store.
func NewExecutor(store checkpoint.Store, logger *slog.Logger, opts ...Option) *Executor {
	e := &Executor{
		store:  store,
		logger: logger.With("system", "graph"),
		tracer: noop.NewTracerProvider().Tracer("agentflow/graph"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes g from its entry points. The initial state overlays the shape's
// zero values and must only contain declared fields.
//
// Entry points are visited in declaration order and each path follows its
// successors depth-first until an exit vertex or a vertex without successors.
// A vertex executes at most once per invocation. Step numbers continue from
// the latest checkpoint already stored under runID.
func (e *Executor) Run(ctx context.Context, g *Compiled, initial state.State, runID string) (*Result, error) {
	s, err := g.shape.Init().Merge(initial, g.shape)
	if err != nil {
		return nil, fmt.Errorf("initial state: %w", err)
	}

	step := 0
	latest, err := e.store.Latest(ctx, runID)
	switch {
	case err == nil:
		step = latest.Step
	case !errors.Is(err, checkpoint.ErrNotFound):
		return nil, fmt.Errorf("run %s: %w", runID, wrapPersistence(err))
	}

	e.logger.InfoContext(ctx, "run started",
		"run_id", runID,
		"graph", g.name,
		"vertices", len(g.vertices),
		"from_step", step,
	)

	return e.drive(ctx, g, runID, s, step, append([]int(nil), g.entries...), nil)
}

// Resume continues a run from its latest checkpoint: the stored frontier is
// executed with the stored completed set and state.
func (e *Executor) Resume(ctx context.Context, g *Compiled, runID string) (*Result, error) {
	latest, err := e.store.Latest(ctx, runID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return nil, fmt.Errorf("resume %s: %w", runID, err)
		}
		return nil, fmt.Errorf("resume %s: %w", runID, wrapPersistence(err))
	}

	stored, err := latest.State.State()
	if err != nil {
		return nil, fmt.Errorf("resume %s: %w", runID, err)
	}

	s, err := g.shape.Init().Merge(stored, g.shape)
	if err != nil {
		return nil, fmt.Errorf("resume %s: %w", runID, err)
	}

	frontier, err := g.resolve(latest.Frontier)
	if err != nil {
		return nil, fmt.Errorf("resume %s: frontier: %w", runID, err)
	}

	completed, err := g.resolve(latest.Completed)
	if err != nil {
		return nil, fmt.Errorf("resume %s: completed: %w", runID, err)
	}

	e.logger.InfoContext(ctx, "run resumed",
		"run_id", runID,
		"graph", g.name,
		"from_step", latest.Step,
		"pending", len(frontier),
	)

	return e.drive(ctx, g, runID, s, latest.Step, frontier, completed)
}

func (e *Executor) drive(
	ctx context.Context,
	g *Compiled,
	runID string,
	s state.State,
	step int,
	frontier []int,
	completed []int,
) (*Result, error) {
	done := make([]bool, len(g.vertices))
	for _, idx := range completed {
		done[idx] = true
	}

	executed := 0
	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run %s: %w", runID, err)
		}

		idx := frontier[0]
		frontier = frontier[1:]
		if done[idx] {
			continue
		}

		v := g.vertices[idx]
		step++

		next, err := e.step(ctx, g, runID, step, v, s, func(next state.State) error {
			done[idx] = true
			completed = append(completed, idx)
			if !v.exit {
				frontier = append(append([]int(nil), g.succ[idx]...), frontier...)
			}
			frontier = pending(frontier, done)

			snap, err := next.Snapshot()
			if err != nil {
				return err
			}

			return e.store.Save(ctx, checkpoint.Checkpoint{
				RunID:     runID,
				Step:      step,
				Vertex:    v.id,
				Frontier:  g.ids(frontier),
				Completed: g.ids(completed),
				State:     snap,
				CreatedAt: e.now().UTC(),
			})
		})
		if err != nil {
			return nil, err
		}

		s = next
		executed++
	}

	e.logger.InfoContext(ctx, "run complete",
		"run_id", runID,
		"steps", executed,
		"last_step", step,
	)

	return &Result{
		RunID:    runID,
		Steps:    executed,
		LastStep: step,
		State:    s,
	}, nil
}

func (e *Executor) step(
	ctx context.Context,
	g *Compiled,
	runID string,
	step int,
	v vertex,
	s state.State,
	commit func(state.State) error,
) (state.State, error) {
	ctx, span := e.tracer.Start(ctx, "graph.step",
		trace.WithAttributes(
			attribute.String("graph.name", g.name),
			attribute.String("graph.run_id", runID),
			attribute.String("graph.vertex", v.id),
			attribute.Int("graph.step", step),
		),
	)
	defer span.End()

	fail := func(err error) (state.State, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.ErrorContext(ctx, "step failed",
			"run_id", runID,
			"step", step,
			"vertex", v.id,
			"error", err,
		)
		return nil, &StepError{RunID: runID, Step: step, Vertex: v.id, Err: err}
	}

	update, err := v.action(ctx, s.Clone())
	if err != nil {
		return fail(err)
	}

	next, err := s.Merge(update, g.shape)
	if err != nil {
		return fail(err)
	}

	if err := commit(next); err != nil {
		return fail(wrapPersistence(err))
	}

	e.logger.InfoContext(ctx, "step complete",
		"run_id", runID,
		"step", step,
		"vertex", v.id,
		"fields", update.Keys(),
	)

	return next, nil
}

func (c *Compiled) resolve(ids []string) ([]int, error) {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		idx, ok := c.index[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownVertex, id)
		}
		out = append(out, idx)
	}
	return out, nil
}

func pending(frontier []int, done []bool) []int {
	out := make([]int, 0, len(frontier))
	for _, idx := range frontier {
		if !done[idx] {
			out = append(out, idx)
		}
	}
	return out
}

func wrapPersistence(err error) error {
	if errors.Is(err, checkpoint.ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %w", checkpoint.ErrPersistence, err)
}
