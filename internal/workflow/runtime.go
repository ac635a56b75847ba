package workflow

import (
	"context"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/JaimeStill/agentflow/internal/nodes"
	"github.com/JaimeStill/agentflow/pkg/checkpoint"
	"github.com/JaimeStill/agentflow/pkg/graph"
)

// Archive receives run results. storage.System satisfies it.
type Archive interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
}

// Runtime bundles the dependencies a run requires.
// It is constructed by higher-level composition code from Infrastructure.
// Archive and Tracer are optional.
type Runtime struct {
	Models        nodes.Generator
	Checkpoints   checkpoint.Store
	Archive       Archive
	Logger        *slog.Logger
	Tracer        trace.Tracer
	NodeTimeout   time.Duration
	StrictOutputs bool
}

func (rt *Runtime) logger() *slog.Logger {
	if rt.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return rt.Logger
}

func (rt *Runtime) executor() *graph.Executor {
	return graph.NewExecutor(rt.Checkpoints, rt.logger(), graph.WithTracer(rt.Tracer))
}

func (rt *Runtime) env() nodes.Env {
	return nodes.Env{
		Models:  rt.Models,
		Logger:  rt.logger(),
		Timeout: rt.NodeTimeout,
	}
}
