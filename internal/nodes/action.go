package nodes

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JaimeStill/agentflow/pkg/graph"
	"github.com/JaimeStill/agentflow/pkg/provider"
	"github.com/JaimeStill/agentflow/pkg/state"
)

// Generator produces text from a model. *provider.Registry satisfies it.
type Generator interface {
	Generate(ctx context.Context, model string, temperature float64, prompt string) (string, error)
}

// Env supplies the collaborators node actions depend on.
// Timeout bounds each model call; zero disables the bound.
type Env struct {
	Models  Generator
	Logger  *slog.Logger
	Timeout time.Duration
}

// Action returns the graph action implementing the node's behavior.
// Each action returns a partial update containing only the node's output field.
func (n Node) Action(env Env) (graph.Action, error) {
	if err := n.Validate(); err != nil {
		return nil, fmt.Errorf("node %s: %w", n.ID, err)
	}

	logger := env.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("node", n.ID, "node_type", n.Type)

	switch n.Type {
	case TypeInput:
		return n.inputAction(logger), nil
	case TypePrompt:
		return n.promptAction(logger), nil
	case TypeLLM:
		return n.llmAction(env, logger), nil
	case TypeConditional:
		return n.conditionalAction(logger), nil
	}
	return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidNode, n.Type)
}

func (n Node) inputAction(logger *slog.Logger) graph.Action {
	return func(ctx context.Context, _ state.State) (state.State, error) {
		v, err := state.Parse(n.Output.Type, n.Input.Value)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", n.Name, err)
		}
		logger.DebugContext(ctx, "input node executed", "output", n.Output.Name)
		return state.State{n.Output.Name: v}, nil
	}
}

func (n Node) promptAction(logger *slog.Logger) graph.Action {
	return func(ctx context.Context, s state.State) (state.State, error) {
		values := make(map[string]any, len(n.Prompt.Inputs))
		for _, in := range n.Prompt.Inputs {
			v, ok := s.Get(in)
			if !ok {
				return nil, fmt.Errorf("prompt %s: %w: %s", n.Name, ErrMissingField, in)
			}
			values[in] = v.Text()
		}

		text, err := render(n.Prompt.Template, n.Prompt.Inputs, values)
		if err != nil {
			return nil, fmt.Errorf("prompt %s: %w", n.Name, err)
		}

		v, err := state.Parse(n.Output.Type, text)
		if err != nil {
			return nil, fmt.Errorf("prompt %s: %w", n.Name, err)
		}

		logger.DebugContext(ctx, "prompt rendered",
			"output", n.Output.Name,
			"version", n.Prompt.Version,
			"chars", len(text),
		)
		return state.State{n.Output.Name: v}, nil
	}
}

func (n Node) llmAction(env Env, logger *slog.Logger) graph.Action {
	return func(ctx context.Context, s state.State) (state.State, error) {
		if env.Models == nil {
			return nil, fmt.Errorf("llm %s: %w: no model registry configured", n.Name, provider.ErrProviderUnavailable)
		}

		var prompt string
		if n.LLM.Input != "" {
			if v, ok := s.Get(n.LLM.Input); ok {
				prompt = v.Text()
			}
		}

		if env.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, env.Timeout)
			defer cancel()
		}

		text, err := env.Models.Generate(ctx, n.LLM.Model.Name, n.LLM.Model.Temperature, prompt)
		if err != nil {
			return nil, fmt.Errorf("llm %s: %w", n.Name, err)
		}

		v, err := state.Parse(n.Output.Type, text)
		if err != nil {
			return nil, fmt.Errorf("llm %s: %w", n.Name, err)
		}

		logger.InfoContext(ctx, "model response received",
			"model", n.LLM.Model.Name,
			"output", n.Output.Name,
		)
		return state.State{n.Output.Name: v}, nil
	}
}

func (n Node) conditionalAction(logger *slog.Logger) graph.Action {
	return func(ctx context.Context, s state.State) (state.State, error) {
		var input string
		if v, ok := s.Get(n.Conditional.Input); ok {
			input = v.Text()
		}

		key := n.Conditional.evaluate(input)
		logger.DebugContext(ctx, "conditional evaluated", "matched", key)

		if n.Output == nil {
			return state.State{}, nil
		}
		return state.State{n.Output.Name: state.String(key)}, nil
	}
}
