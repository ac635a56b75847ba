package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/agentflow/internal/nodes"
	"github.com/JaimeStill/agentflow/internal/workflow"
	"github.com/JaimeStill/agentflow/pkg/checkpoint"
	"github.com/JaimeStill/agentflow/pkg/graph"
	"github.com/JaimeStill/agentflow/pkg/provider"
	"github.com/JaimeStill/agentflow/pkg/state"
)

var (
	agentID   = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	topicID   = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	composeID = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	answerID  = uuid.MustParse("00000000-0000-0000-0000-000000000003")
)

type mockGenerator struct {
	calls      int
	generateFn func(ctx context.Context, model string, temperature float64, prompt string) (string, error)
}

func (m *mockGenerator) Generate(ctx context.Context, model string, temperature float64, prompt string) (string, error) {
	m.calls++
	return m.generateFn(ctx, model, temperature, prompt)
}

func echo() *mockGenerator {
	return &mockGenerator{
		generateFn: func(_ context.Context, _ string, _ float64, prompt string) (string, error) {
			return "answer to: " + prompt, nil
		},
	}
}

type mockArchive struct {
	keys   []string
	bodies []string
	err    error
}

func (m *mockArchive) Upload(_ context.Context, key string, r io.Reader, _ string) error {
	if m.err != nil {
		return m.err
	}
	b, _ := io.ReadAll(r)
	m.keys = append(m.keys, key)
	m.bodies = append(m.bodies, string(b))
	return nil
}

func chain() []nodes.Node {
	return []nodes.Node{
		{
			ID:      topicID,
			AgentID: agentID,
			Definition: nodes.Definition{
				Type:        nodes.TypeInput,
				Name:        "topic",
				IsStart:     true,
				SuccessorID: &composeID,
				Output:      &nodes.Output{Name: "topic", Type: state.KindString},
				Input:       &nodes.InputConfig{Value: "graphs"},
			},
		},
		{
			ID:      composeID,
			AgentID: agentID,
			Definition: nodes.Definition{
				Type:        nodes.TypePrompt,
				Name:        "compose",
				SuccessorID: &answerID,
				Output:      &nodes.Output{Name: "prompt", Type: state.KindString},
				Prompt: &nodes.PromptConfig{
					Template: "Explain {topic}.",
					Version:  "1",
					Inputs:   []string{"topic"},
				},
			},
		},
		{
			ID:      answerID,
			AgentID: agentID,
			Definition: nodes.Definition{
				Type:   nodes.TypeLLM,
				Name:   "answer",
				IsEnd:  true,
				Output: &nodes.Output{Name: "answer", Type: state.KindString},
				LLM: &nodes.LLMConfig{
					Model: nodes.ModelSettings{Name: "llama3.2"},
					Input: "prompt",
				},
			},
		},
	}
}

func newRuntime(models nodes.Generator) (*workflow.Runtime, *checkpoint.Memory) {
	store := checkpoint.NewMemory()
	return &workflow.Runtime{
		Models:      models,
		Checkpoints: store,
	}, store
}

func TestBuild(t *testing.T) {
	t.Run("no nodes", func(t *testing.T) {
		rt, _ := newRuntime(nil)
		_, err := workflow.Build(rt, "empty", nil)
		if !errors.Is(err, workflow.ErrNoNodes) {
			t.Errorf("error = %v, want ErrNoNodes", err)
		}
	})

	t.Run("topology follows declaration order", func(t *testing.T) {
		rt, _ := newRuntime(echo())
		g, err := workflow.Build(rt, agentID.String(), chain())
		if err != nil {
			t.Fatalf("Build() error: %v", err)
		}

		topo := g.Topology()
		want := []string{topicID.String(), composeID.String(), answerID.String()}
		if strings.Join(topo.Vertices, ",") != strings.Join(want, ",") {
			t.Errorf("vertices = %v, want %v", topo.Vertices, want)
		}
		if len(topo.Edges) != 2 {
			t.Errorf("edges = %d, want 2", len(topo.Edges))
		}
		if len(topo.Entries) != 1 || topo.Entries[0] != topicID.String() {
			t.Errorf("entries = %v, want [%s]", topo.Entries, topicID)
		}
		if len(topo.Exits) != 1 || topo.Exits[0] != answerID.String() {
			t.Errorf("exits = %v, want [%s]", topo.Exits, answerID)
		}
		if topo.Shape["answer"] != state.KindString || len(topo.Shape) != 3 {
			t.Errorf("shape = %v", topo.Shape)
		}
	})

	t.Run("rebuilding yields equal topology", func(t *testing.T) {
		rt, _ := newRuntime(echo())
		a, err := workflow.Build(rt, "a", chain())
		if err != nil {
			t.Fatalf("Build() error: %v", err)
		}
		b, err := workflow.Build(rt, "a", chain())
		if err != nil {
			t.Fatalf("Build() error: %v", err)
		}
		if fmt.Sprint(a.Topology()) != fmt.Sprint(b.Topology()) {
			t.Errorf("topologies differ:\n%v\n%v", a.Topology(), b.Topology())
		}
	})

	t.Run("dangling successor", func(t *testing.T) {
		ns := chain()
		missing := uuid.New()
		ns[2].SuccessorID = &missing

		rt, _ := newRuntime(echo())
		_, err := workflow.Build(rt, "dangling", ns)
		if !errors.Is(err, graph.ErrDanglingEdge) {
			t.Errorf("error = %v, want ErrDanglingEdge", err)
		}
	})

	t.Run("no entry point", func(t *testing.T) {
		ns := chain()
		ns[0].IsStart = false

		rt, _ := newRuntime(echo())
		_, err := workflow.Build(rt, "headless", ns)
		if !errors.Is(err, graph.ErrNoEntryPoint) {
			t.Errorf("error = %v, want ErrNoEntryPoint", err)
		}
	})

	t.Run("collisions reported", func(t *testing.T) {
		ns := chain()
		ns[1].Output = &nodes.Output{Name: "topic", Type: state.KindString}
		ns[2].LLM.Input = "topic"

		rt, _ := newRuntime(echo())
		g, err := workflow.Build(rt, "collide", ns)
		if err != nil {
			t.Fatalf("Build() error: %v", err)
		}
		if len(g.Collisions) != 1 {
			t.Fatalf("collisions = %d, want 1", len(g.Collisions))
		}
		c := g.Collisions[0]
		if c.Field != "topic" || c.Shadowed != topicID.String() || c.Winner != composeID.String() {
			t.Errorf("collision = %+v", c)
		}
	})

	t.Run("strict outputs reject collisions", func(t *testing.T) {
		ns := chain()
		ns[1].Output = &nodes.Output{Name: "topic", Type: state.KindString}

		rt, _ := newRuntime(echo())
		rt.StrictOutputs = true
		_, err := workflow.Build(rt, "collide", ns)
		if !errors.Is(err, workflow.ErrDuplicateOutput) {
			t.Errorf("error = %v, want ErrDuplicateOutput", err)
		}
	})
}

func TestExecute(t *testing.T) {
	t.Run("runs chain to completion", func(t *testing.T) {
		rt, store := newRuntime(echo())

		result, err := workflow.Execute(context.Background(), rt, agentID, chain(), workflow.Options{})
		if err != nil {
			t.Fatalf("Execute() error: %v", err)
		}

		if result.RunID != agentID.String() {
			t.Errorf("run_id = %q, want agent id", result.RunID)
		}
		if result.Steps != 3 || result.LastStep != 3 {
			t.Errorf("steps = %d, last = %d, want 3 and 3", result.Steps, result.LastStep)
		}
		if got := result.State["answer"].Text(); got != "answer to: Explain graphs." {
			t.Errorf("answer = %q", got)
		}

		cps, err := store.List(context.Background(), result.RunID)
		if err != nil {
			t.Fatalf("List() error: %v", err)
		}
		if len(cps) != 3 {
			t.Fatalf("checkpoints = %d, want 3", len(cps))
		}
		for i, cp := range cps {
			if cp.Step != i+1 {
				t.Errorf("checkpoint[%d].Step = %d, want %d", i, cp.Step, i+1)
			}
		}
	})

	t.Run("explicit run id and repeated runs continue steps", func(t *testing.T) {
		rt, store := newRuntime(echo())
		opts := workflow.Options{RunID: "nightly"}

		if _, err := workflow.Execute(context.Background(), rt, agentID, chain(), opts); err != nil {
			t.Fatalf("first Execute() error: %v", err)
		}
		result, err := workflow.Execute(context.Background(), rt, agentID, chain(), opts)
		if err != nil {
			t.Fatalf("second Execute() error: %v", err)
		}

		if result.RunID != "nightly" {
			t.Errorf("run_id = %q, want nightly", result.RunID)
		}
		if result.LastStep != 6 {
			t.Errorf("last step = %d, want 6", result.LastStep)
		}

		latest, err := store.Latest(context.Background(), "nightly")
		if err != nil {
			t.Fatalf("Latest() error: %v", err)
		}
		if latest.Step != 6 {
			t.Errorf("latest step = %d, want 6", latest.Step)
		}
	})

	t.Run("missing field aborts at failing vertex", func(t *testing.T) {
		ns := chain()
		ns[1].Prompt.Inputs = []string{"subject"}
		ns[1].Prompt.Template = "Explain {subject}."

		rt, store := newRuntime(echo())
		_, err := workflow.Execute(context.Background(), rt, agentID, ns, workflow.Options{})
		if !errors.Is(err, nodes.ErrMissingField) {
			t.Fatalf("error = %v, want ErrMissingField", err)
		}

		var stepErr *graph.StepError
		if !errors.As(err, &stepErr) {
			t.Fatalf("error %v is not a StepError", err)
		}
		if stepErr.Vertex != composeID.String() || stepErr.Step != 2 {
			t.Errorf("step error = %+v", stepErr)
		}

		latest, err := store.Latest(context.Background(), agentID.String())
		if err != nil {
			t.Fatalf("Latest() error: %v", err)
		}
		if latest.Step != 1 {
			t.Errorf("latest step = %d, want 1", latest.Step)
		}
		if got := workflow.Kind(stepErr); got != "MissingField" {
			t.Errorf("Kind() = %q, want MissingField", got)
		}
	})

	t.Run("non-finite float literal is a type mismatch", func(t *testing.T) {
		for _, literal := range []string{"NaN", "Inf", "-Inf", "1e400"} {
			ns := []nodes.Node{{
				ID:      topicID,
				AgentID: agentID,
				Definition: nodes.Definition{
					Type:    nodes.TypeInput,
					Name:    "ratio",
					IsStart: true,
					IsEnd:   true,
					Output:  &nodes.Output{Name: "ratio", Type: state.KindFloat},
					Input:   &nodes.InputConfig{Value: literal},
				},
			}}

			rt, store := newRuntime(echo())
			_, err := workflow.Execute(context.Background(), rt, agentID, ns, workflow.Options{})
			if !errors.Is(err, state.ErrTypeMismatch) {
				t.Fatalf("%s: error = %v, want ErrTypeMismatch", literal, err)
			}
			if errors.Is(err, checkpoint.ErrPersistence) {
				t.Errorf("%s: error %v reported as persistence failure", literal, err)
			}
			if got := workflow.Kind(err); got != "TypeMismatch" {
				t.Errorf("%s: Kind() = %q, want TypeMismatch", literal, got)
			}
			if _, err := store.Latest(context.Background(), agentID.String()); !errors.Is(err, checkpoint.ErrNotFound) {
				t.Errorf("%s: Latest() error = %v, want ErrNotFound", literal, err)
			}
		}
	})

	t.Run("no nodes", func(t *testing.T) {
		rt, _ := newRuntime(echo())
		_, err := workflow.Execute(context.Background(), rt, agentID, nil, workflow.Options{})
		if !errors.Is(err, workflow.ErrNoNodes) {
			t.Errorf("error = %v, want ErrNoNodes", err)
		}
	})

	t.Run("archives result", func(t *testing.T) {
		rt, _ := newRuntime(echo())
		arc := &mockArchive{}
		rt.Archive = arc

		result, err := workflow.Execute(context.Background(), rt, agentID, chain(), workflow.Options{})
		if err != nil {
			t.Fatalf("Execute() error: %v", err)
		}

		if len(arc.keys) != 1 {
			t.Fatalf("uploads = %d, want 1", len(arc.keys))
		}
		if want := workflow.ArchiveKey(result.RunID, 3); arc.keys[0] != want {
			t.Errorf("key = %q, want %q", arc.keys[0], want)
		}
		if !strings.Contains(arc.bodies[0], `"run_id"`) {
			t.Errorf("body = %s", arc.bodies[0])
		}
	})

	t.Run("archive failure does not fail the run", func(t *testing.T) {
		rt, _ := newRuntime(echo())
		rt.Archive = &mockArchive{err: errors.New("container missing")}

		if _, err := workflow.Execute(context.Background(), rt, agentID, chain(), workflow.Options{}); err != nil {
			t.Errorf("Execute() error: %v", err)
		}
	})
}

func TestResume(t *testing.T) {
	t.Run("continues after upstream failure", func(t *testing.T) {
		failing := &mockGenerator{
			generateFn: func(context.Context, string, float64, string) (string, error) {
				return "", fmt.Errorf("%w: 503", provider.ErrUpstream)
			},
		}
		rt, store := newRuntime(failing)

		_, err := workflow.Execute(context.Background(), rt, agentID, chain(), workflow.Options{})
		if !errors.Is(err, provider.ErrUpstream) {
			t.Fatalf("error = %v, want ErrUpstream", err)
		}

		rt.Models = echo()
		result, err := workflow.Resume(context.Background(), rt, agentID, chain(), "")
		if err != nil {
			t.Fatalf("Resume() error: %v", err)
		}

		if result.Steps != 1 || result.LastStep != 3 {
			t.Errorf("steps = %d, last = %d, want 1 and 3", result.Steps, result.LastStep)
		}
		if got := result.State["answer"].Text(); got != "answer to: Explain graphs." {
			t.Errorf("answer = %q", got)
		}

		cps, _ := store.List(context.Background(), agentID.String())
		if len(cps) != 3 {
			t.Errorf("checkpoints = %d, want 3", len(cps))
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		rt, _ := newRuntime(echo())
		_, err := workflow.Resume(context.Background(), rt, agentID, chain(), "missing")
		if !errors.Is(err, checkpoint.ErrNotFound) {
			t.Errorf("error = %v, want checkpoint.ErrNotFound", err)
		}
		if got := workflow.MapHTTPStatus(err); got != http.StatusNotFound {
			t.Errorf("MapHTTPStatus() = %d, want 404", got)
		}
	})
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{workflow.ErrNoNodes, "NoNodes"},
		{workflow.ErrDuplicateOutput, "DuplicateOutputName"},
		{graph.ErrEmptyGraph, "EmptyGraph"},
		{graph.ErrNoEntryPoint, "NoEntryPoint"},
		{fmt.Errorf("build: %w", graph.ErrDanglingEdge), "DanglingEdge"},
		{nodes.ErrMissingField, "MissingField"},
		{nodes.ErrTemplate, "TemplateError"},
		{provider.ErrProviderUnavailable, "ProviderUnavailable"},
		{provider.ErrUpstream, "UpstreamError"},
		{fmt.Errorf("%w: disk full", checkpoint.ErrPersistence), "PersistenceFailure"},
		{&graph.StepError{Err: checkpoint.ErrPersistence}, "PersistenceFailure"},
		{fmt.Errorf("%w: %w", checkpoint.ErrPersistence, checkpoint.ErrStepOrder), "Conflict"},
		{state.ErrTypeMismatch, "TypeMismatch"},
		{checkpoint.ErrNotFound, "NotFound"},
		{context.Canceled, "Cancelled"},
		{errors.New("boom"), "Internal"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := workflow.Kind(tt.err); got != tt.want {
				t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no nodes", workflow.ErrNoNodes, http.StatusNotFound},
		{"no checkpoint", checkpoint.ErrNotFound, http.StatusNotFound},
		{"structural", graph.ErrNoEntryPoint, http.StatusInternalServerError},
		{"node failure", nodes.ErrTemplate, http.StatusInternalServerError},
		{"persistence", checkpoint.ErrPersistence, http.StatusInternalServerError},
		{"step order", fmt.Errorf("%w: %w", checkpoint.ErrPersistence, checkpoint.ErrStepOrder), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := workflow.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
