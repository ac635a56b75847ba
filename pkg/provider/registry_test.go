package provider_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"github.com/JaimeStill/agentflow/pkg/provider"
)

type fakeLLM struct {
	reply       string
	err         error
	prompts     []string
	temperature float64
}

func (f *fakeLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}
	f.temperature = opts.Temperature

	for _, m := range messages {
		for _, part := range m.Parts {
			if text, ok := part.(llms.TextContent); ok {
				f.prompts = append(f.prompts, text.Text)
			}
		}
	}

	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.reply}},
	}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func newRegistry(t *testing.T, cfg provider.Config, llm *fakeLLM, created *int) *provider.Registry {
	t.Helper()
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	r, err := provider.New(&cfg, slog.New(slog.NewTextHandler(io.Discard, nil)),
		provider.WithFactory(func(provider.ProviderConfig, string) (llms.Model, error) {
			if created != nil {
				*created++
			}
			return llm, nil
		}),
	)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return r
}

func TestGenerate(t *testing.T) {
	llm := &fakeLLM{reply: "four"}
	created := 0
	r := newRegistry(t, provider.Config{
		Providers: []provider.ProviderConfig{
			{Name: "local", Kind: provider.KindOllama, Models: []string{"llama3"}},
		},
	}, llm, &created)

	for range 2 {
		text, err := r.Generate(context.Background(), "llama3", 0.2, "2+2?")
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if text != "four" {
			t.Errorf("text = %q, want four", text)
		}
	}

	if created != 1 {
		t.Errorf("clients created = %d, want 1 (cached)", created)
	}
	if len(llm.prompts) != 2 || llm.prompts[0] != "2+2?" {
		t.Errorf("prompts = %v", llm.prompts)
	}
	if llm.temperature != 0.2 {
		t.Errorf("temperature = %v, want 0.2", llm.temperature)
	}
}

func TestGenerateUnknownModel(t *testing.T) {
	r := newRegistry(t, provider.Config{
		Providers: []provider.ProviderConfig{
			{Name: "local", Kind: provider.KindOllama, Models: []string{"llama3"}},
		},
	}, &fakeLLM{}, nil)

	_, err := r.Generate(context.Background(), "gpt-9", 0, "hi")
	if !errors.Is(err, provider.ErrProviderUnavailable) {
		t.Errorf("err = %v, want ErrProviderUnavailable", err)
	}
}

func TestGenerateMissingCredentials(t *testing.T) {
	t.Setenv("TEST_MISSING_KEY", "")
	r := newRegistry(t, provider.Config{
		Providers: []provider.ProviderConfig{
			{Name: "openai", Kind: provider.KindOpenAI, APIKeyEnv: "TEST_MISSING_KEY", Models: []string{"gpt-4o"}},
		},
	}, &fakeLLM{}, nil)

	_, err := r.Generate(context.Background(), "gpt-4o", 0, "hi")
	if !errors.Is(err, provider.ErrProviderUnavailable) {
		t.Errorf("err = %v, want ErrProviderUnavailable", err)
	}
}

func TestGenerateUpstreamFailure(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test")
	r := newRegistry(t, provider.Config{
		Providers: []provider.ProviderConfig{
			{Name: "openai", Kind: provider.KindOpenAI, APIKeyEnv: "TEST_OPENAI_KEY", Models: []string{"gpt-4o"}},
		},
	}, &fakeLLM{err: errors.New("503 service unavailable")}, nil)

	_, err := r.Generate(context.Background(), "gpt-4o", 0, "hi")
	if !errors.Is(err, provider.ErrUpstream) {
		t.Errorf("err = %v, want ErrUpstream", err)
	}
}

func TestGenerateRateLimitCancelled(t *testing.T) {
	r := newRegistry(t, provider.Config{
		Providers: []provider.ProviderConfig{
			{Name: "local", Kind: provider.KindOllama, Models: []string{"llama3"}, RequestsPerMinute: 1},
		},
	}, &fakeLLM{reply: "ok"}, nil)

	if _, err := r.Generate(context.Background(), "llama3", 0, "first"); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Generate(ctx, "llama3", 0, "second"); !errors.Is(err, provider.ErrUpstream) {
		t.Errorf("err = %v, want ErrUpstream", err)
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Run("defaults to openai gpt-4o", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-env")
		var cfg provider.Config
		if err := cfg.Finalize(nil); err != nil {
			t.Fatalf("finalize: %v", err)
		}
		if len(cfg.Providers) != 1 {
			t.Fatalf("providers = %d, want 1", len(cfg.Providers))
		}
		p := cfg.Providers[0]
		if p.Kind != provider.KindOpenAI || p.Models[0] != "gpt-4o" {
			t.Errorf("provider = %+v", p)
		}
		if p.APIKey != "sk-env" {
			t.Errorf("api key = %q, want sk-env", p.APIKey)
		}
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		cfg := provider.Config{Providers: []provider.ProviderConfig{{Name: "x", Kind: "bedrock"}}}
		if err := cfg.Finalize(nil); err == nil {
			t.Error("expected error for unknown kind")
		}
	})

	t.Run("rejects model served twice", func(t *testing.T) {
		cfg := provider.Config{Providers: []provider.ProviderConfig{
			{Name: "a", Kind: provider.KindOllama, Models: []string{"m"}},
			{Name: "b", Kind: provider.KindOllama, Models: []string{"m"}},
		}}
		if err := cfg.Finalize(nil); err == nil {
			t.Error("expected error for duplicate model")
		}
	})

	t.Run("env overrides timeout", func(t *testing.T) {
		t.Setenv("TEST_CALL_TIMEOUT", "5s")
		var cfg provider.Config
		if err := cfg.Finalize(&provider.Env{CallTimeout: "TEST_CALL_TIMEOUT"}); err != nil {
			t.Fatalf("finalize: %v", err)
		}
		if cfg.CallTimeoutDuration().Seconds() != 5 {
			t.Errorf("timeout = %v, want 5s", cfg.CallTimeoutDuration())
		}
	})
}
