// Package provider resolves model identifiers to configured providers and performs
// text generation through langchaingo clients.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// Factory creates a client for a model served by the given provider.
type Factory func(p ProviderConfig, model string) (llms.Model, error)

type entry struct {
	cfg     ProviderConfig
	limiter *rate.Limiter
}

// Registry maps model identifiers to providers. Clients are created on first
// use and cached; each provider has its own request rate limit.
type Registry struct {
	models  map[string]*entry
	clients *lru.Cache[string, llms.Model]
	factory Factory
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithFactory replaces the langchaingo client factory.
func WithFactory(f Factory) Option {
	return func(r *Registry) {
		if f != nil {
			r.factory = f
		}
	}
}

// New builds a registry from finalized configuration.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (*Registry, error) {
	clients, err := lru.New[string, llms.Model](max(cfg.CacheSize, 1))
	if err != nil {
		return nil, fmt.Errorf("create client cache: %w", err)
	}

	r := &Registry{
		models:  make(map[string]*entry),
		clients: clients,
		factory: NewClient,
		timeout: cfg.CallTimeoutDuration(),
		logger:  logger.With("system", "provider"),
	}

	for _, p := range cfg.Providers {
		e := &entry{cfg: p, limiter: newLimiter(p)}
		for _, m := range p.Models {
			r.models[m] = e
		}
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Models returns the configured model identifiers in sorted order.
func (r *Registry) Models() []string {
	out := make([]string, 0, len(r.models))
	for m := range r.models {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}

// Resolve returns the provider serving a model.
func (r *Registry) Resolve(model string) (ProviderConfig, error) {
	e, ok := r.models[model]
	if !ok {
		return ProviderConfig{}, fmt.Errorf("%w: no provider serves model %q", ErrProviderUnavailable, model)
	}
	if e.cfg.Kind.RequiresKey() && e.cfg.APIKey == "" {
		return ProviderConfig{}, fmt.Errorf("%w: provider %s has no credentials", ErrProviderUnavailable, e.cfg.Name)
	}
	return e.cfg, nil
}

// Generate sends prompt to model with the given sampling temperature and
// returns the response text. Calls are not retried.
func (r *Registry) Generate(ctx context.Context, model string, temperature float64, prompt string) (string, error) {
	p, err := r.Resolve(model)
	if err != nil {
		return "", err
	}
	e := r.models[model]

	if err := e.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %s: rate limit wait: %w", ErrUpstream, model, err)
	}

	client, err := r.client(p, model)
	if err != nil {
		return "", err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := llms.GenerateFromSinglePrompt(ctx, client, prompt, llms.WithTemperature(temperature))
	if err != nil {
		r.logger.ErrorContext(ctx, "model call failed",
			"provider", p.Name,
			"model", model,
			"error", err,
		)
		return "", fmt.Errorf("%w: %s: %w", ErrUpstream, model, err)
	}

	r.logger.InfoContext(ctx, "model call complete",
		"provider", p.Name,
		"model", model,
		"duration", time.Since(start),
		"response_chars", len(text),
	)

	return text, nil
}

func (r *Registry) client(p ProviderConfig, model string) (llms.Model, error) {
	key := p.Name + "/" + model
	if c, ok := r.clients.Get(key); ok {
		return c, nil
	}

	c, err := r.factory(p, model)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s client for %s: %w", ErrProviderUnavailable, p.Kind, model, err)
	}

	r.clients.Add(key, c)
	return c, nil
}

// NewClient is the default Factory backed by langchaingo.
func NewClient(p ProviderConfig, model string) (llms.Model, error) {
	switch p.Kind {
	case KindOpenAI:
		opts := []openai.Option{openai.WithToken(p.APIKey), openai.WithModel(model)}
		if p.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(p.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, err
		}
		return llm, nil
	case KindAnthropic:
		opts := []anthropic.Option{anthropic.WithToken(p.APIKey), anthropic.WithModel(model)}
		if p.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(p.BaseURL))
		}
		llm, err := anthropic.New(opts...)
		if err != nil {
			return nil, err
		}
		return llm, nil
	case KindOllama:
		opts := []ollama.Option{ollama.WithModel(model)}
		if p.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(p.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, err
		}
		return llm, nil
	}
	return nil, fmt.Errorf("unknown provider kind %q", p.Kind)
}

func newLimiter(p ProviderConfig) *rate.Limiter {
	if p.RequestsPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(float64(p.RequestsPerMinute)/60), max(p.Burst, 1))
}
