// Package embedding provides text embedding engines for the candidate search.
// Supported backends: Ollama (local) and Google GenAI (cloud).
package embedding

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Engine generates vector embeddings for text.
type Engine interface {
	// Embed generates the embedding of a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// Name returns the engine name, e.g. "ollama:nomic-embed-text"
	Name() string
}

// HealthChecker is implemented by engines that can report reachability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Provider names.
const (
	ProviderOllama = "ollama"
	ProviderGenAI  = "genai"
)

// Config holds embedding engine configuration.
type Config struct {
	// Provider: "ollama" or "genai"
	Provider string

	// Ollama
	OllamaEndpoint string
	OllamaModel    string

	// GenAI
	GenAIAPIKey string
	GenAIModel  string

	// RequestTimeout bounds a single embedding call
	RequestTimeout time.Duration

	// RequestsPerSecond limits calls to the provider (0 = unlimited)
	RequestsPerSecond float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:          ProviderOllama,
		OllamaEndpoint:    "http://localhost:11434",
		OllamaModel:       "nomic-embed-text",
		GenAIModel:        "gemini-embedding-001",
		RequestTimeout:    10 * time.Second,
		RequestsPerSecond: 20,
	}
}

// NewEngine creates an embedding engine based on configuration.
func NewEngine(ctx context.Context, cfg Config) (Engine, error) {
	var engine Engine
	var err error

	switch cfg.Provider {
	case ProviderOllama:
		engine = NewOllamaEngine(&OllamaConfig{
			BaseURL:        cfg.OllamaEndpoint,
			Model:          cfg.OllamaModel,
			RequestTimeout: cfg.RequestTimeout,
		})
	case ProviderGenAI:
		engine, err = NewGenAIEngine(ctx, cfg.GenAIAPIKey, cfg.GenAIModel)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (use '%s' or '%s')", cfg.Provider, ProviderOllama, ProviderGenAI)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RequestsPerSecond > 0 {
		engine = NewRateLimited(engine, rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1))
	}

	return engine, nil
}

// RateLimited wraps an engine with a limiter. Waiting honours the caller's
// context, so a cancelled request never reaches the provider.
type RateLimited struct {
	inner   Engine
	limiter *rate.Limiter
}

// NewRateLimited wraps inner with the given limiter.
func NewRateLimited(inner Engine, limiter *rate.Limiter) *RateLimited {
	return &RateLimited{inner: inner, limiter: limiter}
}

// Embed waits for the limiter, then delegates.
func (r *RateLimited) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return r.inner.Embed(ctx, text)
}

// Name returns the wrapped engine's name.
func (r *RateLimited) Name() string { return r.inner.Name() }

// HealthCheck delegates when the wrapped engine supports it.
func (r *RateLimited) HealthCheck(ctx context.Context) error {
	if hc, ok := r.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
