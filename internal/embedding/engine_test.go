package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type countingEngine struct {
	calls     int
	healthErr error
}

func (c *countingEngine) Embed(context.Context, string) ([]float32, error) {
	c.calls++
	return []float32{1}, nil
}

func (c *countingEngine) Name() string { return "counting" }

func (c *countingEngine) HealthCheck(context.Context) error { return c.healthErr }

type plainEngine struct{}

func (plainEngine) Embed(context.Context, string) ([]float32, error) { return nil, nil }
func (plainEngine) Name() string                                     { return "plain" }

func TestNewEngine(t *testing.T) {
	tests := []struct {
		name     string
		cfg      func(*Config)
		wantName string
		wantErr  bool
	}{
		{
			name:     "ollama",
			cfg:      func(c *Config) { c.RequestsPerSecond = 0 },
			wantName: "ollama:nomic-embed-text",
		},
		{
			name:     "ollama rate limited",
			cfg:      func(c *Config) { c.OllamaModel = "mxbai-embed-large" },
			wantName: "ollama:mxbai-embed-large",
		},
		{
			name:    "genai without key",
			cfg:     func(c *Config) { c.Provider = ProviderGenAI },
			wantErr: true,
		},
		{
			name:    "unknown provider",
			cfg:     func(c *Config) { c.Provider = "openai" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.cfg(&cfg)

			engine, err := NewEngine(context.Background(), cfg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, engine)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, engine.Name())

			_, limited := engine.(*RateLimited)
			assert.Equal(t, cfg.RequestsPerSecond > 0, limited)
		})
	}
}

func TestRateLimited(t *testing.T) {
	inner := &countingEngine{}
	limited := NewRateLimited(inner, rate.NewLimiter(rate.Inf, 1))

	_, err := limited.Embed(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, "counting", limited.Name())
}

func TestRateLimited_CancelledWaitSkipsProvider(t *testing.T) {
	inner := &countingEngine{}
	// Burst of 1 spent up front, next token an hour away.
	limiter := rate.NewLimiter(rate.Limit(1.0/3600), 1)
	require.True(t, limiter.Allow())
	limited := NewRateLimited(inner, limiter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := limited.Embed(ctx, "a")
	assert.Error(t, err)
	assert.Equal(t, 0, inner.calls)
}

func TestRateLimited_HealthCheck(t *testing.T) {
	boom := errors.New("down")
	limited := NewRateLimited(&countingEngine{healthErr: boom}, rate.NewLimiter(rate.Inf, 1))
	assert.ErrorIs(t, limited.HealthCheck(context.Background()), boom)

	limited = NewRateLimited(plainEngine{}, rate.NewLimiter(rate.Inf, 1))
	assert.NoError(t, limited.HealthCheck(context.Background()))
}
