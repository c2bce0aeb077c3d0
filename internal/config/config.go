package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ramonehamilton/InkForge/internal/embedding"
	"github.com/ramonehamilton/InkForge/internal/logging"
	"github.com/ramonehamilton/InkForge/internal/lorcana/assembler"
	"github.com/ramonehamilton/InkForge/internal/lorcana/cards"
	"github.com/ramonehamilton/InkForge/internal/lorcana/deckbuilder"
)

// Config represents the application configuration.
type Config struct {
	// HTTP server configuration
	Server ServerConfig `toml:"server"`

	// Card corpus database
	Database DatabaseConfig `toml:"database"`

	// Embedding provider configuration
	Embedding EmbeddingConfig `toml:"embedding"`

	// Deck building policy
	Deck DeckConfig `toml:"deck"`

	// Logging configuration
	Log LogConfig `toml:"log"`
}

// ServerConfig contains HTTP API settings.
type ServerConfig struct {
	Port           int    `toml:"port"`
	RequestTimeout string `toml:"request_timeout"` // e.g. "30s"
	ReloadDebounce string `toml:"reload_debounce"` // Snapshot reload delay after a DB write
}

// DatabaseConfig contains corpus database settings.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// EmbeddingConfig contains embedding provider settings.
type EmbeddingConfig struct {
	Provider          string  `toml:"provider"` // "ollama" or "genai"
	OllamaEndpoint    string  `toml:"ollama_endpoint"`
	OllamaModel       string  `toml:"ollama_model"`
	GenAIAPIKey       string  `toml:"genai_api_key"` // Falls back to GEMINI_API_KEY
	GenAIModel        string  `toml:"genai_model"`
	RequestTimeout    string  `toml:"request_timeout"`
	RequestsPerSecond float64 `toml:"requests_per_second"` // 0 = unlimited
}

// DeckConfig contains the deck building policy.
type DeckConfig struct {
	DefaultSize      int            `toml:"default_size"`
	CopyCap          int            `toml:"copy_cap"`
	InkRatio         assembler.Band `toml:"ink_ratio"`
	MonoColorShare   float64        `toml:"mono_color_share"`
	CandidateLimit   int            `toml:"candidate_limit"`
	RetrievalTimeout string         `toml:"retrieval_timeout"`
	DefaultFormat    string         `toml:"default_format"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level       string `toml:"level"`       // debug, info, warn, error
	Development bool   `toml:"development"` // Human-readable console output
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	policy := deckbuilder.DefaultPolicy()
	emb := embedding.DefaultConfig()

	return &Config{
		Server: ServerConfig{
			Port:           8080,
			RequestTimeout: "30s",
			ReloadDebounce: "500ms",
		},
		Database: DatabaseConfig{
			Path: defaultDatabasePath(),
		},
		Embedding: EmbeddingConfig{
			Provider:          emb.Provider,
			OllamaEndpoint:    emb.OllamaEndpoint,
			OllamaModel:       emb.OllamaModel,
			GenAIModel:        emb.GenAIModel,
			RequestTimeout:    emb.RequestTimeout.String(),
			RequestsPerSecond: emb.RequestsPerSecond,
		},
		Deck: DeckConfig{
			DefaultSize:      60,
			CopyCap:          policy.CopyCap,
			InkRatio:         policy.InkRatio,
			MonoColorShare:   policy.MonoColorShare,
			CandidateLimit:   policy.CandidateLimit,
			RetrievalTimeout: policy.RetrievalTimeout.String(),
			DefaultFormat:    string(cards.FormatCore),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// configDir returns the application directory.
func configDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".inkforge"), nil
}

// DefaultPath returns the default configuration file path.
func DefaultPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func defaultDatabasePath() string {
	dir, err := configDir()
	if err != nil {
		return "inkforge.db"
	}
	return filepath.Join(dir, "inkforge.db")
}

// Load loads the configuration from path, or from the default path when path
// is empty. Returns the default config if the file doesn't exist. Keys missing
// from the file keep their default values. The GenAI key falls back to
// GEMINI_API_KEY.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if config.Embedding.GenAIAPIKey == "" {
		config.Embedding.GenAIAPIKey = os.Getenv("GEMINI_API_KEY")
	}

	return config, nil
}

// Save saves the configuration to path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if _, err := time.ParseDuration(c.Server.RequestTimeout); err != nil {
		return fmt.Errorf("invalid request timeout %q: %w", c.Server.RequestTimeout, err)
	}
	if _, err := time.ParseDuration(c.Server.ReloadDebounce); err != nil {
		return fmt.Errorf("invalid reload debounce %q: %w", c.Server.ReloadDebounce, err)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	switch c.Embedding.Provider {
	case embedding.ProviderOllama, embedding.ProviderGenAI:
	default:
		return fmt.Errorf("unsupported embedding provider %q", c.Embedding.Provider)
	}
	if _, err := time.ParseDuration(c.Embedding.RequestTimeout); err != nil {
		return fmt.Errorf("invalid embedding request timeout %q: %w", c.Embedding.RequestTimeout, err)
	}
	if c.Embedding.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative: %.2f", c.Embedding.RequestsPerSecond)
	}

	if c.Deck.DefaultSize <= 0 {
		return fmt.Errorf("default deck size must be positive: %d", c.Deck.DefaultSize)
	}
	if _, err := cards.ParseFormat(c.Deck.DefaultFormat); err != nil {
		return fmt.Errorf("invalid default format: %w", err)
	}
	policy, err := c.GetPolicy()
	if err != nil {
		return err
	}
	if err := policy.Validate(); err != nil {
		return fmt.Errorf("invalid deck policy: %w", err)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}

// GetRequestTimeout returns the HTTP request timeout as a duration.
func (c *Config) GetRequestTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Server.RequestTimeout)
}

// GetReloadDebounce returns the snapshot reload debounce as a duration.
func (c *Config) GetReloadDebounce() (time.Duration, error) {
	return time.ParseDuration(c.Server.ReloadDebounce)
}

// GetRetrievalTimeout returns the candidate retrieval timeout as a duration.
func (c *Config) GetRetrievalTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Deck.RetrievalTimeout)
}

// GetDefaultFormat returns the parsed default format.
func (c *Config) GetDefaultFormat() (cards.Format, error) {
	return cards.ParseFormat(c.Deck.DefaultFormat)
}

// GetPolicy returns the deck building policy.
func (c *Config) GetPolicy() (deckbuilder.Policy, error) {
	timeout, err := c.GetRetrievalTimeout()
	if err != nil {
		return deckbuilder.Policy{}, fmt.Errorf("invalid retrieval timeout %q: %w", c.Deck.RetrievalTimeout, err)
	}
	return deckbuilder.Policy{
		CopyCap:          c.Deck.CopyCap,
		InkRatio:         c.Deck.InkRatio,
		MonoColorShare:   c.Deck.MonoColorShare,
		CandidateLimit:   c.Deck.CandidateLimit,
		RetrievalTimeout: timeout,
	}, nil
}

// GetEmbeddingConfig returns the embedding engine configuration.
func (c *Config) GetEmbeddingConfig() (embedding.Config, error) {
	timeout, err := time.ParseDuration(c.Embedding.RequestTimeout)
	if err != nil {
		return embedding.Config{}, fmt.Errorf("invalid embedding request timeout %q: %w", c.Embedding.RequestTimeout, err)
	}
	return embedding.Config{
		Provider:          c.Embedding.Provider,
		OllamaEndpoint:    c.Embedding.OllamaEndpoint,
		OllamaModel:       c.Embedding.OllamaModel,
		GenAIAPIKey:       c.Embedding.GenAIAPIKey,
		GenAIModel:        c.Embedding.GenAIModel,
		RequestTimeout:    timeout,
		RequestsPerSecond: c.Embedding.RequestsPerSecond,
	}, nil
}
