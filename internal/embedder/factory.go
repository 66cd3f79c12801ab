package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables consulted by New.
const (
	EnvProvider  = "CODELENS_EMBEDDING_PROVIDER"
	EnvOllamaURL = "CODELENS_OLLAMA_URL"
	EnvOpenAIKey = "OPENAI_API_KEY"
)

// Config selects and configures an embedding provider. Values from the
// workspace config file; the environment overrides.
type Config struct {
	Provider  string
	Model     string
	BaseURL   string
	CacheSize int
}

// New creates an embedder from cfg, with environment overrides. An empty
// provider defaults to local so indexing never depends on the network.
func New(cfg Config) (Embedder, error) {
	provider := cfg.Provider
	if env := os.Getenv(EnvProvider); env != "" {
		provider = env
	}
	baseURL := cfg.BaseURL
	if env := os.Getenv(EnvOllamaURL); env != "" {
		baseURL = env
	}

	cache := NewCache(cfg.CacheSize)

	switch strings.ToLower(provider) {
	case "", ProviderLocal:
		return NewLocalProvider(cache), nil
	case ProviderOllama:
		return NewOllamaProvider(baseURL, cfg.Model, cache), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(os.Getenv(EnvOpenAIKey), cfg.Model, cache)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
}
