package embedder

import (
	"fmt"
	"os"
	"strings"
)

// EnvProvider selects the embedding provider explicitly.
const EnvProvider = "VECGREP_EMBEDDING_PROVIDER"

// Config holds embedder configuration
type Config struct {
	Provider  string
	APIKey    string
	CacheSize int
}

// NewFromEnv creates an embedder based on environment variables.
// Priority:
//  1. VECGREP_EMBEDDING_PROVIDER (local, openai, jina)
//  2. Available API keys: OPENAI_API_KEY, JINA_API_KEY
//  3. Default to the offline local provider
//
// The returned embedder is intended to be constructed once per process and
// injected into the coordinator and search engine.
func NewFromEnv() (Embedder, error) {
	provider := os.Getenv(EnvProvider)
	openaiKey := os.Getenv(EnvOpenAIAPIKey)
	jinaKey := os.Getenv(EnvJinaAPIKey)

	cache := NewCache(10000)

	if provider != "" {
		provider = strings.ToLower(provider)
		switch provider {
		case ProviderLocal:
			return NewLocalProvider(cache)
		case ProviderOpenAI:
			return NewOpenAIProvider(openaiKey, cache)
		case ProviderJina:
			return NewJinaProvider(jinaKey, cache)
		default:
			return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, provider)
		}
	}

	// Auto-detect based on available API keys
	if openaiKey != "" {
		return NewOpenAIProvider(openaiKey, cache)
	}
	if jinaKey != "" {
		return NewJinaProvider(jinaKey, cache)
	}

	return NewLocalProvider(cache)
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderLocal:
		return NewLocalProvider(cache)
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cache)
	case ProviderJina:
		return NewJinaProvider(cfg.APIKey, cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// DetectProvider returns the provider that NewFromEnv would select.
func DetectProvider() string {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider)
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	if os.Getenv(EnvJinaAPIKey) != "" {
		return ProviderJina
	}
	return ProviderLocal
}
