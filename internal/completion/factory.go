package completion

import (
	"context"
	"fmt"

	"polyglot/internal/config"
)

// ProviderConfig holds the resolved provider settings.
type ProviderConfig struct {
	Provider string
	Endpoint string
	Model    string
	APIKey   string
	Retry    RetryPolicy
}

// ProviderConfigFrom resolves provider settings from the app config.
func ProviderConfigFrom(cfg *config.Config) ProviderConfig {
	c := cfg.Completion
	return ProviderConfig{
		Provider: c.Provider,
		Endpoint: c.Endpoint,
		Model:    c.Model,
		APIKey:   c.APIKey,
		Retry: RetryPolicy{
			MaxRetries: c.MaxRetries,
			Backoff:    cfg.GetRetryBackoff(),
			Timeout:    cfg.GetCompletionTimeout(),
		},
	}
}

// NewFetcher creates the fetcher named by the app config.
func NewFetcher(ctx context.Context, cfg *config.Config) (Fetcher, error) {
	return NewFetcherFromConfig(ctx, ProviderConfigFrom(cfg))
}

// NewFetcherFromConfig creates a fetcher from resolved provider settings.
func NewFetcherFromConfig(ctx context.Context, pc ProviderConfig) (Fetcher, error) {
	switch pc.Provider {
	case config.ProviderOllama, "":
		oc := DefaultOllamaConfig()
		if pc.Endpoint != "" {
			oc.Endpoint = pc.Endpoint
		}
		if pc.Model != "" {
			oc.Model = pc.Model
		}
		oc.Retry = pc.Retry
		return NewOllamaClientWithConfig(oc), nil

	case config.ProviderOpenAI:
		oc := DefaultOpenAIConfig(pc.APIKey)
		// The stock endpoint is Ollama's native one, which go-openai cannot talk to.
		if pc.Endpoint != "" && pc.Endpoint != config.DefaultEndpoint {
			oc.BaseURL = pc.Endpoint
		}
		if pc.Model != "" && pc.Model != config.DefaultModel {
			oc.Model = pc.Model
		}
		oc.Retry = pc.Retry
		return NewOpenAIClientWithConfig(oc), nil

	case config.ProviderGemini:
		gc := DefaultGeminiConfig(pc.APIKey)
		if pc.Model != "" && pc.Model != config.DefaultModel {
			gc.Model = pc.Model
		}
		gc.Retry = pc.Retry
		return NewGeminiClientWithConfig(ctx, gc)

	default:
		return nil, fmt.Errorf("unsupported completion provider: %s", pc.Provider)
	}
}

// Ping checks reachability when the fetcher supports it.
func Ping(ctx context.Context, f Fetcher) error {
	if p, ok := f.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
