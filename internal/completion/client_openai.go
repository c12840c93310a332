package completion

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"polyglot/internal/logging"
)

// OpenAIConfig holds configuration for an OpenAI-compatible chat API.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // empty = api.openai.com
	Model   string
	Retry   RetryPolicy
}

// DefaultOpenAIConfig returns sensible defaults.
func DefaultOpenAIConfig(apiKey string) OpenAIConfig {
	return OpenAIConfig{
		APIKey: apiKey,
		Model:  openai.GPT4oMini,
		Retry:  DefaultRetryPolicy(),
	}
}

// OpenAIClient implements Fetcher using go-openai. Any server speaking the
// chat completions protocol works, including Ollama's /v1 surface.
type OpenAIClient struct {
	client *openai.Client
	model  string
	retry  RetryPolicy
}

// NewOpenAIClient creates a client with default settings.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return NewOpenAIClientWithConfig(DefaultOpenAIConfig(apiKey))
}

// NewOpenAIClientWithConfig creates a client with explicit configuration.
func NewOpenAIClientWithConfig(config OpenAIConfig) *OpenAIClient {
	cfg := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		cfg.BaseURL = config.BaseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  config.Model,
		retry:  config.Retry,
	}
}

// Name returns "openai".
func (c *OpenAIClient) Name() string { return "openai" }

// Complete sends the prompt as one user message.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	logging.APIDebug("[OpenAI] Complete: model=%s prompt_len=%d", c.model, len(prompt))
	start := time.Now()
	text, err := c.retry.do(ctx, "openai", func(ctx context.Context) (string, error) {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", ErrEmptyResponse
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err == nil {
		logging.APIDebug("[OpenAI] Complete finished in %v, response_len=%d", time.Since(start), len(text))
	}
	return text, err
}

// Ping lists models to confirm the key and base URL work.
func (c *OpenAIClient) Ping(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("completion service unreachable: %w", err)
	}
	return nil
}
