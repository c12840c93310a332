package completion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"polyglot/internal/logging"
)

// GeminiConfig holds configuration for the Gemini API.
type GeminiConfig struct {
	APIKey string
	Model  string
	Retry  RetryPolicy
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey: apiKey,
		Model:  "gemini-2.5-flash",
		Retry:  DefaultRetryPolicy(),
	}
}

// GeminiClient implements Fetcher using the genai SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
	retry  RetryPolicy
}

// NewGeminiClientWithConfig creates a client. The SDK validates the key
// lazily, so errors here are configuration errors only.
func NewGeminiClientWithConfig(ctx context.Context, config GeminiConfig) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiClient{client: client, model: config.Model, retry: config.Retry}, nil
}

// Name returns "gemini".
func (c *GeminiClient) Name() string { return "gemini" }

// Complete generates text for the prompt, asking for a JSON reply.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	logging.APIDebug("[Gemini] Complete: model=%s prompt_len=%d", c.model, len(prompt))
	start := time.Now()
	text, err := c.retry.do(ctx, "gemini", func(ctx context.Context) (string, error) {
		resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
		})
		if err != nil {
			return "", err
		}
		return responseText(resp), nil
	})
	if err == nil {
		logging.APIDebug("[Gemini] Complete finished in %v, response_len=%d", time.Since(start), len(text))
	}
	return text, err
}

// Ping fetches the model metadata.
func (c *GeminiClient) Ping(ctx context.Context) error {
	if _, err := c.client.Models.Get(ctx, c.model, nil); err != nil {
		return fmt.Errorf("completion service unreachable: %w", err)
	}
	return nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
