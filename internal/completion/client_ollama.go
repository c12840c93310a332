package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"polyglot/internal/logging"
)

// OllamaConfig holds configuration for an Ollama-style /api/chat endpoint.
type OllamaConfig struct {
	Endpoint string
	Model    string
	Retry    RetryPolicy
}

// DefaultOllamaConfig returns the local Ollama defaults.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		Endpoint: "http://localhost:11434/api/chat",
		Model:    "gpt-oss:120b-cloud",
		Retry:    DefaultRetryPolicy(),
	}
}

// OllamaClient implements Fetcher against a non-streaming /api/chat endpoint.
type OllamaClient struct {
	endpoint   string
	model      string
	retry      RetryPolicy
	httpClient *http.Client
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaResponse struct {
	Message ollamaMessage `json:"message"`
	Error   string        `json:"error,omitempty"`
}

// NewOllamaClient creates a client with default settings for an endpoint.
func NewOllamaClient(endpoint string) *OllamaClient {
	config := DefaultOllamaConfig()
	if endpoint != "" {
		config.Endpoint = endpoint
	}
	return NewOllamaClientWithConfig(config)
}

// NewOllamaClientWithConfig creates a client with explicit configuration.
func NewOllamaClientWithConfig(config OllamaConfig) *OllamaClient {
	return &OllamaClient{
		endpoint: config.Endpoint,
		model:    config.Model,
		retry:    config.Retry,
		// Per-attempt deadlines come from the retry policy's context.
		httpClient: &http.Client{},
	}
}

// Name returns "ollama".
func (c *OllamaClient) Name() string { return "ollama" }

// Complete sends a single user message and returns message.content.
func (c *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	logging.APIDebug("[Ollama] Complete: model=%s prompt_len=%d", c.model, len(prompt))
	start := time.Now()
	text, err := c.retry.do(ctx, "ollama", func(ctx context.Context) (string, error) {
		return c.chat(ctx, prompt)
	})
	if err == nil {
		logging.APIDebug("[Ollama] Complete finished in %v, response_len=%d", time.Since(start), len(text))
	}
	return text, err
}

func (c *OllamaClient) chat(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:    c.model,
		Messages: []ollamaMessage{{Role: "user", Content: prompt}},
		Stream:   false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(respBody))}
	}

	var out ollamaResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("API error: %s", out.Error)
	}
	return out.Message.Content, nil
}

// Ping checks that the server behind the endpoint answers at all.
func (c *OllamaClient) Ping(ctx context.Context) error {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", c.endpoint, err)
	}
	root := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}).String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, root, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("completion service unreachable at %s: %w", root, err)
	}
	resp.Body.Close()
	logging.APIDebug("[Ollama] Ping %s: %d", root, resp.StatusCode)
	return nil
}
