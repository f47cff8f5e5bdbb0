// Package assist resolves free-text order commands with an LLM, wrapped in a
// circuit breaker and retry so a flaky upstream degrades to the deterministic
// command table instead of failing requests.
package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// ClientConfig carries the upstream settings.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// LoadClientConfigFromEnv reads the assist settings. An empty DALKAK_ASSIST_URL
// means assist is disabled and resolution stays fully deterministic.
func LoadClientConfigFromEnv() ClientConfig {
	cfg := ClientConfig{
		BaseURL: strings.TrimRight(os.Getenv("DALKAK_ASSIST_URL"), "/"),
		APIKey:  os.Getenv("DALKAK_ASSIST_KEY"),
		Model:   os.Getenv("DALKAK_ASSIST_MODEL"),
		Timeout: 10 * time.Second,
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	return cfg
}

// NewClient constructs an assist client, or nil when no URL is configured.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const systemPrompt = "You map an admin's order command to exactly one of: " +
	"pending, paid, cancelled, refunded. Reply with the single word only."

// Complete sends one command plus the current status and returns the model's
// raw reply, trimmed and lowercased. The caller validates it.
func (c *Client) Complete(ctx context.Context, command, current string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("current status: %s\ncommand: %s", current, command)},
		},
		Temperature: 0,
		MaxTokens:   8,
	})
	if err != nil {
		return "", fmt.Errorf("assist: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("assist: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("assist: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("assist: upstream status %d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		return "", fmt.Errorf("assist: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("assist: empty completion")
	}
	return strings.ToLower(strings.TrimSpace(out.Choices[0].Message.Content)), nil
}
