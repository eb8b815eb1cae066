package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// Completer produces a free-text answer for messages the bot does not
// understand
type Completer interface {
	Complete(ctx context.Context, system, userText string) (string, error)
}

// ErrFallbackDisabled is returned when no API key is configured
var ErrFallbackDisabled = errors.New("AI fallback not configured")

// ClaudeRequest represents the request to Claude API
type ClaudeRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

// Message represents a message in the conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ContentBlock represents a content block in Claude's response
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ClaudeResponse represents the response from Claude API
type ClaudeResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// ClaudeConfig configures ClaudeClient
type ClaudeConfig struct {
	APIURL    string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	Debug     bool
	// RequestsPerMinute caps outgoing calls; 0 means unlimited
	RequestsPerMinute int
}

// ClaudeClient is a Completer backed by the Claude Messages API
type ClaudeClient struct {
	cfg        ClaudeConfig
	httpClient *http.Client
	limiter    *RateLimiter
}

// NewClaudeClient creates the client. An APIKey of "TEST_MODE" answers with a
// canned echo without calling the API
func NewClaudeClient(cfg ClaudeConfig) *ClaudeClient {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 25 * time.Second
	}
	c := &ClaudeClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = NewRateLimiter(cfg.RequestsPerMinute)
	}
	return c
}

// Complete sends one user turn with the given system prompt
func (c *ClaudeClient) Complete(ctx context.Context, system, userText string) (string, error) {
	if c.cfg.APIKey == "TEST_MODE" {
		slog.Info("Running in TEST_MODE - returning mock response")
		return fmt.Sprintf("TEST RESPONSE: %s", userText), nil
	}
	if c.cfg.APIKey == "" {
		return "", ErrFallbackDisabled
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	requestBody := ClaudeRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		System:    system,
		Messages:  []Message{{Role: "user", Content: userText}},
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", err
	}

	if c.cfg.Debug {
		slog.Debug("Claude request", "model", c.cfg.Model, "system", system, "input", userText)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.APIURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
			slog.Error("Claude API timeout", "error", err, "messageLength", len(userText))
			return "", fmt.Errorf("Claude API timeout: %w", err)
		}
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		slog.Error("Claude API error", "status", resp.StatusCode, "body", string(body))
		return "", fmt.Errorf("Claude API error: %s", resp.Status)
	}

	var claudeResp ClaudeResponse
	if err := json.Unmarshal(body, &claudeResp); err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range claudeResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("no response content from Claude")
	}

	slog.Info("Claude response generated",
		"inputTokens", claudeResp.Usage.InputTokens,
		"outputTokens", claudeResp.Usage.OutputTokens,
	)
	return strings.TrimSpace(text.String()), nil
}
