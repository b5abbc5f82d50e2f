// Package genai is the HTTP client for the external text-generation service.
// The service is OpenAI-compatible; every call is made with the individual
// user's API key, never a shared one.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gptb70564-code/cw-bot/internal/dispatch/domain"
)

var (
	// ErrUnauthorized marks an auth-class failure (bad or revoked key).
	ErrUnauthorized = errors.New("generation key unauthorized")

	// ErrRateLimited marks a rate-limit-class failure.
	ErrRateLimited = errors.New("generation key rate limited")

	// ErrEmptyCompletion is returned when the service answers 2xx but with
	// blank text.
	ErrEmptyCompletion = errors.New("empty completion from generation service")
)

// Config holds generation client configuration.
type Config struct {
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration // bound on one generation call
}

// Client calls the chat-completions endpoint of the generation service.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a generation client.
func NewClient(config *Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const systemPrompt = "You are a professional freelance proposal writer. " +
	"Write a polite, confident bid for the job described by the user. " +
	"Demonstrate expertise and reliability, do not mention the job post " +
	"directly, and keep the bid concise."

// Generate produces bid text for posting using apiKey. Auth-class and
// rate-limit-class failures are reported as ErrUnauthorized and
// ErrRateLimited so the caller can downgrade key health accordingly.
func (c *Client) Generate(ctx context.Context, apiKey string, posting *domain.Posting) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", ErrUnauthorized
	}

	body, err := json.Marshal(chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(posting)},
		},
		Temperature: 0.7,
		MaxTokens:   c.config.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal generation request: %w", err)
	}

	text, err := c.complete(ctx, apiKey, body)
	if err != nil {
		return "", err
	}

	return text, nil
}

// ValidateKey probes apiKey with a minimal completion request and maps the
// response onto a key status. This is the only path that may restore a key
// to valid.
func (c *Client) ValidateKey(ctx context.Context, apiKey string) domain.KeyStatus {
	if strings.TrimSpace(apiKey) == "" {
		return domain.KeyStatusInvalid
	}

	body, err := json.Marshal(chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "user", Content: "ping"},
		},
		MaxTokens: 5,
	})
	if err != nil {
		return domain.KeyStatusInvalid
	}

	_, err = c.complete(ctx, apiKey, body)
	switch {
	case err == nil || errors.Is(err, ErrEmptyCompletion):
		return domain.KeyStatusValid
	case errors.Is(err, ErrRateLimited):
		return domain.KeyStatusLimited
	default:
		return domain.KeyStatusInvalid
	}
}

// complete posts body to the chat-completions endpoint and extracts the
// first choice's text.
func (c *Client) complete(ctx context.Context, apiKey string, body []byte) (string, error) {
	url := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(apiKey))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", ErrUnauthorized
	case http.StatusTooManyRequests:
		return "", ErrRateLimited
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("Generation service returned non-success status",
			slog.Int("status", resp.StatusCode),
		)
		return "", fmt.Errorf("generation service status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read generation response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse generation response: %w", err)
	}

	if len(parsed.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}

	return text, nil
}

// userPrompt renders the posting into the user message of the completion
// request.
func userPrompt(p *domain.Posting) string {
	budget := "Discussion with worker"
	if p.LowBudget > 0 || p.HighBudget > 0 {
		if p.LowBudget > 0 && p.HighBudget > 0 {
			budget = fmt.Sprintf("%d ~ %d", p.LowBudget, p.HighBudget)
		} else if p.HighBudget > 0 {
			budget = fmt.Sprintf("%d", p.HighBudget)
		} else {
			budget = fmt.Sprintf("%d", p.LowBudget)
		}
	}

	return fmt.Sprintf(
		"Job Title: %s\nJob Type: %s\nBudget: %s\nJob Details: %s",
		p.Title, p.JobKind, budget, p.Description,
	)
}
