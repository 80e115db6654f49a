package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Nekoplex/VkGPTBot/internal/convo"
	"github.com/Nekoplex/VkGPTBot/internal/metrics"
)

// Client talks to an OpenAI-compatible backend. It implements both
// Generator (chat completions) and Moderator (moderations).
type Client struct {
	apiKey          string
	baseURL         string
	chatModel       string
	moderationModel string
	httpClient      *http.Client
	log             zerolog.Logger
}

// ClientConfig holds settings for the backend client.
type ClientConfig struct {
	APIKey          string
	BaseURL         string
	ChatModel       string
	ModerationModel string
	Timeout         time.Duration
	Logger          zerolog.Logger
}

// NewClient creates a backend client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		apiKey:          cfg.APIKey,
		baseURL:         strings.TrimSuffix(cfg.BaseURL, "/"),
		chatModel:       cfg.ChatModel,
		moderationModel: cfg.ModerationModel,
		httpClient:      &http.Client{Timeout: cfg.Timeout},
		log:             cfg.Logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Generate sends the prompt to the chat completions endpoint. The header,
// when present, becomes the system message; each conversation turn becomes
// a user message with the raw text only (display names are never sent).
func (c *Client) Generate(ctx context.Context, prompt convo.Prompt) (string, error) {
	messages := make([]chatMessage, 0, prompt.Convo.Len()+1)
	if prompt.Header != nil {
		messages = append(messages, chatMessage{Role: "system", Content: prompt.Header.Text})
	}
	for _, m := range prompt.Convo.Messages() {
		messages = append(messages, chatMessage{Role: "user", Content: m.Text})
	}

	start := time.Now()
	var resp chatResponse
	if err := c.post(ctx, "/chat/completions", chatRequest{
		Model:    c.chatModel,
		Messages: messages,
	}, &resp); err != nil {
		return "", err
	}
	metrics.GenerationLatency.Observe(time.Since(start).Seconds())

	if resp.Error != nil {
		return "", fmt.Errorf("generation backend: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generation backend returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

type moderationRequest struct {
	Model string `json:"model,omitempty"`
	Input string `json:"input"`
}

type moderationResponse struct {
	Results []struct {
		Flagged    bool            `json:"flagged"`
		Categories map[string]bool `json:"categories"`
	} `json:"results"`
	Error *apiError `json:"error,omitempty"`
}

// Check submits text to the moderations endpoint. On a flagged result the
// verdict reason lists the offending categories.
func (c *Client) Check(ctx context.Context, text string, stage Stage) (Verdict, error) {
	start := time.Now()
	var resp moderationResponse
	if err := c.post(ctx, "/moderations", moderationRequest{
		Model: c.moderationModel,
		Input: text,
	}, &resp); err != nil {
		return Verdict{}, err
	}
	metrics.ModerationLatency.Observe(time.Since(start).Seconds())

	if resp.Error != nil {
		return Verdict{}, fmt.Errorf("moderation backend: %s", resp.Error.Message)
	}
	if len(resp.Results) == 0 {
		return Verdict{}, fmt.Errorf("moderation backend returned no results")
	}

	result := resp.Results[0]
	if !result.Flagged {
		return Verdict{}, nil
	}

	var categories []string
	for category, hit := range result.Categories {
		if hit {
			categories = append(categories, category)
		}
	}
	sort.Strings(categories)

	c.log.Info().
		Str("stage", string(stage)).
		Strs("categories", categories).
		Msg("moderation flagged text")

	return Verdict{
		Flagged: true,
		Reason:  "blocked: " + strings.Join(categories, ", "),
	}, nil
}

// post sends a JSON request and decodes the JSON response.
func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	if c.apiKey == "" {
		return fmt.Errorf("backend API key not configured")
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("backend response read failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet := string(data)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return fmt.Errorf("backend returned %d: %s", resp.StatusCode, snippet)
	}

	return json.Unmarshal(data, out)
}
