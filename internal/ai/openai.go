// Package ai summarizes note content with the OpenAI chat completions API.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/harunzafer/fastsvelte/pkg/httpclient"
)

const (
	summaryTimeout   = 30 * time.Second
	summaryMaxTokens = 256
	systemPrompt     = "You summarize notes. Reply with a concise summary of at most three sentences, in the language of the note."
)

// Summarizer produces a short summary of a text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Config configures the OpenAI client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// OpenAI implements Summarizer.
type OpenAI struct {
	cfg    Config
	client httpclient.Doer
}

func NewOpenAI(cfg Config, client httpclient.Doer) *OpenAI {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OpenAI{cfg: cfg, client: client}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (o *OpenAI) Summarize(ctx context.Context, text string) (string, error) {
	if o.cfg.APIKey == "" {
		return "", errors.New("openai api key is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, summaryTimeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: o.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: text},
		},
		MaxTokens: summaryMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	resp, err := o.client.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai chat completion: %w", httpclient.ParseResponseError(resp, "openai"))
	}
	defer func() { _ = resp.Body.Close() }()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
