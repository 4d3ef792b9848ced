// Package anthropic adapts the Messages API to llm.Completer.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joseph-ayodele/tradedocs/internal/llm"
)

const apiVersion = "2023-06-01"

type Config struct {
	APIKey      string        // if empty, falls back to env ANTHROPIC_API_KEY
	BaseURL     string        // default https://api.anthropic.com
	Model       string        // e.g., "claude-sonnet-4-20250514"
	Temperature float32
	Timeout     time.Duration // http client timeout
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	messages := make([]map[string]any, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, map[string]any{"role": m.Role, "content": m.Content})
	}
	body := map[string]any{
		"model":      c.cfg.Model,
		"max_tokens": maxTokens,
		"messages":   messages,
	}
	if req.System != "" {
		body["system"] = req.System
	}
	if t := req.Temperature; t > 0 {
		body["temperature"] = t
	} else if c.cfg.Temperature > 0 {
		body["temperature"] = c.cfg.Temperature
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/messages"
	headers := map[string]string{
		"x-api-key":         c.cfg.APIKey,
		"anthropic-version": apiVersion,
	}
	raw, err := llm.SendJSON(ctx, c.http, "anthropic", endpoint, body, headers, c.logger)
	if err != nil {
		return nil, err
	}

	var mr struct {
		Model   string `json:"model"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &mr); err != nil {
		c.logger.Error("llm.anthropic.decode_error", "error", err, "raw_bytes", len(raw))
		return nil, fmt.Errorf("decode anthropic response: %w", err)
	}
	var text strings.Builder
	for _, block := range mr.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		c.logger.Error("llm.anthropic.empty_content", "raw", string(raw))
		return nil, fmt.Errorf("no text content in anthropic response")
	}
	return &llm.Response{
		Text:  strings.TrimSpace(text.String()),
		Model: mr.Model,
		Usage: llm.Usage{InputTokens: mr.Usage.InputTokens, OutputTokens: mr.Usage.OutputTokens},
	}, nil
}
