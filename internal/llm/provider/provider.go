// Package provider builds the configured model-call capability.
package provider

import (
	"log/slog"

	"github.com/joseph-ayodele/tradedocs/internal/common"
	"github.com/joseph-ayodele/tradedocs/internal/llm"
	"github.com/joseph-ayodele/tradedocs/internal/llm/anthropic"
	"github.com/joseph-ayodele/tradedocs/internal/llm/openai"
)

// New returns a resilient Completer for cfg.Provider, or nil when the provider
// is disabled or has no API key. A nil Completer means the capability is
// unavailable; callers degrade instead of failing.
func New(cfg common.LLMConfig, logger *slog.Logger) llm.Completer {
	if logger == nil {
		logger = slog.Default()
	}
	var inner llm.Completer
	switch cfg.Provider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			logger.Warn("llm.provider.unavailable", "provider", cfg.Provider, "reason", "ANTHROPIC_API_KEY not set")
			return nil
		}
		inner = anthropic.NewClient(anthropic.Config{
			APIKey:      cfg.AnthropicAPIKey,
			Model:       cfg.AnthropicModel,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			logger.Warn("llm.provider.unavailable", "provider", cfg.Provider, "reason", "OPENAI_API_KEY not set")
			return nil
		}
		inner = openai.NewClient(openai.Config{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.OpenAIModel,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
	default:
		logger.Info("llm.provider.disabled", "provider", cfg.Provider)
		return nil
	}
	logger.Info("llm.provider.ready", "provider", cfg.Provider)
	return llm.NewResilient(inner, llm.ResilientConfig{
		Timeout:       cfg.Timeout,
		MaxRetries:    cfg.MaxRetries,
		RatePerMinute: cfg.RatePerMinute,
	}, logger)
}
