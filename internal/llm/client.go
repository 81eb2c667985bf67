// Package llm wraps the completion provider used for failure analysis.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/tuannvm/youtrack-analyzer/internal/logging"
)

// Client generates a completion for a single prompt.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config holds provider settings.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

type client struct {
	model       llms.Model
	maxTokens   int
	temperature float64
	timeout     time.Duration
}

// NewClient builds a completion client for the configured provider.
func NewClient(cfg Config) (Client, error) {
	var model llms.Model
	var err error

	switch cfg.Provider {
	case "openai", "":
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
	case "azure":
		model, err = openai.New(
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithAPIType(openai.APITypeAzure),
		)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &client{
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     timeout,
	}, nil
}

func (c *client) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	logging.Debugf("sending prompt to LLM: %s", truncateForLogging(prompt))

	opts := []llms.CallOption{llms.WithTemperature(c.temperature)}
	if c.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.maxTokens))
	}

	completion, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("LLM completion failed: %w", err)
	}

	logging.Debugf("received LLM response: %s", truncateForLogging(completion))
	return completion, nil
}

// truncateForLogging shortens long strings for log output.
func truncateForLogging(s string) string {
	const maxLength = 500
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength] + "... [truncated]"
}
