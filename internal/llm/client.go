// Package llm wraps the language-model provider behind a small completion
// interface with retry handling and JSON extraction for structured outputs.
package llm

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"

	"github.com/kgarbacinski/AutoViralAI/internal/config"
	"github.com/kgarbacinski/AutoViralAI/internal/types"
)

// Client is the completion interface the pipeline nodes depend on.
type Client interface {
	// Complete sends a system + user prompt and returns the raw text reply.
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// AnthropicClient is the production client backed by langchaingo's
// Anthropic provider.
type AnthropicClient struct {
	model      llms.Model
	maxTokens  int
	maxRetries int
	logger     *slog.Logger
}

var _ Client = (*AnthropicClient)(nil)

// Option configures an AnthropicClient.
type Option func(*AnthropicClient)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *AnthropicClient) { c.logger = l }
}

// WithModel overrides the underlying model, mainly for tests.
func WithModel(m llms.Model) Option {
	return func(c *AnthropicClient) { c.model = m }
}

// NewAnthropicClient creates a client from configuration. The API key falls
// back to the ANTHROPIC_API_KEY environment variable.
func NewAnthropicClient(cfg config.LLMConfig, opts ...Option) (*AnthropicClient, error) {
	c := &AnthropicClient{
		maxTokens:  cfg.MaxTokens,
		maxRetries: cfg.MaxRetries,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.model == nil {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, types.NewError(types.CONFIG_VALIDATION_FAILED,
				"anthropic API key is required (llm.api_key or ANTHROPIC_API_KEY)")
		}

		model, err := anthropic.New(
			anthropic.WithToken(apiKey),
			anthropic.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, types.WrapError(types.LLM_CALL_FAILED, "failed to initialize anthropic client", err)
		}
		c.model = model
	}

	if c.maxTokens <= 0 {
		c.maxTokens = 4096
	}
	if c.maxRetries <= 0 {
		c.maxRetries = 3
	}
	return c, nil
}

// Complete calls the model with bounded retries and exponential backoff.
func (c *AnthropicClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	var lastErr error
	delay := time.Second
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		resp, err := c.model.GenerateContent(ctx, messages, llms.WithMaxTokens(c.maxTokens))
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", types.NewError(types.LLM_CALL_FAILED, "model returned no choices")
			}
			return resp.Choices[0].Content, nil
		}
		lastErr = err
		c.logger.Warn("completion attempt failed",
			"attempt", attempt,
			"max_retries", c.maxRetries,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
	return "", types.WrapError(types.LLM_CALL_FAILED, "completion failed after retries", lastErr)
}

// CompleteJSON calls the client and decodes the structured JSON reply into T.
func CompleteJSON[T any](ctx context.Context, c Client, system, prompt string) (T, error) {
	var out T
	reply, err := c.Complete(ctx, system, prompt)
	if err != nil {
		return out, err
	}
	out, err = ExtractJSONAs[T](reply)
	if err != nil {
		return out, types.WrapError(types.LLM_DECODE_FAILED, "failed to decode model reply", err)
	}
	return out, nil
}
