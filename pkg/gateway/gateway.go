// Package gateway wraps a language model behind a uniform
// success/failure result with bounded retries. Callers never see a
// transport error escape this boundary; an exhausted retry budget comes
// back as a failed Result.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"
)

const (
	// DefaultRetries is how many generation attempts are made before
	// giving up.
	DefaultRetries = 3
	// DefaultRetryDelay is the fixed pause between attempts.
	DefaultRetryDelay = 2 * time.Second
)

// Result is the uniform outcome of a generation call.
type Result struct {
	Success  bool
	Response string
	Err      error
}

// Client sends prompts to a langchaingo model with retry on transient
// failures.
type Client struct {
	Model      llms.Model
	Retries    int
	RetryDelay time.Duration
	Logger     *slog.Logger
}

// New creates a gateway client around model with default retry settings.
func New(model llms.Model) *Client {
	return &Client{
		Model:      model,
		Retries:    DefaultRetries,
		RetryDelay: DefaultRetryDelay,
		Logger:     slog.Default(),
	}
}

// Generate sends a system prompt and user content to the model. Transient
// failures are retried up to Retries times with a fixed delay; after that
// a failed Result is returned.
func (c *Client) Generate(ctx context.Context, systemPrompt, userContent string, maxTokens int, temperature float64) Result {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userContent),
	}

	retries := c.Retries
	if retries <= 0 {
		retries = DefaultRetries
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		if attempt > 0 {
			c.Logger.Warn("Retrying LLM generation", "attempt", attempt+1, "retries", retries, "last_error", lastErr)
			select {
			case <-time.After(c.RetryDelay):
			case <-ctx.Done():
				return Result{Err: ctx.Err()}
			}
		}

		resp, err := c.Model.GenerateContent(ctx, messages,
			llms.WithMaxTokens(maxTokens),
			llms.WithTemperature(temperature),
		)
		if err != nil {
			lastErr = fmt.Errorf("llm generation failed: %w", err)
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("llm returned no choices")
			continue
		}

		return Result{Success: true, Response: resp.Choices[0].Content}
	}

	return Result{Err: fmt.Errorf("llm request failed after %d attempts: %w", retries, lastErr)}
}
