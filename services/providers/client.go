package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrEmptyResponse is returned when the model replies without usable content.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Client sends single-prompt completions through a Provider with a deadline.
type Client struct {
	provider Provider
	timeout  time.Duration
	logger   *zap.Logger
}

// NewClient creates a generation client. A zero timeout disables the deadline.
func NewClient(provider Provider, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		provider: provider,
		timeout:  timeout,
		logger:   logger,
	}
}

// Complete sends prompt as a single user message to model and returns the
// reply text with its token usage. TotalTokens always equals
// PromptTokens + CompletionTokens.
func (c *Client) Complete(ctx context.Context, prompt, model string) (string, Usage, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := &ChatRequest{
		Model: model,
		Messages: []Message{
			{Role: RoleUser, Content: prompt},
		},
	}

	resp, err := c.provider.ChatCompletion(ctx, req)
	if err != nil {
		c.logger.Warn("chat completion failed",
			zap.String("provider", c.provider.Name()),
			zap.String("model", model),
			zap.Error(err),
		)
		return "", Usage{}, fmt.Errorf("%s completion: %w", c.provider.Name(), err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", Usage{}, ErrEmptyResponse
	}

	usage := resp.Usage.Normalized()
	if usage.TotalTokens != resp.Usage.TotalTokens {
		c.logger.Debug("provider total tokens adjusted",
			zap.Int("reported", resp.Usage.TotalTokens),
			zap.Int("computed", usage.TotalTokens),
		)
	}

	c.logger.Debug("chat completion finished",
		zap.String("provider", c.provider.Name()),
		zap.String("model", model),
		zap.Int("total_tokens", usage.TotalTokens),
		zap.Duration("latency", resp.Latency),
	)

	return resp.Choices[0].Message.Content, usage, nil
}
