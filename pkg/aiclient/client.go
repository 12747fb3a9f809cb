/**
 * @description
 * This package wraps the Gemini completion API behind the small interface
 * the application layer consumes. It owns the only retry loop in the
 * service: bounded exponential backoff around the provider call, surfaced as
 * a single provider error on exhaustion. Nothing upstream retries.
 *
 * @dependencies
 * - github.com/google/generative-ai-go/genai: The official Gemini Go SDK.
 * - google.golang.org/api/option: API key client option.
 */
package aiclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrEmptyResponse is returned when the provider answers with no candidates.
var ErrEmptyResponse = errors.New("provider returned an empty response")

const (
	defaultMaxAttempts = 3
	baseBackoff        = 500 * time.Millisecond
)

// Client is a Gemini-backed completion client.
type Client struct {
	client      *genai.Client
	maxAttempts int
	logger      *slog.Logger
}

// New creates a Gemini client with the given API key.
func New(ctx context.Context, apiKey string, logger *slog.Logger) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{client: client, maxAttempts: defaultMaxAttempts, logger: logger}, nil
}

// Complete sends the prompt to the named model and returns the response text.
// Transient failures are retried with exponential backoff up to the attempt
// cap; the last error is returned once retries are exhausted.
func (c *Client) Complete(ctx context.Context, prompt, model string) (string, error) {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	gm := c.client.GenerativeModel(model)

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := baseBackoff << (attempt - 1)
			c.logger.Warn("retrying provider call", "model", model, "attempt", attempt+1, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		resp, err := gm.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			lastErr = err
			continue
		}

		text := extractText(resp)
		if text == "" {
			return "", ErrEmptyResponse
		}
		return text, nil
	}

	return "", fmt.Errorf("provider call failed after %d attempts: %w", c.maxAttempts, lastErr)
}

// Close releases the underlying client.
func (c *Client) Close() error {
	return c.client.Close()
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}
