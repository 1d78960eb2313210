// Package llm wraps a single-shot Anthropic chat completion (the
// teacher's internal/providers request shape) behind two small
// interfaces: one for polishing a raw voice transcript, one for
// summarizing a session.
package llm

import (
	"context"
	"fmt"

	"github.com/vanducng/goclaw-bridge/internal/providers"
)

// PolishClient turns a raw STT transcript into cleaned-up prose.
type PolishClient interface {
	Polish(ctx context.Context, raw string) (string, error)
}

// SummaryClient produces a short summary of arbitrary text (typically
// the concatenation of a session's assistant messages).
type SummaryClient interface {
	Summarize(ctx context.Context, text string) (string, error)
}

const (
	polishSystemPrompt    = "Clean up this voice-transcribed text: fix punctuation and obvious misrecognitions, keep the meaning and tone exactly as spoken. Reply with only the corrected text."
	summarizeSystemPrompt = "Summarize the following in 2-4 sentences for someone who has not been following along. Reply with only the summary."
)

// Client adapts a providers.Provider (the teacher's Anthropic HTTP
// client) to PolishClient and SummaryClient via single-message,
// single-shot chat completions.
type Client struct {
	Provider providers.Provider
}

// New builds a Client over an Anthropic-backed provider.
func New(apiKey string, opts ...providers.AnthropicOption) *Client {
	return &Client{Provider: providers.NewAnthropicProvider(apiKey, opts...)}
}

func (c *Client) complete(ctx context.Context, system, input string) (string, error) {
	if c == nil || c.Provider == nil {
		return "", fmt.Errorf("llm: no provider configured")
	}
	resp, err := c.Provider.Chat(ctx, providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: input},
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	return resp.Content, nil
}

// Polish implements PolishClient.
func (c *Client) Polish(ctx context.Context, raw string) (string, error) {
	return c.complete(ctx, polishSystemPrompt, raw)
}

// Summarize implements SummaryClient.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	return c.complete(ctx, summarizeSystemPrompt, text)
}
