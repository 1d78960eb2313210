package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultClaudeModel = "claude-sonnet-4-5-20250929"
	anthropicAPIBase   = "https://api.anthropic.com/v1"
	anthropicAPIVersion = "2023-06-01"
	maxAttempts         = 3
)

// AnthropicProvider implements Provider against the Anthropic Messages
// API via net/http.
type AnthropicProvider struct {
	apiKey       string
	baseURL      string
	defaultModel string
	client       *http.Client
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey string, opts ...AnthropicOption) *AnthropicProvider {
	p := &AnthropicProvider{
		apiKey:       apiKey,
		baseURL:      anthropicAPIBase,
		defaultModel: defaultClaudeModel,
		client:       &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// AnthropicOption configures an AnthropicProvider at construction.
type AnthropicOption func(*AnthropicProvider)

// WithAnthropicModel overrides the default model used when a
// ChatRequest does not specify one.
func WithAnthropicModel(model string) AnthropicOption {
	return func(p *AnthropicProvider) { p.defaultModel = model }
}

// WithAnthropicBaseURL overrides the API base, for testing against a
// local stub server.
func WithAnthropicBaseURL(baseURL string) AnthropicOption {
	return func(p *AnthropicProvider) {
		if baseURL != "" {
			p.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func (p *AnthropicProvider) Name() string        { return "anthropic" }
func (p *AnthropicProvider) DefaultModel() string { return p.defaultModel }

// Chat sends a single, non-streaming completion request. system-role
// messages are moved into Anthropic's top-level "system" field since
// the Messages API has no system role in the message list itself.
func (p *AnthropicProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	body := p.buildRequestBody(model, req)

	var resp anthropicResponse
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return nil, err
			}
		}
		respBody, retryAfter, err := p.doRequest(ctx, body)
		if err != nil {
			lastErr = err
			if retryAfter < 0 {
				return nil, err // non-retryable
			}
			continue
		}
		err = json.NewDecoder(respBody).Decode(&resp)
		respBody.Close()
		if err != nil {
			return nil, fmt.Errorf("anthropic: decode response: %w", err)
		}
		return p.parseResponse(&resp), nil
	}
	return nil, fmt.Errorf("anthropic: exhausted retries: %w", lastErr)
}

func sleepBackoff(ctx context.Context, attempt int) error {
	delay := time.Duration(attempt) * 500 * time.Millisecond
	delay += time.Duration(rand.Intn(250)) * time.Millisecond
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *AnthropicProvider) buildRequestBody(model string, req ChatRequest) map[string]interface{} {
	var systemText strings.Builder
	var messages []map[string]interface{}

	for _, msg := range req.Messages {
		if msg.Role == "system" {
			if systemText.Len() > 0 {
				systemText.WriteString("\n")
			}
			systemText.WriteString(msg.Content)
			continue
		}
		messages = append(messages, map[string]interface{}{
			"role":    msg.Role,
			"content": msg.Content,
		})
	}

	body := map[string]interface{}{
		"model":      model,
		"max_tokens": 4096,
		"messages":   messages,
	}
	if systemText.Len() > 0 {
		body["system"] = systemText.String()
	}
	return body
}

// doRequest issues the HTTP call. retryAfter is >=0 when the caller
// should retry (rate limited or a transient 5xx), -1 for a terminal
// error.
func (p *AnthropicProvider) doRequest(ctx context.Context, body interface{}) (io.ReadCloser, int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, -1, fmt.Errorf("anthropic: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(data))
	if err != nil {
		return nil, -1, fmt.Errorf("anthropic: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, -1, fmt.Errorf("anthropic: request failed: %w", err)
	}

	if resp.StatusCode == http.StatusOK {
		return resp.Body, 0, nil
	}

	respBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, retryAfter, fmt.Errorf("anthropic: %d: %s", resp.StatusCode, string(respBody))
	}
	return nil, -1, fmt.Errorf("anthropic: %d: %s", resp.StatusCode, string(respBody))
}

func parseRetryAfter(header string) int {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil {
		return 0
	}
	return secs
}

func (p *AnthropicProvider) parseResponse(resp *anthropicResponse) *ChatResponse {
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	finish := "stop"
	if resp.StopReason == "max_tokens" {
		finish = "length"
	}

	return &ChatResponse{
		Content:      text.String(),
		FinishReason: finish,
		Usage: &Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}
}

type anthropicResponse struct {
	Content    []anthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
	Usage      anthropicUsage          `json:"usage"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
