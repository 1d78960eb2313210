// Package stt is a thin HTTP wrapper around a speech-to-text proxy,
// grounded on the teacher's transcribeAudio multipart upload.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// ErrUnavailable is returned when the proxy cannot be reached or
// rejects the request; the coordinator reports the failure to the chat.
var ErrUnavailable = errors.New("stt: service unavailable")

const (
	defaultTimeout     = 30 * time.Second
	transcribeEndpoint = "/transcribe_audio"
	maxResponseBytes   = 1 << 20
)

// Client is an interface so the coordinator can be tested without a
// real proxy.
type Client interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// HTTPClient posts multipart/form-data to a configured proxy URL and
// parses back {"transcript": "..."}.
type HTTPClient struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	HTTP    *http.Client
}

// NewHTTPClient builds an HTTPClient against baseURL with an optional
// bearer apiKey.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{BaseURL: baseURL, APIKey: apiKey, Timeout: defaultTimeout, HTTP: &http.Client{}}
}

type transcribeResponse struct {
	Transcript string `json:"transcript"`
}

// Transcribe uploads audio as filename and returns the proxy's
// transcript.
func (c *HTTPClient) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	if c == nil || c.BaseURL == "" {
		return "", nil
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("stt: create form file: %w", err)
	}
	if _, err := io.Copy(fw, audio); err != nil {
		return "", fmt.Errorf("stt: write audio bytes: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("stt: close multipart writer: %w", err)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.BaseURL+transcribeEndpoint, &body)
	if err != nil {
		return "", fmt.Errorf("stt: build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("stt: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: upstream returned %d", ErrUnavailable, resp.StatusCode)
	}

	var out transcribeResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("stt: parse response: %w", err)
	}
	return out.Transcript, nil
}
