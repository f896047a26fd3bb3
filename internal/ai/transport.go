package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Message is one role/content entry in the outbound request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the provider-specific completion envelope.
type Request struct {
	Endpoint       string
	APIKey         string
	Model          string
	Messages       []Message
	Temperature    float64
	HasTemperature bool
}

// Transport performs one completion round trip and returns the raw response
// body. Provider-level errors arrive as recognizable body shapes, not Go
// errors; a non-nil error means the request itself failed (network, timeout).
type Transport interface {
	Complete(ctx context.Context, req Request) ([]byte, error)
}

// maxResponseBody bounds how much of a provider response is read.
const maxResponseBody = 4 << 20

// HTTPTransport posts chat-completion requests with Bearer auth.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates a transport with the given request timeout
// (zero means no timeout).
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{client: &http.Client{Timeout: timeout}}
}

// Complete implements Transport. The response body is returned for any HTTP
// status: provider error envelopes ride on non-2xx responses and the caller
// is responsible for interpreting the shape.
func (t *HTTPTransport) Complete(ctx context.Context, req Request) ([]byte, error) {
	payload := map[string]any{
		"model":    req.Model,
		"messages": req.Messages,
	}
	if req.HasTemperature {
		payload["temperature"] = req.Temperature
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ai: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ai: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("ai: read response: %w", err)
	}
	return raw, nil
}

// Verify HTTPTransport satisfies Transport at compile time.
var _ Transport = (*HTTPTransport)(nil)
