// Package llm talks to OpenAI-compatible chat-completion endpoints and
// decodes their streaming and non-streaming responses.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/mark3labs/webgen/internal/errors"
	"github.com/mark3labs/webgen/internal/logger"
	"github.com/mark3labs/webgen/internal/message"
)

// DefaultURL is the OpenAI chat-completions endpoint.
const DefaultURL = "https://api.openai.com/v1/chat/completions"

// errorMessagePaths are probed in order to find a human-readable message in
// an error body.
var errorMessagePaths = []string{"error.message", "error", "message", "detail", "msg"}

// Thinking enables extended reasoning on providers that support it.
type Thinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

// Request is the chat-completions request body.
type Request struct {
	Model    string                   `json:"model"`
	Messages []message.Message        `json:"messages"`
	Tools    []message.ToolDefinition `json:"tools,omitempty"`
	Stream   bool                     `json:"stream"`
	Thinking *Thinking                `json:"thinking,omitempty"`
}

// EnableThinking returns the thinking block for the given budget.
func EnableThinking(budget int) *Thinking {
	return &Thinking{Type: "enabled", BudgetTokens: budget}
}

// Client posts chat-completion requests.
type Client struct {
	url     string
	apiKey  string
	headers map[string]string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHeaders adds extra request headers.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) {
		for k, v := range h {
			c.headers[k] = v
		}
	}
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient creates a client for url. An empty url selects DefaultURL.
func NewClient(url, apiKey string, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		url:     url,
		apiKey:  apiKey,
		headers: make(map[string]string),
		http:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string {
	return c.url
}

// Complete sends req and decodes one assistant message. Transport failures
// are returned as *errors.TransportError; a cancelled ctx surfaces as the
// context error.
func (c *Client) Complete(ctx context.Context, req Request, h Handlers) (message.Message, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return message.Message{}, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return message.Message{}, errors.NewTransportError("chat completion", 0, fmt.Errorf("failed to build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	logger.Debug("POST %s model=%s messages=%d stream=%t", c.url, req.Model, len(req.Messages), req.Stream)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return message.Message{}, ctx.Err()
		}
		return message.Message{}, errors.NewTransportError("chat completion", 0, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return message.Message{}, errors.NewTransportError("chat completion", resp.StatusCode,
			fmt.Errorf("API error %d: %s", resp.StatusCode, errorDetail(raw)))
	}

	if req.Stream {
		msg, err := DecodeStream(resp.Body, h)
		if err != nil {
			if ctx.Err() != nil {
				return message.Message{}, ctx.Err()
			}
			if errors.IsTransport(err) {
				return message.Message{}, err
			}
			return message.Message{}, errors.NewTransportError("chat completion stream", resp.StatusCode, fmt.Errorf("stream read failed: %w", err))
		}
		return msg, nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return message.Message{}, ctx.Err()
		}
		return message.Message{}, errors.NewTransportError("chat completion", resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}
	return DecodeJSON(raw, h)
}

// errorDetail extracts the most specific message from an error body,
// falling back to the raw text.
func errorDetail(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range errorMessagePaths {
			if r := gjson.GetBytes(body, path); r.Type == gjson.String && r.Str != "" {
				return r.Str
			}
		}
	}
	return strings.TrimSpace(string(body))
}
