// Package completion implements the streaming completion gateway: it turns
// a transcript plus a persona instruction block into an incrementally
// delivered agent reply from an Anthropic-style Messages API upstream.
package completion

import (
	"context"
	"net/http"

	"github.com/dome317/lead-intelligence-bot/pkg/core/types"
)

const (
	// DefaultBaseURL is the default upstream endpoint.
	DefaultBaseURL = "https://api.anthropic.com"

	// APIVersion is the required upstream version header.
	APIVersion = "2023-06-01"

	// DefaultModel drives both conversation and extraction calls.
	DefaultModel = "claude-sonnet-4-20250514"

	// DefaultReplyMaxTokens bounds a single conversational reply.
	DefaultReplyMaxTokens = 1024

	// DefaultExtractMaxTokens bounds a structured-extraction response.
	DefaultExtractMaxTokens = 1000
)

// Client talks to the upstream completion service. It is safe for
// concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the upstream endpoint (tests, proxies).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithModel overrides the upstream model identifier.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithHTTPClient injects the HTTP client used for upstream calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StreamReply requests the agent's next reply for the transcript as a live
// stream. The caller owns the returned Stream and must Close it; it does not
// mutate the transcript. Cancelling ctx abandons the stream.
func (c *Client) StreamReply(ctx context.Context, system string, transcript types.Transcript) (*Stream, error) {
	req := &request{
		Model:       c.model,
		MaxTokens:   DefaultReplyMaxTokens,
		Temperature: 0.7,
		System:      system,
		Messages:    wireMessages(transcript),
		Stream:      true,
	}

	body, err := c.doStreamRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	return newStream(body), nil
}

// Complete sends a single user prompt and returns the full text response.
// Used by the lead extractor and the model-backed turn classifier.
// Temperature is pinned to 0 so structured output stays deterministic.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	req := &request{
		Model:       c.model,
		MaxTokens:   DefaultExtractMaxTokens,
		Temperature: 0,
		Messages:    []wireMessage{{Role: "user", Content: prompt}},
	}

	respBody, err := c.doRequest(ctx, req)
	if err != nil {
		return "", err
	}
	return parseText(respBody)
}
