// Package avatar mints session tokens for the external voice/video avatar
// vendor. The vendor channel itself is opaque to this service: the browser
// connects directly with the minted token, and this service only supplies
// the persona configuration.
package avatar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dome317/lead-intelligence-bot/pkg/persona"
)

// DefaultBaseURL is the avatar vendor's API endpoint.
const DefaultBaseURL = "https://api.anam.ai"

// Fixed persona assets on the vendor side.
const (
	// voiceID: Irene — casual and friendly (warm, empathetic, conversational).
	voiceID = "562ef6c9-d1ab-4571-94d8-5e838cb3a70f"
	// avatarID: Sophie — sofa variant (friendly female avatar).
	avatarID = "6dbc1e47-7768-403e-878a-94d7fcc3677b"
	// llmID: Gemini 2.5 Flash — fastest option.
	llmID = "9d8900ee-257d-4401-8817-ba9c835e9d36"
)

// Client calls the vendor's session-token API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the vendor endpoint (tests).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient injects the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type personaConfig struct {
	Name         string `json:"name"`
	AvatarID     string `json:"avatarId"`
	VoiceID      string `json:"voiceId"`
	LLMID        string `json:"llmId"`
	SystemPrompt string `json:"systemPrompt"`
	LanguageCode string `json:"languageCode"`
}

type sessionTokenRequest struct {
	PersonaConfig personaConfig `json:"personaConfig"`
}

type sessionTokenResponse struct {
	SessionToken string `json:"sessionToken"`
}

// CreateSessionToken bootstraps an avatar session configured with the Alex
// voice persona and returns the token the browser uses to connect.
func (c *Client) CreateSessionToken(ctx context.Context) (string, error) {
	body, err := json.Marshal(sessionTokenRequest{
		PersonaConfig: personaConfig{
			Name:         persona.Name,
			AvatarID:     avatarID,
			VoiceID:      voiceID,
			LLMID:        llmID,
			SystemPrompt: persona.VoiceSystemPrompt,
			LanguageCode: "en",
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/auth/session-token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("session token request: status %d: %s", resp.StatusCode, detail)
	}

	var out sessionTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.SessionToken == "" {
		return "", fmt.Errorf("empty session token in response")
	}
	return out.SessionToken, nil
}
