package completion

import (
	"encoding/json"
	"fmt"

	"github.com/dome317/lead-intelligence-bot/pkg/core/types"
)

// request is the upstream Messages API request body.
type request struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	System      string        `json:"system,omitempty"`
	Messages    []wireMessage `json:"messages"`
	Stream      bool          `json:"stream,omitempty"`
}

// wireMessage is a transcript turn in the upstream's role vocabulary.
type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// wireMessages maps the canonical transcript onto the upstream roles:
// agent turns become "assistant".
func wireMessages(t types.Transcript) []wireMessage {
	out := make([]wireMessage, 0, len(t))
	for _, m := range t {
		role := "user"
		if m.Role == types.RoleAgent {
			role = "assistant"
		}
		out = append(out, wireMessage{Role: role, Content: m.Content})
	}
	return out
}

// response is the non-streaming upstream response; only text blocks are
// consumed.
type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// parseText extracts the first text block from a non-streaming response.
func parseText(body []byte) (string, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in response")
}
