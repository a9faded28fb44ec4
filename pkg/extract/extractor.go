// Package extract converts a finished conversation transcript into a typed,
// scored lead record via a structured-extraction call to the completion
// service.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dome317/lead-intelligence-bot/pkg/core/types"
	"github.com/dome317/lead-intelligence-bot/pkg/persona"
)

// Error reports a malformed or invalid extraction response. The raw text is
// discarded and the call is never retried; the conversation itself is not
// blocked, but no lead is recorded.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract: %s: %v", e.Message, e.Err)
	}
	return "extract: " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Completer is the completion capability the extractor needs.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Extractor turns transcripts into lead records.
type Extractor struct {
	client Completer
}

// New creates an Extractor backed by the given completion client.
func New(client Completer) *Extractor {
	return &Extractor{client: client}
}

// leadPayload is the JSON object the extraction prompt demands: the lead
// schema minus id, source, and timestamp, which the caller stamps.
type leadPayload struct {
	Name                *string `json:"name"`
	Email               *string `json:"email"`
	Goal                string  `json:"goal"`
	Obstacle            string  `json:"obstacle"`
	Readiness           string  `json:"readiness"`
	Score               *int    `json:"score"`
	ScoreLabel          string  `json:"score_label"`
	ConversationSummary string  `json:"conversation_summary"`
}

// Extract sends the transcript to the extraction service and validates the
// result. The returned lead has no ID, Source, or Timestamp; the caller
// stamps those before handing it to the store. Synchronous, no retry.
func (e *Extractor) Extract(ctx context.Context, t types.Transcript) (types.Lead, error) {
	prompt := persona.ExtractLeadPrompt + "\n\nConversation:\n" + RenderTranscript(t)

	out, err := e.client.Complete(ctx, prompt)
	if err != nil {
		return types.Lead{}, fmt.Errorf("extraction call: %w", err)
	}

	raw := StripFences(out)

	var payload leadPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return types.Lead{}, &Error{Message: "response is not valid JSON", Err: err}
	}
	if err := validate(payload); err != nil {
		return types.Lead{}, err
	}

	return types.Lead{
		Name:                payload.Name,
		Email:               payload.Email,
		Goal:                payload.Goal,
		Obstacle:            payload.Obstacle,
		Readiness:           payload.Readiness,
		Score:               *payload.Score,
		ScoreLabel:          types.ScoreLabel(payload.ScoreLabel),
		ConversationSummary: payload.ConversationSummary,
	}, nil
}

func validate(p leadPayload) error {
	if p.Score == nil {
		return &Error{Message: "missing required field: score"}
	}
	if *p.Score < 1 || *p.Score > 10 {
		return &Error{Message: fmt.Sprintf("score %d out of range 1-10", *p.Score)}
	}
	switch types.ScoreLabel(p.ScoreLabel) {
	case types.ScoreHot, types.ScoreWarm, types.ScoreCold:
	default:
		return &Error{Message: "missing or invalid field: score_label"}
	}
	if strings.TrimSpace(p.Goal) == "" {
		return &Error{Message: "missing required field: goal"}
	}
	if strings.TrimSpace(p.ConversationSummary) == "" {
		return &Error{Message: "missing required field: conversation_summary"}
	}
	return nil
}

// RenderTranscript flattens the transcript into the Prospect:/Alex: line
// format the extraction prompt expects.
func RenderTranscript(t types.Transcript) string {
	var b strings.Builder
	for i, m := range t {
		if i > 0 {
			b.WriteByte('\n')
		}
		speaker := persona.Name
		if m.Role == types.RoleUser {
			speaker = "Prospect"
		}
		b.WriteString(speaker)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}

// StripFences removes surrounding Markdown code-fence markup so a fenced
// JSON response still parses.
func StripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
