// Package capture implements the contact-capture state machine: it watches
// agent utterances to decide when to solicit a structured name or email out
// of band from free-text speech, and injects the collected values back into
// the transcript as synthetic user turns.
package capture

import (
	"context"
	"fmt"
	"strings"
)

// Intent is what an agent turn is asking the prospect for.
type Intent int

const (
	IntentNone Intent = iota
	IntentAskingName
	IntentAskingEmail
)

// TurnClassifier decides the intent of a single agent utterance. The state
// machine only sees this interface, so the matching strategy can be swapped
// without touching the transition logic.
type TurnClassifier interface {
	Classify(ctx context.Context, agentTurn string) Intent
}

// namePhrases and emailPhrases are the fixed trigger sets the persona's
// voice prompt scripts the agent to use. Matching is case-insensitive
// substring; phrasing drift is caught by the length fallback in the machine
// (name only).
var namePhrases = []string{
	"your name",
	"who am i speaking",
	"call you",
	"field below",
}

var emailPhrases = []string{
	"e-mail",
	"email",
	"mail address",
}

// KeywordClassifier is the default heuristic classifier.
type KeywordClassifier struct{}

// Classify matches the turn against the trigger phrase sets. Name wins over
// email: the machine never asks for email before a name is collected, so
// the ordering only matters for turns that mention both.
func (KeywordClassifier) Classify(_ context.Context, agentTurn string) Intent {
	text := strings.ToLower(agentTurn)
	for _, p := range namePhrases {
		if strings.Contains(text, p) {
			return IntentAskingName
		}
	}
	for _, p := range emailPhrases {
		if strings.Contains(text, p) {
			return IntentAskingEmail
		}
	}
	return IntentNone
}

// Completer is the completion capability the model-backed classifier needs.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const classifyPrompt = `Does the following assistant message ask the user to provide their NAME, their EMAIL address, or NEITHER?

Message:
%s

Answer with exactly one word: NAME, EMAIL, or NEITHER.`

// CompletionClassifier asks the completion service to classify the turn.
// On any upstream failure it falls back to the keyword heuristic so the
// conversation keeps moving.
type CompletionClassifier struct {
	Client   Completer
	Fallback KeywordClassifier
}

func (c CompletionClassifier) Classify(ctx context.Context, agentTurn string) Intent {
	if c.Client == nil {
		return c.Fallback.Classify(ctx, agentTurn)
	}
	out, err := c.Client.Complete(ctx, fmt.Sprintf(classifyPrompt, agentTurn))
	if err != nil {
		return c.Fallback.Classify(ctx, agentTurn)
	}
	switch strings.ToUpper(strings.TrimSpace(out)) {
	case "NAME":
		return IntentAskingName
	case "EMAIL":
		return IntentAskingEmail
	case "NEITHER":
		return IntentNone
	default:
		return c.Fallback.Classify(ctx, agentTurn)
	}
}
