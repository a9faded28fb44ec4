// Package types holds the canonical data model shared by every component:
// the conversation transcript and the lead records derived from it.
package types

// Message roles. The completion upstream speaks "assistant"; the canonical
// model uses "agent" and the wire layer normalizes on decode.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// Message is a single role-tagged utterance in a conversation.
// Immutable once appended to a transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NormalizeRole maps external role spellings onto the canonical set.
// Unknown roles pass through unchanged.
func NormalizeRole(role string) string {
	switch role {
	case "assistant", "persona", RoleAgent:
		return RoleAgent
	case RoleUser:
		return RoleUser
	default:
		return role
	}
}

// Transcript is the append-only ordered message history of one conversation
// session. It is session-local and discarded after extraction; it is never
// shared across sessions.
type Transcript []Message

// Append returns the transcript with m added. The receiver is not mutated
// when the backing array must grow; callers keep the returned value.
func (t Transcript) Append(m Message) Transcript {
	return append(t, m)
}

// LastAgent returns the most recent agent message, if any.
func (t Transcript) LastAgent() (Message, bool) {
	for i := len(t) - 1; i >= 0; i-- {
		if t[i].Role == RoleAgent {
			return t[i], true
		}
	}
	return Message{}, false
}

// Clone returns an independent copy. Used when handing a snapshot to a
// concurrent reader while the session keeps appending.
func (t Transcript) Clone() Transcript {
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}
