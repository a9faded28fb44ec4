package capture

import (
	"context"
	"fmt"
	"strings"

	"github.com/dome317/lead-intelligence-bot/pkg/core/types"
)

// State is the contact-capture progress for one session.
type State int

const (
	StateAwaitingNameTrigger State = iota
	StateNameRequested
	StateNameCollected
	StateAwaitingEmailTrigger
	StateEmailRequested
	StateEmailCollected // terminal
)

func (s State) String() string {
	switch s {
	case StateAwaitingNameTrigger:
		return "awaiting_name_trigger"
	case StateNameRequested:
		return "name_requested"
	case StateNameCollected:
		return "name_collected"
	case StateAwaitingEmailTrigger:
		return "awaiting_email_trigger"
	case StateEmailRequested:
		return "email_requested"
	case StateEmailCollected:
		return "email_collected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// NameFallbackThreshold is the transcript length at which the name request
// fires even when no trigger phrase matched, guaranteeing forward progress
// when the agent's phrasing diverges from the script. There is no such
// fallback for email.
const NameFallbackThreshold = 10

// Action is what the host UI should do after an observation.
type Action int

const (
	ActionNone Action = iota
	ActionRequestName
	ActionRequestEmail
)

// Machine tracks contact-capture state for a single session. It is not
// safe for concurrent use; the owning session serializes access.
type Machine struct {
	classifier TurnClassifier
	state      State
	name       string
	email      string
}

// NewMachine creates a machine in StateAwaitingNameTrigger.
func NewMachine(classifier TurnClassifier) *Machine {
	if classifier == nil {
		classifier = KeywordClassifier{}
	}
	return &Machine{classifier: classifier}
}

func (m *Machine) State() State { return m.state }

// Name returns the collected name, empty until submitted.
func (m *Machine) Name() string { return m.name }

// Email returns the collected email, empty until submitted.
func (m *Machine) Email() string { return m.email }

// Observe evaluates the transcript after an agent turn completes and
// returns the action the host should take. Re-observing the same transcript
// never re-fires a transition already taken: each transition checks that
// the machine is not already in or past the target state.
func (m *Machine) Observe(ctx context.Context, t types.Transcript) Action {
	last, ok := t.LastAgent()
	if !ok {
		// Length fallback still applies to a transcript with no agent turn
		// yet, though in practice sessions are seeded with a greeting.
		last = types.Message{}
	}

	switch m.state {
	case StateAwaitingNameTrigger:
		if m.classifier.Classify(ctx, last.Content) == IntentAskingName || len(t) >= NameFallbackThreshold {
			m.state = StateNameRequested
			return ActionRequestName
		}
	case StateAwaitingEmailTrigger:
		if m.classifier.Classify(ctx, last.Content) == IntentAskingEmail {
			m.state = StateEmailRequested
			return ActionRequestEmail
		}
	}
	return ActionNone
}

// SubmitName records the structured name value. Empty input is a validation
// no-op. On success the returned synthetic user turn must be appended to
// the transcript (and forwarded to the live channel) so downstream
// completion calls stay coherent; the machine advances straight through
// StateNameCollected to awaiting the email trigger.
func (m *Machine) SubmitName(name string) (types.Message, bool) {
	name = strings.TrimSpace(name)
	if name == "" || m.state != StateNameRequested {
		return types.Message{}, false
	}
	m.name = name
	m.state = StateAwaitingEmailTrigger
	return types.Message{
		Role:    types.RoleUser,
		Content: fmt.Sprintf("My name is %s.", name),
	}, true
}

// SubmitEmail records the structured email value, symmetric to SubmitName.
// Reaching StateEmailCollected is the cue for lead extraction; the one-shot
// guard for that lives with the session, independent of machine state, so
// duplicate submissions or re-renders cannot re-trigger it.
func (m *Machine) SubmitEmail(email string) (types.Message, bool) {
	email = strings.TrimSpace(email)
	if email == "" || m.state != StateEmailRequested {
		return types.Message{}, false
	}
	m.email = email
	m.state = StateEmailCollected
	return types.Message{
		Role:    types.RoleUser,
		Content: fmt.Sprintf("My email address is %s.", email),
	}, true
}

// Done reports whether both contact fields have been collected.
func (m *Machine) Done() bool { return m.state == StateEmailCollected }
