package table

import (
	"fmt"

	"github.com/Iron-Ham/tribunal/internal/errors"
	"github.com/Iron-Ham/tribunal/internal/protocol"
	"github.com/Iron-Ham/tribunal/internal/state"
)

// rolePermissions maps each default role to the message types it may send.
// Custom roles registered at runtime are not constrained here; they only
// draw a warning so larger tables stay usable.
var rolePermissions = map[string]map[protocol.MessageType]bool{
	protocol.RoleDoer: {
		protocol.MessagePlan:                  true,
		protocol.MessageImplementation:        true,
		protocol.MessageResponse:              true,
		protocol.MessageEscalation:            true,
		protocol.MessageCounterProposal:       true,
		protocol.MessageClarification:         true,
		protocol.MessageClarificationResponse: true,
		protocol.MessageAmendment:             true,
		protocol.MessageAcknowledgment:        true,
		protocol.MessageObjection:             true,
	},
	protocol.RoleCritic: {
		protocol.MessageCritique:              true,
		protocol.MessageReview:                true,
		protocol.MessageVote:                  true,
		protocol.MessageCounterProposal:       true,
		protocol.MessageClarification:         true,
		protocol.MessageClarificationResponse: true,
		protocol.MessageObjection:             true,
		protocol.MessageAcknowledgment:        true,
		protocol.MessageResponse:              true,
	},
	protocol.RoleArbiter: {
		protocol.MessageDecision:              true,
		protocol.MessageApproval:              true,
		protocol.MessageRejection:             true,
		protocol.MessageVote:                  true,
		protocol.MessageClarification:         true,
		protocol.MessageClarificationResponse: true,
		protocol.MessageAcknowledgment:        true,
		protocol.MessageResponse:              true,
	},
}

// phaseMessages maps each phase to the message types expected in it.
// Conversational types are allowed everywhere and listed in every phase.
var phaseMessages = map[protocol.Phase]map[protocol.MessageType]bool{
	protocol.PhasePlan: {
		protocol.MessagePlan:                  true,
		protocol.MessageCritique:              true,
		protocol.MessageResponse:              true,
		protocol.MessageEscalation:            true,
		protocol.MessageCounterProposal:       true,
		protocol.MessageClarification:         true,
		protocol.MessageClarificationResponse: true,
		protocol.MessageAmendment:             true,
		protocol.MessageObjection:             true,
		protocol.MessageAcknowledgment:        true,
	},
	protocol.PhaseImplement: {
		protocol.MessageImplementation:        true,
		protocol.MessageReview:                true,
		protocol.MessageResponse:              true,
		protocol.MessageEscalation:            true,
		protocol.MessageCounterProposal:       true,
		protocol.MessageClarification:         true,
		protocol.MessageClarificationResponse: true,
		protocol.MessageAmendment:             true,
		protocol.MessageObjection:             true,
		protocol.MessageAcknowledgment:        true,
	},
	protocol.PhaseResolve: {
		protocol.MessageDecision:              true,
		protocol.MessageEscalation:            true,
		protocol.MessageVote:                  true,
		protocol.MessageResponse:              true,
		protocol.MessageClarification:         true,
		protocol.MessageClarificationResponse: true,
		protocol.MessageObjection:             true,
		protocol.MessageAcknowledgment:        true,
	},
	protocol.PhaseApprove: {
		protocol.MessageApproval:              true,
		protocol.MessageRejection:             true,
		protocol.MessageVote:                  true,
		protocol.MessageResponse:              true,
		protocol.MessageClarification:         true,
		protocol.MessageClarificationResponse: true,
		protocol.MessageAcknowledgment:        true,
	},
}

// MessageValidator checks messages against the session before they are
// persisted. In strict mode, role and phase mismatches that would
// normally only warn become hard errors.
type MessageValidator struct {
	roles  *protocol.Registry
	strict bool
}

// NewMessageValidator creates a validator using the given role registry.
func NewMessageValidator(roles *protocol.Registry, strict bool) *MessageValidator {
	if roles == nil {
		roles = protocol.NewRegistry()
	}
	return &MessageValidator{roles: roles, strict: strict}
}

// Strict reports whether the validator promotes warnings to errors.
func (v *MessageValidator) Strict() bool { return v.strict }

// Validate checks msg against the current session state. It returns a
// *errors.ValidationError when any hard error is found; warnings alone
// never fail validation and ride along on the returned error value only
// when errors are also present. Callers wanting warnings from a passing
// message use ValidateDetailed.
func (v *MessageValidator) Validate(msg protocol.Message, st *state.State) error {
	errs, warnings := v.check(msg, st)
	if len(errs) > 0 {
		return errors.NewValidationError(errs, warnings)
	}
	return nil
}

// ValidateDetailed returns the full finding lists without wrapping them
// in an error.
func (v *MessageValidator) ValidateDetailed(msg protocol.Message, st *state.State) (errs, warnings []string) {
	return v.check(msg, st)
}

func (v *MessageValidator) check(msg protocol.Message, st *state.State) (errs, warnings []string) {
	if msg.Sender == "" {
		errs = append(errs, "sender is required")
	}
	if msg.Recipient == "" {
		errs = append(errs, "recipient is required")
	}
	if msg.Content == "" {
		errs = append(errs, "content is required")
	}
	if !protocol.ValidMessageType(msg.Type) {
		errs = append(errs, fmt.Sprintf("unknown message type %q", msg.Type))
	}
	if msg.Sender != "" && msg.Sender == msg.Recipient {
		errs = append(errs, fmt.Sprintf("sender and recipient are both %q", msg.Sender))
	}

	if msg.Sender != "" && !v.roles.Has(msg.Sender) {
		errs = append(errs, fmt.Sprintf("unknown sender role %q", msg.Sender))
	}
	if msg.Recipient != "" && !v.roles.Has(msg.Recipient) {
		errs = append(errs, fmt.Sprintf("unknown recipient role %q", msg.Recipient))
	}

	if allowed, ok := rolePermissions[msg.Sender]; ok && protocol.ValidMessageType(msg.Type) {
		if !allowed[msg.Type] {
			finding := fmt.Sprintf("role %q does not normally send %q messages", msg.Sender, msg.Type)
			if v.strict {
				errs = append(errs, finding)
			} else {
				warnings = append(warnings, finding)
			}
		}
	}

	if st != nil {
		if !st.Active {
			errs = append(errs, "session is not active")
		}
		if msg.Round != 0 && msg.Round != st.CurrentRound {
			warnings = append(warnings, fmt.Sprintf(
				"message round %d does not match current round %d", msg.Round, st.CurrentRound))
		}
		phase := protocol.Phase(st.CurrentPhase)
		if expected, ok := phaseMessages[phase]; ok && protocol.ValidMessageType(msg.Type) {
			if !expected[msg.Type] {
				finding := fmt.Sprintf("%q messages are unexpected in the %s phase", msg.Type, phase)
				if v.strict {
					errs = append(errs, finding)
				} else {
					warnings = append(warnings, finding)
				}
			}
		}
	}

	return errs, warnings
}

// ValidateState checks a loaded session state for structural problems.
// Used before rehydrating the protocol machine from disk.
func ValidateState(st *state.State) error {
	var errs, warnings []string
	if st == nil {
		return errors.NewValidationError([]string{"state is nil"}, nil)
	}
	if st.CurrentRound < 0 {
		errs = append(errs, fmt.Sprintf("current round %d is negative", st.CurrentRound))
	}
	phase := protocol.Phase(st.CurrentPhase)
	if st.CurrentPhase != protocol.StateFinalized && !protocol.ValidPhase(phase) {
		errs = append(errs, fmt.Sprintf("unknown phase %q", st.CurrentPhase))
	}
	if st.Config.MaxRounds <= 0 {
		warnings = append(warnings, "max rounds is not positive; no round can be opened")
	}
	if st.EscalationCount < 0 {
		errs = append(errs, "escalation count is negative")
	}
	if len(errs) > 0 {
		return errors.NewValidationError(errs, warnings)
	}
	return nil
}
