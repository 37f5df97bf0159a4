package protocol

// MessageType identifies the kind of deliberation message.
type MessageType string

const (
	// MessagePlan proposes an implementation plan for review.
	MessagePlan MessageType = "plan"

	// MessageCritique reviews a plan, approving or rejecting it.
	MessageCritique MessageType = "critique"

	// MessageResponse is a generic reply within a thread.
	MessageResponse MessageType = "response"

	// MessageDecision resolves a disagreement with a binding ruling.
	MessageDecision MessageType = "decision"

	// MessageImplementation reports completed work for review.
	MessageImplementation MessageType = "implementation"

	// MessageReview reviews an implementation, approving or rejecting it.
	MessageReview MessageType = "review"

	// MessageApproval gives final sign-off on the round.
	MessageApproval MessageType = "approval"

	// MessageRejection rejects the current approach and requests rework.
	MessageRejection MessageType = "rejection"

	// MessageEscalation hands a disagreement to the arbiter.
	MessageEscalation MessageType = "escalation"

	// MessageVote casts a vote in a consensus round.
	MessageVote MessageType = "vote"

	// MessageCounterProposal presents an alternative approach.
	MessageCounterProposal MessageType = "counter_proposal"

	// MessageClarification requests more information before deciding.
	MessageClarification MessageType = "clarification"

	// MessageClarificationResponse answers a clarification request.
	MessageClarificationResponse MessageType = "clarification_response"

	// MessageAmendment modifies a prior proposal in place.
	MessageAmendment MessageType = "amendment"

	// MessageObjection registers fundamental disagreement, forcing escalation.
	MessageObjection MessageType = "objection"

	// MessageAcknowledgment accepts a message without further discussion.
	MessageAcknowledgment MessageType = "acknowledgment"
)

// InteractionType tags the conversational intent of a message,
// independent of its protocol type.
type InteractionType string

const (
	InteractionRequest     InteractionType = "request"
	InteractionResponse    InteractionType = "response"
	InteractionChallenge   InteractionType = "challenge"
	InteractionConcession  InteractionType = "concession"
	InteractionNegotiation InteractionType = "negotiation"
	InteractionInformation InteractionType = "information"
	InteractionDirective   InteractionType = "directive"
)

// Confidence expresses how strongly a voter stands behind a vote.
type Confidence string

const (
	ConfidenceLow     Confidence = "low"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceHigh    Confidence = "high"
	ConfidenceCertain Confidence = "certain"
)

// Multiplier returns the scoring factor for this confidence level.
// Unknown values fall back to the medium multiplier.
func (c Confidence) Multiplier() float64 {
	switch c {
	case ConfidenceLow:
		return 0.5
	case ConfidenceHigh:
		return 1.5
	case ConfidenceCertain:
		return 2.0
	default:
		return 1.0
	}
}

// Phase identifies where a round currently stands.
type Phase string

const (
	// PhasePlan is where the doer proposes and the critic reviews plans.
	PhasePlan Phase = "plan"

	// PhaseImplement is where the doer executes and the critic reviews work.
	PhaseImplement Phase = "implement"

	// PhaseResolve is where the arbiter settles a disagreement.
	PhaseResolve Phase = "resolve"

	// PhaseApprove is where the arbiter gives or withholds final sign-off.
	PhaseApprove Phase = "approve"
)

// StateFinalized is the terminal machine state, distinct from the four
// in-round phases.
const StateFinalized = "finalized"

// Phases lists the in-round phases in protocol order.
var Phases = []Phase{PhasePlan, PhaseImplement, PhaseResolve, PhaseApprove}

// ValidPhase reports whether p names a known in-round phase.
func ValidPhase(p Phase) bool {
	for _, known := range Phases {
		if p == known {
			return true
		}
	}
	return false
}

var validMessageTypes = map[MessageType]bool{
	MessagePlan:                  true,
	MessageCritique:              true,
	MessageResponse:              true,
	MessageDecision:              true,
	MessageImplementation:        true,
	MessageReview:                true,
	MessageApproval:              true,
	MessageRejection:             true,
	MessageEscalation:            true,
	MessageVote:                  true,
	MessageCounterProposal:       true,
	MessageClarification:         true,
	MessageClarificationResponse: true,
	MessageAmendment:             true,
	MessageObjection:             true,
	MessageAcknowledgment:        true,
}

// ValidMessageType reports whether t is a known message type.
func ValidMessageType(t MessageType) bool {
	return validMessageTypes[t]
}

// TerminalMessageType reports whether t closes out a conversation and
// therefore never owes a reply.
func TerminalMessageType(t MessageType) bool {
	switch t {
	case MessageApproval, MessageRejection, MessageAcknowledgment:
		return true
	}
	return false
}
