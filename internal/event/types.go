// Package event defines the lifecycle events emitted by the tribunal
// orchestrator. Events decouple observers (CLI output, logging, custom
// hooks) from the deliberation engine itself.
package event

import (
	"time"

	"github.com/Iron-Ham/tribunal/internal/protocol"
)

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "round.started", "vote.cast").
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers published by the orchestrator.
const (
	TypeSessionInitialized = "session.initialized"
	TypeSessionFinalized   = "session.finalized"
	TypeSessionReset       = "session.reset"

	TypeRoundStarted = "round.started"
	TypeRoundEnded   = "round.ended"
	TypePhaseChanged = "phase.changed"

	TypeMessageSent             = "message.sent"
	TypePlanSubmitted           = "plan.submitted"
	TypeCritiqueSubmitted       = "critique.submitted"
	TypeImplementationSubmitted = "implementation.submitted"
	TypeReviewSubmitted         = "review.submitted"

	TypeEscalationRaised = "escalation.raised"
	TypeDecisionMade     = "decision.made"
	TypeApprovalGranted  = "approval.granted"
	TypeRejectionIssued  = "rejection.issued"

	TypeVoteCast         = "vote.cast"
	TypeConsensusReached = "consensus.reached"

	TypeDeadlockDetected     = "negotiation.deadlocked"
	TypeNegotiationEscalated = "negotiation.escalated"
)

// baseEvent provides common fields for all events.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{eventType: eventType, timestamp: time.Now()}
}

// SessionEvent is emitted at session boundaries: initialized, finalized,
// or reset. Outcome is set only on finalization.
type SessionEvent struct {
	baseEvent
	Task    string
	Outcome string
}

// NewSessionInitializedEvent creates a session.initialized event.
func NewSessionInitializedEvent(task string) SessionEvent {
	return SessionEvent{baseEvent: newBaseEvent(TypeSessionInitialized), Task: task}
}

// NewSessionFinalizedEvent creates a session.finalized event.
func NewSessionFinalizedEvent(task, outcome string) SessionEvent {
	return SessionEvent{baseEvent: newBaseEvent(TypeSessionFinalized), Task: task, Outcome: outcome}
}

// NewSessionResetEvent creates a session.reset event.
func NewSessionResetEvent() SessionEvent {
	return SessionEvent{baseEvent: newBaseEvent(TypeSessionReset)}
}

// RoundEvent is emitted when a deliberation round starts or ends.
type RoundEvent struct {
	baseEvent
	Round   int
	Outcome string // set on round.ended
}

// NewRoundStartedEvent creates a round.started event.
func NewRoundStartedEvent(round int) RoundEvent {
	return RoundEvent{baseEvent: newBaseEvent(TypeRoundStarted), Round: round}
}

// NewRoundEndedEvent creates a round.ended event.
func NewRoundEndedEvent(round int, outcome string) RoundEvent {
	return RoundEvent{baseEvent: newBaseEvent(TypeRoundEnded), Round: round, Outcome: outcome}
}

// PhaseChangedEvent is emitted on every successful machine transition.
type PhaseChangedEvent struct {
	baseEvent
	From  string
	To    string
	Cause string // the protocol event that triggered the transition
}

// NewPhaseChangedEvent creates a phase.changed event.
func NewPhaseChangedEvent(from, to, cause string) PhaseChangedEvent {
	return PhaseChangedEvent{baseEvent: newBaseEvent(TypePhaseChanged), From: from, To: to, Cause: cause}
}

// MessageEvent is emitted once per persisted message, plus once under a
// type-specific identifier for the canonical protocol actions.
type MessageEvent struct {
	baseEvent
	Message protocol.Message
}

// NewMessageSentEvent creates a message.sent event.
func NewMessageSentEvent(msg protocol.Message) MessageEvent {
	return MessageEvent{baseEvent: newBaseEvent(TypeMessageSent), Message: msg}
}

// NewMessageEvent creates a MessageEvent with an explicit type
// identifier (plan.submitted, escalation.raised, ...).
func NewMessageEvent(eventType string, msg protocol.Message) MessageEvent {
	return MessageEvent{baseEvent: newBaseEvent(eventType), Message: msg}
}

// VoteCastEvent is emitted when a participant's vote is recorded.
type VoteCastEvent struct {
	baseEvent
	Voter    string
	Approved bool
}

// NewVoteCastEvent creates a vote.cast event.
func NewVoteCastEvent(voter string, approved bool) VoteCastEvent {
	return VoteCastEvent{baseEvent: newBaseEvent(TypeVoteCast), Voter: voter, Approved: approved}
}

// ConsensusReachedEvent is emitted when a quorum evaluation succeeds.
type ConsensusReachedEvent struct {
	baseEvent
	Approved bool
	Method   string
}

// NewConsensusReachedEvent creates a consensus.reached event.
func NewConsensusReachedEvent(approved bool, method string) ConsensusReachedEvent {
	return ConsensusReachedEvent{baseEvent: newBaseEvent(TypeConsensusReached), Approved: approved, Method: method}
}

// NegotiationEvent is emitted when a negotiation deadlocks or escalates;
// these are the two terminal failure paths distinct from clean
// resolution.
type NegotiationEvent struct {
	baseEvent
	ThreadID string
	Rounds   int
}

// NewDeadlockDetectedEvent creates a negotiation.deadlocked event.
func NewDeadlockDetectedEvent(threadID string, rounds int) NegotiationEvent {
	return NegotiationEvent{baseEvent: newBaseEvent(TypeDeadlockDetected), ThreadID: threadID, Rounds: rounds}
}

// NewNegotiationEscalatedEvent creates a negotiation.escalated event.
func NewNegotiationEscalatedEvent(threadID string, rounds int) NegotiationEvent {
	return NegotiationEvent{baseEvent: newBaseEvent(TypeNegotiationEscalated), ThreadID: threadID, Rounds: rounds}
}
