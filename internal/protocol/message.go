// Package protocol defines the message model and agent roles for the
// tribunal deliberation protocol. Messages are immutable once created:
// every mutating surface returns a copy, and persistence layers treat
// them as append-only records.
package protocol

import (
	"time"

	"github.com/google/uuid"
)

// Metadata keys with protocol-level meaning.
const (
	// MetaApproved marks whether a critique, review, or vote approves
	// the work under discussion.
	MetaApproved = "approved"

	// MetaSideWith records which role an arbiter decision sided with.
	MetaSideWith = "side_with"

	// MetaConfidence carries the confidence level of a vote.
	MetaConfidence = "confidence"
)

// Message is a single unit of communication between agents.
// ThreadID is immutable once assigned: it equals the root message's ID
// for every message in the thread, so a message is a thread root iff
// ThreadID == ID.
type Message struct {
	ID          string          `json:"message_id"`
	Sender      string          `json:"sender"`
	Recipient   string          `json:"recipient"`
	Type        MessageType     `json:"msg_type"`
	Content     string          `json:"content"`
	Round       int             `json:"round_number"`
	Phase       Phase           `json:"phase"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	ReplyTo     string          `json:"reply_to,omitempty"`
	ThreadID    string          `json:"thread_id"`
	Interaction InteractionType `json:"interaction_type,omitempty"`
	Priority    int             `json:"priority"`
}

// New creates a thread-root message with a fresh ID and the current time.
func New(sender, recipient string, msgType MessageType, content string) Message {
	id := uuid.New().String()
	return Message{
		ID:        id,
		Sender:    sender,
		Recipient: recipient,
		Type:      msgType,
		Content:   content,
		Timestamp: time.Now().UTC(),
		ThreadID:  id,
	}
}

// NewReply creates a message replying to parent. The reply joins the
// parent's thread and records the parent as ReplyTo.
func NewReply(parent Message, sender string, msgType MessageType, content string) Message {
	m := New(sender, parent.Sender, msgType, content)
	m.ThreadID = parent.ThreadID
	m.ReplyTo = parent.ID
	m.Round = parent.Round
	m.Phase = parent.Phase
	return m
}

// IsThreadRoot reports whether this message started its thread.
func (m Message) IsThreadRoot() bool {
	return m.ThreadID == m.ID
}

// IsReply reports whether this message replies to another.
func (m Message) IsReply() bool {
	return m.ReplyTo != ""
}

// Approved returns the value of the approved metadata flag.
// Messages without the flag report false.
func (m Message) Approved() bool {
	v, ok := m.Metadata[MetaApproved].(bool)
	return ok && v
}

// HasApprovalStance reports whether the message carries an explicit
// approved flag, true or false.
func (m Message) HasApprovalStance() bool {
	_, ok := m.Metadata[MetaApproved].(bool)
	return ok
}

// SideWith returns the role an arbiter decision sided with, or "".
func (m Message) SideWith() string {
	v, _ := m.Metadata[MetaSideWith].(string)
	return v
}

// ConfidenceLevel returns the vote confidence carried in metadata,
// defaulting to medium.
func (m Message) ConfidenceLevel() Confidence {
	if v, ok := m.Metadata[MetaConfidence].(string); ok && v != "" {
		return Confidence(v)
	}
	return ConfidenceMedium
}

// WithMetadata returns a copy of the message with key set in metadata.
// The original message is not modified.
func (m Message) WithMetadata(key string, value any) Message {
	md := make(map[string]any, len(m.Metadata)+1)
	for k, v := range m.Metadata {
		md[k] = v
	}
	md[key] = value
	m.Metadata = md
	return m
}

// WithApproved returns a copy of the message carrying an approved flag.
func (m Message) WithApproved(approved bool) Message {
	return m.WithMetadata(MetaApproved, approved)
}

// WithInteraction returns a copy tagged with an interaction type.
func (m Message) WithInteraction(t InteractionType) Message {
	m.Interaction = t
	return m
}
