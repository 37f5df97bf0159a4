// Package negotiation tracks multi-turn back-and-forth between two
// agents on a single proposal: accept, reject, counter-propose,
// clarify, or object. The manager caps how many counter rounds a
// negotiation may run before declaring deadlock, and surfaces
// deadlocks and objections through callbacks so the orchestrator can
// escalate.
package negotiation

import (
	"fmt"
	"sync"
	"time"

	"github.com/Iron-Ham/tribunal/internal/protocol"
)

// Status describes where a negotiation currently stands.
type Status string

const (
	StatusOpen                Status = "open"
	StatusAwaitingResponse    Status = "awaiting_response"
	StatusCounterProposed     Status = "counter_proposed"
	StatusClarificationNeeded Status = "clarification_needed"
	StatusDeadlocked          Status = "deadlocked"
	StatusResolvedAccepted    Status = "resolved_accepted"
	StatusResolvedRejected    Status = "resolved_rejected"
	StatusEscalated           Status = "escalated"
)

// Round is a single proposal→response exchange within a negotiation.
// A counter-proposal closes the round and opens the next one.
type Round struct {
	Proposal       protocol.Message
	Response       *protocol.Message
	Counter        *protocol.Message
	Clarifications []protocol.Message
	Status         Status
	OpenedAt       time.Time
	ResolvedAt     time.Time
}

// Resolved reports whether this round reached a terminal status.
func (r *Round) Resolved() bool {
	switch r.Status {
	case StatusResolvedAccepted, StatusResolvedRejected, StatusEscalated:
		return true
	}
	return false
}

// TurnCount returns the number of messages exchanged in the round.
func (r *Round) TurnCount() int {
	n := 1
	if r.Response != nil {
		n++
	}
	if r.Counter != nil {
		n++
	}
	return n + len(r.Clarifications)
}

// Negotiation is the full exchange between two agents on one issue,
// spanning one or more rounds until resolution, deadlock, or
// escalation. The negotiation ID equals the thread ID of the opening
// proposal.
type Negotiation struct {
	ID         string
	ThreadID   string
	Initiator  string
	Respondent string
	Subject    string
	Rounds     []*Round
	Status     Status
	MaxRounds  int
	CreatedAt  time.Time
	ResolvedAt time.Time
	Resolution string

	deadlockNotified bool
}

// CurrentRound returns the most recent round, or nil if none exist.
func (n *Negotiation) CurrentRound() *Round {
	if len(n.Rounds) == 0 {
		return nil
	}
	return n.Rounds[len(n.Rounds)-1]
}

// RoundCount returns how many rounds the negotiation has run.
func (n *Negotiation) RoundCount() int {
	return len(n.Rounds)
}

// TotalExchanges returns the number of messages across all rounds.
func (n *Negotiation) TotalExchanges() int {
	total := 0
	for _, r := range n.Rounds {
		total += r.TurnCount()
	}
	return total
}

// Resolved reports whether the negotiation ended in acceptance or
// rejection.
func (n *Negotiation) Resolved() bool {
	return n.Status == StatusResolvedAccepted || n.Status == StatusResolvedRejected
}

// Between reports whether the negotiation is between the two named
// agents, in either direction.
func (n *Negotiation) Between(a, b string) bool {
	return (n.Initiator == a && n.Respondent == b) ||
		(n.Initiator == b && n.Respondent == a)
}

// Callback receives the negotiation whose state just changed.
type Callback func(*Negotiation)

// Summary aggregates counts across all negotiations the manager has
// seen.
type Summary struct {
	Total      int     `json:"total"`
	Active     int     `json:"active"`
	Resolved   int     `json:"resolved"`
	Deadlocked int     `json:"deadlocked"`
	Escalated  int     `json:"escalated"`
	AvgRounds  float64 `json:"avg_rounds"`
}

// Manager tracks every negotiation in a session, keyed by thread ID.
// Safe for concurrent use. Callbacks fire while the manager lock is
// held, so they must not call back into the manager.
type Manager struct {
	mu        sync.Mutex
	byID      map[string]*Negotiation
	order     []string
	maxRounds int

	onDeadlock Callback
	onResolve  Callback
	onEscalate Callback
}

// NewManager returns a manager that deadlocks negotiations after
// maxRounds counter rounds. Values below 1 fall back to the default
// of 5.
func NewManager(maxRounds int) *Manager {
	if maxRounds < 1 {
		maxRounds = 5
	}
	return &Manager{
		byID:      make(map[string]*Negotiation),
		maxRounds: maxRounds,
	}
}

// OnDeadlock registers a callback fired when a negotiation exhausts
// its round budget.
func (m *Manager) OnDeadlock(cb Callback) { m.onDeadlock = cb }

// OnResolve registers a callback fired when a negotiation is accepted.
func (m *Manager) OnResolve(cb Callback) { m.onResolve = cb }

// OnEscalate registers a callback fired when an objection escalates a
// negotiation.
func (m *Manager) OnEscalate(cb Callback) { m.onEscalate = cb }

// Start opens a new negotiation from an initial proposal. The
// proposal's thread ID becomes the negotiation ID, so subsequent
// replies in the same thread feed the same negotiation.
func (m *Manager) Start(proposal protocol.Message, subject string) *Negotiation {
	m.mu.Lock()
	defer m.mu.Unlock()

	if subject == "" {
		subject = fmt.Sprintf("negotiation on %s", proposal.Type)
	}
	neg := &Negotiation{
		ID:         proposal.ThreadID,
		ThreadID:   proposal.ThreadID,
		Initiator:  proposal.Sender,
		Respondent: proposal.Recipient,
		Subject:    subject,
		Status:     StatusAwaitingResponse,
		MaxRounds:  m.maxRounds,
		CreatedAt:  time.Now().UTC(),
	}
	neg.Rounds = append(neg.Rounds, &Round{
		Proposal: proposal,
		Status:   StatusAwaitingResponse,
		OpenedAt: neg.CreatedAt,
	})
	m.byID[neg.ID] = neg
	m.order = append(m.order, neg.ID)
	return neg
}

// ProcessResponse applies a reply to the negotiation owning its
// thread. The message type determines the effect: approvals and
// acknowledgments resolve as accepted, rejections as rejected,
// critiques and reviews resolve or push toward a counter depending on
// their approved flag, counter-proposals open a new round, objections
// escalate, and clarification traffic parks the round until answered.
// Returns nil when no negotiation owns the thread.
func (m *Manager) ProcessResponse(msg protocol.Message) *Negotiation {
	m.mu.Lock()
	defer m.mu.Unlock()

	neg := m.byID[msg.ThreadID]
	if neg == nil || neg.CurrentRound() == nil {
		return nil
	}
	current := neg.CurrentRound()

	switch msg.Type {
	case protocol.MessageApproval, protocol.MessageAcknowledgment:
		m.resolve(neg, current, msg, StatusResolvedAccepted, "accepted")
		if m.onResolve != nil {
			m.onResolve(neg)
		}

	case protocol.MessageRejection:
		m.resolve(neg, current, msg, StatusResolvedRejected, "rejected")

	case protocol.MessageCritique, protocol.MessageReview:
		current.Response = &msg
		if msg.Approved() {
			m.resolve(neg, current, msg, StatusResolvedAccepted, "accepted_by_critic")
		} else {
			current.Status = StatusCounterProposed
			neg.Status = StatusAwaitingResponse
			m.checkDeadlock(neg)
		}

	case protocol.MessageCounterProposal:
		current.Counter = &msg
		current.Status = StatusCounterProposed
		neg.Rounds = append(neg.Rounds, &Round{
			Proposal: msg,
			Status:   StatusAwaitingResponse,
			OpenedAt: time.Now().UTC(),
		})
		neg.Status = StatusAwaitingResponse
		m.checkDeadlock(neg)

	case protocol.MessageClarification:
		current.Clarifications = append(current.Clarifications, msg)
		current.Status = StatusClarificationNeeded
		neg.Status = StatusClarificationNeeded

	case protocol.MessageClarificationResponse:
		current.Clarifications = append(current.Clarifications, msg)
		current.Status = StatusAwaitingResponse
		neg.Status = StatusAwaitingResponse

	case protocol.MessageObjection:
		current.Response = &msg
		current.Status = StatusEscalated
		neg.Status = StatusEscalated
		if m.onEscalate != nil {
			m.onEscalate(neg)
		}

	case protocol.MessageResponse:
		current.Response = &msg
		current.Status = StatusAwaitingResponse

	default:
		current.Clarifications = append(current.Clarifications, msg)
	}

	return neg
}

func (m *Manager) resolve(neg *Negotiation, round *Round, msg protocol.Message, status Status, resolution string) {
	now := time.Now().UTC()
	round.Response = &msg
	round.Status = status
	round.ResolvedAt = now
	neg.Status = status
	neg.ResolvedAt = now
	neg.Resolution = resolution
}

func (m *Manager) checkDeadlock(neg *Negotiation) {
	if neg.RoundCount() >= neg.MaxRounds {
		neg.Status = StatusDeadlocked
		if m.onDeadlock != nil && !neg.deadlockNotified {
			neg.deadlockNotified = true
			m.onDeadlock(neg)
		}
	}
}

// Get returns the negotiation with the given ID.
func (m *Manager) Get(id string) (*Negotiation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.byID[id]
	return n, ok
}

// ForThread returns the negotiation owning the given thread.
func (m *Manager) ForThread(threadID string) (*Negotiation, bool) {
	return m.Get(threadID)
}

// All returns every negotiation in creation order.
func (m *Manager) All() []*Negotiation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Negotiation, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out
}

// Active returns negotiations that have not resolved to acceptance or
// rejection. Deadlocked and escalated negotiations still count as
// active since they await arbiter action.
func (m *Manager) Active() []*Negotiation {
	var out []*Negotiation
	for _, n := range m.All() {
		if !n.Resolved() {
			out = append(out, n)
		}
	}
	return out
}

// Deadlocked returns negotiations stuck at their round limit.
func (m *Manager) Deadlocked() []*Negotiation {
	var out []*Negotiation
	for _, n := range m.All() {
		if n.Status == StatusDeadlocked {
			out = append(out, n)
		}
	}
	return out
}

// AwaitingResponseFrom returns negotiations blocked on a reply from
// the named agent.
func (m *Manager) AwaitingResponseFrom(agent string) []*Negotiation {
	var out []*Negotiation
	for _, n := range m.All() {
		if n.Status != StatusAwaitingResponse {
			continue
		}
		current := n.CurrentRound()
		if current != nil && current.Proposal.Recipient == agent && current.Response == nil {
			out = append(out, n)
		}
	}
	return out
}

// ByParticipants returns negotiations between two agents, in either
// direction.
func (m *Manager) ByParticipants(a, b string) []*Negotiation {
	var out []*Negotiation
	for _, n := range m.All() {
		if n.Between(a, b) {
			out = append(out, n)
		}
	}
	return out
}

// Summarize aggregates counts and average round depth across all
// negotiations.
func (m *Manager) Summarize() Summary {
	all := m.All()

	var s Summary
	s.Total = len(all)
	totalRounds := 0
	for _, n := range all {
		totalRounds += n.RoundCount()
		switch {
		case n.Resolved():
			s.Resolved++
		case n.Status == StatusDeadlocked:
			s.Deadlocked++
		case n.Status == StatusEscalated:
			s.Escalated++
		}
	}
	s.Active = s.Total - s.Resolved - s.Deadlocked - s.Escalated
	if s.Total > 0 {
		s.AvgRounds = float64(totalRounds) / float64(s.Total)
	}
	return s
}
