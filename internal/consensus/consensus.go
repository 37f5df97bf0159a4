// Package consensus collects votes and evaluates them under pluggable
// quorum policies. Votes are replace-by-voter: a participant re-voting
// overwrites their previous vote rather than stacking a second one.
package consensus

import (
	"fmt"
	"math"

	"github.com/Iron-Ham/tribunal/internal/protocol"
	"github.com/Iron-Ham/tribunal/internal/util"
)

// Mode selects how votes are judged once quorum is met.
type Mode string

const (
	// SimpleMajority approves when approvals exceed half the votes.
	SimpleMajority Mode = "simple_majority"

	// Supermajority approves when approvals reach two thirds of the votes.
	Supermajority Mode = "supermajority"

	// Unanimous approves only when every vote approves.
	Unanimous Mode = "unanimous"

	// Weighted approves when the signed weighted score sum is positive.
	Weighted Mode = "weighted"
)

// ValidMode reports whether m names a known quorum mode.
func ValidMode(m Mode) bool {
	switch m {
	case SimpleMajority, Supermajority, Unanimous, Weighted:
		return true
	}
	return false
}

// Vote is a single participant's position on the current proposal.
type Vote struct {
	Voter      string              `json:"voter"`
	Approved   bool                `json:"approved"`
	Confidence protocol.Confidence `json:"confidence"`
	Weight     float64             `json:"weight"`
	Reason     string              `json:"reason"`
}

// WeightedScore returns +weight for approval and -weight for rejection,
// scaled by the confidence multiplier.
func (v Vote) WeightedScore() float64 {
	sign := 1.0
	if !v.Approved {
		sign = -1.0
	}
	return sign * v.Weight * v.Confidence.Multiplier()
}

// Result is the outcome of evaluating the collected votes.
// When quorum is unmet, Approved is false and Reason explains why
// without judging the vote content.
type Result struct {
	Approved   bool    `json:"approved"`
	Method     Mode    `json:"method"`
	HasQuorum  bool    `json:"has_quorum"`
	Reason     string  `json:"reason,omitempty"`
	Approvals  int     `json:"approvals"`
	Rejections int     `json:"rejections"`
	Total      int     `json:"total"`
	Ratio      float64 `json:"ratio"`

	// Dissent lists the disapproving voters. Populated in unanimous mode.
	Dissent []string `json:"dissent,omitempty"`

	// Weighted-mode fields.
	WeightedScore float64            `json:"weighted_score,omitempty"`
	MaxPossible   float64            `json:"max_possible_score,omitempty"`
	Normalized    float64            `json:"normalized,omitempty"`
	Breakdown     map[string]float64 `json:"score_breakdown,omitempty"`

	Votes []Vote `json:"votes"`
}

// Engine accumulates votes for one proposal and evaluates consensus.
type Engine struct {
	mode          Mode
	minVoters     int
	arbiterWeight float64
	votes         []Vote
}

// Option configures an Engine.
type Option func(*Engine)

// WithMode sets the quorum mode. Unknown modes fall back to simple
// majority at evaluation time.
func WithMode(m Mode) Option {
	return func(e *Engine) { e.mode = m }
}

// WithMinVoters sets the quorum size.
func WithMinVoters(n int) Option {
	return func(e *Engine) { e.minVoters = n }
}

// WithArbiterWeight sets the elevated weight applied to votes extracted
// from arbiter messages. This knob is deliberately independent of the
// trust ledger's per-participant weight.
func WithArbiterWeight(w float64) Option {
	return func(e *Engine) { e.arbiterWeight = w }
}

// NewEngine creates a consensus engine. Defaults: simple majority,
// quorum of two, arbiter weight 1.5.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		mode:          SimpleMajority,
		minVoters:     2,
		arbiterWeight: 1.5,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mode returns the configured quorum mode.
func (e *Engine) Mode() Mode { return e.mode }

// AddVote records a vote, replacing any previous vote from the same
// voter. Zero or negative weights are normalized to 1, and empty
// confidence to medium, so a hand-built Vote scores sensibly.
func (e *Engine) AddVote(v Vote) {
	if v.Weight <= 0 {
		v.Weight = 1.0
	}
	if v.Confidence == "" {
		v.Confidence = protocol.ConfidenceMedium
	}
	kept := e.votes[:0]
	for _, existing := range e.votes {
		if existing.Voter != v.Voter {
			kept = append(kept, existing)
		}
	}
	e.votes = append(kept, v)
}

// VoteFromMessage extracts a vote from a deliberation message and
// records it. Arbiter votes carry the elevated arbiter weight; everyone
// else votes at weight 1.
func (e *Engine) VoteFromMessage(msg protocol.Message) Vote {
	weight := 1.0
	if msg.Sender == protocol.RoleArbiter {
		weight = e.arbiterWeight
	}
	reason := util.TruncateString(msg.Content, 200)
	v := Vote{
		Voter:      msg.Sender,
		Approved:   msg.Approved(),
		Confidence: msg.ConfidenceLevel(),
		Weight:     weight,
		Reason:     reason,
	}
	e.AddVote(v)
	return v
}

// Clear resets all votes for a new voting round.
func (e *Engine) Clear() {
	e.votes = nil
}

// Votes returns a copy of the recorded votes.
func (e *Engine) Votes() []Vote {
	out := make([]Vote, len(e.votes))
	copy(out, e.votes)
	return out
}

// HasQuorum reports whether enough voters have participated.
func (e *Engine) HasQuorum() bool {
	return len(e.votes) >= e.minVoters
}

// Evaluate judges the recorded votes under the configured mode. Quorum
// is checked first: an unmet quorum returns a failure result without
// inspecting vote content.
func (e *Engine) Evaluate() Result {
	if !e.HasQuorum() {
		return Result{
			Method:    e.mode,
			HasQuorum: false,
			Reason:    fmt.Sprintf("quorum not reached: %d/%d votes", len(e.votes), e.minVoters),
			Total:     len(e.votes),
			Votes:     e.Votes(),
		}
	}

	var result Result
	switch e.mode {
	case Supermajority:
		result = e.supermajority()
	case Unanimous:
		result = e.unanimous()
	case Weighted:
		result = e.weighted()
	default:
		result = e.simpleMajority()
	}
	result.Method = e.mode
	result.HasQuorum = true
	result.Votes = e.Votes()
	return result
}

func (e *Engine) tally() (approvals, total int) {
	for _, v := range e.votes {
		if v.Approved {
			approvals++
		}
	}
	return approvals, len(e.votes)
}

func (e *Engine) simpleMajority() Result {
	approvals, total := e.tally()
	return Result{
		Approved:   approvals*2 > total,
		Approvals:  approvals,
		Rejections: total - approvals,
		Total:      total,
		Ratio:      float64(approvals) / float64(total),
	}
}

func (e *Engine) supermajority() Result {
	approvals, total := e.tally()
	return Result{
		Approved:   float64(approvals) >= float64(total)*2.0/3.0,
		Approvals:  approvals,
		Rejections: total - approvals,
		Total:      total,
		Ratio:      float64(approvals) / float64(total),
	}
}

func (e *Engine) unanimous() Result {
	approvals, total := e.tally()
	var dissent []string
	for _, v := range e.votes {
		if !v.Approved {
			dissent = append(dissent, v.Voter)
		}
	}
	return Result{
		Approved:   approvals == total,
		Approvals:  approvals,
		Rejections: total - approvals,
		Total:      total,
		Ratio:      float64(approvals) / float64(total),
		Dissent:    dissent,
	}
}

func (e *Engine) weighted() Result {
	approvals, total := e.tally()
	var sum, maxPossible float64
	breakdown := make(map[string]float64, len(e.votes))
	for _, v := range e.votes {
		score := v.WeightedScore()
		sum += score
		maxPossible += math.Abs(score)
		breakdown[v.Voter] = score
	}
	normalized := 0.0
	if maxPossible > 0 {
		normalized = sum / maxPossible
	}
	return Result{
		Approved:      sum > 0,
		Approvals:     approvals,
		Rejections:    total - approvals,
		Total:         total,
		Ratio:         float64(approvals) / float64(total),
		WeightedScore: sum,
		MaxPossible:   maxPossible,
		Normalized:    normalized,
		Breakdown:     breakdown,
	}
}

// SummaryLine renders a one-line consensus status for display.
func (e *Engine) SummaryLine() string {
	result := e.Evaluate()
	if !result.HasQuorum {
		return fmt.Sprintf("waiting for quorum (%d/%d)", len(e.votes), e.minVoters)
	}
	status := "rejected"
	if result.Approved {
		status = "approved"
	}
	return fmt.Sprintf("%s (%s)", status, e.mode)
}
