// Package strategy defines pluggable policies for how deliberation
// progresses: when to escalate to the arbiter, when critic approval
// alone is enough, and how many critique rounds to tolerate.
package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Iron-Ham/tribunal/internal/protocol"
)

// State is the slice of session state a strategy may inspect when
// deciding.
type State struct {
	AutoEscalate       bool
	Round              int
	CritiqueRejections int
}

// Strategy controls protocol progression. Implementations must be
// stateless; all inputs arrive through the State value and message
// history.
type Strategy interface {
	// Name identifies the strategy in config and status output.
	Name() string

	// Description is a one-line summary for listings.
	Description() string

	// ShouldEscalate decides whether a critique outcome hands the
	// round to the arbiter.
	ShouldEscalate(state State, critiqueApproved bool) bool

	// ShouldAutoApprove decides whether the round can close without
	// an arbiter ruling, given the message history.
	ShouldAutoApprove(state State, messages []protocol.Message) bool

	// MaxCritiqueRounds caps doer/critic back-and-forth before forced
	// escalation.
	MaxCritiqueRounds() int

	// CanSkipResolve reports whether the resolve phase may be skipped
	// when no dispute exists.
	CanSkipResolve(state State) bool
}

// EscalationReason describes why a strategy escalated, for transcript
// content.
func EscalationReason(critiqueApproved bool) string {
	if !critiqueApproved {
		return "critic did not approve; escalating to arbiter for decision"
	}
	return "automatic escalation per strategy rules"
}

// lastStance returns the approved flag of the most recent critique or
// review, or false when none carries a stance.
func lastStance(messages []protocol.Message) bool {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Type == protocol.MessageCritique || m.Type == protocol.MessageReview {
			return m.Approved()
		}
	}
	return false
}

// Default escalates on the first rejection when auto-escalate is on
// and never auto-approves.
type Default struct{}

func (Default) Name() string        { return "default" }
func (Default) Description() string { return "standard protocol: escalate on first rejection" }

func (Default) ShouldEscalate(state State, critiqueApproved bool) bool {
	return !critiqueApproved && state.AutoEscalate
}

func (Default) ShouldAutoApprove(State, []protocol.Message) bool { return false }
func (Default) MaxCritiqueRounds() int                           { return 1 }
func (Default) CanSkipResolve(State) bool                        { return true }

// Strict routes every round through the arbiter, approval or not.
type Strict struct{}

func (Strict) Name() string        { return "strict" }
func (Strict) Description() string { return "maximum oversight: every action requires arbiter review" }

func (Strict) ShouldEscalate(State, bool) bool                  { return true }
func (Strict) ShouldAutoApprove(State, []protocol.Message) bool { return false }
func (Strict) MaxCritiqueRounds() int                           { return 1 }
func (Strict) CanSkipResolve(State) bool                        { return false }

// Lenient treats critic approval as final and tolerates two
// rejections before escalating.
type Lenient struct{}

func (Lenient) Name() string { return "lenient" }
func (Lenient) Description() string {
	return "minimal friction: critic approval is sufficient, arbiter only for disputes"
}

func (Lenient) ShouldEscalate(state State, critiqueApproved bool) bool {
	if critiqueApproved {
		return false
	}
	return state.CritiqueRejections >= 2
}

func (Lenient) ShouldAutoApprove(_ State, messages []protocol.Message) bool {
	return lastStance(messages)
}

func (Lenient) MaxCritiqueRounds() int    { return 3 }
func (Lenient) CanSkipResolve(State) bool { return true }

// Democratic sends every round to a vote; a majority of the three
// roles approves.
type Democratic struct{}

func (Democratic) Name() string        { return "democratic" }
func (Democratic) Description() string { return "all agents vote on decisions; arbiter breaks ties" }

func (Democratic) ShouldEscalate(State, bool) bool { return true }

func (Democratic) ShouldAutoApprove(_ State, messages []protocol.Message) bool {
	votes := make(map[string]bool)
	for _, m := range messages {
		if m.Type == protocol.MessageVote {
			votes[m.Sender] = m.Approved()
		}
	}
	approvals := 0
	for _, approved := range votes {
		if approved {
			approvals++
		}
	}
	return approvals >= 2
}

func (Democratic) MaxCritiqueRounds() int    { return 1 }
func (Democratic) CanSkipResolve(State) bool { return false }

// Autocratic makes every review advisory; the arbiter always rules.
type Autocratic struct{}

func (Autocratic) Name() string        { return "autocratic" }
func (Autocratic) Description() string { return "arbiter has absolute authority; reviews are advisory" }

func (Autocratic) ShouldEscalate(State, bool) bool                  { return true }
func (Autocratic) ShouldAutoApprove(State, []protocol.Message) bool { return false }
func (Autocratic) MaxCritiqueRounds() int                           { return 1 }
func (Autocratic) CanSkipResolve(State) bool                        { return false }

var (
	registryMu sync.Mutex
	registry   = map[string]Strategy{
		"default":    Default{},
		"strict":     Strict{},
		"lenient":    Lenient{},
		"democratic": Democratic{},
		"autocratic": Autocratic{},
	}
)

// Get looks up a strategy by name.
func Get(name string) (Strategy, error) {
	registryMu.Lock()
	defer registryMu.Unlock()
	s, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (available: %v)", name, namesLocked())
	}
	return s, nil
}

// Register installs a custom strategy under its own name,
// overwriting any existing entry.
func Register(s Strategy) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[s.Name()] = s
}

// Names returns the registered strategy names, sorted.
func Names() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	return namesLocked()
}

func namesLocked() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
