// Package router decides which agent should receive each message.
// Routing follows the deliberation protocol by default (plans and
// implementations to the critic, critiques back to the doer,
// escalations to the arbiter) and can be extended with custom rules.
package router

import (
	"sort"
	"sync"

	"github.com/Iron-Ham/tribunal/internal/protocol"
)

// State is the slice of session state routing conditions may inspect.
type State struct {
	Phase        protocol.Phase
	AutoEscalate bool
	Round        int
}

// Condition reports whether a rule applies to a message in the given
// state.
type Condition func(protocol.Message, State) bool

// Rule directs matching messages to a target agent. An empty Target
// keeps the message's preset recipient, for rules whose destination
// depends on the reply chain.
type Rule struct {
	Name        string
	Condition   Condition
	Target      string
	Priority    int
	Description string
}

// Matches evaluates the rule's condition. Nil or panicking conditions
// never match.
func (r Rule) Matches(msg protocol.Message, state State) (matched bool) {
	if r.Condition == nil {
		return false
	}
	defer func() {
		if recover() != nil {
			matched = false
		}
	}()
	return r.Condition(msg, state)
}

// Expectation describes who should act next and with what message
// types.
type Expectation struct {
	Agent       string
	Types       []protocol.MessageType
	Description string
	Then        *Expectation
}

// Router resolves recipients by evaluating rules in descending
// priority order. Safe for concurrent use.
type Router struct {
	mu    sync.Mutex
	rules []Rule
}

// New returns a router preloaded with the standard protocol rules.
func New() *Router {
	r := &Router{}
	r.installDefaults()
	return r
}

func (r *Router) installDefaults() {
	r.rules = []Rule{
		{
			Name: "plan_to_critic",
			Condition: func(m protocol.Message, _ State) bool {
				return m.Sender == protocol.RoleDoer && m.Type == protocol.MessagePlan
			},
			Target:      protocol.RoleCritic,
			Description: "doer's plans go to the critic for review",
		},
		{
			Name: "implementation_to_critic",
			Condition: func(m protocol.Message, _ State) bool {
				return m.Sender == protocol.RoleDoer && m.Type == protocol.MessageImplementation
			},
			Target:      protocol.RoleCritic,
			Description: "doer's implementations go to the critic for review",
		},
		{
			Name: "critique_to_doer",
			Condition: func(m protocol.Message, _ State) bool {
				return m.Sender == protocol.RoleCritic && m.Type == protocol.MessageCritique && approvedOrUnset(m)
			},
			Target:      protocol.RoleDoer,
			Description: "approving critiques go back to the doer",
		},
		{
			Name: "critique_rejection_to_arbiter",
			Condition: func(m protocol.Message, s State) bool {
				return m.Sender == protocol.RoleCritic && m.Type == protocol.MessageCritique &&
					!approvedOrUnset(m) && s.AutoEscalate
			},
			Target:      protocol.RoleArbiter,
			Priority:    10,
			Description: "rejecting critiques escalate to the arbiter",
		},
		{
			Name: "review_to_doer",
			Condition: func(m protocol.Message, _ State) bool {
				return m.Sender == protocol.RoleCritic && m.Type == protocol.MessageReview && approvedOrUnset(m)
			},
			Target:      protocol.RoleDoer,
			Description: "approving reviews go back to the doer",
		},
		{
			Name: "review_rejection_to_arbiter",
			Condition: func(m protocol.Message, s State) bool {
				return m.Sender == protocol.RoleCritic && m.Type == protocol.MessageReview &&
					!approvedOrUnset(m) && s.AutoEscalate
			},
			Target:      protocol.RoleArbiter,
			Priority:    10,
			Description: "rejecting reviews escalate to the arbiter",
		},
		{
			Name: "escalation_to_arbiter",
			Condition: func(m protocol.Message, _ State) bool {
				return m.Type == protocol.MessageEscalation
			},
			Target:      protocol.RoleArbiter,
			Priority:    100,
			Description: "escalations always go to the arbiter",
		},
		{
			Name: "decision_to_doer",
			Condition: func(m protocol.Message, _ State) bool {
				if m.Sender != protocol.RoleArbiter {
					return false
				}
				switch m.Type {
				case protocol.MessageDecision, protocol.MessageApproval, protocol.MessageRejection:
					return true
				}
				return false
			},
			Target:      protocol.RoleDoer,
			Description: "arbiter rulings go to the doer",
		},
		{
			Name: "counter_to_proposer",
			Condition: func(m protocol.Message, _ State) bool {
				return m.Type == protocol.MessageCounterProposal
			},
			Priority:    5,
			Description: "counter-proposals follow the reply chain",
		},
		{
			Name: "clarification_to_target",
			Condition: func(m protocol.Message, _ State) bool {
				return m.Type == protocol.MessageClarification
			},
			Priority:    5,
			Description: "clarification requests follow the reply chain",
		},
	}
	r.sortRules()
}

// approvedOrUnset treats a missing approved flag as approval, so a
// plain critique with no stance still flows back to the doer.
func approvedOrUnset(m protocol.Message) bool {
	if !m.HasApprovalStance() {
		return true
	}
	return m.Approved()
}

func (r *Router) sortRules() {
	sort.SliceStable(r.rules, func(i, j int) bool {
		return r.rules[i].Priority > r.rules[j].Priority
	})
}

// AddRule installs a custom rule. Rules with higher priority win over
// the defaults.
func (r *Router) AddRule(rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule)
	r.sortRules()
}

// RemoveRule deletes all rules with the given name and reports
// whether any were removed.
func (r *Router) RemoveRule(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rules[:0]
	removed := false
	for _, rule := range r.rules {
		if rule.Name == name {
			removed = true
			continue
		}
		kept = append(kept, rule)
	}
	r.rules = kept
	return removed
}

// Rules returns the installed rules in evaluation order.
func (r *Router) Rules() []Rule {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Resolve returns the recipient for a message: the target of the
// first matching rule in priority order, the message's own recipient
// for dynamic-target rules, or the preset recipient when nothing
// matches.
func (r *Router) Resolve(msg protocol.Message, state State) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rule := range r.rules {
		if rule.Matches(msg, state) {
			if rule.Target != "" {
				return rule.Target
			}
			return msg.Recipient
		}
	}
	return msg.Recipient
}

// ShouldEscalate reports whether any arbiter-targeting rule matches
// the message.
func (r *Router) ShouldEscalate(msg protocol.Message, state State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rule := range r.rules {
		if rule.Target != protocol.RoleArbiter {
			continue
		}
		if rule.Matches(msg, state) {
			return true
		}
	}
	return false
}

// NextExpected describes who should act next given the current phase.
func (r *Router) NextExpected(phase protocol.Phase) Expectation {
	switch phase {
	case protocol.PhasePlan:
		return Expectation{
			Agent:       protocol.RoleDoer,
			Types:       []protocol.MessageType{protocol.MessagePlan},
			Description: "doer should submit a plan",
			Then: &Expectation{
				Agent:       protocol.RoleCritic,
				Types:       []protocol.MessageType{protocol.MessageCritique},
				Description: "critic should review the plan",
			},
		}
	case protocol.PhaseImplement:
		return Expectation{
			Agent:       protocol.RoleDoer,
			Types:       []protocol.MessageType{protocol.MessageImplementation},
			Description: "doer should implement the plan",
			Then: &Expectation{
				Agent:       protocol.RoleCritic,
				Types:       []protocol.MessageType{protocol.MessageReview},
				Description: "critic should review the implementation",
			},
		}
	case protocol.PhaseResolve:
		return Expectation{
			Agent:       protocol.RoleArbiter,
			Types:       []protocol.MessageType{protocol.MessageDecision},
			Description: "arbiter should make a decision",
		}
	case protocol.PhaseApprove:
		return Expectation{
			Agent:       protocol.RoleArbiter,
			Types:       []protocol.MessageType{protocol.MessageApproval, protocol.MessageRejection},
			Description: "arbiter should approve or reject",
		}
	}
	return Expectation{
		Agent:       protocol.RoleDoer,
		Description: "unknown phase",
	}
}
