package fsm

import "github.com/Iron-Ham/tribunal/internal/protocol"

// Events understood by the protocol machine.
const (
	EventPlanApproved    = "plan_approved"
	EventPlanRejected    = "plan_rejected"
	EventReviewApproved  = "review_approved"
	EventReviewRejected  = "review_rejected"
	EventEscalated       = "escalated"
	EventForceEscalate   = "force_escalate"
	EventDecisionMade    = "decision_made"
	EventDecisionRestart = "decision_restart"
	EventApproved        = "approved"
	EventRejected        = "rejected"
)

// NewProtocolMachine builds the standard deliberation machine.
//
// States: plan, implement, resolve, approve, and the terminal finalized.
// Rejections route to resolve when the context has auto-escalate on,
// otherwise loop back for revision. Manual and forced escalation edges
// carry elevated priorities so they win over the default wiring.
func NewProtocolMachine() *Machine {
	m := New(string(protocol.PhasePlan))

	m.AddState(string(protocol.PhaseImplement))
	m.AddState(string(protocol.PhaseResolve))
	m.AddState(string(protocol.PhaseApprove))
	m.AddTerminalState(protocol.StateFinalized)

	autoEscalate := func(c Context) bool { return c.AutoEscalate }
	noAutoEscalate := func(c Context) bool { return !c.AutoEscalate }

	m.AddTransition(Transition{
		Source:      string(protocol.PhasePlan),
		Target:      string(protocol.PhaseImplement),
		Event:       EventPlanApproved,
		Description: "Critic approved the plan; move to implementation",
	})
	m.AddTransition(Transition{
		Source:      string(protocol.PhasePlan),
		Target:      string(protocol.PhaseResolve),
		Event:       EventPlanRejected,
		Guard:       autoEscalate,
		Priority:    10,
		Description: "Critic rejected with auto-escalate; arbiter resolves",
	})
	m.AddTransition(Transition{
		Source:      string(protocol.PhasePlan),
		Target:      string(protocol.PhasePlan),
		Event:       EventPlanRejected,
		Guard:       noAutoEscalate,
		Description: "Critic rejected without auto-escalate; doer revises",
	})

	m.AddTransition(Transition{
		Source:      string(protocol.PhaseImplement),
		Target:      string(protocol.PhaseApprove),
		Event:       EventReviewApproved,
		Description: "Critic approved implementation; arbiter gives final sign-off",
	})
	m.AddTransition(Transition{
		Source:      string(protocol.PhaseImplement),
		Target:      string(protocol.PhaseResolve),
		Event:       EventReviewRejected,
		Guard:       autoEscalate,
		Priority:    10,
		Description: "Critic rejected review with auto-escalate; arbiter resolves",
	})
	m.AddTransition(Transition{
		Source:      string(protocol.PhaseImplement),
		Target:      string(protocol.PhaseImplement),
		Event:       EventReviewRejected,
		Guard:       noAutoEscalate,
		Description: "Critic rejected review; doer revises implementation",
	})
	m.AddTransition(Transition{
		Source:      string(protocol.PhaseImplement),
		Target:      string(protocol.PhaseResolve),
		Event:       EventEscalated,
		Priority:    100,
		Description: "Manual escalation to arbiter",
	})

	m.AddTransition(Transition{
		Source:      string(protocol.PhaseResolve),
		Target:      string(protocol.PhaseApprove),
		Event:       EventDecisionMade,
		Description: "Arbiter decided; move to approval",
	})
	m.AddTransition(Transition{
		Source:      string(protocol.PhaseResolve),
		Target:      string(protocol.PhasePlan),
		Event:       EventDecisionRestart,
		Description: "Arbiter restarts from planning",
	})

	m.AddTransition(Transition{
		Source:      string(protocol.PhaseApprove),
		Target:      protocol.StateFinalized,
		Event:       EventApproved,
		Description: "Arbiter approved; task complete",
	})
	m.AddTransition(Transition{
		Source:      string(protocol.PhaseApprove),
		Target:      string(protocol.PhasePlan),
		Event:       EventRejected,
		Description: "Arbiter rejected; new round starts from plan",
	})

	for _, source := range []protocol.Phase{protocol.PhasePlan, protocol.PhaseImplement} {
		m.AddTransition(Transition{
			Source:      string(source),
			Target:      string(protocol.PhaseResolve),
			Event:       EventForceEscalate,
			Priority:    50,
			Description: "Force escalation to arbiter",
		})
	}

	return m
}
