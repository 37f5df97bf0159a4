package router

import (
	"testing"

	"github.com/Iron-Ham/tribunal/internal/protocol"
)

func TestResolve_PlanGoesToCritic(t *testing.T) {
	r := New()
	msg := protocol.New(protocol.RoleDoer, "", protocol.MessagePlan, "p")
	if got := r.Resolve(msg, State{Phase: protocol.PhasePlan}); got != protocol.RoleCritic {
		t.Errorf("Resolve(plan) = %q, want %q", got, protocol.RoleCritic)
	}
}

func TestResolve_ImplementationGoesToCritic(t *testing.T) {
	r := New()
	msg := protocol.New(protocol.RoleDoer, "", protocol.MessageImplementation, "i")
	if got := r.Resolve(msg, State{}); got != protocol.RoleCritic {
		t.Errorf("Resolve(implementation) = %q, want %q", got, protocol.RoleCritic)
	}
}

func TestResolve_ApprovingCritiqueGoesToDoer(t *testing.T) {
	r := New()
	msg := protocol.New(protocol.RoleCritic, "", protocol.MessageCritique, "fine").WithApproved(true)
	if got := r.Resolve(msg, State{}); got != protocol.RoleDoer {
		t.Errorf("Resolve(approving critique) = %q, want %q", got, protocol.RoleDoer)
	}

	// Missing stance routes like approval.
	plain := protocol.New(protocol.RoleCritic, "", protocol.MessageCritique, "notes")
	if got := r.Resolve(plain, State{}); got != protocol.RoleDoer {
		t.Errorf("Resolve(stanceless critique) = %q, want %q", got, protocol.RoleDoer)
	}
}

func TestResolve_RejectionEscalatesOnlyWithAutoEscalate(t *testing.T) {
	r := New()
	msg := protocol.New(protocol.RoleCritic, protocol.RoleDoer, protocol.MessageCritique, "no").WithApproved(false)

	if got := r.Resolve(msg, State{AutoEscalate: true}); got != protocol.RoleArbiter {
		t.Errorf("Resolve with auto-escalate = %q, want %q", got, protocol.RoleArbiter)
	}
	// Without auto-escalate no rule matches a rejecting critique, so
	// the preset recipient stands.
	if got := r.Resolve(msg, State{AutoEscalate: false}); got != protocol.RoleDoer {
		t.Errorf("Resolve without auto-escalate = %q, want %q", got, protocol.RoleDoer)
	}
}

func TestResolve_EscalationAlwaysWins(t *testing.T) {
	r := New()
	msg := protocol.New(protocol.RoleDoer, protocol.RoleCritic, protocol.MessageEscalation, "stuck")
	if got := r.Resolve(msg, State{}); got != protocol.RoleArbiter {
		t.Errorf("Resolve(escalation) = %q, want %q", got, protocol.RoleArbiter)
	}
}

func TestResolve_ArbiterRulingsGoToDoer(t *testing.T) {
	r := New()
	for _, mt := range []protocol.MessageType{
		protocol.MessageDecision, protocol.MessageApproval, protocol.MessageRejection,
	} {
		msg := protocol.New(protocol.RoleArbiter, "", mt, "ruling")
		if got := r.Resolve(msg, State{}); got != protocol.RoleDoer {
			t.Errorf("Resolve(%s) = %q, want %q", mt, got, protocol.RoleDoer)
		}
	}
}

func TestResolve_CounterProposalKeepsRecipient(t *testing.T) {
	r := New()
	msg := protocol.New(protocol.RoleCritic, protocol.RoleDoer, protocol.MessageCounterProposal, "alt")
	if got := r.Resolve(msg, State{}); got != protocol.RoleDoer {
		t.Errorf("Resolve(counter) = %q, want preset recipient %q", got, protocol.RoleDoer)
	}
}

func TestResolve_NoMatchKeepsRecipient(t *testing.T) {
	r := New()
	msg := protocol.New(protocol.RoleDoer, protocol.RoleArbiter, protocol.MessageResponse, "fyi")
	if got := r.Resolve(msg, State{}); got != protocol.RoleArbiter {
		t.Errorf("Resolve(unmatched) = %q, want %q", got, protocol.RoleArbiter)
	}
}

func TestAddRule_HighPriorityOverridesDefault(t *testing.T) {
	r := New()
	r.AddRule(Rule{
		Name: "plans_to_arbiter",
		Condition: func(m protocol.Message, _ State) bool {
			return m.Type == protocol.MessagePlan
		},
		Target:   protocol.RoleArbiter,
		Priority: 50,
	})

	msg := protocol.New(protocol.RoleDoer, "", protocol.MessagePlan, "p")
	if got := r.Resolve(msg, State{}); got != protocol.RoleArbiter {
		t.Errorf("Resolve with override = %q, want %q", got, protocol.RoleArbiter)
	}
}

func TestRemoveRule(t *testing.T) {
	r := New()
	if !r.RemoveRule("plan_to_critic") {
		t.Fatal("RemoveRule(plan_to_critic) = false, want true")
	}
	if r.RemoveRule("plan_to_critic") {
		t.Error("second RemoveRule should report nothing removed")
	}

	msg := protocol.New(protocol.RoleDoer, protocol.RoleArbiter, protocol.MessagePlan, "p")
	if got := r.Resolve(msg, State{}); got != protocol.RoleArbiter {
		t.Errorf("Resolve after removal = %q, want preset recipient", got)
	}
}

func TestShouldEscalate(t *testing.T) {
	r := New()

	rej := protocol.New(protocol.RoleCritic, "", protocol.MessageReview, "bad").WithApproved(false)
	if !r.ShouldEscalate(rej, State{AutoEscalate: true}) {
		t.Error("rejecting review with auto-escalate should escalate")
	}
	if r.ShouldEscalate(rej, State{AutoEscalate: false}) {
		t.Error("rejecting review without auto-escalate should not escalate")
	}

	esc := protocol.New(protocol.RoleDoer, "", protocol.MessageEscalation, "help")
	if !r.ShouldEscalate(esc, State{}) {
		t.Error("explicit escalation should escalate")
	}
}

func TestNextExpected(t *testing.T) {
	r := New()

	exp := r.NextExpected(protocol.PhasePlan)
	if exp.Agent != protocol.RoleDoer {
		t.Errorf("plan phase agent = %q, want %q", exp.Agent, protocol.RoleDoer)
	}
	if exp.Then == nil || exp.Then.Agent != protocol.RoleCritic {
		t.Error("plan phase should chain to a critic expectation")
	}

	exp = r.NextExpected(protocol.PhaseApprove)
	if exp.Agent != protocol.RoleArbiter || len(exp.Types) != 2 {
		t.Errorf("approve phase expectation = %+v", exp)
	}

	exp = r.NextExpected(protocol.Phase("bogus"))
	if exp.Agent != protocol.RoleDoer || len(exp.Types) != 0 {
		t.Errorf("unknown phase expectation = %+v", exp)
	}
}

func TestRule_PanickingConditionNeverMatches(t *testing.T) {
	r := New()
	r.AddRule(Rule{
		Name: "panics",
		Condition: func(m protocol.Message, _ State) bool {
			panic("boom")
		},
		Target:   protocol.RoleArbiter,
		Priority: 1000,
	})

	msg := protocol.New(protocol.RoleDoer, "", protocol.MessagePlan, "p")
	if got := r.Resolve(msg, State{}); got != protocol.RoleCritic {
		t.Errorf("Resolve past panicking rule = %q, want %q", got, protocol.RoleCritic)
	}
}
