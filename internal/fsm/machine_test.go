package fsm

import (
	"testing"

	"github.com/Iron-Ham/tribunal/internal/errors"
	"github.com/Iron-Ham/tribunal/internal/protocol"
)

func TestMachine_BasicTransition(t *testing.T) {
	m := New("a")
	m.AddTransition(Transition{Source: "a", Target: "b", Event: "go"})

	next, err := m.Trigger("go", Context{})
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if next != "b" || m.Current() != "b" {
		t.Errorf("current = %q, want b", m.Current())
	}

	history := m.History()
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
	rec := history[0]
	if rec.From != "a" || rec.To != "b" || rec.Event != "go" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Timestamp.IsZero() {
		t.Error("record should carry a timestamp")
	}
}

func TestMachine_NoTransitionVsGuardsBlocked(t *testing.T) {
	m := New("a")
	m.AddTransition(Transition{
		Source: "a", Target: "b", Event: "guarded",
		Guard: func(c Context) bool { return false },
	})

	if _, err := m.Trigger("missing", Context{}); !errors.Is(err, errors.ErrNoTransition) {
		t.Errorf("unknown event should yield ErrNoTransition, got %v", err)
	}
	if _, err := m.Trigger("guarded", Context{}); !errors.Is(err, errors.ErrGuardsBlocked) {
		t.Errorf("blocked guards should yield ErrGuardsBlocked, got %v", err)
	}
	if m.Current() != "a" {
		t.Error("failed triggers must not move the machine")
	}
}

func TestMachine_TerminalState(t *testing.T) {
	m := New("end")
	m.AddTerminalState("end")
	m.AddTransition(Transition{Source: "end", Target: "a", Event: "escape"})

	_, err := m.Trigger("escape", Context{})
	if !errors.Is(err, errors.ErrTerminalState) {
		t.Fatalf("expected ErrTerminalState, got %v", err)
	}

	var pe *errors.ProtocolError
	if !errors.As(err, &pe) {
		t.Fatal("error should be a ProtocolError")
	}
	if pe.Event != "escape" || pe.State != "end" {
		t.Errorf("ProtocolError context = %+v", pe)
	}
	if m.CanTrigger("escape", Context{}) {
		t.Error("CanTrigger must be false in a terminal state")
	}
}

func TestMachine_PriorityOrder(t *testing.T) {
	m := New("a")
	m.AddTransition(Transition{Source: "a", Target: "low", Event: "e", Priority: 0})
	m.AddTransition(Transition{Source: "a", Target: "high", Event: "e", Priority: 10})

	next, err := m.Trigger("e", Context{})
	if err != nil {
		t.Fatal(err)
	}
	if next != "high" {
		t.Errorf("highest priority transition should win, got %q", next)
	}
}

func TestMachine_GuardFallthrough(t *testing.T) {
	m := New("a")
	m.AddTransition(Transition{
		Source: "a", Target: "first", Event: "e", Priority: 10,
		Guard: func(c Context) bool { return false },
	})
	m.AddTransition(Transition{Source: "a", Target: "second", Event: "e", Priority: 0})

	next, err := m.Trigger("e", Context{})
	if err != nil {
		t.Fatal(err)
	}
	if next != "second" {
		t.Errorf("guard failure should fall through to next candidate, got %q", next)
	}
}

func TestMachine_CallbackOrder(t *testing.T) {
	m := New("a")
	var order []string
	m.OnExit("a", func(c Context) { order = append(order, "exit-a") })
	m.OnEnter("b", func(c Context) { order = append(order, "enter-b") })
	m.AddTransition(Transition{
		Source: "a", Target: "b", Event: "go",
		Action: func(c Context) { order = append(order, "action") },
	})

	if _, err := m.Trigger("go", Context{}); err != nil {
		t.Fatal(err)
	}

	want := []string{"exit-a", "action", "enter-b"}
	if len(order) != len(want) {
		t.Fatalf("callback order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("callback order = %v, want %v", order, want)
		}
	}
}

func TestMachine_ForceStateLogsHistory(t *testing.T) {
	m := New("a")
	m.ForceState("z")

	if m.Current() != "z" {
		t.Errorf("current = %q, want z", m.Current())
	}
	history := m.History()
	if len(history) != 1 || history[0].Event != ForceEvent {
		t.Errorf("forced jump should be logged, history = %+v", history)
	}
}

func TestMachine_PanickingGuardCountsAsRefusal(t *testing.T) {
	m := New("a")
	m.AddTransition(Transition{
		Source: "a", Target: "b", Event: "e",
		Guard: func(c Context) bool { panic("guard bug") },
	})

	if _, err := m.Trigger("e", Context{}); !errors.Is(err, errors.ErrGuardsBlocked) {
		t.Errorf("panicking guard should read as blocked, got %v", err)
	}
}

func TestMachine_Introspection(t *testing.T) {
	m := New("a")
	m.AddTransition(Transition{Source: "a", Target: "b", Event: "x"})
	m.AddTransition(Transition{Source: "a", Target: "c", Event: "y"})
	m.AddTransition(Transition{Source: "b", Target: "d", Event: "z"})
	m.AddTransition(Transition{Source: "d", Target: "a", Event: "w"})

	events := m.AvailableEvents()
	if len(events) != 2 {
		t.Errorf("available events = %v", events)
	}

	reachable := m.ReachableStates()
	for _, s := range []string{"a", "b", "c", "d"} {
		if !reachable[s] {
			t.Errorf("state %q should be reachable", s)
		}
	}

	tm := m.TransitionMap()
	if len(tm["a"]) != 2 || len(tm["b"]) != 1 || len(tm["d"]) != 1 {
		t.Errorf("transition map = %v", tm)
	}
}

func TestProtocolMachine_StandardFlow(t *testing.T) {
	m := NewProtocolMachine()
	ctx := Context{AutoEscalate: true}

	steps := []struct {
		event string
		want  string
	}{
		{EventPlanApproved, string(protocol.PhaseImplement)},
		{EventReviewApproved, string(protocol.PhaseApprove)},
		{EventApproved, protocol.StateFinalized},
	}
	for _, step := range steps {
		got, err := m.Trigger(step.event, ctx)
		if err != nil {
			t.Fatalf("Trigger(%s): %v", step.event, err)
		}
		if got != step.want {
			t.Fatalf("after %s state = %q, want %q", step.event, got, step.want)
		}
	}

	// finalized is terminal: nothing moves the machine out.
	for _, event := range []string{EventApproved, EventRejected, EventPlanApproved} {
		if _, err := m.Trigger(event, ctx); !errors.Is(err, errors.ErrTerminalState) {
			t.Errorf("Trigger(%s) from finalized = %v, want terminal-state error", event, err)
		}
	}
}

func TestProtocolMachine_PlanRejectedBothWays(t *testing.T) {
	m := NewProtocolMachine()
	got, err := m.Trigger(EventPlanRejected, Context{AutoEscalate: true})
	if err != nil {
		t.Fatal(err)
	}
	if got != string(protocol.PhaseResolve) {
		t.Errorf("auto-escalate rejection should land in resolve, got %q", got)
	}

	m = NewProtocolMachine()
	got, err = m.Trigger(EventPlanRejected, Context{AutoEscalate: false})
	if err != nil {
		t.Fatal(err)
	}
	if got != string(protocol.PhasePlan) {
		t.Errorf("non-escalating rejection should loop back to plan, got %q", got)
	}
}

func TestProtocolMachine_ForceEscalate(t *testing.T) {
	m := NewProtocolMachine()
	got, err := m.Trigger(EventForceEscalate, Context{})
	if err != nil {
		t.Fatal(err)
	}
	if got != string(protocol.PhaseResolve) {
		t.Errorf("force_escalate from plan should reach resolve, got %q", got)
	}

	m = NewProtocolMachine()
	if _, err := m.Trigger(EventPlanApproved, Context{}); err != nil {
		t.Fatal(err)
	}
	got, err = m.Trigger(EventForceEscalate, Context{})
	if err != nil {
		t.Fatal(err)
	}
	if got != string(protocol.PhaseResolve) {
		t.Errorf("force_escalate from implement should reach resolve, got %q", got)
	}
}

func TestProtocolMachine_ResolveAndRejectCycle(t *testing.T) {
	m := NewProtocolMachine()
	ctx := Context{AutoEscalate: true}

	if _, err := m.Trigger(EventPlanRejected, ctx); err != nil {
		t.Fatal(err)
	}
	got, err := m.Trigger(EventDecisionMade, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != string(protocol.PhaseApprove) {
		t.Fatalf("decision_made should reach approve, got %q", got)
	}
	got, err = m.Trigger(EventRejected, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != string(protocol.PhasePlan) {
		t.Errorf("rejected should restart at plan, got %q", got)
	}
}
