package strategy

import (
	"testing"

	"github.com/Iron-Ham/tribunal/internal/protocol"
)

func TestDefault(t *testing.T) {
	s := Default{}

	if !s.ShouldEscalate(State{AutoEscalate: true}, false) {
		t.Error("default should escalate on rejection with auto-escalate on")
	}
	if s.ShouldEscalate(State{AutoEscalate: false}, false) {
		t.Error("default should not escalate with auto-escalate off")
	}
	if s.ShouldEscalate(State{AutoEscalate: true}, true) {
		t.Error("default should not escalate on approval")
	}
	if s.ShouldAutoApprove(State{}, nil) {
		t.Error("default never auto-approves")
	}
	if s.MaxCritiqueRounds() != 1 {
		t.Errorf("MaxCritiqueRounds() = %d, want 1", s.MaxCritiqueRounds())
	}
	if !s.CanSkipResolve(State{}) {
		t.Error("default can skip resolve when no dispute exists")
	}
}

func TestStrict(t *testing.T) {
	s := Strict{}

	if !s.ShouldEscalate(State{}, true) {
		t.Error("strict escalates even on approval")
	}
	if s.CanSkipResolve(State{}) {
		t.Error("strict never skips resolve")
	}
	if s.ShouldAutoApprove(State{}, nil) {
		t.Error("strict never auto-approves")
	}
}

func TestLenient_EscalatesAfterRepeatedRejections(t *testing.T) {
	s := Lenient{}

	if s.ShouldEscalate(State{CritiqueRejections: 1}, false) {
		t.Error("lenient tolerates a single rejection")
	}
	if !s.ShouldEscalate(State{CritiqueRejections: 2}, false) {
		t.Error("lenient escalates at two rejections")
	}
	if s.ShouldEscalate(State{CritiqueRejections: 5}, true) {
		t.Error("lenient never escalates an approval")
	}
	if s.MaxCritiqueRounds() != 3 {
		t.Errorf("MaxCritiqueRounds() = %d, want 3", s.MaxCritiqueRounds())
	}
}

func TestLenient_AutoApprovesOnCriticApproval(t *testing.T) {
	s := Lenient{}

	msgs := []protocol.Message{
		protocol.New("doer", "critic", protocol.MessagePlan, "p"),
		protocol.New("critic", "doer", protocol.MessageCritique, "ok").WithApproved(true),
	}
	if !s.ShouldAutoApprove(State{}, msgs) {
		t.Error("lenient should auto-approve after approving critique")
	}

	msgs = append(msgs, protocol.New("critic", "doer", protocol.MessageReview, "bad").WithApproved(false))
	if s.ShouldAutoApprove(State{}, msgs) {
		t.Error("most recent stance wins; rejection blocks auto-approval")
	}
	if s.ShouldAutoApprove(State{}, nil) {
		t.Error("no messages means no auto-approval")
	}
}

func TestDemocratic_MajorityVote(t *testing.T) {
	s := Democratic{}

	msgs := []protocol.Message{
		protocol.New("doer", "", protocol.MessageVote, "yes").WithApproved(true),
		protocol.New("critic", "", protocol.MessageVote, "no").WithApproved(false),
	}
	if s.ShouldAutoApprove(State{}, msgs) {
		t.Error("one approval of three voters is not a majority")
	}

	msgs = append(msgs, protocol.New("arbiter", "", protocol.MessageVote, "yes").WithApproved(true))
	if !s.ShouldAutoApprove(State{}, msgs) {
		t.Error("two approvals should carry the vote")
	}

	// A voter changing their vote replaces the earlier one.
	msgs = append(msgs, protocol.New("arbiter", "", protocol.MessageVote, "changed").WithApproved(false))
	if s.ShouldAutoApprove(State{}, msgs) {
		t.Error("latest vote per sender should count")
	}
}

func TestAutocratic(t *testing.T) {
	s := Autocratic{}

	if !s.ShouldEscalate(State{}, true) {
		t.Error("autocratic always escalates")
	}
	if s.CanSkipResolve(State{}) {
		t.Error("autocratic never skips resolve")
	}
}

func TestRegistry(t *testing.T) {
	for _, name := range []string{"default", "strict", "lenient", "democratic", "autocratic"} {
		s, err := Get(name)
		if err != nil {
			t.Fatalf("Get(%q) error: %v", name, err)
		}
		if s.Name() != name {
			t.Errorf("Get(%q).Name() = %q", name, s.Name())
		}
	}

	if _, err := Get("bogus"); err == nil {
		t.Error("Get(bogus) should fail")
	}

	names := Names()
	if len(names) < 5 {
		t.Errorf("Names() = %v, want at least the five builtins", names)
	}
}

func TestEscalationReason(t *testing.T) {
	if EscalationReason(false) == EscalationReason(true) {
		t.Error("reasons for rejection and policy escalation should differ")
	}
}
