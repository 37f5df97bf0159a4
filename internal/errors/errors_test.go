package errors

import (
	"strings"
	"testing"
)

func TestProtocolError_DistinguishesCauses(t *testing.T) {
	terminal := NewProtocolError("approved", "finalized", ErrTerminalState)
	noMatch := NewProtocolError("bogus", "plan", ErrNoTransition)
	blocked := NewProtocolError("plan_rejected", "plan", ErrGuardsBlocked)

	if !Is(terminal, ErrTerminalState) {
		t.Error("terminal error should match ErrTerminalState")
	}
	if Is(terminal, ErrNoTransition) {
		t.Error("terminal error should not match ErrNoTransition")
	}
	if !Is(noMatch, ErrNoTransition) {
		t.Error("no-transition error should match ErrNoTransition")
	}
	if !Is(blocked, ErrGuardsBlocked) {
		t.Error("guard-blocked error should match ErrGuardsBlocked")
	}

	if !IsProtocol(terminal) || !IsProtocol(noMatch) || !IsProtocol(blocked) {
		t.Error("all three should classify as protocol violations")
	}
}

func TestProtocolError_CarriesEventAndState(t *testing.T) {
	err := NewProtocolError("plan_approved", "approve", ErrNoTransition)
	msg := err.Error()
	if want := `event "plan_approved"`; !strings.Contains(msg, want) {
		t.Errorf("message %q should contain %q", msg, want)
	}
	if want := `state "approve"`; !strings.Contains(msg, want) {
		t.Errorf("message %q should contain %q", msg, want)
	}
}

func TestRoundLimitError(t *testing.T) {
	err := &RoundLimitError{MaxRounds: 10}
	if !Is(err, ErrRoundLimit) {
		t.Error("RoundLimitError should match ErrRoundLimit")
	}
	if !IsFatalToSession(err) {
		t.Error("round limit should be fatal to the session")
	}
	if IsFatalToSession(ErrInactiveSession) {
		t.Error("inactive session fails the call, not the session record")
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError([]string{"message content cannot be empty"}, []string{"phase mismatch"})
	if !IsValidation(err) {
		t.Error("should classify as validation error")
	}
	if IsValidation(ErrInactiveSession) {
		t.Error("sentinel should not classify as validation error")
	}
	if !strings.Contains(err.Error(), "content cannot be empty") {
		t.Errorf("message %q should include the finding", err.Error())
	}
}
