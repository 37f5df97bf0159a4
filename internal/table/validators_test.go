package table

import (
	"strings"
	"testing"

	"github.com/Iron-Ham/tribunal/internal/errors"
	"github.com/Iron-Ham/tribunal/internal/protocol"
	"github.com/Iron-Ham/tribunal/internal/state"
)

func TestValidateState(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		st := &state.State{
			Active:       true,
			CurrentRound: 1,
			CurrentPhase: string(protocol.PhasePlan),
			Config:       state.SessionConfig{MaxRounds: 10},
		}
		if err := ValidateState(st); err != nil {
			t.Errorf("ValidateState() error: %v", err)
		}
	})

	t.Run("nil state", func(t *testing.T) {
		if err := ValidateState(nil); err == nil {
			t.Error("expected error for nil state")
		}
	})

	t.Run("zero max rounds warns that no round opens", func(t *testing.T) {
		st := &state.State{
			Active:       true,
			CurrentRound: -1,
			CurrentPhase: string(protocol.PhasePlan),
			Config:       state.SessionConfig{MaxRounds: 0},
		}
		err := ValidateState(st)
		if err == nil {
			t.Fatal("expected validation error for negative round")
		}
		verr, ok := err.(*errors.ValidationError)
		if !ok {
			t.Fatalf("error type = %T, want *errors.ValidationError", err)
		}
		var found string
		for _, w := range verr.Warnings {
			if strings.Contains(w, "max rounds") {
				found = w
			}
		}
		if found == "" {
			t.Fatalf("no max rounds warning in %v", verr.Warnings)
		}
		// MaxRounds <= 0 makes every NewRound hit the round limit
		// immediately, so the warning must not suggest unlimited rounds.
		if strings.Contains(found, "disabled") {
			t.Errorf("warning %q implies round limits are off", found)
		}
		if !strings.Contains(found, "no round can be opened") {
			t.Errorf("warning %q should state that no round can be opened", found)
		}
	})
}
