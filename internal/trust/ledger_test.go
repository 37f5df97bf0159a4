package trust

import (
	"testing"

	"github.com/Iron-Ham/tribunal/internal/protocol"
)

func TestLedger_DefaultScore(t *testing.T) {
	l := NewLedger(t.TempDir())

	score, err := l.Score(protocol.RoleCritic)
	if err != nil {
		t.Fatal(err)
	}
	if score != 1.0 {
		t.Errorf("fresh participant score = %v, want 1.0", score)
	}
}

func TestLedger_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	l := NewLedger(dir)

	if _, err := l.RecordEvent(protocol.RoleCritic, EventEscalation, true, "rejected plan"); err != nil {
		t.Fatal(err)
	}

	// A new ledger instance over the same directory sees the event,
	// as a fresh process invocation would.
	l2 := NewLedger(dir)
	rec, err := l2.Get(protocol.RoleCritic)
	if err != nil {
		t.Fatal(err)
	}
	if rec.EscalationsCaused != 1 {
		t.Errorf("escalations = %d, want 1", rec.EscalationsCaused)
	}
	if len(rec.History) != 1 {
		t.Errorf("history length = %d, want 1", len(rec.History))
	}
}

func TestLedger_VoteAccuracySwing(t *testing.T) {
	l := NewLedger(t.TempDir())

	// Three aligned votes: accuracy 1.0 gives the full +0.25 bonus.
	for i := 0; i < 3; i++ {
		if _, err := l.RecordEvent("doer", EventVote, true, ""); err != nil {
			t.Fatal(err)
		}
	}
	score, _ := l.Score("doer")
	if score != 1.25 {
		t.Errorf("perfect accuracy score = %v, want 1.25", score)
	}

	// Misaligned votes from a previously perfect voter strictly
	// decrease the score.
	prev := score
	for i := 0; i < 4; i++ {
		if _, err := l.RecordEvent("doer", EventVote, false, ""); err != nil {
			t.Fatal(err)
		}
		score, _ = l.Score("doer")
		if score >= prev {
			t.Fatalf("misaligned vote %d did not decrease score: %v -> %v", i+1, prev, score)
		}
		prev = score
	}
}

func TestLedger_ScoreStaysBounded(t *testing.T) {
	l := NewLedger(t.TempDir())

	events := []struct {
		event   EventType
		aligned bool
	}{
		{EventVote, false}, {EventVote, false}, {EventVote, false},
		{EventDecision, false}, {EventDecision, false},
		{EventEscalation, true}, {EventEscalation, true}, {EventEscalation, true},
		{EventRejection, true}, {EventVote, false}, {EventDecision, false},
	}
	for _, ev := range events {
		rec, err := l.RecordEvent("critic", ev.event, ev.aligned, "")
		if err != nil {
			t.Fatal(err)
		}
		if rec.Score < MinScore || rec.Score > MaxScore {
			t.Fatalf("score %v escaped [%v, %v] after %s", rec.Score, MinScore, MaxScore, ev.event)
		}
	}
}

func TestLedger_OverridePenalty(t *testing.T) {
	l := NewLedger(t.TempDir())

	// One upheld, one overridden decision: override rate 0.5,
	// penalty 0.15.
	if _, err := l.RecordEvent("arbiter", EventDecision, true, ""); err != nil {
		t.Fatal(err)
	}
	rec, err := l.RecordEvent("arbiter", EventDecision, false, "overruled")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := rec.Score, 0.85; got != want {
		t.Errorf("score = %v, want %v", got, want)
	}
	if rec.OverrideRate() != 0.5 {
		t.Errorf("override rate = %v, want 0.5", rec.OverrideRate())
	}
}

func TestLedger_EscalationPenalty(t *testing.T) {
	l := NewLedger(t.TempDir())

	if _, err := l.RecordEvent("critic", EventDecision, true, ""); err != nil {
		t.Fatal(err)
	}
	// Two escalations against one decision crosses the half threshold.
	if _, err := l.RecordEvent("critic", EventEscalation, true, ""); err != nil {
		t.Fatal(err)
	}
	rec, err := l.RecordEvent("critic", EventEscalation, true, "")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := rec.Score, 0.8; got != want {
		t.Errorf("score = %v, want %v", got, want)
	}
}

func TestLedger_WeightFloor(t *testing.T) {
	l := NewLedger(t.TempDir())
	w, err := l.Weight("anyone")
	if err != nil {
		t.Fatal(err)
	}
	if w < MinScore {
		t.Errorf("weight = %v, below floor %v", w, MinScore)
	}
}

func TestLedger_ResetAndIndependence(t *testing.T) {
	dir := t.TempDir()
	l := NewLedger(dir)

	if _, err := l.RecordEvent("doer", EventApproval, true, ""); err != nil {
		t.Fatal(err)
	}
	if err := l.Reset(); err != nil {
		t.Fatal(err)
	}

	rec, err := l.Get("doer")
	if err != nil {
		t.Fatal(err)
	}
	if rec.ApprovalsGiven != 0 {
		t.Error("reset should clear recorded events")
	}

	// Resetting an already-empty ledger is not an error.
	if err := l.Reset(); err != nil {
		t.Errorf("second reset: %v", err)
	}
}
