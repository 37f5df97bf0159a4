package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Iron-Ham/tribunal/internal/errors"
	"github.com/Iron-Ham/tribunal/internal/protocol"
)

func testConfig() SessionConfig {
	return SessionConfig{
		MaxRounds:    3,
		AutoEscalate: true,
		Strategy:     "default",
	}
}

func TestInitialize(t *testing.T) {
	s := NewStore(t.TempDir())

	st, err := s.Initialize("build the widget", testConfig())
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !st.Active {
		t.Error("new session should be active")
	}
	if st.CurrentRound != 0 {
		t.Errorf("CurrentRound = %d, want 0", st.CurrentRound)
	}
	if st.CurrentPhase != string(protocol.PhasePlan) {
		t.Errorf("CurrentPhase = %q, want plan", st.CurrentPhase)
	}
	if !s.Exists() {
		t.Error("Exists() should be true after Initialize")
	}

	if _, err := s.Initialize("again", testConfig()); !errors.Is(err, errors.ErrSessionExists) {
		t.Errorf("second Initialize error = %v, want ErrSessionExists", err)
	}
}

func TestLoad_MissingSession(t *testing.T) {
	s := NewStore(t.TempDir())
	if _, err := s.Load(); !errors.Is(err, errors.ErrInactiveSession) {
		t.Errorf("Load error = %v, want ErrInactiveSession", err)
	}
}

func TestLoad_CorruptState(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	if _, err := s.Initialize("t", testConfig()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := os.WriteFile(s.Path(), []byte("{not json"), 0644); err != nil {
		t.Fatalf("corrupt state file: %v", err)
	}
	if _, err := s.Load(); !errors.Is(err, errors.ErrSessionCorrupted) {
		t.Errorf("Load error = %v, want ErrSessionCorrupted", err)
	}
}

func TestNewRound_AdvancesAndCreatesDir(t *testing.T) {
	s := NewStore(t.TempDir())
	s.Initialize("t", testConfig())

	st, err := s.NewRound()
	if err != nil {
		t.Fatalf("NewRound: %v", err)
	}
	if st.CurrentRound != 1 {
		t.Errorf("CurrentRound = %d, want 1", st.CurrentRound)
	}
	if st.CurrentPhase != string(protocol.PhasePlan) {
		t.Errorf("phase reset to %q, want plan", st.CurrentPhase)
	}
	if _, err := os.Stat(s.RoundDir(1)); err != nil {
		t.Errorf("round directory missing: %v", err)
	}
	if filepath.Base(s.RoundDir(1)) != "round-001" {
		t.Errorf("RoundDir(1) = %s", s.RoundDir(1))
	}
}

func TestNewRound_LimitFinalizesSession(t *testing.T) {
	s := NewStore(t.TempDir())
	s.Initialize("t", SessionConfig{MaxRounds: 2, Strategy: "default"})

	for i := 0; i < 2; i++ {
		if _, err := s.NewRound(); err != nil {
			t.Fatalf("NewRound %d: %v", i+1, err)
		}
	}

	_, err := s.NewRound()
	if !errors.Is(err, errors.ErrRoundLimit) {
		t.Fatalf("NewRound past limit error = %v, want ErrRoundLimit", err)
	}
	var limitErr *errors.RoundLimitError
	if !errors.As(err, &limitErr) || limitErr.MaxRounds != 2 {
		t.Errorf("error should carry the limit: %v", err)
	}

	// Session is closed out on disk.
	st, loadErr := s.Load()
	if loadErr != nil {
		t.Fatalf("Load: %v", loadErr)
	}
	if st.Active {
		t.Error("session should be inactive after hitting the limit")
	}
	if st.Outcome != OutcomeMaxRoundsReached {
		t.Errorf("outcome = %q, want %q", st.Outcome, OutcomeMaxRoundsReached)
	}
	if st.CompletedAt == nil {
		t.Error("completed_at should be set")
	}

	// Further rounds fail as inactive.
	if _, err := s.NewRound(); !errors.Is(err, errors.ErrInactiveSession) {
		t.Errorf("NewRound on closed session = %v, want ErrInactiveSession", err)
	}
}

func TestSetPhase(t *testing.T) {
	s := NewStore(t.TempDir())
	s.Initialize("t", testConfig())

	st, err := s.SetPhase(string(protocol.PhaseResolve))
	if err != nil {
		t.Fatalf("SetPhase: %v", err)
	}
	if st.CurrentPhase != string(protocol.PhaseResolve) {
		t.Errorf("phase = %q", st.CurrentPhase)
	}

	if _, err := s.SetPhase("limbo"); err == nil {
		t.Error("SetPhase with unknown phase should fail")
	}
}

func TestCountersAndStats(t *testing.T) {
	s := NewStore(t.TempDir())
	s.Initialize("t", testConfig())

	for i := 1; i <= 3; i++ {
		n, err := s.IncrementMessages()
		if err != nil {
			t.Fatalf("IncrementMessages: %v", err)
		}
		if n != i {
			t.Errorf("message count = %d, want %d", n, i)
		}
	}
	if n, _ := s.IncrementEscalations(); n != 1 {
		t.Errorf("escalation count = %d, want 1", n)
	}
	if n, _ := s.IncrementDeadlocks(); n != 1 {
		t.Errorf("deadlock count = %d, want 1", n)
	}

	if err := s.BumpAgentStat("doer", "messages_sent", 2); err != nil {
		t.Fatalf("BumpAgentStat: %v", err)
	}
	s.BumpAgentStat("doer", "messages_sent", 1)

	st, _ := s.Load()
	if st.AgentStats["doer"]["messages_sent"] != 3 {
		t.Errorf("agent stat = %d, want 3", st.AgentStats["doer"]["messages_sent"])
	}
}

func TestRoundSummaryAndConsensusHistory(t *testing.T) {
	s := NewStore(t.TempDir())
	s.Initialize("t", testConfig())
	s.NewRound()

	if _, err := s.AddRoundSummary(OutcomeApproved, "clean pass"); err != nil {
		t.Fatalf("AddRoundSummary: %v", err)
	}
	if err := s.AddConsensusRecord(ConsensusRecord{
		Approved: true,
		Method:   "simple_majority",
		Reason:   "2/3 approved",
		Votes:    3,
	}); err != nil {
		t.Fatalf("AddConsensusRecord: %v", err)
	}

	st, _ := s.Load()
	if len(st.RoundsSummary) != 1 || st.RoundsSummary[0].Round != 1 {
		t.Errorf("rounds summary = %+v", st.RoundsSummary)
	}
	if len(st.ConsensusHistory) != 1 || st.ConsensusHistory[0].Round != 1 {
		t.Errorf("consensus history = %+v", st.ConsensusHistory)
	}
	if st.ConsensusHistory[0].Timestamp.IsZero() {
		t.Error("consensus record timestamp should be set")
	}
}

func TestFinalizeAndReset(t *testing.T) {
	s := NewStore(t.TempDir())
	s.Initialize("t", testConfig())

	st, err := s.Finalize(OutcomeApproved)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if st.Active {
		t.Error("finalized session should be inactive")
	}
	if st.CurrentPhase != protocol.StateFinalized {
		t.Errorf("phase = %q, want finalized", st.CurrentPhase)
	}

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if s.Exists() {
		t.Error("Exists() should be false after Reset")
	}
	// Reset on an empty store is fine.
	if err := s.Reset(); err != nil {
		t.Errorf("second Reset: %v", err)
	}
}

func TestStateSurvivesReload(t *testing.T) {
	dir := t.TempDir()

	s1 := NewStore(dir)
	s1.Initialize("persisted task", testConfig())
	s1.NewRound()
	s1.SetPhase(string(protocol.PhaseImplement))
	s1.RecordTransition(Transition{From: "plan", To: "implement", Event: "plan_approved"})

	// A fresh store over the same directory sees everything.
	s2 := NewStore(dir)
	st, err := s2.Load()
	if err != nil {
		t.Fatalf("Load from second store: %v", err)
	}
	if st.Task != "persisted task" {
		t.Errorf("task = %q", st.Task)
	}
	if st.CurrentRound != 1 || st.CurrentPhase != string(protocol.PhaseImplement) {
		t.Errorf("round/phase = %d/%s", st.CurrentRound, st.CurrentPhase)
	}
	if len(st.StateHistory) != 1 || st.StateHistory[0].Event != "plan_approved" {
		t.Errorf("state history = %+v", st.StateHistory)
	}
}
