// Package state persists deliberation session state to disk. The
// session lives under a single directory: table-state.json holds the
// current state, and rounds/ gets one subdirectory per round.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Iron-Ham/tribunal/internal/errors"
	"github.com/Iron-Ham/tribunal/internal/protocol"
)

const (
	tableDir  = "table"
	roundsDir = "rounds"
	stateFile = "table-state.json"
)

// Outcomes recorded when a session ends.
const (
	OutcomeApproved         = "approved"
	OutcomeRejected         = "rejected"
	OutcomeMaxRoundsReached = "max_rounds_reached"
)

// RoundSummary records how a single round ended.
type RoundSummary struct {
	Round       int       `json:"round"`
	Outcome     string    `json:"outcome"`
	Reason      string    `json:"reason,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// ConsensusRecord captures one vote evaluation for the session
// history.
type ConsensusRecord struct {
	Round     int       `json:"round"`
	Approved  bool      `json:"approved"`
	Method    string    `json:"method"`
	Reason    string    `json:"reason"`
	Votes     int       `json:"votes"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionConfig is the protocol configuration frozen at session
// start.
type SessionConfig struct {
	MaxRounds        int    `json:"max_rounds"`
	RequireUnanimous bool   `json:"require_unanimous"`
	AutoEscalate     bool   `json:"auto_escalate"`
	Strategy         string `json:"strategy"`
}

// State is the persistent record of a deliberation session.
type State struct {
	Active           bool                      `json:"active"`
	Task             string                    `json:"task"`
	CurrentRound     int                       `json:"current_round"`
	CurrentPhase     string                    `json:"current_phase"`
	Config           SessionConfig             `json:"config"`
	StartedAt        time.Time                 `json:"started_at"`
	CompletedAt      *time.Time                `json:"completed_at,omitempty"`
	Outcome          string                    `json:"outcome,omitempty"`
	TotalMessages    int                       `json:"total_messages"`
	EscalationCount  int                       `json:"escalation_count"`
	DeadlockCount    int                       `json:"deadlock_count"`
	RoundsSummary    []RoundSummary            `json:"rounds_summary"`
	AgentStats       map[string]map[string]int `json:"agent_stats"`
	ConsensusHistory []ConsensusRecord         `json:"consensus_history"`
	StateHistory     []Transition              `json:"state_history,omitempty"`
}

// Transition mirrors one protocol state change, persisted so the
// machine can be rehydrated on the next invocation.
type Transition struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}

// Store reads and writes session state under a base directory. Every
// mutation reloads from disk first, so separate processes sharing the
// directory observe each other's changes. Safe for concurrent use
// within a process.
type Store struct {
	mu      sync.Mutex
	baseDir string
}

// NewStore returns a store rooted at baseDir. Nothing is written
// until Initialize.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) tableDir() string  { return filepath.Join(s.baseDir, tableDir) }
func (s *Store) roundsDir() string { return filepath.Join(s.tableDir(), roundsDir) }
func (s *Store) statePath() string { return filepath.Join(s.tableDir(), stateFile) }

// RoundDir returns the directory for a given round number.
func (s *Store) RoundDir(round int) string {
	return filepath.Join(s.roundsDir(), fmt.Sprintf("round-%03d", round))
}

// Path returns the state file location.
func (s *Store) Path() string { return s.statePath() }

// Exists reports whether a session has been initialized.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.statePath())
	return err == nil
}

// Initialize creates a fresh session state for the given task. Fails
// with ErrSessionExists if one is already present.
func (s *Store) Initialize(task string, cfg SessionConfig) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Exists() {
		return nil, errors.ErrSessionExists
	}
	if err := os.MkdirAll(s.roundsDir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	st := &State{
		Active:       true,
		Task:         task,
		CurrentPhase: string(protocol.PhasePlan),
		Config:       cfg,
		StartedAt:    time.Now().UTC(),
		AgentStats:   make(map[string]map[string]int),
	}
	if err := s.save(st); err != nil {
		return nil, err
	}
	return st, nil
}

// Load reads the current state. Returns ErrInactiveSession when no
// session exists and ErrSessionCorrupted when the file cannot be
// parsed.
func (s *Store) Load() (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (*State, error) {
	data, err := os.ReadFile(s.statePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrInactiveSession
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrSessionCorrupted, err)
	}
	if st.AgentStats == nil {
		st.AgentStats = make(map[string]map[string]int)
	}
	return &st, nil
}

// loadActive loads the state and requires it to be active.
func (s *Store) loadActive() (*State, error) {
	st, err := s.load()
	if err != nil {
		return nil, err
	}
	if !st.Active {
		return nil, errors.ErrInactiveSession
	}
	return st, nil
}

// Save writes the full state to disk atomically.
func (s *Store) Save(st *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(st)
}

func (s *Store) save(st *State) error {
	if err := os.MkdirAll(s.tableDir(), 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	return atomicWriteFile(s.statePath(), data)
}

// NewRound advances to the next round, resetting the phase to plan
// and creating the round directory. Hitting the round limit finalizes
// the session and returns a RoundLimitError.
func (s *Store) NewRound() (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.loadActive()
	if err != nil {
		return nil, err
	}

	if st.CurrentRound >= st.Config.MaxRounds {
		now := time.Now().UTC()
		st.Active = false
		st.Outcome = OutcomeMaxRoundsReached
		st.CompletedAt = &now
		if err := s.save(st); err != nil {
			return nil, err
		}
		return nil, &errors.RoundLimitError{MaxRounds: st.Config.MaxRounds}
	}

	st.CurrentRound++
	st.CurrentPhase = string(protocol.PhasePlan)
	if err := s.save(st); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.RoundDir(st.CurrentRound), 0755); err != nil {
		return nil, fmt.Errorf("failed to create round directory: %w", err)
	}
	return st, nil
}

// SetPhase updates the current phase.
func (s *Store) SetPhase(phase string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if phase != string(protocol.StateFinalized) && !protocol.ValidPhase(protocol.Phase(phase)) {
		return nil, fmt.Errorf("invalid phase %q", phase)
	}
	st, err := s.loadActive()
	if err != nil {
		return nil, err
	}
	st.CurrentPhase = phase
	if err := s.save(st); err != nil {
		return nil, err
	}
	return st, nil
}

// IncrementMessages bumps the message counter and returns the new
// total.
func (s *Store) IncrementMessages() (int, error) {
	return s.incrementCounter(func(st *State) *int { return &st.TotalMessages })
}

// IncrementEscalations bumps the escalation counter.
func (s *Store) IncrementEscalations() (int, error) {
	return s.incrementCounter(func(st *State) *int { return &st.EscalationCount })
}

// IncrementDeadlocks bumps the deadlock counter.
func (s *Store) IncrementDeadlocks() (int, error) {
	return s.incrementCounter(func(st *State) *int { return &st.DeadlockCount })
}

func (s *Store) incrementCounter(field func(*State) *int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.loadActive()
	if err != nil {
		return 0, err
	}
	counter := field(st)
	*counter++
	if err := s.save(st); err != nil {
		return 0, err
	}
	return *counter, nil
}

// AddRoundSummary records how the current round ended.
func (s *Store) AddRoundSummary(outcome, reason string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.loadActive()
	if err != nil {
		return nil, err
	}
	st.RoundsSummary = append(st.RoundsSummary, RoundSummary{
		Round:       st.CurrentRound,
		Outcome:     outcome,
		Reason:      reason,
		CompletedAt: time.Now().UTC(),
	})
	if err := s.save(st); err != nil {
		return nil, err
	}
	return st, nil
}

// AddConsensusRecord appends a vote evaluation to the session
// history.
func (s *Store) AddConsensusRecord(rec ConsensusRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.loadActive()
	if err != nil {
		return err
	}
	rec.Timestamp = time.Now().UTC()
	rec.Round = st.CurrentRound
	st.ConsensusHistory = append(st.ConsensusHistory, rec)
	return s.save(st)
}

// BumpAgentStat increments a per-agent counter such as
// "messages_sent" or "approvals".
func (s *Store) BumpAgentStat(agent, key string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.loadActive()
	if err != nil {
		return err
	}
	if st.AgentStats[agent] == nil {
		st.AgentStats[agent] = make(map[string]int)
	}
	st.AgentStats[agent][key] += delta
	return s.save(st)
}

// RecordTransition appends a protocol state change to the persisted
// history.
func (s *Store) RecordTransition(tr Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	st.StateHistory = append(st.StateHistory, tr)
	return s.save(st)
}

// Finalize marks the session complete with the given outcome. Works
// on inactive sessions too, so a round-limit shutdown can still
// record its outcome.
func (s *Store) Finalize(outcome string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	st.Active = false
	st.CompletedAt = &now
	st.Outcome = outcome
	st.CurrentPhase = protocol.StateFinalized
	if err := s.save(st); err != nil {
		return nil, err
	}
	return st, nil
}

// Reset removes all session data. Idempotent.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.RemoveAll(s.tableDir())
}

// atomicWriteFile writes data to a temp file in the target directory
// and renames it into place, so readers never observe a partial
// write.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-state-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
