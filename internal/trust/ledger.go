// Package trust tracks per-participant reliability across sessions.
// The ledger persists to trust-scores.json independently of the session
// record, so reliability survives session resets and feeds back into
// consensus vote weighting.
package trust

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Iron-Ham/tribunal/internal/errors"
)

const ledgerFile = "trust-scores.json"

// Score bounds. Every recompute clamps into this range.
const (
	MinScore = 0.1
	MaxScore = 2.0
)

// EventType names a trust-affecting protocol outcome.
type EventType string

const (
	// EventVote records that the participant voted; aligned means the
	// vote matched the final outcome.
	EventVote EventType = "vote"

	// EventDecision records a decision; aligned=false means a higher
	// authority overrode it.
	EventDecision EventType = "decision"

	// EventEscalation records that the participant caused an escalation.
	EventEscalation EventType = "escalation"

	// EventApproval records an approval given.
	EventApproval EventType = "approval"

	// EventRejection records a rejection given.
	EventRejection EventType = "rejection"
)

// HistoryEntry is one recorded trust event.
type HistoryEntry struct {
	Type      EventType `json:"type"`
	Aligned   bool      `json:"aligned"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Record holds the trust counters and derived score for one participant.
type Record struct {
	Agent               string         `json:"agent"`
	TotalVotes          int            `json:"total_votes"`
	AccurateVotes       int            `json:"accurate_votes"`
	TotalDecisions      int            `json:"total_decisions"`
	OverriddenDecisions int            `json:"overridden_decisions"`
	EscalationsCaused   int            `json:"escalations_caused"`
	ApprovalsGiven      int            `json:"approvals_given"`
	RejectionsGiven     int            `json:"rejections_given"`
	Score               float64        `json:"trust_score"`
	History             []HistoryEntry `json:"history,omitempty"`
}

// Accuracy returns the ratio of votes that aligned with the final
// outcome. Participants with no votes start at perfect accuracy.
func (r *Record) Accuracy() float64 {
	if r.TotalVotes == 0 {
		return 1.0
	}
	return float64(r.AccurateVotes) / float64(r.TotalVotes)
}

// OverrideRate returns the ratio of decisions overridden by higher
// authority.
func (r *Record) OverrideRate() float64 {
	if r.TotalDecisions == 0 {
		return 0.0
	}
	return float64(r.OverriddenDecisions) / float64(r.TotalDecisions)
}

// apply updates counters for one event and recomputes the score.
func (r *Record) apply(event EventType, aligned bool, details string) {
	r.History = append(r.History, HistoryEntry{
		Type:      event,
		Aligned:   aligned,
		Details:   details,
		Timestamp: time.Now().UTC(),
	})

	switch event {
	case EventVote:
		r.TotalVotes++
		if aligned {
			r.AccurateVotes++
		}
	case EventDecision:
		r.TotalDecisions++
		if !aligned {
			r.OverriddenDecisions++
		}
	case EventEscalation:
		r.EscalationsCaused++
	case EventApproval:
		r.ApprovalsGiven++
	case EventRejection:
		r.RejectionsGiven++
	}

	r.recompute()
}

// recompute derives the trust score from the counters: base 1.0, a
// ±0.25 swing from vote accuracy once three votes are in, a penalty
// proportional to the override rate, and a flat penalty when
// escalations outnumber half the decisions. Clamped to [0.1, 2.0].
func (r *Record) recompute() {
	score := 1.0

	if r.TotalVotes >= 3 {
		score += (r.Accuracy() - 0.5) * 0.5
	}

	score -= r.OverrideRate() * 0.3

	if r.TotalDecisions > 0 {
		escRatio := float64(r.EscalationsCaused) / float64(r.TotalDecisions)
		if escRatio > 0.5 {
			score -= 0.2
		}
	}

	if score < MinScore {
		score = MinScore
	}
	if score > MaxScore {
		score = MaxScore
	}
	r.Score = score
}

// Ledger persists trust records for all participants. Each operation
// loads from disk, mutates in memory, and writes back, so independent
// short-lived invocations always see the latest state.
type Ledger struct {
	dir string
}

// NewLedger creates a ledger rooted at the given table directory.
func NewLedger(dir string) *Ledger {
	return &Ledger{dir: dir}
}

// Path returns the location of the ledger file.
func (l *Ledger) Path() string {
	return filepath.Join(l.dir, ledgerFile)
}

// RecordEvent applies a trust-affecting event for agent and persists
// the updated ledger.
func (l *Ledger) RecordEvent(agent string, event EventType, aligned bool, details string) (*Record, error) {
	records, err := l.load()
	if err != nil {
		return nil, err
	}
	rec := getOrCreate(records, agent)
	rec.apply(event, aligned, details)
	if err := l.save(records); err != nil {
		return nil, err
	}
	return rec, nil
}

// Get returns the trust record for agent. Unknown agents get a fresh
// record at the neutral score without persisting it.
func (l *Ledger) Get(agent string) (*Record, error) {
	records, err := l.load()
	if err != nil {
		return nil, err
	}
	return getOrCreate(records, agent), nil
}

// Score returns the trust score for agent, defaulting to 1.0.
func (l *Ledger) Score(agent string) (float64, error) {
	rec, err := l.Get(agent)
	if err != nil {
		return 0, err
	}
	return rec.Score, nil
}

// Weight returns the consensus vote weight for agent, floored at the
// minimum score so no participant is silenced entirely.
func (l *Ledger) Weight(agent string) (float64, error) {
	score, err := l.Score(agent)
	if err != nil {
		return 0, err
	}
	if score < MinScore {
		score = MinScore
	}
	return score, nil
}

// All returns every persisted record keyed by agent.
func (l *Ledger) All() (map[string]*Record, error) {
	return l.load()
}

// Reset removes all trust data.
func (l *Ledger) Reset() error {
	if err := os.Remove(l.Path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("trust: remove ledger: %w", err)
	}
	return nil
}

func getOrCreate(records map[string]*Record, agent string) *Record {
	if rec, ok := records[agent]; ok {
		return rec
	}
	rec := &Record{Agent: agent, Score: 1.0}
	records[agent] = rec
	return rec
}

func (l *Ledger) load() (map[string]*Record, error) {
	data, err := os.ReadFile(l.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*Record), nil
		}
		return nil, fmt.Errorf("trust: read ledger: %w", err)
	}

	records := make(map[string]*Record)
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("trust: %w: %v", errors.ErrSessionCorrupted, err)
	}
	return records, nil
}

func (l *Ledger) save(records map[string]*Record) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("trust: create directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("trust: marshal ledger: %w", err)
	}
	return atomicWriteFile(l.Path(), data, 0o644)
}

// atomicWriteFile writes data to a temp file in the target directory
// and renames it into place, so a crash never leaves a torn ledger.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("trust: create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("trust: write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("trust: sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("trust: close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("trust: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("trust: rename temp file: %w", err)
	}
	success = true
	return nil
}
