package table

import "github.com/Iron-Ham/tribunal/internal/state"

// DeadlockInfo describes a run of consecutive rejected rounds.
type DeadlockInfo struct {
	Deadlocked            bool     `json:"deadlocked"`
	ConsecutiveRejections int      `json:"consecutive_rejections"`
	Threshold             int      `json:"threshold"`
	RejectionReasons      []string `json:"rejection_reasons,omitempty"`
	Suggestion            string   `json:"suggestion"`
}

// DetectDeadlock reports whether the deliberation itself has stalled:
// the trailing rounds were all rejected, at least as many of them as
// the configured threshold. This is distinct from negotiation-thread
// deadlock, which is tracked per thread by the negotiation manager.
func (t *Table) DetectDeadlock() (bool, error) {
	info, err := t.DeadlockInfo()
	if err != nil {
		return false, err
	}
	return info.Deadlocked, nil
}

// DeadlockInfo returns diagnostics for the trailing rejection run.
func (t *Table) DeadlockInfo() (*DeadlockInfo, error) {
	st, err := t.state.Load()
	if err != nil {
		return nil, err
	}
	return deadlockInfo(st.RoundsSummary, t.cfg.Table.DeadlockThreshold), nil
}

func deadlockInfo(summaries []state.RoundSummary, threshold int) *DeadlockInfo {
	info := &DeadlockInfo{Threshold: threshold}
	for i := len(summaries) - 1; i >= 0; i-- {
		if summaries[i].Outcome != state.OutcomeRejected {
			break
		}
		info.ConsecutiveRejections++
		if r := summaries[i].Reason; r != "" {
			// Oldest first
			info.RejectionReasons = append([]string{r}, info.RejectionReasons...)
		}
	}

	info.Deadlocked = threshold > 0 && info.ConsecutiveRejections >= threshold
	if info.Deadlocked {
		info.Suggestion = "Consider narrowing the task scope, an arbiter force-approve, or raising the deadlock threshold."
	} else {
		info.Suggestion = "No deadlock detected."
	}
	return info
}
