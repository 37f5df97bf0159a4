package cmd

import (
	"fmt"
	"sort"

	"github.com/Iron-Ham/tribunal/internal/errors"
	"github.com/Iron-Ham/tribunal/internal/table"
	"github.com/Iron-Ham/tribunal/internal/util"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current session status",
	Long:  `Display the status of the current deliberation session.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	tb, err := openTable()
	if err != nil {
		return err
	}
	defer tb.Close()

	status, err := tb.Status()
	if err != nil {
		if errors.Is(err, errors.ErrInactiveSession) {
			fmt.Println("No session. Run 'tribunal init <task>' to start one.")
			return nil
		}
		return err
	}

	printStatus(status)

	if status.Active {
		info, err := tb.DeadlockInfo()
		if err != nil {
			return err
		}
		if info.Deadlocked {
			fmt.Printf("\nWARNING: %d consecutive rejected rounds (threshold %d). %s\n",
				info.ConsecutiveRejections, info.Threshold, info.Suggestion)
		}
	}
	return nil
}

func printStatus(s *table.Status) {
	fmt.Printf("Task: %s\n", s.Task)
	if s.Active {
		fmt.Printf("Round %d of %d, phase %s\n", s.CurrentRound, s.MaxRounds, s.CurrentPhase)
	} else {
		fmt.Printf("Session complete. Outcome: %s\n", s.Outcome)
	}
	fmt.Printf("Strategy: %s\n", s.Strategy)
	fmt.Printf("Messages: %d  Escalations: %d  Deadlocks: %d  Threads: %d\n",
		s.TotalMessages, s.EscalationCount, s.DeadlockCount, s.ThreadCount)

	if len(s.MessagesByAgent) > 0 {
		agents := make([]string, 0, len(s.MessagesByAgent))
		for a := range s.MessagesByAgent {
			agents = append(agents, a)
		}
		sort.Strings(agents)
		fmt.Println("\nMessages by agent:")
		for _, a := range agents {
			fmt.Printf("  %-8s %d\n", a, s.MessagesByAgent[a])
		}
	}

	if s.Negotiations.Total > 0 {
		fmt.Printf("\nNegotiations: %d total, %d active, %d resolved, %d deadlocked, %d escalated\n",
			s.Negotiations.Total, s.Negotiations.Active, s.Negotiations.Resolved,
			s.Negotiations.Deadlocked, s.Negotiations.Escalated)
	}

	if len(s.RoundsSummary) > 0 {
		fmt.Println("\nRounds:")
		for _, r := range s.RoundsSummary {
			line := fmt.Sprintf("  [%d] %s", r.Round, r.Outcome)
			if r.Reason != "" {
				line += ": " + util.TruncateString(util.FirstLine(r.Reason), 80)
			}
			fmt.Println(line)
		}
	}
}
