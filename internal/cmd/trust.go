package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var trustCmd = &cobra.Command{
	Use:   "trust",
	Short: "Show participant trust scores",
	Long: `Display the trust ledger: per-participant reliability counters and
the derived score used as consensus vote weight. The ledger outlives
session resets.`,
	RunE: runTrust,
}

var trustResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear all trust records",
	RunE: func(cmd *cobra.Command, args []string) error {
		tb, err := openTable()
		if err != nil {
			return err
		}
		defer tb.Close()

		if err := tb.Trust().Reset(); err != nil {
			return err
		}
		fmt.Println("Trust ledger cleared.")
		return nil
	},
}

func init() {
	trustCmd.AddCommand(trustResetCmd)
	rootCmd.AddCommand(trustCmd)
}

func runTrust(cmd *cobra.Command, args []string) error {
	tb, err := openTable()
	if err != nil {
		return err
	}
	defer tb.Close()

	records, err := tb.Trust().All()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No trust records yet.")
		return nil
	}

	agents := make([]string, 0, len(records))
	for a := range records {
		agents = append(agents, a)
	}
	sort.Strings(agents)

	for _, a := range agents {
		r := records[a]
		fmt.Printf("%s: score %.2f\n", a, r.Score)
		fmt.Printf("  votes: %d (%d accurate, %.0f%% accuracy)\n",
			r.TotalVotes, r.AccurateVotes, r.Accuracy()*100)
		fmt.Printf("  decisions: %d (%d overridden)\n", r.TotalDecisions, r.OverriddenDecisions)
		fmt.Printf("  escalations caused: %d, approvals: %d, rejections: %d\n",
			r.EscalationsCaused, r.ApprovalsGiven, r.RejectionsGiven)
	}
	return nil
}
