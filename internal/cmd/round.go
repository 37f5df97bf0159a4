package cmd

import (
	"fmt"

	"github.com/Iron-Ham/tribunal/internal/errors"
	"github.com/spf13/cobra"
)

var roundCmd = &cobra.Command{
	Use:   "round",
	Short: "Open the next deliberation round",
	Long: `Advance the session to the next round, resetting the phase to plan
and clearing the previous round's votes. When the round budget is
already spent the session is finalized with outcome max_rounds_reached
and the command fails.`,
	RunE: runRound,
}

func init() {
	rootCmd.AddCommand(roundCmd)
}

func runRound(cmd *cobra.Command, args []string) error {
	tb, err := openTable()
	if err != nil {
		return err
	}
	defer tb.Close()

	st, err := tb.NewRound()
	if err != nil {
		if errors.Is(err, errors.ErrRoundLimit) {
			fmt.Println("Round budget exhausted; session finalized with outcome max_rounds_reached.")
		}
		return err
	}

	fmt.Printf("Round %d of %d open. Phase: %s\n", st.CurrentRound, st.Config.MaxRounds, st.CurrentPhase)
	return nil
}
