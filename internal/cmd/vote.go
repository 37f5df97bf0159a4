package cmd

import (
	"fmt"

	"github.com/Iron-Ham/tribunal/internal/protocol"
	"github.com/spf13/cobra"
)

var voteCmd = &cobra.Command{
	Use:   "vote <role>",
	Short: "Cast a consensus vote",
	Long: `Cast a consensus vote as the given role. Re-voting replaces the
role's previous ballot. Use 'tribunal consensus' to evaluate the
collected votes.`,
	Args: cobra.ExactArgs(1),
	RunE: runVote,
}

var consensusCmd = &cobra.Command{
	Use:   "consensus",
	Short: "Evaluate the collected votes under the configured quorum mode",
	RunE:  runConsensus,
}

func init() {
	voteCmd.Flags().Bool("approve", false, "vote to approve")
	voteCmd.Flags().String("confidence", string(protocol.ConfidenceMedium), "confidence level (low, medium, high, certain)")
	voteCmd.Flags().String("reason", "", "free-text reason for the vote")
	rootCmd.AddCommand(voteCmd)
	rootCmd.AddCommand(consensusCmd)
}

func runVote(cmd *cobra.Command, args []string) error {
	approve, _ := cmd.Flags().GetBool("approve")
	confidence, _ := cmd.Flags().GetString("confidence")
	reason, _ := cmd.Flags().GetString("reason")
	if reason == "" {
		if approve {
			reason = "Approve."
		} else {
			reason = "Reject."
		}
	}

	tb, err := openTable()
	if err != nil {
		return err
	}
	defer tb.Close()

	msg, err := tb.CastVote(args[0], approve, protocol.Confidence(confidence), reason)
	if err != nil {
		return err
	}
	printSent("Vote", msg.Sender, msg.Recipient, msg.Round)
	fmt.Printf("Votes collected: %s\n", tb.Consensus().SummaryLine())
	return nil
}

func runConsensus(cmd *cobra.Command, args []string) error {
	tb, err := openTable()
	if err != nil {
		return err
	}
	defer tb.Close()

	res, err := tb.EvaluateConsensus()
	if err != nil {
		return err
	}

	fmt.Printf("Method: %s\n", res.Method)
	fmt.Printf("Quorum: %t (%d votes)\n", res.HasQuorum, res.Total)
	fmt.Printf("Approved: %t (%d for, %d against)\n", res.Approved, res.Approvals, res.Rejections)
	if res.Reason != "" {
		fmt.Printf("Reason: %s\n", res.Reason)
	}
	if len(res.Dissent) > 0 {
		fmt.Printf("Dissent: %v\n", res.Dissent)
	}
	return nil
}
