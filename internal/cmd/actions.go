package cmd

import (
	"fmt"
	"strings"

	"github.com/Iron-Ham/tribunal/internal/protocol"
	"github.com/spf13/cobra"
)

// The core protocol actions, one command per deliberation move.

var planCmd = &cobra.Command{
	Use:   "plan <content>",
	Short: "Submit the doer's implementation plan",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tb, err := openTable()
		if err != nil {
			return err
		}
		defer tb.Close()

		msg, err := tb.SubmitPlan(strings.Join(args, " "))
		if err != nil {
			return err
		}
		printSent("Plan", msg.Sender, msg.Recipient, msg.Round)
		return nil
	},
}

var critiqueCmd = &cobra.Command{
	Use:   "critique <content>",
	Short: "Submit the critic's verdict on the current plan",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		approve, _ := cmd.Flags().GetBool("approve")
		tb, err := openTable()
		if err != nil {
			return err
		}
		defer tb.Close()

		msg, err := tb.SubmitCritique(strings.Join(args, " "), approve)
		if err != nil {
			return err
		}
		printSent("Critique", msg.Sender, msg.Recipient, msg.Round)
		if st, serr := tb.State(); serr == nil {
			fmt.Printf("Phase: %s\n", st.CurrentPhase)
		}
		return nil
	},
}

var implementCmd = &cobra.Command{
	Use:   "implement <notes>",
	Short: "Submit the doer's implementation notes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tb, err := openTable()
		if err != nil {
			return err
		}
		defer tb.Close()

		msg, err := tb.SubmitImplementation(strings.Join(args, " "))
		if err != nil {
			return err
		}
		printSent("Implementation", msg.Sender, msg.Recipient, msg.Round)
		return nil
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review <content>",
	Short: "Submit the critic's verdict on the implementation",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		approve, _ := cmd.Flags().GetBool("approve")
		tb, err := openTable()
		if err != nil {
			return err
		}
		defer tb.Close()

		msg, err := tb.SubmitReview(strings.Join(args, " "), approve)
		if err != nil {
			return err
		}
		printSent("Review", msg.Sender, msg.Recipient, msg.Round)
		if st, serr := tb.State(); serr == nil {
			fmt.Printf("Phase: %s\n", st.CurrentPhase)
		}
		return nil
	},
}

var decideCmd = &cobra.Command{
	Use:   "decide <content>",
	Short: "Submit the arbiter's binding ruling",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sideWith, _ := cmd.Flags().GetString("side-with")
		restart, _ := cmd.Flags().GetBool("restart")
		tb, err := openTable()
		if err != nil {
			return err
		}
		defer tb.Close()

		content := strings.Join(args, " ")
		var msg protocol.Message
		if restart {
			msg, err = tb.RestartPlanning(content)
		} else {
			msg, err = tb.SubmitDecision(content, sideWith)
		}
		if err != nil {
			return err
		}
		printSent("Decision", msg.Sender, msg.Recipient, msg.Round)
		return nil
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve [notes]",
	Short: "Give the arbiter's final sign-off and finalize the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		tb, err := openTable()
		if err != nil {
			return err
		}
		defer tb.Close()

		msg, err := tb.SubmitApproval(strings.Join(args, " "))
		if err != nil {
			return err
		}
		printSent("Approval", msg.Sender, msg.Recipient, msg.Round)
		fmt.Println("Session finalized with outcome approved.")
		return nil
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject <reason>",
	Short: "Reject the current approach and return to planning",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tb, err := openTable()
		if err != nil {
			return err
		}
		defer tb.Close()

		msg, err := tb.SubmitRejection(strings.Join(args, " "))
		if err != nil {
			return err
		}
		printSent("Rejection", msg.Sender, msg.Recipient, msg.Round)
		fmt.Println("Round retired. Run 'tribunal round' to open the next one.")
		return nil
	},
}

var escalateCmd = &cobra.Command{
	Use:   "escalate [reason]",
	Short: "Hand the current disagreement to the arbiter",
	RunE: func(cmd *cobra.Command, args []string) error {
		tb, err := openTable()
		if err != nil {
			return err
		}
		defer tb.Close()

		msg, err := tb.Escalate(strings.Join(args, " "))
		if err != nil {
			return err
		}
		printSent("Escalation", msg.Sender, msg.Recipient, msg.Round)
		return nil
	},
}

func init() {
	critiqueCmd.Flags().Bool("approve", false, "the critic approves the plan")
	reviewCmd.Flags().Bool("approve", false, "the critic approves the implementation")
	decideCmd.Flags().String("side-with", "", "which role the ruling sides with (doer or critic)")
	decideCmd.Flags().Bool("restart", false, "send the round back to planning instead of approval")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(critiqueCmd)
	rootCmd.AddCommand(implementCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(decideCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(rejectCmd)
	rootCmd.AddCommand(escalateCmd)
}
