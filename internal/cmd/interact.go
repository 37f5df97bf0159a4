package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// Threaded interaction primitives. Each replies to the last message
// addressed to the acting role, keeping the conversation thread intact.

var respondCmd = &cobra.Command{
	Use:   "respond <role> <content>",
	Short: "Send a free-form threaded reply",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tb, err := openTable()
		if err != nil {
			return err
		}
		defer tb.Close()

		msg, err := tb.Respond(args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		printSent("Response", msg.Sender, msg.Recipient, msg.Round)
		return nil
	},
}

var clarifyCmd = &cobra.Command{
	Use:   "clarify <role> <question>",
	Short: "Request clarification before committing to a position",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tb, err := openTable()
		if err != nil {
			return err
		}
		defer tb.Close()

		msg, err := tb.RequestClarification(args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		printSent("Clarification request", msg.Sender, msg.Recipient, msg.Round)
		return nil
	},
}

var answerCmd = &cobra.Command{
	Use:   "answer <role> <answer>",
	Short: "Answer a pending clarification request",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tb, err := openTable()
		if err != nil {
			return err
		}
		defer tb.Close()

		msg, err := tb.AnswerClarification(args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		printSent("Clarification answer", msg.Sender, msg.Recipient, msg.Round)
		return nil
	},
}

var counterCmd = &cobra.Command{
	Use:   "counter <role> <alternative>",
	Short: "Reject the last proposal with an alternative",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tb, err := openTable()
		if err != nil {
			return err
		}
		defer tb.Close()

		msg, err := tb.CounterPropose(args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		printSent("Counter-proposal", msg.Sender, msg.Recipient, msg.Round)
		if n, ok := tb.Negotiations().ForThread(msg.ThreadID); ok {
			fmt.Printf("Negotiation status: %s (round %d)\n", n.Status, n.RoundCount())
		}
		return nil
	},
}

var objectCmd = &cobra.Command{
	Use:   "object <role> <grounds>",
	Short: "Register fundamental disagreement, escalating the negotiation",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tb, err := openTable()
		if err != nil {
			return err
		}
		defer tb.Close()

		msg, err := tb.Object(args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		printSent("Objection", msg.Sender, msg.Recipient, msg.Round)
		return nil
	},
}

var ackCmd = &cobra.Command{
	Use:   "ack <role> [note]",
	Short: "Accept the last message, resolving its thread",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tb, err := openTable()
		if err != nil {
			return err
		}
		defer tb.Close()

		msg, err := tb.Acknowledge(args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		printSent("Acknowledgment", msg.Sender, msg.Recipient, msg.Round)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(respondCmd)
	rootCmd.AddCommand(clarifyCmd)
	rootCmd.AddCommand(answerCmd)
	rootCmd.AddCommand(counterCmd)
	rootCmd.AddCommand(objectCmd)
	rootCmd.AddCommand(ackCmd)
}
