package cmd

import (
	"fmt"

	"github.com/Iron-Ham/tribunal/internal/protocol"
	"github.com/Iron-Ham/tribunal/internal/transcript"
	"github.com/spf13/cobra"
)

var transcriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Print the session transcript",
	RunE:  runTranscript,
}

func init() {
	transcriptCmd.Flags().Int("round", 0, "only messages from this round")
	transcriptCmd.Flags().String("sender", "", "only messages from this role")
	transcriptCmd.Flags().String("type", "", "only messages of this type")
	rootCmd.AddCommand(transcriptCmd)
}

func runTranscript(cmd *cobra.Command, args []string) error {
	round, _ := cmd.Flags().GetInt("round")
	sender, _ := cmd.Flags().GetString("sender")
	msgType, _ := cmd.Flags().GetString("type")

	tb, err := openTable()
	if err != nil {
		return err
	}
	defer tb.Close()

	msgs, err := tb.Messages(transcript.Filter{
		Round:  round,
		Sender: sender,
		Type:   protocol.MessageType(msgType),
	})
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		fmt.Println("No messages.")
		return nil
	}

	fmt.Print(transcript.Text(msgs))
	return nil
}
