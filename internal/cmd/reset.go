package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the session, preserving trust scores",
	Long: `Remove the current session's table data (state, transcript, rounds)
so a new session can be initialized. Trust scores accumulated across
sessions are preserved.`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "skip confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	tb, err := openTable()
	if err != nil {
		return err
	}
	defer tb.Close()

	if !resetForce {
		fmt.Print("Reset the session? Table data will be removed. [y/N]: ")
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := tb.Reset(); err != nil {
		return err
	}
	fmt.Println("Session reset. Trust scores preserved.")
	return nil
}
