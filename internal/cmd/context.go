package cmd

import (
	"fmt"

	"github.com/Iron-Ham/tribunal/internal/protocol"
	"github.com/spf13/cobra"
)

var contextCmd = &cobra.Command{
	Use:   "context <role>",
	Short: "Render the prompt context for a role",
	Long: `Render the markdown context prompt for the given role (doer, critic,
or arbiter): the task, the messages that role should react to, trust
standing, and open negotiations.`,
	Args: cobra.ExactArgs(1),
	RunE: runContext,
}

func init() {
	rootCmd.AddCommand(contextCmd)
}

func runContext(cmd *cobra.Command, args []string) error {
	tb, err := openTable()
	if err != nil {
		return err
	}
	defer tb.Close()

	var text string
	switch args[0] {
	case protocol.RoleDoer:
		text, err = tb.DoerContext()
	case protocol.RoleCritic:
		text, err = tb.CriticContext()
	case protocol.RoleArbiter:
		text, err = tb.ArbiterContext()
	default:
		return fmt.Errorf("unknown role %q (want doer, critic, or arbiter)", args[0])
	}
	if err != nil {
		return err
	}

	fmt.Println(text)
	return nil
}
