package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var initCmd = &cobra.Command{
	Use:   "init <task description>",
	Short: "Start a new deliberation session",
	Long: `Start a new deliberation session for the given task.
This creates the session directory with the state file, transcript,
and trust ledger. Fails if an active session already exists.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().Int("max-rounds", 0, "override the configured round budget")
	initCmd.Flags().String("strategy", "", "deliberation strategy (default, strict, lenient, democratic, autocratic)")
	_ = viper.BindPFlag("table.max_rounds", initCmd.Flags().Lookup("max-rounds"))
	_ = viper.BindPFlag("table.strategy", initCmd.Flags().Lookup("strategy"))
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	tb, err := openTable()
	if err != nil {
		return err
	}
	defer tb.Close()

	task := strings.Join(args, " ")
	st, err := tb.Initialize(task)
	if err != nil {
		return fmt.Errorf("failed to initialize session: %w", err)
	}

	fmt.Println("Session initialized.")
	fmt.Printf("Task: %s\n", st.Task)
	fmt.Printf("Strategy: %s\n", st.Config.Strategy)
	fmt.Printf("Max rounds: %d\n", st.Config.MaxRounds)
	fmt.Printf("Session directory: %s\n", tb.Dir())
	fmt.Println("\nRun 'tribunal round' to open the first round.")
	return nil
}
