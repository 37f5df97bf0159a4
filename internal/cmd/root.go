// Package cmd implements the tribunal command line interface. Each
// protocol action is a single-shot command: state is rehydrated from
// the session directory at entry and persisted before exit.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/Iron-Ham/tribunal/internal/config"
	"github.com/Iron-Ham/tribunal/internal/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "tribunal",
	Short: "Multi-agent deliberation engine",
	Long: `Tribunal coordinates an iterative deliberation over a single task:
a Doer proposes work, a Critic reviews it, and an Arbiter resolves
disagreement and gives final sign-off, across bounded rounds.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/tribunal/config.yaml)")
	rootCmd.PersistentFlags().StringP("dir", "d", "", "session directory (default is .tribunal in the working directory)")
	rootCmd.PersistentFlags().Bool("strict", false, "treat role/phase validation warnings as errors")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("paths.session_dir", rootCmd.PersistentFlags().Lookup("dir"))
	_ = viper.BindPFlag("table.strict", rootCmd.PersistentFlags().Lookup("strict"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/tribunal")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("TRIBUNAL")
	// Replace dots with underscores for nested keys in env vars
	// e.g., TRIBUNAL_TABLE_MAX_ROUNDS for table.max_rounds
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// sessionDir resolves the session directory from flags and config.
func sessionDir(cfg *config.Config) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return cfg.Paths.ResolveSessionDir(cwd), nil
}

// openTable loads configuration and opens the session table.
func openTable() (*table.Table, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	dir, err := sessionDir(cfg)
	if err != nil {
		return nil, err
	}
	tb, err := table.New(dir, cfg)
	if err != nil {
		return nil, err
	}
	if viper.GetBool("table.strict") {
		tb.SetStrict(true)
	}
	return tb, nil
}

// printSent reports a persisted message on stdout.
func printSent(action string, sender, recipient string, round int) {
	fmt.Printf("%s recorded: %s -> %s (round %d)\n", action, sender, recipient, round)
}
