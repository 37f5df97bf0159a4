// Package config defines the tribunal configuration, loaded through
// viper from config files, environment, and flags.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete tribunal configuration
type Config struct {
	Table       TableConfig       `mapstructure:"table"`
	Consensus   ConsensusConfig   `mapstructure:"consensus"`
	Negotiation NegotiationConfig `mapstructure:"negotiation"`
	Trust       TrustConfig       `mapstructure:"trust"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Paths       PathsConfig       `mapstructure:"paths"`
}

// TableConfig controls the deliberation protocol
type TableConfig struct {
	// MaxRounds is the maximum deliberation rounds before forced finalization (default: 10)
	MaxRounds int `mapstructure:"max_rounds"`
	// Strategy selects the deliberation strategy:
	// "default", "strict", "lenient", "democratic", "autocratic"
	Strategy string `mapstructure:"strategy"`
	// AutoEscalate hands rejections to the arbiter automatically (default: true)
	AutoEscalate bool `mapstructure:"auto_escalate"`
	// RequireUnanimous requires critic approval before the arbiter may sign off
	RequireUnanimous bool `mapstructure:"require_unanimous"`
	// CircularDepth is the thread depth at which repeated back-and-forth
	// between two agents is flagged as a circular argument (default: 6)
	CircularDepth int `mapstructure:"circular_depth"`
	// DeadlockThreshold is the number of consecutive rejected rounds
	// before the session is reported as deadlocked (default: 3)
	DeadlockThreshold int `mapstructure:"deadlock_threshold"`
}

// ConsensusConfig controls vote evaluation
type ConsensusConfig struct {
	// Mode selects the quorum rule:
	// "simple_majority", "supermajority", "unanimous", "weighted"
	Mode string `mapstructure:"mode"`
	// MinVoters is the quorum size; fewer votes means no decision (default: 2)
	MinVoters int `mapstructure:"min_voters"`
	// ArbiterWeight is the vote weight applied to arbiter ballots (default: 1.5)
	ArbiterWeight float64 `mapstructure:"arbiter_weight"`
}

// NegotiationConfig controls multi-turn negotiation limits
type NegotiationConfig struct {
	// MaxRounds is the counter-proposal budget before deadlock (default: 5)
	MaxRounds int `mapstructure:"max_rounds"`
}

// TrustConfig controls the trust ledger
type TrustConfig struct {
	// Enabled turns trust tracking on (default: true)
	Enabled bool `mapstructure:"enabled"`
	// WeightVotes applies trust scores as vote weights in weighted
	// consensus (default: true)
	WeightVotes bool `mapstructure:"weight_votes"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// PathsConfig controls where tribunal stores session data
type PathsConfig struct {
	// SessionDir is where transcripts, state, and trust scores live.
	// Empty means ".tribunal" relative to the working directory.
	// Supports ~ for home directory expansion.
	SessionDir string `mapstructure:"session_dir"`
}

// ResolveSessionDir returns the resolved session directory path.
// Relative paths resolve against baseDir; ~ expands to the home
// directory.
func (p *PathsConfig) ResolveSessionDir(baseDir string) string {
	if p.SessionDir == "" {
		return filepath.Join(baseDir, ".tribunal")
	}

	path := p.SessionDir
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	} else if len(path) > 1 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	return path
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Table: TableConfig{
			MaxRounds:         10,
			Strategy:          "default",
			AutoEscalate:      true,
			RequireUnanimous:  false,
			CircularDepth:     6,
			DeadlockThreshold: 3,
		},
		Consensus: ConsensusConfig{
			Mode:          "simple_majority",
			MinVoters:     2,
			ArbiterWeight: 1.5,
		},
		Negotiation: NegotiationConfig{
			MaxRounds: 5,
		},
		Trust: TrustConfig{
			Enabled:     true,
			WeightVotes: true,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Paths: PathsConfig{
			SessionDir: "",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("table.max_rounds", defaults.Table.MaxRounds)
	viper.SetDefault("table.strategy", defaults.Table.Strategy)
	viper.SetDefault("table.auto_escalate", defaults.Table.AutoEscalate)
	viper.SetDefault("table.require_unanimous", defaults.Table.RequireUnanimous)
	viper.SetDefault("table.circular_depth", defaults.Table.CircularDepth)
	viper.SetDefault("table.deadlock_threshold", defaults.Table.DeadlockThreshold)

	viper.SetDefault("consensus.mode", defaults.Consensus.Mode)
	viper.SetDefault("consensus.min_voters", defaults.Consensus.MinVoters)
	viper.SetDefault("consensus.arbiter_weight", defaults.Consensus.ArbiterWeight)

	viper.SetDefault("negotiation.max_rounds", defaults.Negotiation.MaxRounds)

	viper.SetDefault("trust.enabled", defaults.Trust.Enabled)
	viper.SetDefault("trust.weight_votes", defaults.Trust.WeightVotes)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	viper.SetDefault("paths.session_dir", defaults.Paths.SessionDir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults if
// loading fails.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tribunal")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tribunal"
	}
	return filepath.Join(home, ".config", "tribunal")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
