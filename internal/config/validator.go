package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "consensus.min_voters")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidStrategies returns the list of valid deliberation strategies
func ValidStrategies() []string {
	return []string{"default", "strict", "lenient", "democratic", "autocratic"}
}

// ValidConsensusModes returns the list of valid consensus modes
func ValidConsensusModes() []string {
	return []string{"simple_majority", "supermajority", "unanimous", "weighted"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateTable()...)
	errors = append(errors, c.validateConsensus()...)
	errors = append(errors, c.validateNegotiation()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateTable() []ValidationError {
	var errors []ValidationError

	if c.Table.MaxRounds < 1 {
		errors = append(errors, ValidationError{
			Field:   "table.max_rounds",
			Value:   c.Table.MaxRounds,
			Message: "must be at least 1",
		})
	}
	if c.Table.Strategy != "" && !slices.Contains(ValidStrategies(), c.Table.Strategy) {
		errors = append(errors, ValidationError{
			Field:   "table.strategy",
			Value:   c.Table.Strategy,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidStrategies(), ", ")),
		})
	}
	if c.Table.CircularDepth < 2 {
		errors = append(errors, ValidationError{
			Field:   "table.circular_depth",
			Value:   c.Table.CircularDepth,
			Message: "must be at least 2",
		})
	}
	if c.Table.DeadlockThreshold < 1 {
		errors = append(errors, ValidationError{
			Field:   "table.deadlock_threshold",
			Value:   c.Table.DeadlockThreshold,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateConsensus() []ValidationError {
	var errors []ValidationError

	if c.Consensus.Mode != "" && !slices.Contains(ValidConsensusModes(), c.Consensus.Mode) {
		errors = append(errors, ValidationError{
			Field:   "consensus.mode",
			Value:   c.Consensus.Mode,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidConsensusModes(), ", ")),
		})
	}
	if c.Consensus.MinVoters < 1 {
		errors = append(errors, ValidationError{
			Field:   "consensus.min_voters",
			Value:   c.Consensus.MinVoters,
			Message: "must be at least 1",
		})
	}
	if c.Consensus.ArbiterWeight <= 0 {
		errors = append(errors, ValidationError{
			Field:   "consensus.arbiter_weight",
			Value:   c.Consensus.ArbiterWeight,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateNegotiation() []ValidationError {
	var errors []ValidationError

	if c.Negotiation.MaxRounds < 1 {
		errors = append(errors, ValidationError{
			Field:   "negotiation.max_rounds",
			Value:   c.Negotiation.MaxRounds,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative",
		})
	}
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
