// Package config loads and validates run configuration.
package config

import (
	"errors"
	"time"
)

// Defaults applied when the config file and environment leave a knob unset.
const (
	DefaultMode             = "batch"
	DefaultMaxFilesPerGroup = 4
	DefaultMaxRetryRounds   = 2
	DefaultMaxAttempts      = 3
	DefaultRetryDelay       = time.Second
	DefaultCallTimeout      = 5 * time.Minute
	DefaultWorkers          = 4
	DefaultOutputDir        = "output"
)

// StrategyConfig describes one extraction strategy: which provider runs,
// how files are grouped, and how failures are retried.
type StrategyConfig struct {
	// Approach names the strategy for artifacts and reports.
	Approach string `mapstructure:"approach" yaml:"approach" json:"approach"`

	// Provider is the registered provider name.
	Provider string `mapstructure:"provider" yaml:"provider" json:"provider"`

	// Model is the model identifier sent with each call.
	Model string `mapstructure:"model" yaml:"model" json:"model"`

	// Mode is "batch" (one call per group) or "parallel" (one call per file).
	Mode string `mapstructure:"mode" yaml:"mode" json:"mode"`

	// Endpoint overrides the provider's API endpoint.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty" json:"endpoint,omitempty"`

	// MaxFilesPerGroup bounds group size at partition time.
	MaxFilesPerGroup int `mapstructure:"max_files_per_group" yaml:"max_files_per_group" json:"max_files_per_group"`

	// MaxRetryRounds bounds content retry rounds for missing fields.
	MaxRetryRounds int `mapstructure:"max_retry_rounds" yaml:"max_retry_rounds" json:"max_retry_rounds"`

	// MaxAttempts bounds transport-level attempts per call.
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts" json:"max_attempts"`

	// RetryDelay is the transport backoff unit.
	RetryDelay time.Duration `mapstructure:"retry_delay" yaml:"retry_delay" json:"retry_delay"`

	// CallTimeout bounds one provider call.
	CallTimeout time.Duration `mapstructure:"call_timeout" yaml:"call_timeout" json:"call_timeout"`

	// Workers bounds in-group concurrency in parallel mode.
	Workers int `mapstructure:"workers" yaml:"workers" json:"workers"`
}

// Config is the top-level run configuration.
type Config struct {
	// InputDir is the directory walked for input documents.
	InputDir string `mapstructure:"input_dir"`

	// Extensions filters discovered files (e.g. [".pdf"]). Empty accepts all.
	Extensions []string `mapstructure:"extensions"`

	// OutputDir receives artifacts, CSV mirrors, and checkpoints.
	OutputDir string `mapstructure:"output_dir"`

	// Prompt is the extraction instruction sent with every call.
	Prompt string `mapstructure:"prompt"`

	// MandatoryKeys are the fields every in-scope document must fill.
	MandatoryKeys []string `mapstructure:"mandatory_keys"`

	// BenchmarkCSV points at a reference dataset. Empty disables comparison.
	BenchmarkCSV string `mapstructure:"benchmark_csv"`

	// PriceFile points at the YAML pricing table. Empty disables the cost block.
	PriceFile string `mapstructure:"price_file"`

	// CheckpointPath overrides the checkpoint location. Empty derives it
	// from OutputDir.
	CheckpointPath string `mapstructure:"checkpoint_path"`

	// Resume controls whether a prior checkpoint is honored.
	Resume bool `mapstructure:"resume"`

	// Strategy is the single-run strategy.
	Strategy StrategyConfig `mapstructure:"strategy"`
}

// Sentinel errors for configuration validation.
var (
	// ErrNoInputDir indicates the input directory is unset.
	ErrNoInputDir = errors.New("input_dir is required")
	// ErrNoProvider indicates the strategy names no provider.
	ErrNoProvider = errors.New("strategy.provider is required")
	// ErrInvalidMode indicates the mode is neither batch nor parallel.
	ErrInvalidMode = errors.New("strategy.mode must be batch or parallel")
	// ErrInvalidGroupSize indicates a non-positive group size.
	ErrInvalidGroupSize = errors.New("strategy.max_files_per_group must be positive")
	// ErrInvalidRetryRounds indicates a negative retry round bound.
	ErrInvalidRetryRounds = errors.New("strategy.max_retry_rounds must be non-negative")
	// ErrInvalidAttempts indicates a non-positive attempt bound.
	ErrInvalidAttempts = errors.New("strategy.max_attempts must be positive")
	// ErrInvalidWorkers indicates a non-positive worker count.
	ErrInvalidWorkers = errors.New("strategy.workers must be positive")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return ErrNoInputDir
	}

	return c.Strategy.Validate()
}

// Validate checks StrategyConfig invariants.
func (s *StrategyConfig) Validate() error {
	if s.Provider == "" {
		return ErrNoProvider
	}

	if s.Mode != "batch" && s.Mode != "parallel" {
		return ErrInvalidMode
	}

	if s.MaxFilesPerGroup <= 0 {
		return ErrInvalidGroupSize
	}

	if s.MaxRetryRounds < 0 {
		return ErrInvalidRetryRounds
	}

	if s.MaxAttempts <= 0 {
		return ErrInvalidAttempts
	}

	if s.Workers <= 0 {
		return ErrInvalidWorkers
	}

	return nil
}

// ApplyDefaults fills unset strategy knobs. Plan entries loaded outside
// viper go through this before validation.
func (s *StrategyConfig) ApplyDefaults() {
	if s.Approach == "" {
		s.Approach = "default"
	}

	if s.Mode == "" {
		s.Mode = DefaultMode
	}

	if s.MaxFilesPerGroup == 0 {
		s.MaxFilesPerGroup = DefaultMaxFilesPerGroup
	}

	if s.MaxRetryRounds == 0 {
		s.MaxRetryRounds = DefaultMaxRetryRounds
	}

	if s.MaxAttempts == 0 {
		s.MaxAttempts = DefaultMaxAttempts
	}

	if s.RetryDelay == 0 {
		s.RetryDelay = DefaultRetryDelay
	}

	if s.CallTimeout == 0 {
		s.CallTimeout = DefaultCallTimeout
	}

	if s.Workers == 0 {
		s.Workers = DefaultWorkers
	}
}
