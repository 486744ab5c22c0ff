// Package config defines operator configuration and its loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and the environment over the defaults.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/okian/fairness/internal/domain/scoring"
	"github.com/okian/fairness/internal/harness"
	"github.com/okian/fairness/internal/integrity"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// ModelPath is the D-GBDT model file.
	ModelPath string `koanf:"model_path"`

	// ExpectedHash is the operator's pinned BLAKE3-256 of the model file.
	ExpectedHash string `koanf:"expected_hash"`

	// MaxModelBytes caps the model file size read by the gate.
	MaxModelBytes int64 `koanf:"max_model_bytes"`

	// WorkerCount sets the number of scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory job queue.
	QueueSize int `koanf:"queue_size"`

	// FairnessVersion labels the profile and feeds its fingerprint.
	FairnessVersion string `koanf:"fairness_version"`

	// Weights are integer percentages per metric summing to 100. When set
	// they replace the default weights as a whole.
	Weights map[string]int64 `koanf:"weights"`

	BlendEnabled         bool  `koanf:"blend_enabled"`
	BlendWeightedPercent int64 `koanf:"blend_weighted_percent"`
	BlendModelPercent    int64 `koanf:"blend_model_percent"`

	// BaselineDir holds per-architecture determinism baselines.
	BaselineDir string `koanf:"baseline_dir"`

	CorpusVersion int `koanf:"corpus_version"`
	CorpusSize    int `koanf:"corpus_size"`

	// MetricsTextfile, when set, receives the metrics registry on exit.
	MetricsTextfile string `koanf:"metrics_textfile"`

	// Addr is the HTTP listen address for serve.
	Addr string `koanf:"addr"`

	// MaxRoundSize caps the validators accepted in one HTTP round.
	MaxRoundSize int `koanf:"max_round_size"`
}

// New creates a Config with defaults.
func New() *Config {
	p := scoring.DefaultProfile()
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		ModelPath:            "models/fairness_v1.json",
		MaxModelBytes:        integrity.DefaultMaxBytes,
		WorkerCount:          runtime.NumCPU(),
		QueueSize:            4096,
		FairnessVersion:      p.Version,
		BlendEnabled:         p.Blend.Enabled,
		BlendWeightedPercent: p.Blend.WeightedPercent,
		BlendModelPercent:    p.Blend.ModelPercent,
		BaselineDir:          "baselines",
		CorpusVersion:        harness.CorpusV1,
		CorpusSize:           harness.DefaultCorpusSize,
		Addr:                 ":9080",
		MaxRoundSize:         10000,
	}
}

// Profile builds the fairness profile the configuration describes.
func (c *Config) Profile() scoring.Profile {
	p := scoring.DefaultProfile()
	p.Version = c.FairnessVersion
	if len(c.Weights) > 0 {
		p.Weights = make(map[string]int64, len(c.Weights))
		for k, v := range c.Weights {
			p.Weights[k] = v
		}
	}
	p.Blend = scoring.Blend{
		Enabled:         c.BlendEnabled,
		WeightedPercent: c.BlendWeightedPercent,
		ModelPercent:    c.BlendModelPercent,
	}
	return p
}

// Validate checks the configuration and the profile it builds.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	}
	if c.MaxRoundSize < 1 {
		return fmt.Errorf("%w: max_round_size must be positive", ErrInvalidConfig)
	}
	if c.MaxModelBytes < 1 {
		return fmt.Errorf("%w: max_model_bytes must be positive", ErrInvalidConfig)
	}
	if c.ModelPath != "" {
		if _, err := integrity.ParsePin(c.ExpectedHash); err != nil {
			return fmt.Errorf("%w: expected_hash: %w", ErrInvalidConfig, err)
		}
	} else if c.BlendEnabled {
		return fmt.Errorf("%w: blend_enabled requires model_path", ErrInvalidConfig)
	}
	if _, err := harness.Corpus(c.CorpusVersion, 1); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.CorpusSize < 1 || c.CorpusSize > harness.MaxCorpusSize {
		return fmt.Errorf("%w: corpus_size %d", ErrInvalidConfig, c.CorpusSize)
	}
	if err := c.Profile().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
