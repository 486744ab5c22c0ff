package model

import "context"

// ScoreResult is one validator's output of a scoring pass.
type ScoreResult struct {
	ValidatorID string   `json:"validator_id" yaml:"validator_id"`
	Score       int64    `json:"score"        yaml:"score"`
	Weighted    int64    `json:"weighted"     yaml:"weighted"`
	Model       int64    `json:"model"        yaml:"model"`
	Clamped     []string `json:"clamped,omitempty" yaml:"clamped,omitempty"`
}

// Scorer computes a validator's score from its metrics.
type Scorer interface {
	// Score computes a score, honoring ctx for cancellation.
	Score(ctx context.Context, m ValidatorMetrics) (ScoreResult, error)
}

// Job is one validator's unit of work within a round.
type Job struct {
	RoundID string
	Index   int
	Metrics ValidatorMetrics
	Scorer  Scorer
	Reply   chan<- Outcome
}

// Outcome is the reply to a Job.
type Outcome struct {
	Index  int
	Result ScoreResult
	Err    error
}
