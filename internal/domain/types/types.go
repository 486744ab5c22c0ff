// Package types contains common types used across the application
package types

import (
	"time"

	"github.com/okian/fairness/internal/domain/model"
)

// Entry is one position of a round's ranking.
type Entry struct {
	Rank        int    `json:"rank"         yaml:"rank"`
	ValidatorID string `json:"validator_id" yaml:"validator_id"`
	Score       int64  `json:"score"        yaml:"score"`
}

// Round is one scored and ranked validator set. Results keep input order.
type Round struct {
	RoundID     string              `json:"round_id"     yaml:"round_id"`
	ModelHash   string              `json:"model_hash"   yaml:"model_hash"`
	Fingerprint string              `json:"fingerprint"  yaml:"fingerprint"`
	Results     []model.ScoreResult `json:"results"      yaml:"results"`
	Ranking     []Entry             `json:"ranking"      yaml:"ranking"`
}

// VectorResult is the harness output for one corpus vector.
type VectorResult struct {
	Index       int      `json:"index"             yaml:"index"`
	ValidatorID string   `json:"validator_id"      yaml:"validator_id"`
	Score       int64    `json:"score"             yaml:"score"`
	Weighted    int64    `json:"weighted"          yaml:"weighted"`
	Model       int64    `json:"model"             yaml:"model"`
	Rank        int      `json:"rank"              yaml:"rank"`
	Clamped     []string `json:"clamped,omitempty" yaml:"clamped,omitempty"`
	Digest      string   `json:"digest"            yaml:"digest"`
}

// Report is a determinism harness run.
type Report struct {
	CorpusVersion int            `json:"corpus_version" yaml:"corpus_version"`
	VectorCount   int            `json:"vector_count"   yaml:"vector_count"`
	ModelHash     string         `json:"model_hash"     yaml:"model_hash"`
	Fingerprint   string         `json:"fingerprint"    yaml:"fingerprint"`
	Architecture  string         `json:"architecture"   yaml:"architecture"`
	FinalDigest   string         `json:"final_digest"   yaml:"final_digest"`
	GeneratedAt   time.Time      `json:"generated_at"   yaml:"generated_at"`
	Results       []VectorResult `json:"results"        yaml:"results"`
}
