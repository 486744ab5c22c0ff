package harness

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/fairness/internal/domain/types"
)

// Sentinel kinds for harness errors.
var (
	ErrDeterminismViolation = errors.New("determinism violation")
	ErrBaselineNotFound     = errors.New("no baseline for this architecture")
	ErrUnknownCorpusVersion = errors.New("unknown corpus version")
	ErrCorpusSize           = errors.New("invalid corpus size")
	ErrIncompleteRound      = errors.New("pipeline returned an incomplete round")
)

// Mismatch is one differing field between two reports.
type Mismatch struct {
	Index       int    `json:"index"        yaml:"index"` // -1 for report-level fields
	ValidatorID string `json:"validator_id" yaml:"validator_id,omitempty"`
	Field       string `json:"field"        yaml:"field"`
	Expected    string `json:"expected"     yaml:"expected"`
	Actual      string `json:"actual"       yaml:"actual"`
}

// DeterminismViolation carries both reports so the raw results can be
// diffed. It matches ErrDeterminismViolation.
type DeterminismViolation struct {
	Source     string // "baseline" or "cross-check"
	Expected   types.Report
	Actual     types.Report
	Mismatches []Mismatch
}

func (e *DeterminismViolation) Error() string {
	fields := make([]string, 0, 3)
	for _, m := range e.Mismatches {
		if len(fields) == cap(fields) {
			break
		}
		if m.Index < 0 {
			fields = append(fields, m.Field)
		} else {
			fields = append(fields, fmt.Sprintf("vector %d %s", m.Index, m.Field))
		}
	}
	return fmt.Sprintf("%s against %s: final digest %s, expected %s; %d mismatches (%s)",
		ErrDeterminismViolation, e.Source, e.Actual.FinalDigest, e.Expected.FinalDigest,
		len(e.Mismatches), strings.Join(fields, ", "))
}

// Is reports whether target is ErrDeterminismViolation.
func (e *DeterminismViolation) Is(target error) bool {
	return target == ErrDeterminismViolation
}
