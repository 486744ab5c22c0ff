// Package selector turns a round's complete score set into a deterministic
// ranking.
//
// The order is total: score descending, then validator ID ascending
// compared byte-wise. Positions are 1-based; interpreting them as verifier
// membership or leadership is the caller's concern.
package selector

import (
	"fmt"
	"slices"
	"strings"

	"github.com/okian/fairness/internal/domain/dedupe"
	"github.com/okian/fairness/internal/domain/model"
	"github.com/okian/fairness/internal/domain/types"
)

// Compare orders a before b when it returns a negative number.
func Compare(a, b types.Entry) int {
	if a.Score != b.Score {
		if a.Score > b.Score {
			return -1
		}
		return 1
	}
	return strings.Compare(a.ValidatorID, b.ValidatorID)
}

// Rank orders the complete score set of a round. The input is not modified.
func Rank(results []model.ScoreResult) ([]types.Entry, error) {
	if len(results) == 0 {
		return nil, ErrEmptyRound
	}
	seen := dedupe.NewInMemoryDeduper(dedupe.WithCapacity(len(results)))
	entries := make([]types.Entry, len(results))
	for i, r := range results {
		if seen.SeenAndRecord(r.ValidatorID) {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateValidator, r.ValidatorID)
		}
		entries[i] = types.Entry{ValidatorID: r.ValidatorID, Score: r.Score}
	}
	slices.SortFunc(entries, Compare)
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// TopN returns the first n entries of a ranking.
func TopN(entries []types.Entry, n int) ([]types.Entry, error) {
	if n <= 0 || n > len(entries) {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidLimit, n, len(entries))
	}
	out := make([]types.Entry, n)
	copy(out, entries[:n])
	return out, nil
}
