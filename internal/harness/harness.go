// Package harness proves that scoring is a pure function of the model
// bytes and the input. It scores a versioned corpus, digests every output
// value and compares the digests with a stored per-architecture baseline
// and, optionally, with a second independent scoring path.
package harness

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/okian/fairness/internal/adapters/repository"
	"github.com/okian/fairness/internal/domain/model"
	"github.com/okian/fairness/internal/domain/types"
	"github.com/okian/fairness/pkg/logger"
	"github.com/okian/fairness/pkg/metrics"
)

// Run modes, used as metric labels.
const (
	ModeRun     = "run"
	ModeSave    = "save"
	ModeCompare = "compare"
)

// Pipeline scores and ranks one round.
type Pipeline interface {
	ScoreRound(ctx context.Context, batch []model.ValidatorMetrics) (types.Round, error)
}

// Harness runs the determinism corpus through a pipeline.
type Harness struct {
	pipeline      Pipeline
	crossCheck    Pipeline
	store         repository.Store
	corpusVersion int
	corpusSize    int
	arch          string
	log           logger.Logger
	now           func() time.Time
}

// New creates a harness. store may be nil when only Run is used.
func New(pipeline Pipeline, store repository.Store, opts ...Option) *Harness {
	h := &Harness{
		pipeline:      pipeline,
		store:         store,
		corpusVersion: CorpusV1,
		corpusSize:    DefaultCorpusSize,
		arch:          DefaultArchitecture(),
		log:           logger.Named("harness"),
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Architecture returns the baseline key used by SaveBaseline and Compare.
func (h *Harness) Architecture() string {
	return h.arch
}

// Run scores the corpus and returns its report. With a cross-check
// pipeline configured, a differing second pass is a *DeterminismViolation.
func (h *Harness) Run(ctx context.Context) (types.Report, error) {
	report, err := h.run(ctx)
	h.record(ModeRun, err)
	return report, err
}

// SaveBaseline runs the corpus and stores the report under the
// architecture key, replacing any previous baseline.
func (h *Harness) SaveBaseline(ctx context.Context) (types.Report, error) {
	report, err := h.run(ctx)
	if err == nil {
		err = h.requireStore()
	}
	if err == nil {
		err = h.store.Save(ctx, h.arch, report)
	}
	h.record(ModeSave, err)
	if err != nil {
		return report, err
	}
	h.log.Info(ctx, "baseline saved",
		logger.String("architecture", h.arch),
		logger.String("final_digest", report.FinalDigest),
		logger.Int("vectors", report.VectorCount),
	)
	return report, nil
}

// Compare runs the corpus and checks it against the stored baseline.
// A missing baseline is ErrBaselineNotFound; any differing digest, model
// hash or fingerprint is a *DeterminismViolation.
func (h *Harness) Compare(ctx context.Context) (types.Report, error) {
	report, err := h.compare(ctx)
	h.record(ModeCompare, err)
	return report, err
}

func (h *Harness) compare(ctx context.Context) (types.Report, error) {
	if err := h.requireStore(); err != nil {
		return types.Report{}, err
	}
	baseline, err := h.store.Load(ctx, h.arch)
	if errors.Is(err, repository.ErrNotFound) {
		return types.Report{}, fmt.Errorf("%w: %s", ErrBaselineNotFound, h.arch)
	}
	if err != nil {
		return types.Report{}, err
	}

	report, err := h.run(ctx)
	if err != nil {
		return report, err
	}
	if mismatches := Diff(baseline, report); len(mismatches) > 0 {
		v := &DeterminismViolation{Source: "baseline", Expected: baseline, Actual: report, Mismatches: mismatches}
		h.log.Error(ctx, "determinism violation",
			logger.String("architecture", h.arch),
			logger.String("expected_digest", baseline.FinalDigest),
			logger.String("actual_digest", report.FinalDigest),
			logger.Int("mismatches", len(mismatches)),
		)
		return report, v
	}
	h.log.Info(ctx, "baseline matched",
		logger.String("architecture", h.arch),
		logger.String("final_digest", report.FinalDigest),
	)
	return report, nil
}

func (h *Harness) run(ctx context.Context) (types.Report, error) {
	corpus, err := Corpus(h.corpusVersion, h.corpusSize)
	if err != nil {
		return types.Report{}, err
	}
	report, err := h.score(ctx, h.pipeline, corpus)
	if err != nil {
		return types.Report{}, err
	}
	if h.crossCheck == nil {
		return report, nil
	}

	second, err := h.score(ctx, h.crossCheck, corpus)
	if err != nil {
		return report, fmt.Errorf("cross-check: %w", err)
	}
	if mismatches := Diff(report, second); len(mismatches) > 0 {
		return report, &DeterminismViolation{Source: "cross-check", Expected: report, Actual: second, Mismatches: mismatches}
	}
	return report, nil
}

func (h *Harness) score(ctx context.Context, p Pipeline, corpus []model.ValidatorMetrics) (types.Report, error) {
	round, err := p.ScoreRound(ctx, corpus)
	if err != nil {
		return types.Report{}, err
	}
	if len(round.Results) != len(corpus) || len(round.Ranking) != len(corpus) {
		return types.Report{}, fmt.Errorf("%w: %d results, %d ranked, %d vectors",
			ErrIncompleteRound, len(round.Results), len(round.Ranking), len(corpus))
	}

	ranks := make(map[string]int, len(round.Ranking))
	for _, e := range round.Ranking {
		ranks[e.ValidatorID] = e.Rank
	}

	results := make([]types.VectorResult, len(corpus))
	for i, r := range round.Results {
		if r.ValidatorID != corpus[i].ValidatorID {
			return types.Report{}, fmt.Errorf("%w: vector %d is %q, want %q",
				ErrIncompleteRound, i, r.ValidatorID, corpus[i].ValidatorID)
		}
		v := types.VectorResult{
			Index:       i,
			ValidatorID: r.ValidatorID,
			Score:       r.Score,
			Weighted:    r.Weighted,
			Model:       r.Model,
			Rank:        ranks[r.ValidatorID],
			Clamped:     r.Clamped,
		}
		v.Digest = vectorDigest(&v)
		results[i] = v
	}
	final, err := finalDigest(results)
	if err != nil {
		return types.Report{}, err
	}

	return types.Report{
		CorpusVersion: h.corpusVersion,
		VectorCount:   len(results),
		ModelHash:     round.ModelHash,
		Fingerprint:   round.Fingerprint,
		Architecture:  h.arch,
		FinalDigest:   final,
		GeneratedAt:   h.now(),
		Results:       results,
	}, nil
}

func (h *Harness) requireStore() error {
	if h.store == nil {
		return errors.New("harness has no baseline store")
	}
	return nil
}

func (h *Harness) record(mode string, err error) {
	outcome := "match"
	switch {
	case err == nil:
	case errors.Is(err, ErrDeterminismViolation):
		outcome = "violation"
	case errors.Is(err, ErrBaselineNotFound):
		outcome = "missing_baseline"
	default:
		outcome = "error"
	}
	metrics.RecordHarnessRun(mode, outcome)
}

// Diff lists the differences between two reports. Timestamps and the
// architecture label are not compared.
func Diff(expected, actual types.Report) []Mismatch { //nolint:gocritic // hugeParam: reports are values
	var out []Mismatch
	top := func(field, e, a string) {
		if e != a {
			out = append(out, Mismatch{Index: -1, Field: field, Expected: e, Actual: a})
		}
	}
	top("corpus_version", strconv.Itoa(expected.CorpusVersion), strconv.Itoa(actual.CorpusVersion))
	top("vector_count", strconv.Itoa(expected.VectorCount), strconv.Itoa(actual.VectorCount))
	top("model_hash", expected.ModelHash, actual.ModelHash)
	top("fingerprint", expected.Fingerprint, actual.Fingerprint)
	top("final_digest", expected.FinalDigest, actual.FinalDigest)

	n := min(len(expected.Results), len(actual.Results))
	for i := range n {
		e, a := &expected.Results[i], &actual.Results[i]
		field := func(name, ev, av string) {
			if ev != av {
				out = append(out, Mismatch{Index: i, ValidatorID: e.ValidatorID, Field: name, Expected: ev, Actual: av})
			}
		}
		field("validator_id", e.ValidatorID, a.ValidatorID)
		field("score", strconv.FormatInt(e.Score, 10), strconv.FormatInt(a.Score, 10))
		field("weighted", strconv.FormatInt(e.Weighted, 10), strconv.FormatInt(a.Weighted, 10))
		field("model", strconv.FormatInt(e.Model, 10), strconv.FormatInt(a.Model, 10))
		field("rank", strconv.Itoa(e.Rank), strconv.Itoa(a.Rank))
		field("clamped", strings.Join(e.Clamped, ","), strings.Join(a.Clamped, ","))
		field("digest", e.Digest, a.Digest)
	}
	return out
}
