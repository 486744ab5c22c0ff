package harness

import (
	"context"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/fairness/internal/domain/model"
	"github.com/okian/fairness/internal/domain/scoring"
	"github.com/okian/fairness/internal/domain/selector"
	"github.com/okian/fairness/internal/domain/types"
)

// ParallelPipeline scores a round directly on a FairnessModel with a
// bounded errgroup. It shares no code path with the queue and worker
// pool, which makes it the cross-check for the service.
type ParallelPipeline struct {
	fm    *scoring.FairnessModel
	limit int
}

var _ Pipeline = (*ParallelPipeline)(nil)

// NewParallelPipeline creates a pipeline running at most limit scorings at
// once; limit < 1 means one per CPU.
func NewParallelPipeline(fm *scoring.FairnessModel, limit int) *ParallelPipeline {
	if limit < 1 {
		limit = runtime.NumCPU()
	}
	return &ParallelPipeline{fm: fm, limit: limit}
}

// ScoreRound scores every validator and ranks the complete set.
func (p *ParallelPipeline) ScoreRound(ctx context.Context, batch []model.ValidatorMetrics) (types.Round, error) {
	results := make([]model.ScoreResult, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)
	for i := range batch {
		g.Go(func() error {
			r, err := p.fm.Score(gctx, batch[i])
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return types.Round{}, err
	}

	ranking, err := selector.Rank(results)
	if err != nil {
		return types.Round{}, err
	}
	return types.Round{
		RoundID:     uuid.NewString(),
		ModelHash:   p.fm.ModelHash(),
		Fingerprint: p.fm.Fingerprint(),
		Results:     results,
		Ranking:     ranking,
	}, nil
}
