package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	service "github.com/okian/fairness/internal/app"
	"github.com/okian/fairness/internal/domain/dgbdt"
	"github.com/okian/fairness/internal/domain/fixedpoint"
	"github.com/okian/fairness/internal/domain/model"
	"github.com/okian/fairness/internal/domain/selector"
	"github.com/okian/fairness/internal/harness"
	"github.com/okian/fairness/internal/integrity"
	"github.com/okian/fairness/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const goldenHash = "bc99e2719d833a9810f9f1bcb00b0573d5576ed67ab73447380bee31641876b3"

const goldenPath = "../../models/fairness_v1.json"

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func startGolden(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	opts = append([]service.Option{service.WithModel(goldenPath, goldenHash), service.WithWorkerCount(4)}, opts...)
	svc := service.New(opts...)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

// constantModel writes a single-leaf model to dir and returns its path and hash.
func constantModel(t *testing.T, dir string, value int64) (string, string) {
	t.Helper()
	m := &dgbdt.Model{
		Version:  dgbdt.FormatVersion,
		Scale:    fixedpoint.Scale,
		Features: model.MetricNames(),
		MaxScore: fixedpoint.Scale,
		Trees:    []dgbdt.Tree{{Nodes: []dgbdt.Node{dgbdt.Leaf(value)}}},
	}
	raw, err := dgbdt.Encode(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(dir, "model.json")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return path, integrity.Digest(raw)
}

func TestService_Start(t *testing.T) {
	Convey("Given the committed model", t, func() {
		ctx := context.Background()

		Convey("When started with the pinned hash", func() {
			svc := startGolden(t)

			Convey("Then the model is active", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(svc.ModelHash(), ShouldEqual, goldenHash)
				So(svc.Fingerprint(), ShouldHaveLength, 64)
			})
		})

		Convey("When started with a different hash", func() {
			svc := service.New(service.WithModel(goldenPath, "00"+goldenHash[2:]))
			err := svc.Start(ctx)

			Convey("Then the gate refuses and nothing starts", func() {
				So(errors.Is(err, integrity.ErrIntegrity), ShouldBeTrue)
				So(svc.GetStats()["started"], ShouldEqual, false)
				_, scoreErr := svc.ScoreRound(ctx, []model.ValidatorMetrics{model.NewValidatorMetrics("a", 1, 1, 1)})
				So(errors.Is(scoreErr, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When started without a model but with blending on", func() {
			err := service.New().Start(ctx)

			Convey("Then start fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestService_ScoreRound(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := startGolden(t)

		Convey("When a round is scored", func() {
			batch := []model.ValidatorMetrics{
				model.NewValidatorMetrics("low", 0, 0, 0),
				model.NewValidatorMetrics("high", 9001, 5001, 8000),
				model.NewValidatorMetrics("top", fixedpoint.Scale, fixedpoint.Scale, fixedpoint.Scale),
			}
			round, err := svc.ScoreRound(ctx, batch)

			Convey("Then results keep input order and the ranking is sorted", func() {
				So(err, ShouldBeNil)
				So(round.RoundID, ShouldNotBeEmpty)
				So(round.ModelHash, ShouldEqual, goldenHash)
				So(round.Results, ShouldHaveLength, 3)
				So(round.Results[1].ValidatorID, ShouldEqual, "high")
				So(round.Results[1].Weighted, ShouldEqual, 7500)
				So(round.Results[1].Model, ShouldEqual, 8500)
				So(round.Results[1].Score, ShouldEqual, 7800)
				So(round.Ranking[0].ValidatorID, ShouldEqual, "top")
				So(round.Ranking[1].ValidatorID, ShouldEqual, "high")
				So(round.Ranking[2].ValidatorID, ShouldEqual, "low")
				So(round.Ranking[2].Rank, ShouldEqual, 3)
			})
		})

		Convey("When the batch is empty", func() {
			_, err := svc.ScoreRound(ctx, nil)

			Convey("Then the round is rejected", func() {
				So(errors.Is(err, selector.ErrEmptyRound), ShouldBeTrue)
			})
		})

		Convey("When a validator appears twice", func() {
			_, err := svc.ScoreRound(ctx, []model.ValidatorMetrics{
				model.NewValidatorMetrics("a", 1, 1, 1),
				model.NewValidatorMetrics("a", 2, 2, 2),
			})

			Convey("Then the round is rejected", func() {
				So(errors.Is(err, selector.ErrDuplicateValidator), ShouldBeTrue)
			})
		})

		Convey("When one validator is invalid", func() {
			bad := model.NewValidatorMetrics("b", 1, 1, 1)
			bad.SchemaVersion = 99
			_, err := svc.ScoreRound(ctx, []model.ValidatorMetrics{model.NewValidatorMetrics("a", 1, 1, 1), bad})

			Convey("Then the whole round fails", func() {
				So(errors.Is(err, model.ErrSchemaVersion), ShouldBeTrue)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := svc.ScoreRound(cctx, []model.ValidatorMetrics{model.NewValidatorMetrics("a", 1, 1, 1)})

			Convey("Then the round fails with the context error", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})

		Convey("When many rounds run concurrently", func() {
			corpus, err := harness.Corpus(harness.CorpusV1, 128)
			So(err, ShouldBeNil)
			first, err := svc.ScoreRound(ctx, corpus)
			So(err, ShouldBeNil)

			var wg sync.WaitGroup
			errs := make([]error, 8)
			same := make([]bool, 8)
			for i := range errs {
				wg.Add(1)
				go func() {
					defer wg.Done()
					r, err := svc.ScoreRound(ctx, corpus)
					errs[i] = err
					same[i] = err == nil && len(r.Ranking) == len(first.Ranking)
					for j := range r.Ranking {
						same[i] = same[i] && r.Ranking[j] == first.Ranking[j]
					}
				}()
			}
			wg.Wait()

			Convey("Then every round produces the same ranking", func() {
				for i := range errs {
					So(errs[i], ShouldBeNil)
					So(same[i], ShouldBeTrue)
				}
			})
		})
	})
}

func TestService_Reload(t *testing.T) {
	Convey("Given a service running a constant model", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		path, hash := constantModel(t, dir, 5000)
		svc := service.New(service.WithModel(path, hash), service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		batch := []model.ValidatorMetrics{model.NewValidatorMetrics("v", 9001, 5001, 8000)}

		round, err := svc.ScoreRound(ctx, batch)
		So(err, ShouldBeNil)
		So(round.Results[0].Score, ShouldEqual, 6750)

		Convey("When the file is replaced but the pin is wrong", func() {
			golden, readErr := os.ReadFile(goldenPath)
			So(readErr, ShouldBeNil)
			So(os.WriteFile(path, golden, 0o600), ShouldBeNil)
			err := svc.Reload(ctx, hash)

			Convey("Then the reload fails and the old model keeps scoring", func() {
				So(errors.Is(err, integrity.ErrIntegrity), ShouldBeTrue)
				So(svc.ModelHash(), ShouldEqual, hash)
				again, scoreErr := svc.ScoreRound(ctx, batch)
				So(scoreErr, ShouldBeNil)
				So(again.Results[0].Score, ShouldEqual, 6750)
			})

			Convey("Then pinning the new hash activates it", func() {
				So(svc.Reload(ctx, goldenHash), ShouldBeNil)
				So(svc.ModelHash(), ShouldEqual, goldenHash)
				again, scoreErr := svc.ScoreRound(ctx, batch)
				So(scoreErr, ShouldBeNil)
				So(again.Results[0].Score, ShouldEqual, 7800)
			})
		})
	})
}

func TestService_Determinism(t *testing.T) {
	Convey("Given the service and an independent parallel pipeline", t, func() {
		ctx := context.Background()
		svc := startGolden(t)
		cross := harness.NewParallelPipeline(svc.Fairness(), 3)

		Convey("When the corpus runs through both", func() {
			_, err := harness.New(svc, nil, harness.WithCrossCheck(cross)).Run(ctx)

			Convey("Then they agree byte for byte", func() {
				So(err, ShouldBeNil)
			})
		})
	})
}
