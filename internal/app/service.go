// Package service wires the integrity gate, the fairness model, the
// scoring queue and the selector into round scoring.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/fairness/internal/adapters/mq/queue"
	"github.com/okian/fairness/internal/adapters/mq/worker"
	"github.com/okian/fairness/internal/domain/dedupe"
	"github.com/okian/fairness/internal/domain/dgbdt"
	"github.com/okian/fairness/internal/domain/model"
	"github.com/okian/fairness/internal/domain/scoring"
	"github.com/okian/fairness/internal/domain/selector"
	"github.com/okian/fairness/internal/domain/types"
	"github.com/okian/fairness/internal/integrity"
	"github.com/okian/fairness/pkg/logger"
	"github.com/okian/fairness/pkg/metrics"
)

// Round failure reasons, used as metric labels.
const (
	reasonEmpty     = "empty_round"
	reasonDuplicate = "duplicate_validator"
	reasonSubmit    = "submit_failed"
	reasonScoring   = "scoring_error"
	reasonOverflow  = "evaluation_overflow"
	reasonCancelled = "cancelled"
	reasonStopped   = "stopped"
)

// Service scores validator rounds on a worker pool.
type Service struct {
	mu sync.RWMutex

	// Core components
	handle   *integrity.Handle
	fairness atomic.Pointer[scoring.FairnessModel]
	queue    *queue.InMemoryQueue
	pool     *worker.Pool

	// Configuration
	workerCount  int
	queueSize    int
	profile      scoring.Profile
	modelPath    string
	expectedHash string
	gateOpts     []integrity.Option

	// State
	started bool
	stopCh  chan struct{}
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   4096,
		profile:     scoring.DefaultProfile(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the model through the integrity gate and starts the
// workers. Any gate failure is returned and nothing is started.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	var (
		m    *dgbdt.Model
		hash string
	)
	if s.modelPath != "" {
		h, err := integrity.NewHandle(ctx, s.modelPath, s.expectedHash, s.gateOpts...)
		if err != nil {
			return err
		}
		s.handle = h
		m, hash = h.Current().Model, h.Current().Hash
	}
	fm, err := scoring.New(s.profile, m, hash)
	if err != nil {
		return err
	}
	s.fairness.Store(fm)
	metrics.SetActiveModel(fm.ModelHash(), fm.Fingerprint())

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue)
	s.pool.Start(runCtx)
	s.stopCh = make(chan struct{})

	s.started = true
	s.logger.Info(ctx, "fairness service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queue.Capacity()),
		logger.String("model_hash", fm.ModelHash()),
		logger.String("fingerprint", fm.Fingerprint()),
	)
	return nil
}

// Stop drains the workers and shuts the service down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping fairness service...")

	close(s.stopCh)
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "fairness service stopped")
}

// ScoreRound scores every validator of a round and ranks the complete set.
// The round fails as a whole: an empty batch, a duplicate ID or any
// scoring error yields no ranking. Every job of a round uses the model
// that was active when the round began.
func (s *Service) ScoreRound(ctx context.Context, batch []model.ValidatorMetrics) (types.Round, error) {
	s.mu.RLock()
	started, q, stopCh := s.started, s.queue, s.stopCh
	s.mu.RUnlock()
	if !started {
		return types.Round{}, ErrNotStarted
	}

	start := time.Now()
	if err := ctx.Err(); err != nil {
		return s.fail(ctx, reasonCancelled, "", err)
	}
	if len(batch) == 0 {
		return s.fail(ctx, reasonEmpty, "", selector.ErrEmptyRound)
	}
	ids := make([]string, len(batch))
	for i := range batch {
		ids[i] = batch[i].ValidatorID
	}
	if dup, ok := dedupe.FirstDuplicate(ids); ok {
		return s.fail(ctx, reasonDuplicate, "", fmt.Errorf("%w: %q", selector.ErrDuplicateValidator, dup))
	}

	fm := s.fairness.Load()
	roundID := uuid.NewString()
	reply := make(chan model.Outcome, len(batch))
	for i := range batch {
		job := model.Job{RoundID: roundID, Index: i, Metrics: batch[i], Scorer: fm, Reply: reply}
		if err := q.Submit(ctx, job); err != nil {
			return s.fail(ctx, reasonSubmit, roundID, fmt.Errorf("submit %s: %w", batch[i].ValidatorID, err))
		}
	}

	results := make([]model.ScoreResult, len(batch))
	for received := 0; received < len(batch); received++ {
		select {
		case <-ctx.Done():
			return s.fail(ctx, reasonCancelled, roundID, ctx.Err())
		case <-stopCh:
			return s.fail(ctx, reasonStopped, roundID, ErrStopped)
		case o := <-reply:
			if o.Err != nil {
				if errors.Is(o.Err, dgbdt.ErrEvaluationOverflow) {
					metrics.RecordEvaluationOverflow()
					s.logger.Error(ctx, "model evaluation overflowed; treating model as corrupted",
						logger.String("model_hash", fm.ModelHash()),
						logger.Error(o.Err),
					)
					return s.fail(ctx, reasonOverflow, roundID, o.Err)
				}
				return s.fail(ctx, reasonScoring, roundID, o.Err)
			}
			results[o.Index] = o.Result
		}
	}

	ranking, err := selector.Rank(results)
	if err != nil {
		return s.fail(ctx, reasonScoring, roundID, err)
	}

	metrics.RecordRoundScored(float64(time.Since(start).Microseconds()) / 1000)
	s.logger.Debug(ctx, "round scored",
		logger.String("round_id", roundID),
		logger.Int("validators", len(batch)),
		logger.String("model_hash", fm.ModelHash()),
	)
	return types.Round{
		RoundID:     roundID,
		ModelHash:   fm.ModelHash(),
		Fingerprint: fm.Fingerprint(),
		Results:     results,
		Ranking:     ranking,
	}, nil
}

func (s *Service) fail(ctx context.Context, reason, roundID string, err error) (types.Round, error) {
	metrics.RecordRoundFailure(reason)
	s.logger.Warn(ctx, "round rejected",
		logger.String("round_id", roundID),
		logger.String("reason", reason),
		logger.Error(err),
	)
	return types.Round{}, err
}

// Reload re-runs the integrity gate against expectedHash and, on success,
// makes the new model active for rounds that start afterwards. On failure
// the current model stays active. The gate runs outside the service lock,
// so rounds keep scoring with their snapshot while the file is verified;
// the handle serializes concurrent reloads.
func (s *Service) Reload(ctx context.Context, expectedHash string) error {
	s.mu.RLock()
	started, handle, profile := s.started, s.handle, s.profile
	s.mu.RUnlock()

	if !started {
		return ErrNotStarted
	}
	if handle == nil {
		return ErrNoModel
	}
	art, err := handle.Reload(ctx, expectedHash)
	if err != nil {
		s.logger.Warn(ctx, "model reload rejected; keeping active model",
			logger.String("active_hash", s.ModelHash()),
			logger.Error(err),
		)
		return err
	}
	fm, err := scoring.New(profile, art.Model, art.Hash)
	if err != nil {
		s.logger.Error(ctx, "verified model does not fit the profile; keeping active model",
			logger.String("model_hash", art.Hash),
			logger.Error(err),
		)
		return err
	}
	s.fairness.Store(fm)
	metrics.SetActiveModel(fm.ModelHash(), fm.Fingerprint())

	s.mu.Lock()
	s.expectedHash = expectedHash
	s.mu.Unlock()

	s.logger.Info(ctx, "model reloaded",
		logger.String("model_hash", fm.ModelHash()),
		logger.String("fingerprint", fm.Fingerprint()),
	)
	return nil
}

// Fairness returns the active fairness model, or nil before Start.
func (s *Service) Fairness() *scoring.FairnessModel {
	return s.fairness.Load()
}

// ModelHash returns the hash of the active model.
func (s *Service) ModelHash() string {
	if fm := s.fairness.Load(); fm != nil {
		return fm.ModelHash()
	}
	return ""
}

// Fingerprint returns the fingerprint of the active configuration.
func (s *Service) Fingerprint() string {
	if fm := s.fairness.Load(); fm != nil {
		return fm.Fingerprint()
	}
	return ""
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"modelHash":   s.ModelHash(),
		"fingerprint": s.Fingerprint(),
	}
	if s.started {
		queueLen := s.queue.Len(context.Background())
		stats["queueLength"] = queueLen
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}
