// Package worker runs scoring jobs off the queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/fairness/internal/adapters/mq/queue"
	"github.com/okian/fairness/internal/domain/model"
	"github.com/okian/fairness/pkg/logger"
	"github.com/okian/fairness/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// ErrNoScorer is returned for a job that carries no scorer.
var ErrNoScorer = errors.New("job has no scorer")

// Job abstracts what workers read off the queue.
type Job = queue.Job

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes jobs and replies with their outcomes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker. Each job carries the scorer of its
// round, so a worker never holds model state of its own.
type InMemoryWorker struct {
	queue Queue
	name  string

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, j)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

// process scores one job and replies. The reply channel is buffered for
// the whole round, so the send only waits if the round was abandoned.
func (w *InMemoryWorker) process(ctx context.Context, j Job) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	out := model.Outcome{Index: j.Index}
	out.Result, out.Err = w.score(ctx, j)
	metrics.RecordValidatorScored(float64(time.Since(start).Microseconds()) / 1000)

	if out.Err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "scoring_error")
		w.logger.Error(ctx, "scoring failed",
			logger.String("round_id", j.RoundID),
			logger.String("validator_id", j.Metrics.ValidatorID),
			logger.Error(out.Err),
		)
	}

	if j.Reply == nil {
		return
	}
	select {
	case j.Reply <- out:
	case <-ctx.Done():
	}
}

func (w *InMemoryWorker) score(ctx context.Context, j Job) (res model.ScoreResult, err error) { //nolint:gocritic // hugeParam
	if j.Scorer == nil {
		return model.ScoreResult{}, ErrNoScorer
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scorer panicked on %s: %v", j.Metrics.ValidatorID, r)
		}
	}()
	return j.Scorer.Score(ctx, j.Metrics)
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a new worker pool. A non-positive count uses one worker
// per CPU.
func NewPool(workerCount int, queue Queue) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(queue, WithName("worker-"+strconv.Itoa(i)))
	}
	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue, if it can be closed, and waits for every
// worker to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	for _, w := range p.workers {
		w.stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut {
		return fmt.Errorf("pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
