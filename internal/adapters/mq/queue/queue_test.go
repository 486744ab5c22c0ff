package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/fairness/internal/domain/model"
)

func job(i int) Job {
	return Job{RoundID: "round", Index: i, Metrics: model.NewValidatorMetrics(fmt.Sprintf("val-%d", i), 1, 2, 3)}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if q.Capacity() != 2 {
		t.Errorf("expected capacity 2, got %d", q.Capacity())
	}

	if !q.Enqueue(ctx, job(1)) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	j := <-q.Dequeue(ctx)
	if j.Metrics.ValidatorID != "val-1" || j.Index != 1 {
		t.Errorf("unexpected job %+v", j)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, job(1)) || !q.Enqueue(ctx, job(2)) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, job(3)) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_SubmitBlocksUntilRoom(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx := context.Background()

	if err := q.Submit(ctx, job(1)); err != nil {
		t.Fatalf("submit: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- q.Submit(ctx, job(2)) }()

	select {
	case err := <-done:
		t.Fatalf("submit returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	out := q.Dequeue(ctx)
	first := <-out
	if err := <-done; err != nil {
		t.Fatalf("blocked submit failed: %v", err)
	}
	second := <-out
	if first.Index != 1 || second.Index != 2 {
		t.Errorf("jobs out of order: %d, %d", first.Index, second.Index)
	}
}

func TestInMemoryQueue_SubmitCancelled(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	_ = q.Submit(context.Background(), job(1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Submit(ctx, job(2)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestInMemoryQueue_CloseReleasesBlockedSubmit(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx := context.Background()
	_ = q.Submit(ctx, job(1))

	done := make(chan error, 1)
	go func() { done <- q.Submit(ctx, job(2)) }()
	time.Sleep(20 * time.Millisecond)

	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked submit was not released by close")
	}

	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	if q.Enqueue(ctx, job(3)) {
		t.Error("expected enqueue after close to fail")
	}
	if err := q.Submit(ctx, job(3)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestInMemoryQueue_DequeueDrainsAfterClose(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = q.Submit(ctx, job(i))
	}
	_ = q.Close()

	count := 0
	for range q.Dequeue(ctx) {
		count++
	}
	if count != 5 {
		t.Errorf("expected 5 drained jobs, got %d", count)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(16))
	ctx := context.Background()
	const producers, perProducer = 8, 50

	errs := make(chan error, producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			for i := 0; i < perProducer; i++ {
				if err := q.Submit(ctx, job(p*perProducer+i)); err != nil {
					errs <- err
					return
				}
			}
			errs <- nil
		}(p)
	}

	out := q.Dequeue(ctx)
	seen := make(map[int]bool)
	for len(seen) < producers*perProducer {
		j := <-out
		if seen[j.Index] {
			t.Fatalf("job %d delivered twice", j.Index)
		}
		seen[j.Index] = true
	}
	for p := 0; p < producers; p++ {
		if err := <-errs; err != nil {
			t.Errorf("producer failed: %v", err)
		}
	}
}
