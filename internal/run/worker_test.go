package run

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type mockProcessor struct {
	processed atomic.Int64
}

func (m *mockProcessor) Process(_ context.Context, _ *Run) error {
	m.processed.Add(1)
	return nil
}

func seedPending(t *testing.T, repo *mockRepo, n int) {
	t.Helper()
	svc := NewService(repo, 1, 1)
	for i := 0; i < n; i++ {
		if _, err := svc.Submit(context.Background(), SubmitRequest{Trigger: TriggerAPI}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestWorkerPool_ProcessesPendingRuns(t *testing.T) {
	repo := newMockRepo()
	seedPending(t, repo, 3)

	proc := &mockProcessor{}
	pool := NewWorkerPool(repo, proc, 1)
	pool.pollInterval = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(done)
	}()

	pool.Notify()

	deadline := time.After(2 * time.Second)
	for proc.processed.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for runs to be processed, got %d", proc.processed.Load())
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	cancel()
	<-done
}

func TestWorkerPool_NotifyWakesWorker(t *testing.T) {
	repo := newMockRepo()
	proc := &mockProcessor{}
	pool := NewWorkerPool(repo, proc, 1)
	pool.pollInterval = 10 * time.Second // long poll so only Notify wakes it

	svc := NewService(repo, 1, 1)
	svc.SetNotifier(pool)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(done)
	}()

	// Give the worker time to drain the empty queue and go idle.
	time.Sleep(20 * time.Millisecond)
	if _, err := svc.Submit(context.Background(), SubmitRequest{Trigger: TriggerAPI}); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for proc.processed.Load() < 1 {
		select {
		case <-deadline:
			t.Fatal("timed out: Notify did not wake worker")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	cancel()
	<-done
}

func TestWorkerPool_GracefulShutdown(t *testing.T) {
	pool := NewWorkerPool(newMockRepo(), &mockProcessor{}, 0)
	pool.pollInterval = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for graceful shutdown")
	}
}
