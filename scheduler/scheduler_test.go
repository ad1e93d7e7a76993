package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Skryldev/darkroom-develop/core"
	"github.com/Skryldev/darkroom-develop/pipeline"
)

func TestDuplicateRequestCollapsing(t *testing.T) {
	s := NewClassScheduler(pipeline.ClassPreview, 1, 8)

	var calls int32
	render := func(ctx context.Context, shutdown *core.Shutdown) (*core.Buffer, uint64, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return &core.Buffer{Width: 1, Height: 1}, 42, nil
	}

	results := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, err := s.Submit(context.Background(), 42, render, &core.Shutdown{})
			results <- err
		}()
	}
	for i := 0; i < 4; i++ {
		if err := <-results; err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected duplicate requests to collapse onto one render, got %d calls", got)
	}
}

func TestScenario4_CancellationNeverPublishesStale(t *testing.T) {
	s := NewClassScheduler(pipeline.ClassFull, 1, 8)
	shutdown := &core.Shutdown{}

	render := func(ctx context.Context, sd *core.Shutdown) (*core.Buffer, uint64, error) {
		sd.Set()
		return nil, 0, context.Canceled
	}

	_, err := s.Submit(context.Background(), 7, render, shutdown)
	if err == nil {
		t.Fatal("expected cancellation to surface an error, not a stale result")
	}

	if waitErr := s.WaitHash(context.Background(), 7, time.Millisecond, 20*time.Millisecond); waitErr == nil {
		t.Fatal("expected WaitHash to time out rather than report a cancelled render as done")
	}
}

func TestScheduleSaturatedWhenQueueFull(t *testing.T) {
	s := NewClassScheduler(pipeline.ClassSecondary, 1, 1)
	block := make(chan struct{})
	render := func(ctx context.Context, sd *core.Shutdown) (*core.Buffer, uint64, error) {
		<-block
		return &core.Buffer{}, 1, nil
	}

	go s.Submit(context.Background(), 1, render, &core.Shutdown{})
	time.Sleep(10 * time.Millisecond) // let the first request occupy the queue slot

	_, err := s.Submit(context.Background(), 2, render, &core.Shutdown{})
	if err == nil {
		t.Fatal("expected a second distinct fingerprint to saturate a queue of size 1")
	}
	close(block)
}
