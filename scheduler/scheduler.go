// Package scheduler implements the Render Scheduler (spec.md §4.5, §5): a
// bounded worker pool per pipeline class (Full/Preview/Secondary) with
// duplicate-request collapsing and a wait_hash poll-with-timeout protocol
// for callers that need to block until a specific fingerprint has rendered.
package scheduler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Skryldev/darkroom-develop/core"
	apperrors "github.com/Skryldev/darkroom-develop/errors"
	"github.com/Skryldev/darkroom-develop/pipeline"
)

// RenderFunc executes one pipeline run to completion, returning its output
// buffer and the fingerprint it produced. Supplied by develop.Controller,
// which owns the actual pipeline.Pipeline and history snapshot.
type RenderFunc func(ctx context.Context, shutdown *core.Shutdown) (out *core.Buffer, fingerprint uint64, err error)

// request is one in-flight or queued render, keyed by its target
// fingerprint so identical concurrent requests collapse onto one execution
// (spec.md §4.5 "duplicate-request collapsing").
type request struct {
	fingerprint uint64
	done        chan struct{}
	result      *core.Buffer
	err         error
}

// ClassScheduler is the worker pool for one pipeline class.
type ClassScheduler struct {
	class pipeline.Class
	sem   *semaphore.Weighted
	queueSize int

	mu       sync.Mutex
	inflight map[uint64]*request
	lastDone uint64 // fingerprint of the most recently completed render

	logger  core.Logger
	metrics core.MetricsCollector
}

// NewClassScheduler returns a ClassScheduler bounded to workerCount
// concurrent renders and to queueSize distinct fingerprints in flight
// (running or waiting for a slot); beyond that Submit reports
// ScheduleSaturated.
func NewClassScheduler(class pipeline.Class, workerCount, queueSize int) *ClassScheduler {
	return &ClassScheduler{
		class:     class,
		sem:       semaphore.NewWeighted(int64(workerCount)),
		queueSize: queueSize,
		inflight:  make(map[uint64]*request),
	}
}

// SetLogger attaches a structured logger.
func (c *ClassScheduler) SetLogger(l core.Logger) { c.logger = l }

// SetMetrics attaches a metrics collector.
func (c *ClassScheduler) SetMetrics(m core.MetricsCollector) { c.metrics = m }

// Submit runs render for the given target fingerprint, collapsing onto an
// already in-flight request for the same fingerprint if one exists. It
// reports ScheduleSaturated if the class's queue is already full of
// distinct pending fingerprints.
func (c *ClassScheduler) Submit(ctx context.Context, fingerprint uint64, render RenderFunc, shutdown *core.Shutdown) (*core.Buffer, error) {
	c.mu.Lock()
	if existing, ok := c.inflight[fingerprint]; ok {
		c.mu.Unlock()
		return c.await(ctx, existing)
	}
	if len(c.inflight) >= c.queueSize {
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.RecordError(string(c.class), "schedule_saturated")
		}
		return nil, apperrors.New(apperrors.CategoryScheduleSaturated, "scheduler.submit", apperrors.ErrWorkerPoolFull)
	}
	req := &request{fingerprint: fingerprint, done: make(chan struct{})}
	c.inflight[fingerprint] = req
	c.mu.Unlock()

	go c.run(ctx, req, render, shutdown)
	return c.await(ctx, req)
}

func (c *ClassScheduler) run(ctx context.Context, req *request, render RenderFunc, shutdown *core.Shutdown) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		req.err = apperrors.Wrap(apperrors.CategoryPipelineInterrupted, "scheduler.acquire", err)
		close(req.done)
		c.forget(req.fingerprint)
		return
	}
	defer c.sem.Release(1)

	start := time.Now()
	out, fp, err := render(ctx, shutdown)
	if c.metrics != nil {
		c.metrics.RecordProcessingTime(string(c.class), time.Since(start))
		if err != nil {
			c.metrics.RecordError(string(c.class), "render")
		}
	}

	req.result, req.err = out, err
	close(req.done)
	c.forget(req.fingerprint)

	if err == nil {
		c.mu.Lock()
		c.lastDone = fp
		c.mu.Unlock()
	}
}

func (c *ClassScheduler) forget(fingerprint uint64) {
	c.mu.Lock()
	delete(c.inflight, fingerprint)
	c.mu.Unlock()
}

func (c *ClassScheduler) await(ctx context.Context, req *request) (*core.Buffer, error) {
	select {
	case <-req.done:
		return req.result, req.err
	case <-ctx.Done():
		return nil, apperrors.Wrap(apperrors.CategoryPipelineInterrupted, "scheduler.await", ctx.Err())
	}
}

// WaitHash polls (at pollInterval, up to timeout) until a render completing
// with the given fingerprint has been observed, or returns a timeout error
// (spec.md §4.4 "wait_hash": "poll-with-timeout protocol" used by callers
// that need a specific version to have rendered before reading it, e.g. a
// thumbnail export waiting on a specific edit).
func (c *ClassScheduler) WaitHash(ctx context.Context, fingerprint uint64, pollInterval, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		c.mu.Lock()
		done := c.lastDone == fingerprint
		c.mu.Unlock()
		if done {
			return nil
		}
		if time.Now().After(deadline) {
			return apperrors.New(apperrors.CategoryPipelineInterrupted, "scheduler.wait_hash", context.DeadlineExceeded)
		}
		select {
		case <-ctx.Done():
			return apperrors.Wrap(apperrors.CategoryPipelineInterrupted, "scheduler.wait_hash", ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}
