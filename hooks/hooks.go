// Package hooks provides production-ready Logger and core.Hook
// implementations for the develop engine.
package hooks

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Skryldev/darkroom-develop/core"
)

// ── Structured logger adapters ────────────────────────────────────────────────

// SlogLogger wraps the standard library slog.Logger to satisfy core.Logger.
// Kept as the stdlib-only option for callers who don't want zap.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger creates a logger backed by slog.
func NewSlogLogger(l *slog.Logger) *SlogLogger { return &SlogLogger{log: l} }

func (s *SlogLogger) Debug(msg string, fields ...interface{}) { s.log.Debug(msg, fields...) }
func (s *SlogLogger) Info(msg string, fields ...interface{})  { s.log.Info(msg, fields...) }
func (s *SlogLogger) Warn(msg string, fields ...interface{})  { s.log.Warn(msg, fields...) }
func (s *SlogLogger) Error(msg string, fields ...interface{}) { s.log.Error(msg, fields...) }

// ZapLogger wraps a zap.SugaredLogger to satisfy core.Logger.
type ZapLogger struct {
	log *zap.SugaredLogger
}

// NewZapLogger creates a logger backed by a zap.SugaredLogger.
func NewZapLogger(l *zap.SugaredLogger) *ZapLogger { return &ZapLogger{log: l} }

// NewProductionZapLogger builds a ZapLogger from zap's production config.
func NewProductionZapLogger() (*ZapLogger, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{log: l.Sugar()}, nil
}

func (z *ZapLogger) Debug(msg string, fields ...interface{}) { z.log.Debugw(msg, fields...) }
func (z *ZapLogger) Info(msg string, fields ...interface{})  { z.log.Infow(msg, fields...) }
func (z *ZapLogger) Warn(msg string, fields ...interface{})  { z.log.Warnw(msg, fields...) }
func (z *ZapLogger) Error(msg string, fields ...interface{}) { z.log.Errorw(msg, fields...) }

var (
	_ core.Logger = (*SlogLogger)(nil)
	_ core.Logger = (*ZapLogger)(nil)
)

// ── Logging hook ──────────────────────────────────────────────────────────────

// LoggingHook logs before/after each pipeline node invocation.
type LoggingHook struct {
	logger core.Logger
}

// NewLoggingHook creates a LoggingHook.
func NewLoggingHook(l core.Logger) *LoggingHook { return &LoggingHook{logger: l} }

func (h *LoggingHook) BeforeNode(_ context.Context, op string) {
	h.logger.Debug("pipeline.node.start", "op", op)
}

func (h *LoggingHook) AfterNode(_ context.Context, op string, d interface{ Seconds() float64 }, err error) {
	if err != nil {
		h.logger.Error("pipeline.node.error", "op", op, "duration_ms", int64(d.Seconds()*1000), "error", err.Error())
		return
	}
	h.logger.Debug("pipeline.node.done", "op", op, "duration_ms", int64(d.Seconds()*1000))
}

var _ core.Hook = (*LoggingHook)(nil)

// ── In-memory metrics collector ───────────────────────────────────────────────

// InMemoryMetrics accumulates metrics atomically; safe for concurrent use.
type InMemoryMetrics struct {
	mu sync.RWMutex

	nodeDurationsMs map[string]int64
	nodeCalls       map[string]int64
	nodeErrors      map[string]int64

	totalThroughputB int64
	totalMemoryB     int64
}

// NewInMemoryMetrics creates an empty metrics store.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		nodeDurationsMs: make(map[string]int64),
		nodeCalls:       make(map[string]int64),
		nodeErrors:      make(map[string]int64),
	}
}

func (m *InMemoryMetrics) RecordProcessingTime(name string, d interface{ Seconds() float64 }) {
	ms := int64(d.Seconds() * 1000)
	m.mu.Lock()
	m.nodeDurationsMs[name] += ms
	m.nodeCalls[name]++
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordThroughput(bytes int64) { atomic.AddInt64(&m.totalThroughputB, bytes) }

func (m *InMemoryMetrics) RecordMemory(bytes int64) { atomic.AddInt64(&m.totalMemoryB, bytes) }

func (m *InMemoryMetrics) RecordError(name string, _ string) {
	m.mu.Lock()
	m.nodeErrors[name]++
	m.mu.Unlock()
}

// Snapshot returns a copy of current metrics.
func (m *InMemoryMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		NodeDurationsMs:  make(map[string]int64, len(m.nodeDurationsMs)),
		NodeCalls:        make(map[string]int64, len(m.nodeCalls)),
		NodeErrors:       make(map[string]int64, len(m.nodeErrors)),
		TotalThroughputB: atomic.LoadInt64(&m.totalThroughputB),
		TotalMemoryB:     atomic.LoadInt64(&m.totalMemoryB),
	}
	for k, v := range m.nodeDurationsMs {
		snap.NodeDurationsMs[k] = v
	}
	for k, v := range m.nodeCalls {
		snap.NodeCalls[k] = v
	}
	for k, v := range m.nodeErrors {
		snap.NodeErrors[k] = v
	}
	return snap
}

// MetricsSnapshot is an immutable point-in-time copy of metrics.
type MetricsSnapshot struct {
	NodeDurationsMs  map[string]int64
	NodeCalls        map[string]int64
	NodeErrors       map[string]int64
	TotalThroughputB int64
	TotalMemoryB     int64
}

// ── Metrics hook ──────────────────────────────────────────────────────────────

// MetricsHook feeds pipeline node events into a MetricsCollector.
type MetricsHook struct {
	collector core.MetricsCollector
}

// NewMetricsHook creates a MetricsHook.
func NewMetricsHook(c core.MetricsCollector) *MetricsHook { return &MetricsHook{collector: c} }

func (h *MetricsHook) BeforeNode(_ context.Context, _ string) {}

func (h *MetricsHook) AfterNode(_ context.Context, op string, d interface{ Seconds() float64 }, err error) {
	h.collector.RecordProcessingTime(op, d)
	if err != nil {
		h.collector.RecordError(op, "pipeline")
	}
}

var _ core.Hook = (*MetricsHook)(nil)
