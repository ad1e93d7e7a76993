package pipeline

import (
	"context"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/Skryldev/darkroom-develop/core"
	"github.com/Skryldev/darkroom-develop/examplemodules"
	"github.com/Skryldev/darkroom-develop/ordering"
)

type capturingLogger struct {
	warnings []string
}

func (l *capturingLogger) Debug(string, ...interface{}) {}
func (l *capturingLogger) Info(string, ...interface{})  {}
func (l *capturingLogger) Warn(msg string, _ ...interface{}) {
	l.warnings = append(l.warnings, msg)
}
func (l *capturingLogger) Error(string, ...interface{}) {}

func testRegistry() *core.DefaultRegistry {
	reg := core.NewRegistry()
	reg.Register(examplemodules.Crop{})
	reg.Register(examplemodules.Grayscale{})
	return reg
}

func TestBuildNodesSortsByRankRegardlessOfInputOrder(t *testing.T) {
	reg := testRegistry()
	entries := []core.HistoryEntry{
		{Op: "grayscale", Enabled: true, Rank: 1},
		{Op: "crop", Enabled: true, Rank: 0},
	}
	roi := core.ROI{Width: 10, Height: 10}
	nodes := BuildNodes(entries, reg, roi, 10, 10, nil)

	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}
	if nodes[0].Instance.Op != "crop" || nodes[1].Instance.Op != "grayscale" {
		t.Fatalf("expected crop (rank 0) before grayscale (rank 1), got %q then %q",
			nodes[0].Instance.Op, nodes[1].Instance.Op)
	}
}

func TestBuildNodesDropsUnregisteredOpAndContinues(t *testing.T) {
	reg := testRegistry()
	entries := []core.HistoryEntry{
		{Op: "crop", Enabled: true, Rank: 0},
		{Op: "nonexistent-op", Enabled: true, Rank: 1},
		{Op: "grayscale", Enabled: true, Rank: 2},
	}
	logger := &capturingLogger{}
	nodes := BuildNodes(entries, reg, core.ROI{Width: 10, Height: 10}, 10, 10, logger)

	if len(nodes) != 2 {
		t.Fatalf("expected the unregistered op dropped and the other two built, got %d nodes", len(nodes))
	}
	if len(logger.warnings) != 1 {
		t.Fatalf("expected one warning logged for the dropped entry, got %d", len(logger.warnings))
	}
}

func TestResolveEntriesAssignsRankFromOrdering(t *testing.T) {
	order := ordering.NewList([]string{"grayscale", "crop"})
	entries := []core.HistoryEntry{
		{Op: "crop", Enabled: true},
		{Op: "grayscale", Enabled: true},
	}
	resolved := ResolveEntries(entries, order)

	if resolved[0].Op != "grayscale" || resolved[1].Op != "crop" {
		t.Fatalf("expected base-order rank to put grayscale first, got %q then %q",
			resolved[0].Op, resolved[1].Op)
	}
	if resolved[0].Rank != 0 || resolved[1].Rank != 1 {
		t.Fatalf("expected ranks 0,1, got %d,%d", resolved[0].Rank, resolved[1].Rank)
	}
}

func buildTestBuffer(w, h int) *core.Buffer {
	return &core.Buffer{Width: w, Height: h, ColorSpace: "rgba", Data: make([]byte, w*h*4)}
}

func TestRunTopChangedInvalidatesOnlyAffectedTail(t *testing.T) {
	reg := testRegistry()
	entries := []core.HistoryEntry{
		{Op: "crop", Enabled: true, Rank: 0, Params: mustMarshalCropParams(t, 0, 0, 4, 4)},
		{Op: "grayscale", Enabled: true, Rank: 1},
	}
	nodes := BuildNodes(entries, reg, core.ROI{Width: 8, Height: 8}, 8, 8, nil)
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}

	p, err := New(ClassFull, 8)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	ctx := context.Background()
	input := buildTestBuffer(8, 8)
	if _, _, err := p.Run(ctx, nodes, input, &core.Shutdown{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if p.cache.Len() != 2 {
		t.Fatalf("expected both node outputs cached, got %d", p.cache.Len())
	}

	// Raising TOP_CHANGED for the crop node (rank 0) must invalidate both
	// it and grayscale (rank 1, downstream), since Fingerprint never hashes
	// upstream content.
	p.Flags().SetTopChanged(nodes[0].Instance.Key())
	p.invalidateFromTail(nodes)
	if p.cache.Len() != 0 {
		t.Fatalf("expected both cache entries invalidated after TOP_CHANGED on the head node, got %d", p.cache.Len())
	}
}

func mustMarshalCropParams(t *testing.T, x, y, w, h int) []byte {
	t.Helper()
	b, err := json.Marshal(examplemodules.CropParams{X: x, Y: y, Width: w, Height: h})
	if err != nil {
		t.Fatalf("marshal crop params: %v", err)
	}
	return b
}
