package develop

import (
	"context"
	"testing"

	"github.com/Skryldev/darkroom-develop/config"
	"github.com/Skryldev/darkroom-develop/core"
	"github.com/Skryldev/darkroom-develop/examplemodules"
	"github.com/Skryldev/darkroom-develop/persistence"
	"github.com/Skryldev/darkroom-develop/preset"
)

func newTestController(t *testing.T) (*Controller, *persistence.Store) {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	store, err := persistence.Open(ctx, "file:"+dir+"/test.db?mode=rwc")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	reg := core.NewRegistry()
	reg.Register(examplemodules.Resize{})
	reg.Register(examplemodules.Crop{})
	reg.Register(examplemodules.Grayscale{})

	cfg := config.Default()
	resolver := preset.NewResolver(nil)
	c := NewController(cfg, store, reg, resolver, nil, []string{"crop", "resize", "grayscale"})
	return c, store
}

func TestLoadImageFreshHandleHasEmptyHistory(t *testing.T) {
	c, _ := newTestController(t)
	handle := core.NewImageHandle()

	s, err := c.LoadImage(context.Background(), handle)
	if err != nil {
		t.Fatalf("load image: %v", err)
	}
	if s.History.Len() != 0 {
		t.Fatalf("expected fresh image to have empty history, got %d entries", s.History.Len())
	}
}

func TestAddHistoryItemMarksPipelinesChanged(t *testing.T) {
	c, _ := newTestController(t)
	handle := core.NewImageHandle()
	s, err := c.LoadImage(context.Background(), handle)
	if err != nil {
		t.Fatalf("load image: %v", err)
	}

	params := []byte(`{"x":0,"y":0,"width":10,"height":10}`)
	entry := core.HistoryEntry{Op: "crop", SchemaVersion: 1, Enabled: true, Params: params}
	if err := c.AddHistoryItem(context.Background(), s, entry, true, false, 1); err != nil {
		t.Fatalf("add history item: %v", err)
	}

	if s.History.Len() != 1 {
		t.Fatalf("expected one history entry, got %d", s.History.Len())
	}
	full, _ := s.Pipeline("full")
	if !full.Flags().Synch() {
		t.Fatal("expected the first (new-item) append to mark the full pipeline SYNCH")
	}
	full.Flags().Reset()

	// A second append with new_item=false and identical params coalesces
	// into the tail entry instead of pushing a new one, which must raise
	// TOP_CHANGED rather than SYNCH (spec.md §4.6).
	if err := c.AddHistoryItem(context.Background(), s, entry, false, false, 2); err != nil {
		t.Fatalf("add history item: %v", err)
	}
	if s.History.Len() != 1 {
		t.Fatalf("expected the coalesced append to keep one history entry, got %d", s.History.Len())
	}
	if !full.Flags().TopChanged() {
		t.Fatal("expected the coalesced append to mark the full pipeline TOP_CHANGED")
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	c, _ := newTestController(t)
	handle := core.NewImageHandle()
	s, err := c.LoadImage(context.Background(), handle)
	if err != nil {
		t.Fatalf("load image: %v", err)
	}

	e1 := core.HistoryEntry{Op: "crop", SchemaVersion: 1, Enabled: true}
	e2 := core.HistoryEntry{Op: "grayscale", SchemaVersion: 1, Enabled: true}
	if err := c.AddHistoryItem(context.Background(), s, e1, true, false, 1); err != nil {
		t.Fatal(err)
	}
	if err := c.AddHistoryItem(context.Background(), s, e2, true, false, 2); err != nil {
		t.Fatal(err)
	}

	if err := c.Undo(s); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if s.History.Cursor() != 0 {
		t.Fatalf("expected cursor 0 after undo, got %d", s.History.Cursor())
	}
	if err := c.Redo(s); err != nil {
		t.Fatalf("redo: %v", err)
	}
	if s.History.Cursor() != 1 {
		t.Fatalf("expected cursor 1 after redo, got %d", s.History.Cursor())
	}
}
