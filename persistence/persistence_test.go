package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/Skryldev/darkroom-develop/core"
)

func TestHistoryWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := Open(ctx, "file:"+dir+"/test.db?mode=rwc")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	h := core.NewImageHandle()
	entries := []core.HistoryEntry{
		{Op: "exposure", SchemaVersion: 1, Enabled: true, Params: []byte("p1"), Rank: 0},
		{Op: "crop", SchemaVersion: 1, Enabled: true, Params: []byte("p2"), Rank: 1,
			Masks: []core.MaskForm{{FormID: "m1", Kind: "polygon", Data: []byte("poly")}}},
	}

	if err := store.WriteImage(ctx, h, nil, "deadbeef", false); err != nil {
		t.Fatalf("write image: %v", err)
	}
	if err := store.WriteHistory(ctx, h.ID.String(), entries, 1, time.Now()); err != nil {
		t.Fatalf("write history: %v", err)
	}

	got, cursor, err := store.ReadHistory(ctx, h.ID.String(), nil, nil)
	if err != nil {
		t.Fatalf("read history: %v", err)
	}
	if cursor != 1 {
		t.Fatalf("expected cursor 1, got %d", cursor)
	}
	if len(got) != 2 || string(got[0].Params) != "p1" || string(got[1].Params) != "p2" {
		t.Fatalf("round-tripped entries mismatch: %+v", got)
	}
	if len(got[1].Masks) != 1 || got[1].Masks[0].FormID != "m1" {
		t.Fatalf("round-tripped masks mismatch: %+v", got[1].Masks)
	}
}

func TestOneInstanceCoercion(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := Open(ctx, "file:"+dir+"/test.db?mode=rwc")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	imageID := "img-1"
	entries := []core.HistoryEntry{
		{Op: "vignette", SchemaVersion: 1, InstancePriority: 3, Enabled: true, Rank: 0},
	}
	if err := store.WriteHistory(ctx, imageID, entries, 0, time.Now()); err != nil {
		t.Fatalf("write history: %v", err)
	}

	got, _, err := store.ReadHistory(ctx, imageID, map[string]bool{"vignette": true}, nil)
	if err != nil {
		t.Fatalf("read history: %v", err)
	}
	if len(got) != 1 || got[0].InstancePriority != 0 {
		t.Fatalf("expected ONE_INSTANCE priority coerced to 0, got %+v", got)
	}
}

func TestSidecarRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	w, err := NewSidecarWriter(dir)
	if err != nil {
		t.Fatalf("new sidecar writer: %v", err)
	}

	entries := []core.HistoryEntry{
		{Op: "exposure", SchemaVersion: 1, Enabled: true, Params: []byte("p1"), Rank: 0,
			Masks: []core.MaskForm{{FormID: "m1", Kind: "brush", Data: []byte("stroke-data")}}},
	}

	if err := w.Export(ctx, "img-2", entries, nil); err != nil {
		t.Fatalf("export: %v", err)
	}
	got, hash, err := w.Import(ctx, "img-2")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if hash == "" {
		t.Fatal("expected a non-empty content hash")
	}
	if len(got) != 1 || string(got[0].Params) != "p1" {
		t.Fatalf("round-tripped sidecar entries mismatch: %+v", got)
	}
	if len(got[0].Masks) != 1 || got[0].Masks[0].FormID != "m1" {
		t.Fatalf("round-tripped sidecar masks mismatch: %+v", got[0].Masks)
	}

	wantHash, err := ContentHash(entries, nil)
	if err != nil {
		t.Fatalf("content hash: %v", err)
	}
	if hash != wantHash {
		t.Fatalf("P5 round-trip law: sidecar hash %q != freshly computed hash %q", hash, wantHash)
	}
}
