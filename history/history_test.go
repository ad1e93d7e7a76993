package history

import (
	"testing"
	"time"

	"github.com/Skryldev/darkroom-develop/core"
)

func entry(op string, prio int, params string) core.HistoryEntry {
	return core.HistoryEntry{Op: op, InstancePriority: prio, Enabled: true, Params: []byte(params)}
}

func TestP6_AppendCoalescesOnExplicitIntent(t *testing.T) {
	s := New()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if res := s.Append(entry("exposure", 0, "a"), t0, true, false); res != Appended {
		t.Fatalf("expected first append to be Appended, got %v", res)
	}
	if res := s.Append(entry("exposure", 0, "a"), t0.Add(time.Second), false, false); res != Coalesced {
		t.Fatalf("expected newItem=false with matching key to coalesce, got %v", res)
	}

	if s.Len() != 1 {
		t.Fatalf("expected coalesced append to keep a single entry, got %d", s.Len())
	}
	snap := s.Snapshot()
	if string(snap[0].Params) != "a" {
		t.Fatalf("expected coalesced entry to carry latest params, got %q", snap[0].Params)
	}
}

func TestP6_AppendDoesNotCoalesceAcrossExplicitNewItem(t *testing.T) {
	s := New()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Two explicit new-instance actions with identical default params must
	// never merge, no matter how close together they land.
	s.Append(entry("exposure", 0, "a"), t0, true, false)
	res := s.Append(entry("exposure", 0, "a"), t0.Add(time.Millisecond), true, false)

	if res != Appended {
		t.Fatalf("expected newItem=true to always append, got %v", res)
	}
	if s.Len() != 2 {
		t.Fatalf("expected two entries for two explicit new-item appends, got %d", s.Len())
	}
}

func TestP6_AppendCoalescesAcrossLongPause(t *testing.T) {
	s := New()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// A paused mid-drag edit (newItem=false) must still coalesce even when
	// far outside any timer window — intent, not elapsed time, governs.
	s.Append(entry("exposure", 0, "a"), t0, true, false)
	res := s.Append(entry("exposure", 0, "a"), t0.Add(time.Hour), false, false)

	if res != Coalesced {
		t.Fatalf("expected newItem=false to coalesce regardless of elapsed time, got %v", res)
	}
	if s.Len() != 1 {
		t.Fatalf("expected one entry, got %d", s.Len())
	}
}

func TestUndoTailDrop(t *testing.T) {
	s := New()
	t0 := time.Now()

	s.Append(entry("a", 0, "1"), t0, true, false)
	s.Append(entry("b", 0, "1"), t0.Add(time.Hour), true, false)
	s.Append(entry("c", 0, "1"), t0.Add(2*time.Hour), true, false)

	if err := s.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if s.Cursor() != 1 {
		t.Fatalf("expected cursor 1 after undo, got %d", s.Cursor())
	}

	// A fresh append at the undone cursor must drop the redo tail (I1).
	s.Append(entry("d", 0, "1"), t0.Add(3*time.Hour), true, false)
	if s.Len() != 3 {
		t.Fatalf("expected redo tail dropped, got length %d", s.Len())
	}
	snap := s.Snapshot()
	if snap[2].Op != "d" {
		t.Fatalf("expected new entry at tail, got %q", snap[2].Op)
	}
}

func TestRedoFailsPastTail(t *testing.T) {
	s := New()
	s.Append(entry("a", 0, "1"), time.Now(), true, false)
	if err := s.Redo(); err == nil {
		t.Fatal("expected redo past the tail to fail")
	}
}

func TestFindLast(t *testing.T) {
	s := New()
	t0 := time.Now()
	s.Append(entry("a", 0, "1"), t0, true, false)
	s.Append(entry("b", 1, "2"), t0.Add(time.Hour), true, false)

	got, ok := s.FindLast(core.Key{Op: "a", InstancePriority: 0})
	if !ok || string(got.Params) != "1" {
		t.Fatalf("FindLast: got %+v, ok=%v", got, ok)
	}
	if _, ok := s.FindLast(core.Key{Op: "missing"}); ok {
		t.Fatal("expected no match for unregistered key")
	}
}
