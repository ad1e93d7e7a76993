package preset

import (
	"sync"

	"github.com/google/uuid"
)

// AppliedTracker records the AUTO_PRESETS_APPLIED monotonic flag per image
// (spec.md §4.7: auto-apply presets run exactly once per image, ever — not
// once per session). It never clears a flag once set; that is the
// "monotonic" part.
type AppliedTracker struct {
	mu      sync.Mutex
	applied map[uuid.UUID]bool
}

// NewAppliedTracker returns an empty tracker.
func NewAppliedTracker() *AppliedTracker {
	return &AppliedTracker{applied: make(map[uuid.UUID]bool)}
}

// AlreadyApplied reports whether auto-apply presets have already run for
// id.
func (t *AppliedTracker) AlreadyApplied(id uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.applied[id]
}

// MarkApplied sets the flag for id. It is idempotent.
func (t *AppliedTracker) MarkApplied(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.applied[id] = true
}
