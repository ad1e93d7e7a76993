// Package develop implements the Develop state and Develop Controller
// façade (spec.md §3, §4.10): the object that owns one loaded image's
// ordering, instances, history, and three pipelines, and the operations
// that mutate them under the documented lock order.
package develop

import (
	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/Skryldev/darkroom-develop/core"
	"github.com/Skryldev/darkroom-develop/history"
	"github.com/Skryldev/darkroom-develop/ordering"
	"github.com/Skryldev/darkroom-develop/pipeline"
	"github.com/Skryldev/darkroom-develop/viewport"
)

// State is the live, in-memory develop state for one loaded image
// (spec.md §3 "Develop state"). Its four mutex classes must be acquired in
// the documented order — dev_threadsafe, then history (owned by
// history.Stack itself), then at most one pipeline's own lock — never the
// reverse; violating this order is a bug (spec.md §5).
type State struct {
	// devMu is "dev_threadsafe": the coarse lock guarding Handle, Instances,
	// and Ordering. It must be held before touching History or any
	// Pipeline.
	devMu deadlock.Mutex

	Handle    core.ImageHandle
	Instances []core.OperationInstance
	Ordering  *ordering.List
	History   *history.Stack

	pipeMu     map[pipeline.Class]*deadlock.Mutex
	pipelines  map[pipeline.Class]*pipeline.Pipeline

	// viewports holds the Full/Secondary zoom state (spec.md §4.9); Preview
	// always processes the whole downsampled source and has no entry here.
	viewports map[pipeline.Class]*viewport.State

	// GUILeaving marks that the owning GUI session is tearing down; new
	// renders should not be scheduled once set (spec.md §3 Lifecycle).
	GUILeaving bool

	// AutoPresetsApplied mirrors the persisted monotonic flag in memory so
	// repeated load_image calls within one process don't re-query storage.
	AutoPresetsApplied bool
}

// New builds a fresh State for handle, with one Pipeline per class backed
// by a cache of cacheSize entries each.
func New(handle core.ImageHandle, baseOps []string, cacheSize int) (*State, error) {
	s := &State{
		Handle:    handle,
		Ordering:  ordering.NewList(baseOps),
		pipeMu:    make(map[pipeline.Class]*deadlock.Mutex),
		pipelines: make(map[pipeline.Class]*pipeline.Pipeline),
		viewports: make(map[pipeline.Class]*viewport.State),
	}
	for _, class := range []pipeline.Class{pipeline.ClassFull, pipeline.ClassPreview, pipeline.ClassSecondary} {
		p, err := pipeline.New(class, cacheSize)
		if err != nil {
			return nil, err
		}
		s.pipelines[class] = p
		s.pipeMu[class] = &deadlock.Mutex{}
	}
	s.viewports[pipeline.ClassFull] = &viewport.State{Mode: viewport.ModeFit, Scale: 1}
	s.viewports[pipeline.ClassSecondary] = &viewport.State{Mode: viewport.ModeFit, Scale: 1}
	return s, nil
}

// SetZoom updates the zoom mode/scale/center/closeup for class (Full or
// Secondary; Preview has no independent viewport, spec.md §4.9) and marks
// the corresponding pipeline ZOOMED so its next run recomputes per-node roi
// (spec.md §4.6). A no-op if class has no viewport (Preview, or an
// unrecognized class).
func (s *State) SetZoom(class pipeline.Class, mode viewport.Mode, scale float64, center core.Point, closeup int) {
	s.devMu.Lock()
	v, ok := s.viewports[class]
	if ok {
		v.Mode = mode
		v.Scale = scale
		v.Center = center
		v.Closeup = closeup
	}
	s.devMu.Unlock()

	if !ok {
		return
	}
	if p, ok := s.pipelines[class]; ok {
		p.Flags().SetZoomed()
	}
}

// ROIFor computes class's current roi against a processed source of srcW x
// srcH pixels, viewed through a boxW x boxH viewport (spec.md §4.5 step 6d).
// Preview has no independent zoom state and always reads the whole source.
func (s *State) ROIFor(class pipeline.Class, boxW, boxH, srcW, srcH int) core.ROI {
	s.devMu.Lock()
	defer s.devMu.Unlock()
	v, ok := s.viewports[class]
	if !ok {
		return core.ROI{X: 0, Y: 0, Width: srcW, Height: srcH, Scale: 1}
	}
	return viewport.ComputeROI(v, boxW, boxH, srcW, srcH)
}

// SetHistory installs a freshly loaded history.Stack (called once by
// Controller.LoadImage, before any caller can observe the state).
func (s *State) SetHistory(h *history.Stack) {
	s.devMu.Lock()
	defer s.devMu.Unlock()
	s.History = h
}

// Pipeline returns the Pipeline for class, and the per-class lock the
// caller must hold while driving it (spec.md §5: "at most one pipeline's
// own lock" after dev_threadsafe and history).
func (s *State) Pipeline(class pipeline.Class) (*pipeline.Pipeline, *deadlock.Mutex) {
	return s.pipelines[class], s.pipeMu[class]
}

// WithDevLock runs fn with devMu held — the entry point for any mutation of
// Handle, Instances, or Ordering.
func (s *State) WithDevLock(fn func()) {
	s.devMu.Lock()
	defer s.devMu.Unlock()
	fn()
}

// SnapshotInstances returns a defensive copy of the live instance list in
// resolved rank order.
func (s *State) SnapshotInstances() []core.OperationInstance {
	s.devMu.Lock()
	defer s.devMu.Unlock()
	return s.Ordering.Resolve(s.Instances)
}
