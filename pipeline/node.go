// Package pipeline builds a dependency-ordered node chain from a history
// prefix, runs it with a per-node intermediate cache, and tracks which
// change-flag bits force which nodes to re-execute (spec.md §4.4, §4.6).
package pipeline

import (
	"sort"

	"github.com/Skryldev/darkroom-develop/core"
)

// Class names the three worker classes a Pipeline can belong to
// (spec.md §4.5: "a distinct worker class per pipeline").
type Class string

const (
	ClassFull      Class = "full"
	ClassPreview   Class = "preview"
	ClassSecondary Class = "secondary"
)

// Node is one dependency-ordered stage of a Pipeline: a single operation
// instance from the image's history/ordering together with the ROI it will
// be asked to produce (spec.md §3 "Pipeline node").
type Node struct {
	Instance core.OperationInstance
	Module   core.Module

	RoiIn  core.ROI
	RoiOut core.ROI

	// Fingerprint is the 64-bit rolling hash identifying this node's
	// (op, schema version, rank, instance-priority, enabled, params,
	// blend-params, roi, source dims+scale) tuple (spec.md §4.4).
	Fingerprint uint64
}

// BuildNodes produces the dependency-ordered node chain for a history
// prefix (spec.md §4.4): entries are sorted by Rank before any node is
// built, so callers need not pre-sort them themselves — Rank is expected
// to already be assigned by ordering.List.Resolve (spec.md §4.3), and a
// caller that skips Resolve gets whatever Rank each entry happened to
// carry (typically 0, the chronological-append default), not a silent
// reordering into history order.
//
// An entry whose op has no registered module (spec.md §7 ModuleMismatch)
// is logged and dropped rather than aborting the whole build: one stale
// or renamed op must not take down every other node in the chain.
// srcW and srcH carry the source image's dimensions and roiOut.Scale the
// current zoom scale; all of them feed every node's fingerprint.
func BuildNodes(entries []core.HistoryEntry, registry core.ModuleRegistry, roiOut core.ROI, srcW, srcH int, logger core.Logger) []Node {
	sorted := make([]core.HistoryEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })

	nodes := make([]Node, 0, len(sorted))
	for _, e := range sorted {
		if !e.Enabled {
			continue
		}
		mod, ok := registry.Lookup(e.Op)
		if !ok {
			if logger != nil {
				logger.Warn("dropping history entry with no registered module", "op", e.Op, "error", moduleMismatch(e.Op))
			}
			continue
		}
		inst := core.OperationInstance{
			Op:               e.Op,
			SchemaVersion:    e.SchemaVersion,
			InstancePriority: e.InstancePriority,
			InstanceLabel:    e.InstanceLabel,
			HandEdited:       e.HandEdited,
			Enabled:          e.Enabled,
			Params:           e.Params,
			BlendParams:      e.BlendParams,
			Rank:             e.Rank,
		}
		n := Node{
			Instance: inst,
			Module:   mod,
			RoiOut:   roiOut,
		}
		n.RoiIn = backproject(mod, roiOut)
		n.Fingerprint = Fingerprint(inst, n.RoiIn, n.RoiOut, srcW, srcH)
		nodes = append(nodes, n)
	}
	return nodes
}

// backproject maps roiOut through the module's backward geometry to find the
// ROI it needs to read from its upstream node.
func backproject(mod core.Module, roiOut core.ROI) core.ROI {
	corners := []core.Point{
		{X: float64(roiOut.X), Y: float64(roiOut.Y)},
		{X: float64(roiOut.X + roiOut.Width), Y: float64(roiOut.Y + roiOut.Height)},
	}
	back := mod.DistortBacktransform(corners)
	if len(back) != 2 {
		return roiOut
	}
	x0, y0 := back[0].X, back[0].Y
	x1, y1 := back[1].X, back[1].Y
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return core.ROI{
		X: int(x0), Y: int(y0),
		Width: int(x1 - x0), Height: int(y1 - y0),
		Scale: roiOut.Scale,
	}
}
