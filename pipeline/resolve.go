package pipeline

import (
	"sort"

	"github.com/Skryldev/darkroom-develop/core"
	"github.com/Skryldev/darkroom-develop/ordering"
)

// ResolveEntries assigns each entry its Rank from order (spec.md §4.3) and
// returns a defensive copy sorted into that dependency order, ready for
// BuildNodes. A caller that builds nodes straight from history.Stack.Snapshot
// without going through this step gets BuildNodes's fallback sort on
// whatever Rank each entry already carries, which is not the guarantee
// spec.md §4.4 describes.
func ResolveEntries(entries []core.HistoryEntry, order *ordering.List) []core.HistoryEntry {
	instances := make([]core.OperationInstance, len(entries))
	for i, e := range entries {
		instances[i] = core.OperationInstance{
			Op:               e.Op,
			SchemaVersion:    e.SchemaVersion,
			InstancePriority: e.InstancePriority,
			InstanceLabel:    e.InstanceLabel,
			HandEdited:       e.HandEdited,
			Enabled:          e.Enabled,
			Params:           e.Params,
			BlendParams:      e.BlendParams,
		}
	}
	resolved := order.Resolve(instances)

	rankByKey := make(map[core.Key]int, len(resolved))
	for _, inst := range resolved {
		rankByKey[inst.Key()] = inst.Rank
	}

	out := make([]core.HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
		out[i].Rank = rankByKey[e.Key()]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}
