// Package ordering implements Operation Ordering (spec.md §4.3): the total
// order over (op, instance-priority) pairs that assigns each instance its
// Rank, plus the per-image override list that lets a user reorder specific
// instances.
package ordering

import (
	"sort"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/Skryldev/darkroom-develop/core"
)

// Entry is an alias of core.OrderingEntry kept local for readability in this
// package's exported API.
type Entry = core.OrderingEntry

// List is the per-image ordering list (spec.md §3 "Ordering list"): a
// total order over (op, instance-priority) realized as a Rank assignment.
// The base order comes from each operation type's default priority; a user
// override list layered on top can reorder specific instances without
// disturbing the base order for everything else.
type List struct {
	mu sync.RWMutex

	base     []string // op identifiers in default priority order
	overrides []Entry // explicit (op, instance-priority) -> rank pins
}

// NewList returns a List whose base order is baseOps, in the priority order
// given (first = lowest rank).
func NewList(baseOps []string) *List {
	return &List{base: append([]string(nil), baseOps...)}
}

// SetOverride pins (op, instancePriority) to rank, taking precedence over
// the base order on the next Resolve. Passing the same (op, priority) twice
// replaces the prior pin.
func (l *List) SetOverride(op string, instancePriority, rank int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.overrides {
		if e.Op == op && e.InstancePriority == instancePriority {
			l.overrides[i].Rank = rank
			return
		}
	}
	l.overrides = append(l.overrides, Entry{Op: op, InstancePriority: instancePriority, Rank: rank})
}

// Resolve assigns a Rank to every instance in instances, in stable total
// order: override-pinned instances sort by their pinned rank; everything
// else sorts by its position in the base order, then by InstancePriority to
// break ties between duplicate instances of the same op (spec.md §4.3
// "duplicate instances insert immediately after the base instance").
func (l *List) Resolve(instances []core.OperationInstance) []core.OperationInstance {
	l.mu.RLock()
	basePos := make(map[string]int, len(l.base))
	for i, op := range l.base {
		basePos[op] = i
	}
	overrideRank := make(map[core.Key]int, len(l.overrides))
	for _, e := range l.overrides {
		overrideRank[core.Key{Op: e.Op, InstancePriority: e.InstancePriority}] = e.Rank
	}
	l.mu.RUnlock()

	out := make([]core.OperationInstance, len(instances))
	copy(out, instances)

	sort.SliceStable(out, func(i, j int) bool {
		ki, kj := out[i].Key(), out[j].Key()
		ri, oi := overrideRank[ki]
		rj, oj := overrideRank[kj]
		switch {
		case oi && oj:
			return ri < rj
		case oi && !oj:
			return true
		case !oi && oj:
			return false
		}
		pi, pj := basePos[out[i].Op], basePos[out[j].Op]
		if pi != pj {
			return pi < pj
		}
		return out[i].InstancePriority < out[j].InstancePriority
	})

	for i := range out {
		out[i].Rank = i
	}
	return out
}

// MarshalJSON serializes the override list for the ordering-list blob
// persisted per image (spec.md §4.8).
func (l *List) MarshalJSON() ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return json.Marshal(l.overrides)
}

// UnmarshalOverrides replaces the override list from a persisted blob.
func (l *List) UnmarshalOverrides(data []byte) error {
	var overrides []Entry
	if err := json.Unmarshal(data, &overrides); err != nil {
		return err
	}
	l.mu.Lock()
	l.overrides = overrides
	l.mu.Unlock()
	return nil
}

// Overrides returns a defensive copy of the current override list.
func (l *List) Overrides() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.overrides...)
}
