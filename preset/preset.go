// Package preset implements the Preset Resolver (spec.md §4.7): matching a
// loaded image handle against installed presets, applying auto-apply
// presets exactly once per image, and resolving conflicts between matching
// presets by specificity and user-over-builtin precedence.
package preset

import (
	"sort"

	"github.com/Skryldev/darkroom-develop/core"
)

// Origin distinguishes a user-authored preset from a shipped builtin one;
// user presets always win a conflict against a builtin at equal
// specificity (spec.md §4.7 "user-over-builtin precedence").
type Origin int

const (
	OriginBuiltin Origin = iota
	OriginUser
)

// Selector matches a subset of an ImageHandle's capture metadata. A zero
// value field means "don't care"; a non-zero value must match exactly
// (string fields) or fall within [Min,Max] (numeric range fields).
type Selector struct {
	Maker string
	Model string
	Lens  string

	ISOMin, ISOMax           float64
	ExposureMin, ExposureMax float64

	RequireRaw   bool
	RequireMono  bool
}

// matches reports whether h satisfies every non-zero constraint in s, and
// the selector's specificity (number of constraints it actually checks) —
// more specific selectors win conflicts at equal origin precedence.
func (s Selector) matches(h core.ImageHandle) (ok bool, specificity int) {
	check := func(cond bool) bool {
		if cond {
			specificity++
		}
		return cond
	}
	if s.Maker != "" && !check(s.Maker == h.Maker) {
		return false, specificity
	}
	if s.Model != "" && !check(s.Model == h.Model) {
		return false, specificity
	}
	if s.Lens != "" && !check(s.Lens == h.Lens) {
		return false, specificity
	}
	if s.ISOMin != 0 || s.ISOMax != 0 {
		if !check(h.ISO >= s.ISOMin && (s.ISOMax == 0 || h.ISO <= s.ISOMax)) {
			return false, specificity
		}
	}
	if s.ExposureMin != 0 || s.ExposureMax != 0 {
		if !check(h.Exposure >= s.ExposureMin && (s.ExposureMax == 0 || h.Exposure <= s.ExposureMax)) {
			return false, specificity
		}
	}
	if s.RequireRaw && !check(h.Raw) {
		return false, specificity
	}
	if s.RequireMono && !check(h.Monochrome) {
		return false, specificity
	}
	return true, specificity
}

// Preset is one installed preset: a selector plus the operation instance it
// writes when applied. InstancePriority is assigned by AutoApplyMatches, not
// by the installer: it is zero on every stored Preset and only becomes
// meaningful on the Preset values AutoApplyMatches returns.
type Preset struct {
	Name             string
	Op               string
	Origin           Origin
	Selector         Selector
	AutoApply        bool
	IOPOrder         bool // true for an ioporder preset (queried separately, §4.7)
	Params           []byte
	BlendParams      []byte
	InstancePriority int
}

// Resolver holds the installed preset set and resolves matches for a given
// image handle (spec.md §4.7).
type Resolver struct {
	presets     []Preset
	oneInstance map[string]bool
}

// NewResolver returns a Resolver over the given installed presets.
func NewResolver(presets []Preset) *Resolver {
	return &Resolver{presets: append([]Preset(nil), presets...)}
}

// SetOneInstanceOps installs the set of ops constrained to a single instance
// (spec.md: "ONE_INSTANCE types are constrained to instance-priority 0").
// AutoApplyMatches keeps only the single best match for these ops instead of
// serialising conflicts into multiple instances.
func (r *Resolver) SetOneInstanceOps(ops map[string]bool) {
	r.oneInstance = ops
}

// AutoApplyMatches returns the auto-apply presets (excluding ioporder
// presets) that match h. Within each op's matches, presets are ranked by
// specificity with OriginUser breaking ties over OriginBuiltin (spec.md
// §4.7). For a ONE_INSTANCE op only the single best match survives; for any
// other op, every genuinely conflicting match survives as its own instance,
// serialised by assigning increasing InstancePriority in rank order rather
// than discarding all but the winner (spec.md §4.7's "window function").
func (r *Resolver) AutoApplyMatches(h core.ImageHandle) []Preset {
	type candidate struct {
		p           Preset
		specificity int
	}
	groups := make(map[string][]candidate)
	var ops []string
	for _, p := range r.presets {
		if !p.AutoApply || p.IOPOrder {
			continue
		}
		ok, spec := p.Selector.matches(h)
		if !ok {
			continue
		}
		if _, seen := groups[p.Op]; !seen {
			ops = append(ops, p.Op)
		}
		groups[p.Op] = append(groups[p.Op], candidate{p: p, specificity: spec})
	}
	sort.Strings(ops)

	out := make([]Preset, 0, len(groups))
	for _, op := range ops {
		cands := groups[op]
		sort.SliceStable(cands, func(i, j int) bool {
			return betterMatch(cands[i].p, cands[i].specificity, cands[j].p, cands[j].specificity)
		})
		if r.oneInstance[op] {
			cands = cands[:1]
		}
		for i, c := range cands {
			winner := c.p
			winner.InstancePriority = i
			out = append(out, winner)
		}
	}
	return out
}

// IOPOrderMatch returns the single ioporder preset matching h with the
// highest specificity, if any — queried separately from ordinary auto-apply
// presets per spec.md §4.7.
func (r *Resolver) IOPOrderMatch(h core.ImageHandle) (Preset, bool) {
	var (
		best     Preset
		bestSpec int
		found    bool
	)
	for _, p := range r.presets {
		if !p.IOPOrder {
			continue
		}
		ok, spec := p.Selector.matches(h)
		if !ok {
			continue
		}
		if !found || betterMatch(p, spec, best, bestSpec) {
			best, bestSpec, found = p, spec, true
		}
	}
	return best, found
}

// betterMatch reports whether candidate p (with specificity spec) should
// replace the current best cur (with specificity curSpec): higher
// specificity wins; at equal specificity, OriginUser beats OriginBuiltin.
func betterMatch(p Preset, spec int, cur Preset, curSpec int) bool {
	if spec != curSpec {
		return spec > curSpec
	}
	return p.Origin == OriginUser && cur.Origin != OriginUser
}
