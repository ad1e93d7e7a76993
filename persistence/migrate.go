package persistence

import (
	"github.com/Skryldev/darkroom-develop/core"
)

// Legacy special cases named abstractly by spec.md §4.8 step 3: a fixed set
// of historical op/version pairs that need a hand-written fixup rather than
// a generic LegacyParams call, because the data they need to migrate from
// was never expressible in the old schema at all.
const (
	legacyFlipOp      = "flip"
	legacyFlipVersion = 1

	legacySpotRemovalOp      = "spot_removal"
	legacySpotRemovalVersion = 1
)

// ApplyLegacyMigrations walks entries in order and brings each one up to its
// module's current schema version (spec.md §4.1, §4.8 step 3). A row already
// at or above its module's current version, or whose op has no registered
// module, passes through unchanged — the latter is left for ModuleMismatch
// handling further down the load path (pipeline.BuildNodes), not this pass.
//
// A row that fails LegacyParams is logged and dropped rather than aborting
// the whole load: one entry with an unmigratable legacy blob must not cost
// the user every other entry in their history.
func ApplyLegacyMigrations(entries []core.HistoryEntry, registry core.ModuleRegistry, logger core.Logger) []core.HistoryEntry {
	out := make([]core.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		mod, ok := registry.Lookup(e.Op)
		if !ok {
			out = append(out, e)
			continue
		}

		desc := mod.Descriptor()
		if e.SchemaVersion >= desc.SchemaVersion {
			out = append(out, e)
			continue
		}

		if migrated, ok := applySpecialCase(e, mod); ok {
			out = append(out, migrated)
			continue
		}

		newParams, newVersion, err := mod.LegacyParams(e.Params, e.SchemaVersion)
		if err != nil {
			if logger != nil {
				logger.Warn("legacy migration failed, dropping history entry",
					"op", e.Op, "stored_version", e.SchemaVersion, "current_version", desc.SchemaVersion, "error", err)
			}
			continue
		}

		migrated := e.Clone()
		migrated.Params = newParams
		migrated.SchemaVersion = newVersion
		out = append(out, migrated)
	}
	return out
}

// applySpecialCase handles the two named legacy fixups that a generic
// LegacyParams call cannot express, since neither migration is a pure
// function of the entry's own stored params:
//
//   - flip at legacy version 1 predates the enable flag entirely, so every
//     such entry is force-enabled with the module's current default params
//     rather than whatever (now meaningless) bytes were stored.
//   - spot_removal at legacy version 1 predates per-instance blend params,
//     which lived on the live module instance instead of the history entry;
//     migrating it means copying the module's current blend params onto the
//     entry rather than transforming the stored bytes.
func applySpecialCase(e core.HistoryEntry, mod core.Module) (core.HistoryEntry, bool) {
	switch {
	case e.Op == legacyFlipOp && e.SchemaVersion == legacyFlipVersion:
		defaults, _ := mod.ReloadDefaults()
		migrated := e.Clone()
		migrated.Enabled = true
		migrated.Params = defaults
		migrated.SchemaVersion = mod.Descriptor().SchemaVersion
		return migrated, true

	case e.Op == legacySpotRemovalOp && e.SchemaVersion == legacySpotRemovalVersion:
		_, blendDefaults := mod.ReloadDefaults()
		migrated := e.Clone()
		migrated.BlendParams = blendDefaults
		migrated.SchemaVersion = mod.Descriptor().SchemaVersion
		return migrated, true

	default:
		return core.HistoryEntry{}, false
	}
}
