package develop

import (
	"context"
	"time"

	"github.com/Skryldev/darkroom-develop/config"
	"github.com/Skryldev/darkroom-develop/core"
	apperrors "github.com/Skryldev/darkroom-develop/errors"
	"github.com/Skryldev/darkroom-develop/history"
	"github.com/Skryldev/darkroom-develop/persistence"
	"github.com/Skryldev/darkroom-develop/preset"
)

// Controller is the Develop Controller façade (spec.md §4.10): the single
// entry point GUI and batch callers use to load an image, append history,
// navigate undo/redo, and reload a stack from storage. It is the direct
// descendant of the teacher's Processor-over-core.Processor façade,
// generalized from "one image through N steps" to "one image's full
// editable lifetime".
type Controller struct {
	cfg      config.Config
	store    *persistence.Store
	registry core.ModuleRegistry
	presets  *preset.Resolver
	applied  *preset.AppliedTracker
	logger   core.Logger

	oneInstanceOps map[string]bool
	baseOps        []string
}

// NewController wires a Controller from its collaborators. baseOps is the
// default operation priority order passed to every State's ordering.List.
func NewController(cfg config.Config, store *persistence.Store, registry core.ModuleRegistry, presets *preset.Resolver, logger core.Logger, baseOps []string) *Controller {
	oneInstance := make(map[string]bool)
	for _, op := range registry.All() {
		if op.Flags.Has(core.FlagOneInstance) {
			oneInstance[op.Op] = true
		}
	}
	if presets != nil {
		presets.SetOneInstanceOps(oneInstance)
	}
	return &Controller{
		cfg:            cfg,
		store:          store,
		registry:       registry,
		presets:        presets,
		applied:        preset.NewAppliedTracker(),
		logger:         logger,
		oneInstanceOps: oneInstance,
		baseOps:        baseOps,
	}
}

// LoadImage reads an image's persisted history (applying any pending legacy
// migrations) and resolves auto-apply presets exactly once per image
// (spec.md §4.10 "load_image", §4.7's AUTO_PRESETS_APPLIED flag).
func (c *Controller) LoadImage(ctx context.Context, handle core.ImageHandle) (*State, error) {
	idStr := handle.ID.String()

	entries, cursor, err := c.store.ReadHistory(ctx, idStr, c.oneInstanceOps, c.logger)
	if err != nil {
		return nil, err
	}
	entries = persistence.ApplyLegacyMigrations(entries, c.registry, c.logger)

	applied, found, err := c.store.AutoPresetsApplied(ctx, idStr)
	if err != nil {
		return nil, err
	}

	s, err := New(handle, c.baseOps, c.cfg.PipelineCacheSize)
	if err != nil {
		return nil, err
	}
	s.SetHistory(history.New())
	s.History.ReplaceAll(entries, cursor)

	if found && applied {
		c.applied.MarkApplied(handle.ID)
		s.AutoPresetsApplied = true
	} else if c.presets != nil && !c.applied.AlreadyApplied(handle.ID) {
		c.applyAutoPresets(s, handle)
		c.applied.MarkApplied(handle.ID)
		s.AutoPresetsApplied = true
		if err := c.store.WriteImage(ctx, handle, nil, "", true); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (c *Controller) applyAutoPresets(s *State, handle core.ImageHandle) {
	matches := c.presets.AutoApplyMatches(handle)
	now := time.Now()
	s.WithDevLock(func() {
		for _, p := range matches {
			entry := core.HistoryEntry{
				Op: p.Op, SchemaVersion: 1, InstancePriority: p.InstancePriority, Enabled: true,
				Params: p.Params, BlendParams: p.BlendParams,
			}
			s.History.Append(entry, now, true, false)
			s.Instances = append(s.Instances, core.OperationInstance{
				Op: p.Op, SchemaVersion: 1, InstancePriority: p.InstancePriority, Enabled: true,
				Params: p.Params, BlendParams: p.BlendParams,
			})
		}
	})
}

// AddHistoryItem appends entry to s's history (spec.md §4.2
// "add_history_item(instance, enable, new_item?, include_masks?)") and
// raises the matching pipeline change-flag: TOP_CHANGED when the append
// coalesced into the tail entry, SYNCH when it pushed a new entry (spec.md
// §4.6). Every c.cfg.Autosave.Every-th call additionally persists the
// history synchronously; callers wanting a purely async autosave should run
// AddHistoryItem in their own goroutine.
func (c *Controller) AddHistoryItem(ctx context.Context, s *State, entry core.HistoryEntry, newItem, includeMasks bool, appendSeq int) error {
	now := time.Now()
	var result history.AppendResult
	s.WithDevLock(func() {
		result = s.History.Append(entry, now, newItem, includeMasks)
	})
	key := entry.Key()
	for _, p := range s.pipelines {
		if result == history.Coalesced {
			p.Flags().SetTopChanged(key)
		} else {
			p.Flags().SetSynch()
		}
	}

	if c.cfg.Autosave.Every > 0 && appendSeq%c.cfg.Autosave.Every == 0 {
		return c.autosave(ctx, s)
	}
	return nil
}

func (c *Controller) autosave(ctx context.Context, s *State) error {
	start := time.Now()
	entries := s.History.All()
	cursor := s.History.Cursor()
	idStr := s.Handle.ID.String()

	err := persistence.WithConflictRetry(ctx, c.cfg.Persistence.ConflictRetryMax, c.cfg.Persistence.ConflictRetryDelay, func() error {
		return c.store.WriteHistory(ctx, idStr, entries, cursor, time.Now())
	})
	if err != nil {
		return err
	}

	if elapsed := time.Since(start); elapsed > c.cfg.Autosave.SlowDriveThresh {
		if c.logger != nil {
			c.logger.Warn("autosave exceeded slow-drive threshold", "image_id", idStr, "elapsed_ms", elapsed.Milliseconds())
		}
		return apperrors.New(apperrors.CategoryAutosaveSlowDriveDetected, "develop.autosave", apperrors.ErrContextCanceled)
	}
	return nil
}

// Undo moves s's history cursor back one entry and marks every pipeline
// SYNCH: the history topology (cursor) changed but the installed module set
// did not (spec.md §4.6).
func (c *Controller) Undo(s *State) error {
	if err := s.History.Undo(); err != nil {
		return err
	}
	markAllSynch(s)
	return nil
}

// Redo moves s's history cursor forward one entry and marks every pipeline
// SYNCH, for the same reason as Undo.
func (c *Controller) Redo(s *State) error {
	if err := s.History.Redo(); err != nil {
		return err
	}
	markAllSynch(s)
	return nil
}

// PopHistory moves s's history cursor directly to idx (spec.md §4.10
// "pop_history"), resetting the live instance list from the entries up to
// and including idx. Per spec.md §4.6: if the derived module-instance order
// differs from the prior topology, every pipeline is marked REMOVE (tear
// down and rebuild nodes); otherwise SYNCH (refresh parameters, flush
// cache) — an arbitrary cursor jump, unlike a single-step undo/redo, can
// skip over instances whose params never appeared in cache either way.
func (c *Controller) PopHistory(s *State, idx int) error {
	var oldKeys []core.Key
	s.WithDevLock(func() {
		for _, inst := range s.Instances {
			oldKeys = append(oldKeys, inst.Key())
		}
	})

	if err := s.History.PopTo(idx); err != nil {
		return err
	}

	var newKeys []core.Key
	s.WithDevLock(func() {
		snap := s.History.Snapshot()
		instances := make([]core.OperationInstance, len(snap))
		for i, e := range snap {
			instances[i] = core.OperationInstance{
				Op: e.Op, SchemaVersion: e.SchemaVersion, InstancePriority: e.InstancePriority,
				InstanceLabel: e.InstanceLabel, HandEdited: e.HandEdited, Enabled: e.Enabled,
				Params: e.Params, BlendParams: e.BlendParams, Rank: e.Rank,
			}
			newKeys = append(newKeys, instances[i].Key())
		}
		s.Instances = instances
	})

	if sameKeyOrder(oldKeys, newKeys) {
		markAllSynch(s)
	} else {
		for _, p := range s.pipelines {
			p.Flags().SetRemove()
		}
	}
	return nil
}

func sameKeyOrder(a, b []core.Key) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ReloadHistory re-reads s's image from storage and replaces its in-memory
// history and instance list (spec.md §4.10 "reload_history" — used after
// an external tool, e.g. the sidecar importer, changes the on-disk history
// out from under a running session). The reloaded history may install a
// different module set entirely, so every pipeline is rebuilt from
// scratch: CacheObsolete is set directly rather than routed through a
// flag, since the source of truth (storage) was rewritten externally and
// every cached intermediate is suspect regardless of topology.
func (c *Controller) ReloadHistory(ctx context.Context, s *State) error {
	idStr := s.Handle.ID.String()
	entries, cursor, err := c.store.ReadHistory(ctx, idStr, c.oneInstanceOps, c.logger)
	if err != nil {
		return err
	}
	entries = persistence.ApplyLegacyMigrations(entries, c.registry, c.logger)

	s.WithDevLock(func() {
		s.History.ReplaceAll(entries, cursor)
	})

	for _, p := range s.pipelines {
		p.Flags().CacheObsolete = true
	}
	return nil
}

func markAllSynch(s *State) {
	for _, p := range s.pipelines {
		p.Flags().SetSynch()
	}
}
