package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/Skryldev/darkroom-develop/core"
)

// fakeModule is a minimal core.Module whose LegacyParams/ReloadDefaults
// behavior is controlled per test.
type fakeModule struct {
	op            string
	schemaVersion int
	failLegacy    bool
	defaultParams []byte
	defaultBlend  []byte
}

func (m fakeModule) Descriptor() core.OperationType {
	return core.OperationType{Op: m.op, SchemaVersion: m.schemaVersion}
}
func (m fakeModule) Process(context.Context, core.OperationInstance, *core.Buffer, core.ROI, core.ROI, *core.Shutdown) (*core.Buffer, core.ControlFlow, error) {
	return nil, core.FlowOK, nil
}
func (m fakeModule) DistortTransform(pts []core.Point) []core.Point      { return pts }
func (m fakeModule) DistortBacktransform(pts []core.Point) []core.Point { return pts }
func (m fakeModule) CommitParams(*core.OperationInstance) error         { return nil }
func (m fakeModule) InitPipe(string) error                              { return nil }
func (m fakeModule) CleanupPipe(string) error                           { return nil }
func (m fakeModule) LegacyParams(oldBytes []byte, oldVersion int) ([]byte, int, error) {
	if m.failLegacy {
		return nil, 0, errors.New("cannot migrate this blob")
	}
	return append([]byte("migrated:"), oldBytes...), m.schemaVersion, nil
}
func (m fakeModule) ReloadDefaults() (params, blendParams []byte) {
	return m.defaultParams, m.defaultBlend
}

func testRegistryWith(modules ...fakeModule) *core.DefaultRegistry {
	reg := core.NewRegistry()
	for _, m := range modules {
		reg.Register(m)
	}
	return reg
}

type recordingLogger struct{ warnings int }

func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Info(string, ...interface{})  {}
func (l *recordingLogger) Warn(string, ...interface{})  { l.warnings++ }
func (l *recordingLogger) Error(string, ...interface{}) {}

func TestApplyLegacyMigrationsDropsFailedEntryInsteadOfAborting(t *testing.T) {
	entries := []core.HistoryEntry{
		{Op: "exposure", SchemaVersion: 1, Params: []byte("old-exposure")},
		{Op: "crop", SchemaVersion: 1, Params: []byte("old-crop")},
	}
	reg := testRegistryWith(
		fakeModule{op: "exposure", schemaVersion: 2},
		fakeModule{op: "crop", schemaVersion: 2, failLegacy: true},
	)

	logger := &recordingLogger{}
	out := ApplyLegacyMigrations(entries, reg, logger)

	if len(out) != 1 {
		t.Fatalf("expected the failed crop entry dropped and exposure kept, got %d entries: %+v", len(out), out)
	}
	if out[0].Op != "exposure" || string(out[0].Params) != "migrated:old-exposure" {
		t.Fatalf("expected exposure migrated, got %+v", out[0])
	}
	if logger.warnings != 1 {
		t.Fatalf("expected one warning logged for the dropped entry, got %d", logger.warnings)
	}
}

func TestApplyLegacyMigrationsFlipSpecialCase(t *testing.T) {
	reg := testRegistryWith(fakeModule{
		op: "flip", schemaVersion: 2,
		defaultParams: []byte(`{"horizontal":false,"vertical":false}`),
	})
	entries := []core.HistoryEntry{
		{Op: "flip", SchemaVersion: 1, Enabled: false, Params: []byte("garbage-legacy-bytes")},
	}

	out := ApplyLegacyMigrations(entries, reg, nil)
	if len(out) != 1 {
		t.Fatalf("expected one migrated entry, got %d", len(out))
	}
	if !out[0].Enabled {
		t.Fatal("expected legacy flip v1 to be force-enabled")
	}
	if string(out[0].Params) != `{"horizontal":false,"vertical":false}` {
		t.Fatalf("expected legacy flip v1 to get the module's default params, got %q", out[0].Params)
	}
	if out[0].SchemaVersion != 2 {
		t.Fatalf("expected schema version bumped to current, got %d", out[0].SchemaVersion)
	}
}

func TestApplyLegacyMigrationsSpotRemovalSpecialCase(t *testing.T) {
	reg := testRegistryWith(fakeModule{
		op: "spot_removal", schemaVersion: 2,
		defaultBlend: []byte(`{"opacity":1.0}`),
	})
	entries := []core.HistoryEntry{
		{Op: "spot_removal", SchemaVersion: 1, Enabled: true, Params: []byte("legacy-params"), BlendParams: nil},
	}

	out := ApplyLegacyMigrations(entries, reg, nil)
	if len(out) != 1 {
		t.Fatalf("expected one migrated entry, got %d", len(out))
	}
	if string(out[0].BlendParams) != `{"opacity":1.0}` {
		t.Fatalf("expected live blend params copied onto the entry, got %q", out[0].BlendParams)
	}
	if string(out[0].Params) != "legacy-params" {
		t.Fatalf("expected spot_removal's own params left untouched, got %q", out[0].Params)
	}
}

func TestApplyLegacyMigrationsPassesThroughUpToDateEntries(t *testing.T) {
	reg := testRegistryWith(fakeModule{op: "crop", schemaVersion: 1})
	entries := []core.HistoryEntry{
		{Op: "crop", SchemaVersion: 1, Params: []byte("current")},
	}
	out := ApplyLegacyMigrations(entries, reg, nil)
	if len(out) != 1 || string(out[0].Params) != "current" {
		t.Fatalf("expected up-to-date entry untouched, got %+v", out)
	}
}
