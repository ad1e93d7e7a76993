package core

import (
	"context"
	"io"
	"sync/atomic"
)

// Module is the entire operation-module ABI (spec §4.1, §6): the processing
// entry point plus the geometric and lifecycle hooks every installed
// operation type must provide. A Module value is immutable after
// registration; its Descriptor never changes.
type Module interface {
	// Descriptor returns the module's static self-description.
	Descriptor() OperationType

	// Process transforms input into output for one node. It must honour
	// cooperative cancellation by polling shutdown at natural chunk
	// boundaries, must not mutate input, and must be deterministic given
	// identical (instance params, blend params, input bytes, roi).
	Process(ctx context.Context, inst OperationInstance, input *Buffer, roiIn, roiOut ROI, shutdown *Shutdown) (*Buffer, ControlFlow, error)

	// DistortTransform/DistortBacktransform map point sets forward/backward
	// through the operation's geometry. Non-geometric modules return pts
	// unchanged (identity).
	DistortTransform(pts []Point) []Point
	DistortBacktransform(pts []Point) []Point

	// CommitParams is called when the GUI widget for this module commits a
	// new parameter value into the live instance (no-op for modules with no
	// widget state beyond Params).
	CommitParams(inst *OperationInstance) error

	// InitPipe/CleanupPipe bracket a node's lifetime within one pipeline
	// (Full/Preview/Secondary), for modules that hold per-pipeline scratch
	// state (e.g. device buffers).
	InitPipe(pipelineName string) error
	CleanupPipe(pipelineName string) error

	// LegacyParams migrates a persisted parameter blob at oldVersion to the
	// module's current schema (spec §4.1, §4.8). Returns an error if the
	// stored version cannot be migrated.
	LegacyParams(oldBytes []byte, oldVersion int) (newBytes []byte, newVersion int, err error)

	// ReloadDefaults returns the module's (params, blend params) defaults,
	// used to reset a live instance before history replay (spec §4.2 pop_to).
	ReloadDefaults() (params, blendParams []byte)
}

// Shutdown is the cooperative-cancellation flag a Module must poll at chunk
// boundaries (spec §5 "modules must poll pipeline.shutdown").
type Shutdown struct{ flag int32 }

// Set marks the shutdown flag.
func (s *Shutdown) Set() { atomic.StoreInt32(&s.flag, 1) }

// IsSet reports whether the flag has been set.
func (s *Shutdown) IsSet() bool { return atomic.LoadInt32(&s.flag) != 0 }

// ModuleRegistry maps stable operation identifiers to their installed Module
// implementation (spec §9 "the registry is a map from stable textual id to
// a boxed implementation plus its static descriptor").
type ModuleRegistry interface {
	Lookup(op string) (Module, bool)
	Descriptor(op string) (OperationType, bool)
	All() []OperationType
	Register(m Module)
}

// Decoder converts raw encoded bytes into a decoded Buffer. Raw/JPEG/QOI
// decoders are external collaborators per spec §1; this interface is the
// entire contract the core consumes from them.
type Decoder interface {
	Decode(ctx context.Context, r io.Reader) (*Buffer, error)
	CanDecode(contentType string) bool
}

// MipmapCache is the external thumbnail/downsampled-buffer cache the
// preview pipeline reads from (spec §2 component 2, §5 "best-effort for
// preview").
type MipmapCache interface {
	Get(ctx context.Context, imgID string, level int) (*Buffer, bool)
	Put(ctx context.Context, imgID string, level int, buf *Buffer)
}

// MetricsCollector receives performance observations from the render
// scheduler and pipeline.
type MetricsCollector interface {
	RecordProcessingTime(name string, d interface{ Seconds() float64 })
	RecordThroughput(bytes int64)
	RecordMemory(bytes int64)
	RecordError(name string, category string)
}

// Logger is a minimal structured logging interface.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// Hook is an optional observer invoked around pipeline node execution,
// generalized from the teacher's per-Step hook to per-node timing.
type Hook interface {
	BeforeNode(ctx context.Context, op string)
	AfterNode(ctx context.Context, op string, d interface{ Seconds() float64 }, err error)
}

// EncodeOptions parameterizes Encoder.Encode. Not every field applies to
// every format; an encoder ignores the ones it doesn't understand.
type EncodeOptions struct {
	Quality    int
	Lossless   bool
	Interlaced bool
	StripEXIF  bool
}

// Encoder packs a decoded Buffer back into an encoded byte stream, the
// export-side counterpart of Decoder. Neither the render scheduler nor
// cmd/develophist calls an Encoder.
type Encoder interface {
	Encode(ctx context.Context, buf *Buffer, opts EncodeOptions) ([]byte, error)
	CanEncode(contentType string) bool
}

// StorageKey addresses one blob in a StorageAdapter: Bucket groups related
// blobs (e.g. one per image), Path names the individual object within it.
type StorageKey struct {
	Bucket string
	Path   string
}

// StorageAdapter is a blob store, keyed by StorageKey, for rendered exports
// (full-resolution JPEGs, thumbnails) — a concern complementary to
// persistence.Store, which owns history/ordering rows, not pixel bytes.
type StorageAdapter interface {
	Put(ctx context.Context, key StorageKey, r io.Reader, meta map[string]string) error
	Get(ctx context.Context, key StorageKey) (io.ReadCloser, error)
	Delete(ctx context.Context, key StorageKey) error
	Exists(ctx context.Context, key StorageKey) (bool, error)
}
