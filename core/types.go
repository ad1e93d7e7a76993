// Package core holds the domain types shared by every develop-engine
// package: image handles, operation descriptors, history entries, masks,
// and the small geometry/buffer types the pipeline passes between nodes.
package core

import (
	"time"

	"github.com/google/uuid"
)

// CapabilityFlags are the per-operation-type capability bits from spec §3.
type CapabilityFlags uint16

const (
	FlagHidden CapabilityFlags = 1 << iota
	FlagDeprecated
	FlagOneInstance
	FlagNoHistoryStack
	FlagHideEnableButton
	FlagDefaultEnabled
	FlagSupportsBlending
	FlagAllowTiling
)

func (f CapabilityFlags) Has(bit CapabilityFlags) bool { return f&bit != 0 }

// ImageHandle is the opaque identifier for a loaded image plus its immutable
// capture metadata (spec §3 "Image handle").
type ImageHandle struct {
	ID uuid.UUID

	Maker       string
	Model       string
	Lens        string
	ISO         float64
	Exposure    float64 // seconds
	Aperture    float64 // f-number
	FocalLength float64 // millimetres

	Raw        bool
	LDR        bool
	HDR        bool
	Monochrome bool

	ChangeTimestamp time.Time

	Width  int
	Height int
}

// NewImageHandle allocates a fresh handle with a random ID.
func NewImageHandle() ImageHandle {
	return ImageHandle{ID: uuid.New(), ChangeTimestamp: time.Now()}
}

// Point is a 2D point in pipeline-local coordinates, used by the geometric
// distort_transform/distort_backtransform pair (spec §4.1).
type Point struct {
	X, Y float64
}

// ROI is a region of interest rectangle in pipeline-local coordinates
// (spec §4.1: "roi_in/roi_out ... rectangles in pipeline-local coordinates").
type ROI struct {
	X, Y, Width, Height int
	Scale               float64
}

// Buffer is the opaque pixel buffer passed between pipeline nodes. Its
// contents are not interpreted by the core; only dimensions and colour
// space are inspected for bookkeeping.
type Buffer struct {
	Width, Height int
	ColorSpace    string
	Data          []byte
}

// ControlFlow is the outcome of a single module invocation (spec §9:
// "Interrupt-by-goto ... express as ControlFlow from each node invocation").
type ControlFlow int

const (
	FlowOK ControlFlow = iota
	FlowInterrupted
)

// LegacyMigrate converts a persisted parameter blob at oldVersion into the
// module's current schema. Implementations must be pure and deterministic.
type LegacyMigrate func(oldBytes []byte, oldVersion int) (newBytes []byte, newVersion int, err error)

// OperationType is a module's static self-description (spec §3 "Operation
// type (static)").
type OperationType struct {
	Op                 string
	SchemaVersion      int
	ParamSize          int
	DefaultParams      []byte
	DefaultBlendParams []byte
	BlendSchemaVersion int
	Flags              CapabilityFlags
}

// OperationInstance is a live, mutable instantiation of an OperationType
// inside one image's module-instance list (spec §3 "Operation instance").
type OperationInstance struct {
	Op               string
	SchemaVersion    int
	InstancePriority int
	InstanceLabel    string
	HandEdited       bool
	Enabled          bool
	Params           []byte
	BlendParams      []byte
	Rank             int
}

// Key identifies an operation instance by (type, instance-priority), the
// stable identity spec §9 prescribes in place of owning back-pointers.
type Key struct {
	Op               string
	InstancePriority int
}

func (o OperationInstance) Key() Key { return Key{Op: o.Op, InstancePriority: o.InstancePriority} }

// MaskForm is a polygon/gradient/brush/etc. descriptor referenced by id
// (spec §3 "Mask form"); deep-copied into history entries at snapshot time.
type MaskForm struct {
	FormID string
	Kind   string
	Data   []byte
}

// Clone returns a deep copy of m.
func (m MaskForm) Clone() MaskForm {
	out := m
	out.Data = append([]byte(nil), m.Data...)
	return out
}

// HistoryEntry is an immutable snapshot of one operation instance at one
// point in edit history (spec §3 "History entry").
type HistoryEntry struct {
	Op               string
	SchemaVersion    int
	InstancePriority int
	InstanceLabel    string
	HandEdited       bool
	Enabled          bool
	Params           []byte
	BlendParams      []byte
	BlendVersion     int
	Rank             int
	Masks            []MaskForm
	FocusHash        string
}

func (e HistoryEntry) Key() Key { return Key{Op: e.Op, InstancePriority: e.InstancePriority} }

// Clone returns a deep copy of e, including its mask list, suitable for
// storing a new history snapshot independent of the caller's buffers.
func (e HistoryEntry) Clone() HistoryEntry {
	out := e
	out.Params = append([]byte(nil), e.Params...)
	out.BlendParams = append([]byte(nil), e.BlendParams...)
	if e.Masks != nil {
		out.Masks = make([]MaskForm, len(e.Masks))
		for i, m := range e.Masks {
			out.Masks[i] = m.Clone()
		}
	}
	return out
}

// SameParams reports whether two entries carry identical parameter,
// blend-parameter, and (optionally) mask-set content — the equality
// spec §4.2's append-coalescing rule tests.
func (e HistoryEntry) SameParams(o HistoryEntry, compareMasks bool) bool {
	if e.Op != o.Op || e.InstancePriority != o.InstancePriority {
		return false
	}
	if string(e.Params) != string(o.Params) {
		return false
	}
	if string(e.BlendParams) != string(o.BlendParams) {
		return false
	}
	if e.FocusHash != o.FocusHash {
		return false
	}
	if compareMasks && !sameMasks(e.Masks, o.Masks) {
		return false
	}
	return true
}

func sameMasks(a, b []MaskForm) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].FormID != b[i].FormID || string(a[i].Data) != string(b[i].Data) {
			return false
		}
	}
	return true
}

// OrderingEntry is one row of the total order over (op, instance-priority)
// (spec §4.3 "Ordering list").
type OrderingEntry struct {
	Op               string
	InstancePriority int
	Rank             int
}
