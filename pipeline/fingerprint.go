package pipeline

import (
	"encoding/binary"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/Skryldev/darkroom-develop/core"
)

// Fingerprint computes the 64-bit rolling hash identifying a node's cached
// result (spec.md §4.4: "a 64-bit rolling hash of (op id, schema version,
// rank, instance-priority, enabled, params, blend-params, roi, source
// dims+scale)"). Upstream nodes' params are not part of the hash, so equal
// fingerprints imply identical output only when the node's input buffer is
// also unchanged.
func Fingerprint(inst core.OperationInstance, roiIn, roiOut core.ROI, srcW, srcH int) uint64 {
	h := xxhash.New()
	writeString(h, inst.Op)
	writeInt(h, inst.SchemaVersion)
	writeInt(h, inst.Rank)
	writeInt(h, inst.InstancePriority)
	writeBool(h, inst.Enabled)
	h.Write(inst.Params)
	h.Write(inst.BlendParams)
	writeROI(h, roiIn)
	writeROI(h, roiOut)
	writeInt(h, srcW)
	writeInt(h, srcH)
	return h.Sum64()
}

// PipelineFingerprint folds a node chain's fingerprints, plus the pipeline's
// class and output ROI, into one value identifying the whole run. The
// Pipeline Cache does not use it (it is keyed by each node's own
// Fingerprint), and nothing in this module calls it.
func PipelineFingerprint(class Class, nodes []Node, roiOut core.ROI) uint64 {
	h := xxhash.New()
	writeString(h, string(class))
	writeROI(h, roiOut)
	for _, n := range nodes {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], n.Fingerprint)
		h.Write(b[:])
	}
	return h.Sum64()
}

func writeString(h *xxhash.Digest, s string) { h.Write([]byte(s)) }

func writeInt(h *xxhash.Digest, v int) { h.Write([]byte(strconv.Itoa(v))) }

func writeBool(h *xxhash.Digest, v bool) {
	if v {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
}

func writeROI(h *xxhash.Digest, r core.ROI) {
	writeInt(h, r.X)
	writeInt(h, r.Y)
	writeInt(h, r.Width)
	writeInt(h, r.Height)
	h.Write([]byte(strconv.FormatFloat(r.Scale, 'g', -1, 64)))
}
