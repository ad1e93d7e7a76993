package persistence

import (
	"bytes"
	"encoding/hex"

	"encoding/binary"

	json "github.com/goccy/go-json"
	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/Skryldev/darkroom-develop/core"
)

func xxhashOf(data []byte) []byte {
	sum := xxhash.Sum64(data)
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, sum)
	return b
}

// canonicalEncoding is the JSON shape content hashing and sidecar export
// both serialize history+ordering into, so the two round-trip paths
// (database row vs. sidecar file) hash identically for the same edit state
// (spec.md §4.8 round-trip law, P5).
type canonicalEncoding struct {
	Entries  []core.HistoryEntry  `json:"entries"`
	Overrides []core.OrderingEntry `json:"overrides"`
}

// ContentHash computes the persisted content hash over a zstd-compressed
// canonical encoding of history+ordering (spec.md §4.8).
func ContentHash(entries []core.HistoryEntry, overrides []core.OrderingEntry) (string, error) {
	raw, err := json.Marshal(canonicalEncoding{Entries: entries, Overrides: overrides})
	if err != nil {
		return "", err
	}
	compressed, err := compressZstd(raw)
	if err != nil {
		return "", err
	}
	sum := xxhashOf(compressed)
	return hex.EncodeToString(sum), nil
}

func compressZstd(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressZstd(data []byte) ([]byte, error) {
	r, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(r); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
