package persistence

import (
	"context"
	"encoding/base64"
	"encoding/xml"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"github.com/gofrs/flock"

	"github.com/Skryldev/darkroom-develop/core"
	apperrors "github.com/Skryldev/darkroom-develop/errors"
)

// sidecarDoc is the XMP-like XML shape a sidecar file round-trips
// (spec.md §4.8, §6: "sidecar format realized as XMP-like XML").
type sidecarDoc struct {
	XMLName xml.Name            `xml:"darkroomDevelop"`
	ImageID string              `xml:"imageId,attr"`
	Hash    string              `xml:"contentHash,attr"`
	History []sidecarHistoryRow `xml:"history>entry"`
}

type sidecarHistoryRow struct {
	Op               string `xml:"op,attr"`
	SchemaVersion    int    `xml:"schemaVersion,attr"`
	InstancePriority int    `xml:"instancePriority,attr"`
	InstanceLabel    string `xml:"instanceLabel,attr,omitempty"`
	HandEdited       bool   `xml:"handEdited,attr"`
	Enabled          bool   `xml:"enabled,attr"`
	Rank             int    `xml:"rank,attr"`
	FocusHash        string `xml:"focusHash,attr,omitempty"`
	ParamsB64        string `xml:"params"`
	BlendParamsB64   string `xml:"blendParams"`
	// MasksZstdB64 is a zstd-compressed, base64-encoded JSON array of
	// core.MaskForm — mask polygon data is the largest blob a sidecar
	// carries, so it is compressed at rest (spec.md §4.8).
	MasksZstdB64 string `xml:"masks,omitempty"`
}

func encodeMasks(masks []core.MaskForm) (string, error) {
	if len(masks) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(masks)
	if err != nil {
		return "", err
	}
	compressed, err := compressZstd(raw)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(compressed), nil
}

func decodeMasks(encoded string) ([]core.MaskForm, error) {
	if encoded == "" {
		return nil, nil
	}
	compressed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	raw, err := decompressZstd(compressed)
	if err != nil {
		return nil, err
	}
	var masks []core.MaskForm
	if err := json.Unmarshal(raw, &masks); err != nil {
		return nil, err
	}
	return masks, nil
}

// SidecarWriter exports/imports the XMP-style sidecar file for one image,
// serializing writes with a process-visible file lock so autosave and an
// on-demand export never interleave partial writes (spec.md §4.8).
type SidecarWriter struct {
	dir string
}

// NewSidecarWriter returns a writer rooted at dir (created if absent).
func NewSidecarWriter(dir string) (*SidecarWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "persistence.sidecar.mkdir", err)
	}
	return &SidecarWriter{dir: dir}, nil
}

func (w *SidecarWriter) path(imageID string) string {
	return filepath.Join(w.dir, imageID+".xmp")
}

// Export writes entries to the image's sidecar file, embedding a content
// hash computed over entries and overrides. The overrides themselves are
// not written to the file.
func (w *SidecarWriter) Export(ctx context.Context, imageID string, entries []core.HistoryEntry, overrides []core.OrderingEntry) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryPipelineInterrupted, "sidecar.export", err)
	}

	hash, err := ContentHash(entries, overrides)
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "sidecar.export.hash", err)
	}

	doc := sidecarDoc{ImageID: imageID, Hash: hash}
	for _, e := range entries {
		masksEnc, err := encodeMasks(e.Masks)
		if err != nil {
			return apperrors.Wrap(apperrors.CategoryStorage, "sidecar.export.masks", err)
		}
		doc.History = append(doc.History, sidecarHistoryRow{
			Op: e.Op, SchemaVersion: e.SchemaVersion, InstancePriority: e.InstancePriority,
			InstanceLabel: e.InstanceLabel, HandEdited: e.HandEdited, Enabled: e.Enabled,
			Rank: e.Rank, FocusHash: e.FocusHash,
			ParamsB64: string(e.Params), BlendParamsB64: string(e.BlendParams),
			MasksZstdB64: masksEnc,
		})
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "sidecar.export.marshal", err)
	}

	path := w.path(imageID)
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, defaultLockRetryInterval)
	if err != nil || !locked {
		return apperrors.New(apperrors.CategoryPersistenceConflict, "sidecar.export", apperrors.ErrSidecarLocked)
	}
	defer lock.Unlock()

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "sidecar.export.write", err)
	}
	return nil
}

// Import reads and parses an image's sidecar file back into history
// entries, and returns the embedded content hash for the caller to verify
// against a freshly computed one (P5's round-trip law). The file holds no
// ordering overrides, so none are returned.
func (w *SidecarWriter) Import(ctx context.Context, imageID string) ([]core.HistoryEntry, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", apperrors.Wrap(apperrors.CategoryPipelineInterrupted, "sidecar.import", err)
	}

	path := w.path(imageID)
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, defaultLockRetryInterval)
	if err != nil || !locked {
		return nil, "", apperrors.New(apperrors.CategoryPersistenceConflict, "sidecar.import", apperrors.ErrSidecarLocked)
	}
	defer lock.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.CategoryStorage, "sidecar.import.read", err)
	}

	var doc sidecarDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, "", apperrors.Wrap(apperrors.CategoryStorage, "sidecar.import.unmarshal", err)
	}

	entries := make([]core.HistoryEntry, len(doc.History))
	for i, row := range doc.History {
		masks, err := decodeMasks(row.MasksZstdB64)
		if err != nil {
			return nil, "", apperrors.Wrap(apperrors.CategoryStorage, "sidecar.import.masks", err)
		}
		entries[i] = core.HistoryEntry{
			Op: row.Op, SchemaVersion: row.SchemaVersion, InstancePriority: row.InstancePriority,
			InstanceLabel: row.InstanceLabel, HandEdited: row.HandEdited, Enabled: row.Enabled,
			Rank: row.Rank, FocusHash: row.FocusHash,
			Params: []byte(row.ParamsB64), BlendParams: []byte(row.BlendParamsB64),
			Masks: masks,
		}
	}
	return entries, doc.Hash, nil
}
