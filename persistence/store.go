// Package persistence implements the Persistence Layer (spec.md §4.8): a
// relational store for images/history/masks/presets plus XMP-style sidecar
// round-trip, content hashing, and legacy-parameter migration on load.
package persistence

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Skryldev/darkroom-develop/core"
	apperrors "github.com/Skryldev/darkroom-develop/errors"
)

// Store is the relational backing store: images, history, masks_history,
// presets, and a memory_history table holding the cursor position as of
// the most recent WriteHistory (spec.md §4.8).
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the sqlite database at dsn and ensures its
// schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "persistence.open", err)
	}
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS images (
	id              TEXT PRIMARY KEY,
	maker           TEXT,
	model           TEXT,
	lens            TEXT,
	iso             REAL,
	exposure        REAL,
	aperture        REAL,
	focal_length    REAL,
	raw             INTEGER,
	ldr             INTEGER,
	hdr             INTEGER,
	monochrome      INTEGER,
	width           INTEGER,
	height          INTEGER,
	change_ts       INTEGER,
	content_hash    TEXT,
	ordering_blob   BLOB,
	auto_presets_applied INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS history (
	image_id         TEXT NOT NULL,
	seq              INTEGER NOT NULL,
	op               TEXT NOT NULL,
	schema_version   INTEGER NOT NULL,
	instance_priority INTEGER NOT NULL,
	instance_label   TEXT,
	hand_edited      INTEGER,
	enabled          INTEGER,
	params           BLOB,
	blend_params     BLOB,
	blend_version    INTEGER,
	rank             INTEGER,
	focus_hash       TEXT,
	PRIMARY KEY (image_id, seq)
);

CREATE TABLE IF NOT EXISTS masks_history (
	image_id TEXT NOT NULL,
	seq      INTEGER NOT NULL,
	idx      INTEGER NOT NULL,
	form_id  TEXT NOT NULL,
	kind     TEXT NOT NULL,
	data     BLOB,
	PRIMARY KEY (image_id, seq, idx)
);

CREATE TABLE IF NOT EXISTS presets (
	name       TEXT PRIMARY KEY,
	op         TEXT NOT NULL,
	origin     TEXT NOT NULL,
	auto_apply INTEGER NOT NULL,
	ioporder   INTEGER NOT NULL,
	selector   BLOB,
	params     BLOB,
	blend_params BLOB
);

-- transient, overwritten on every autosave; tracks the live cursor so a
-- crash between edits and the next full history write loses at most the
-- unsaved tail, per spec.md §4.10's autosave policy.
CREATE TABLE IF NOT EXISTS memory_history (
	image_id TEXT PRIMARY KEY,
	cursor   INTEGER NOT NULL,
	saved_at INTEGER NOT NULL
);
`

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "persistence.migrate", err)
	}
	return nil
}

// WriteImage upserts an image handle's row, including its ordering-list
// blob and content hash.
func (s *Store) WriteImage(ctx context.Context, h core.ImageHandle, orderingBlob []byte, contentHash string, autoPresetsApplied bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO images (id, maker, model, lens, iso, exposure, aperture, focal_length,
			raw, ldr, hdr, monochrome, width, height, change_ts, content_hash, ordering_blob,
			auto_presets_applied)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			maker=excluded.maker, model=excluded.model, lens=excluded.lens, iso=excluded.iso,
			exposure=excluded.exposure, aperture=excluded.aperture, focal_length=excluded.focal_length,
			raw=excluded.raw, ldr=excluded.ldr, hdr=excluded.hdr, monochrome=excluded.monochrome,
			width=excluded.width, height=excluded.height, change_ts=excluded.change_ts,
			content_hash=excluded.content_hash, ordering_blob=excluded.ordering_blob,
			auto_presets_applied=excluded.auto_presets_applied`,
		h.ID.String(), h.Maker, h.Model, h.Lens, h.ISO, h.Exposure, h.Aperture, h.FocalLength,
		boolToInt(h.Raw), boolToInt(h.LDR), boolToInt(h.HDR), boolToInt(h.Monochrome),
		h.Width, h.Height, h.ChangeTimestamp.Unix(), contentHash, orderingBlob, boolToInt(autoPresetsApplied),
	)
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryPersistenceConflict, "persistence.write_image", err)
	}
	return nil
}

// AutoPresetsApplied reports the persisted AUTO_PRESETS_APPLIED flag for an
// image, and whether a row exists at all.
func (s *Store) AutoPresetsApplied(ctx context.Context, id string) (applied bool, found bool, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT auto_presets_applied FROM images WHERE id = ?`, id)
	var v int
	if scanErr := row.Scan(&v); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return false, false, nil
		}
		return false, false, apperrors.Wrap(apperrors.CategoryStorage, "persistence.auto_presets_applied", scanErr)
	}
	return v != 0, true, nil
}

// WriteHistory replaces an image's persisted history rows with entries,
// in order, and records its cursor in memory_history (spec.md §4.8,
// §4.10's autosave write path).
func (s *Store) WriteHistory(ctx context.Context, imageID string, entries []core.HistoryEntry, cursor int, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryPersistenceConflict, "persistence.write_history.begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM history WHERE image_id = ?`, imageID); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "persistence.write_history.delete", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM masks_history WHERE image_id = ?`, imageID); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "persistence.write_history.delete_masks", err)
	}

	for seq, e := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO history (image_id, seq, op, schema_version, instance_priority,
				instance_label, hand_edited, enabled, params, blend_params, blend_version,
				rank, focus_hash)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			imageID, seq, e.Op, e.SchemaVersion, e.InstancePriority, e.InstanceLabel,
			boolToInt(e.HandEdited), boolToInt(e.Enabled), e.Params, e.BlendParams,
			e.BlendVersion, e.Rank, e.FocusHash,
		); err != nil {
			return apperrors.Wrap(apperrors.CategoryStorage, "persistence.write_history.insert", err)
		}
		for i, m := range e.Masks {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO masks_history (image_id, seq, idx, form_id, kind, data)
				VALUES (?,?,?,?,?,?)`,
				imageID, seq, i, m.FormID, m.Kind, m.Data,
			); err != nil {
				return apperrors.Wrap(apperrors.CategoryStorage, "persistence.write_history.insert_mask", err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO memory_history (image_id, cursor, saved_at) VALUES (?,?,?)
		ON CONFLICT(image_id) DO UPDATE SET cursor = excluded.cursor, saved_at = excluded.saved_at`,
		imageID, cursor, now.Unix(),
	); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "persistence.write_history.memory", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.CategoryPersistenceConflict, "persistence.write_history.commit", err)
	}
	return nil
}

// ReadHistory reconstructs an image's persisted history entries in seq
// order, plus its saved cursor. Any row with FlagOneInstance's operation
// type and a persisted InstancePriority > 0 is coerced to 0 with a logged
// warning (Open Question decision, see DESIGN.md).
func (s *Store) ReadHistory(ctx context.Context, imageID string, oneInstanceOps map[string]bool, logger core.Logger) ([]core.HistoryEntry, int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, op, schema_version, instance_priority, instance_label, hand_edited,
			enabled, params, blend_params, blend_version, rank, focus_hash
		FROM history WHERE image_id = ? ORDER BY seq ASC`, imageID)
	if err != nil {
		return nil, -1, apperrors.Wrap(apperrors.CategoryStorage, "persistence.read_history", err)
	}
	defer rows.Close()

	var (
		entries []core.HistoryEntry
		seqs    []int
	)
	for rows.Next() {
		var (
			seq                                    int
			e                                       core.HistoryEntry
			handEdited, enabled                     int
		)
		if err := rows.Scan(&seq, &e.Op, &e.SchemaVersion, &e.InstancePriority, &e.InstanceLabel,
			&handEdited, &enabled, &e.Params, &e.BlendParams, &e.BlendVersion, &e.Rank, &e.FocusHash); err != nil {
			return nil, -1, apperrors.Wrap(apperrors.CategoryStorage, "persistence.read_history.scan", err)
		}
		e.HandEdited = handEdited != 0
		e.Enabled = enabled != 0

		if oneInstanceOps[e.Op] && e.InstancePriority > 0 {
			if logger != nil {
				logger.Warn("coercing persisted multi-instance priority on a ONE_INSTANCE op to 0",
					"op", e.Op, "image_id", imageID, "persisted_priority", e.InstancePriority)
			}
			e.InstancePriority = 0
		}

		entries = append(entries, e)
		seqs = append(seqs, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, -1, apperrors.Wrap(apperrors.CategoryStorage, "persistence.read_history.rows", err)
	}

	for i := range entries {
		masks, err := s.readMasks(ctx, imageID, seqs[i])
		if err != nil {
			return nil, -1, err
		}
		entries[i].Masks = masks
	}

	cursor := len(entries) - 1
	row := s.db.QueryRowContext(ctx, `SELECT cursor FROM memory_history WHERE image_id = ?`, imageID)
	var persistedCursor int
	if err := row.Scan(&persistedCursor); err == nil {
		cursor = persistedCursor
	} else if err != sql.ErrNoRows {
		return nil, -1, apperrors.Wrap(apperrors.CategoryStorage, "persistence.read_history.cursor", err)
	}

	return entries, cursor, nil
}

func (s *Store) readMasks(ctx context.Context, imageID string, seq int) ([]core.MaskForm, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT form_id, kind, data FROM masks_history WHERE image_id = ? AND seq = ? ORDER BY idx ASC`,
		imageID, seq)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "persistence.read_masks", err)
	}
	defer rows.Close()

	var out []core.MaskForm
	for rows.Next() {
		var m core.MaskForm
		if err := rows.Scan(&m.FormID, &m.Kind, &m.Data); err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryStorage, "persistence.read_masks.scan", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ReadOrderingBlob returns the raw ordering-list blob and content hash
// stored for an image.
func (s *Store) ReadOrderingBlob(ctx context.Context, imageID string) (blob []byte, contentHash string, found bool, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT ordering_blob, content_hash FROM images WHERE id = ?`, imageID)
	if scanErr := row.Scan(&blob, &contentHash); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return nil, "", false, nil
		}
		return nil, "", false, apperrors.Wrap(apperrors.CategoryStorage, "persistence.read_ordering", scanErr)
	}
	return blob, contentHash, true, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
