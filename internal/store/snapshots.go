package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
)

// #region commit-snapshot
// CommitSnapshot inserts a new value-table version whose parent is the current
// active one and moves the active pointer to it atomically.
func (s *Store) CommitSnapshot(ctx context.Context, doc []byte, note string) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parent sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT version_id FROM active_qtable WHERE id = 1`).Scan(&parent)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("get active: %w", err)
	}

	id := uuid.New().String()
	var parentPtr interface{}
	if parent.Valid {
		parentPtr = parent.String
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO qtable_versions (version_id, parent_id, document, note, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, parentPtr, doc, nullIfEmpty(note), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO active_qtable (id, version_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
		id,
	)
	if err != nil {
		return "", fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}
// #endregion commit-snapshot

// #region active-snapshot
// ActiveSnapshot returns the document the active pointer refers to. With no
// snapshot saved yet the error matches fs.ErrNotExist.
func (s *Store) ActiveSnapshot(ctx context.Context) ([]byte, string, error) {
	var id string
	var doc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT v.version_id, v.document FROM active_qtable a
		 JOIN qtable_versions v ON v.version_id = a.version_id WHERE a.id = 1`,
	).Scan(&id, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("active snapshot: %w", fs.ErrNotExist)
	}
	if err != nil {
		return nil, "", fmt.Errorf("active snapshot: %w", err)
	}
	return doc, id, nil
}
// #endregion active-snapshot

// #region rollback
// Rollback points the active snapshot at an earlier version.
func (s *Store) Rollback(ctx context.Context, versionID string) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM qtable_versions WHERE version_id = ?`, versionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("version %s not found", versionID)
	}

	_, err = s.db.ExecContext(ctx, `UPDATE active_qtable SET version_id = ? WHERE id = 1`, versionID)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}
// #endregion rollback

// #region list-snapshots
// ListSnapshots returns the most recent snapshot versions, newest first.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]SnapshotVersion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT v.version_id, v.parent_id, v.note, v.created_at, a.version_id IS NOT NULL
		 FROM qtable_versions v LEFT JOIN active_qtable a ON a.version_id = v.version_id
		 ORDER BY v.rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotVersion
	for rows.Next() {
		var v SnapshotVersion
		var parent, note sql.NullString
		var createdStr string
		if err := rows.Scan(&v.VersionID, &parent, &note, &createdStr, &v.Active); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		v.ParentID = parent.String
		v.Note = note.String
		v.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, v)
	}
	return out, rows.Err()
}
// #endregion list-snapshots

// #region snapshot-adapter
// SnapshotStore adapts the versioned table to agent.SnapshotStore.
type SnapshotStore struct {
	store *Store
	note  string
}

// SnapshotStore returns an adapter whose saves are tagged with note.
func (s *Store) SnapshotStore(note string) *SnapshotStore {
	return &SnapshotStore{store: s, note: note}
}

func (a *SnapshotStore) Save(ctx context.Context, data []byte) error {
	_, err := a.store.CommitSnapshot(ctx, data, a.note)
	return err
}

func (a *SnapshotStore) Load(ctx context.Context) ([]byte, error) {
	doc, _, err := a.store.ActiveSnapshot(ctx)
	return doc, err
}
// #endregion snapshot-adapter
