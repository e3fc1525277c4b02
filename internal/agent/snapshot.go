package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"slices"

	"go.uber.org/zap"
)

// SnapshotVersion is the current snapshot document version.
const SnapshotVersion = 1

// #region snapshot-doc
type snapshotDoc struct {
	Version int             `json:"version"`
	Actions []Action        `json:"actions"`
	Entries []snapshotEntry `json:"entries"`
}

type snapshotEntry struct {
	State  State              `json:"state"`
	Values map[Action]float64 `json:"values"`
}
// #endregion snapshot-doc

// #region encode
// EncodeSnapshot serializes the agent's table. Entries are sorted by state.
func (a *Agent) EncodeSnapshot() ([]byte, error) {
	doc := snapshotDoc{
		Version: SnapshotVersion,
		Actions: a.cfg.Actions,
		Entries: make([]snapshotEntry, 0, len(a.table.rows)),
	}
	for _, s := range a.table.sortedStates() {
		doc.Entries = append(doc.Entries, snapshotEntry{State: s, Values: a.Row(s)})
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}
// #endregion encode

// #region decode
// DecodeSnapshot replaces the agent's table with the one in data. On any error
// the current table is left untouched.
func (a *Agent) DecodeSnapshot(data []byte) error {
	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %w", ErrSnapshotCorrupt, err)
	}
	if doc.Version != SnapshotVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrSnapshotCorrupt, doc.Version)
	}
	if !slices.Equal(doc.Actions, a.cfg.Actions) {
		return fmt.Errorf("%w: action set %v does not match configured %v", ErrSnapshotCorrupt, doc.Actions, a.cfg.Actions)
	}

	t := newTable(a.cfg.Actions)
	for i, e := range doc.Entries {
		if e.State.IsZero() {
			return fmt.Errorf("%w: entry %d has empty state", ErrSnapshotCorrupt, i)
		}
		if _, dup := t.rows[e.State]; dup {
			return fmt.Errorf("%w: duplicate state %s", ErrSnapshotCorrupt, e.State)
		}
		if len(e.Values) != len(t.actions) {
			return fmt.Errorf("%w: partial row for %s", ErrSnapshotCorrupt, e.State)
		}
		row := make([]float64, len(t.actions))
		for act, v := range e.Values {
			col, ok := t.index[act]
			if !ok {
				return fmt.Errorf("%w: unknown action %q in row %s", ErrSnapshotCorrupt, act, e.State)
			}
			row[col] = v
		}
		t.rows[e.State] = row
	}
	a.table = t
	return nil
}
// #endregion decode

// #region save-load
// SaveSnapshot writes the table to the configured snapshot store.
func (a *Agent) SaveSnapshot(ctx context.Context) error {
	if a.snapshots == nil {
		return fmt.Errorf("%w: no snapshot store configured", ErrInvalidConfiguration)
	}
	data, err := a.EncodeSnapshot()
	if err != nil {
		return err
	}
	if err := a.snapshots.Save(ctx, data); err != nil {
		return fmt.Errorf("save snapshot: %w: %w", ErrStorageUnavailable, err)
	}
	a.logger.Debug("snapshot saved", zap.Int("states", len(a.table.rows)))
	return nil
}

// LoadSnapshot restores the table. A missing snapshot leaves the table as is and
// is not an error; anything present but unreadable is ErrSnapshotCorrupt.
func (a *Agent) LoadSnapshot(ctx context.Context) error {
	if a.snapshots == nil {
		return fmt.Errorf("%w: no snapshot store configured", ErrInvalidConfiguration)
	}
	data, err := a.snapshots.Load(ctx)
	if errors.Is(err, fs.ErrNotExist) {
		a.logger.Info("no snapshot found, starting with empty table")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w: %w", ErrSnapshotCorrupt, err)
	}
	if err := a.DecodeSnapshot(data); err != nil {
		return err
	}
	a.logger.Info("snapshot loaded", zap.Int("states", len(a.table.rows)))
	return nil
}
// #endregion save-load
