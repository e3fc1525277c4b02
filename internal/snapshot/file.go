// Package snapshot stores encoded value tables on the local filesystem.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// #region file-store
// FileStore keeps one snapshot at path. Writes replace the file atomically
// and writers on the same host are serialized with an advisory lock on
// path + ".lock".
type FileStore struct {
	path string
}

// NewFileStore returns a store for path. The parent directory is created on Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Path() string { return f.path }

// Save writes data to a temp file in the target directory, syncs it and renames
// it over the snapshot.
func (f *FileStore) Save(_ context.Context, data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	unlock, err := lockFile(f.path+".lock", true)
	if err != nil {
		return err
	}
	defer unlock()

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	committed = true
	return nil
}

// Load reads the snapshot. A missing file yields an error matching fs.ErrNotExist.
func (f *FileStore) Load(_ context.Context) ([]byte, error) {
	if _, err := os.Stat(f.path); err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}

	unlock, err := lockFile(f.path+".lock", false)
	if err != nil {
		return nil, err
	}
	defer unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}
// #endregion file-store
