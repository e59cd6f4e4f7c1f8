package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/okian/vibe/internal/domain/model"
)

// FileBackend keeps the whole profile set in one JSON document keyed by user ID.
// It has no per-record write, so every mutation rewrites the file.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend for the snapshot at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// LoadAll implements Backend. A missing file is an empty set.
func (f *FileBackend) LoadAll(_ context.Context) (map[string]*model.Profile, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]*model.Profile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}

	out := make(map[string]*model.Profile)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	for id, p := range out {
		if p == nil {
			delete(out, id)
			continue
		}
		if p.UserID == "" {
			p.UserID = id
		}
	}
	return out, nil
}

// ReplaceAll implements Backend by writing a temp file and renaming it over the snapshot.
func (f *FileBackend) ReplaceAll(_ context.Context, profiles map[string]*model.Profile) error {
	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Close implements Backend.
func (f *FileBackend) Close() error { return nil }
