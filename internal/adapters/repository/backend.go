package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/vibe/internal/domain/model"
)

// Backend is the durable layer below the ProfileStore.
type Backend interface {
	// LoadAll returns every persisted profile keyed by user ID. Undecodable
	// records are skipped and reported with ErrCorruptRecord.
	LoadAll(ctx context.Context) (map[string]*model.Profile, error)
	// ReplaceAll overwrites the persisted set with profiles.
	ReplaceAll(ctx context.Context, profiles map[string]*model.Profile) error
	Close() error
}

// RecordWriter is implemented by backends that can persist a single profile
// without rewriting the whole set.
type RecordWriter interface {
	Put(ctx context.Context, p *model.Profile) error
}

// Backend names accepted by Open.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Open constructs the named backend. An empty path selects a default location.
func Open(kind, path string) (Backend, error) {
	switch kind {
	case BackendBadger:
		if path == "" {
			path = "data/profiles"
		}
		return OpenBadger(path)
	case BackendSQLite:
		if path == "" {
			path = "data/profiles.db"
		}
		return OpenSQLite(path)
	case BackendFile:
		if path == "" {
			path = "user_profiles.json"
		}
		return NewFileBackend(path), nil
	case BackendMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
}

// corruptRecords builds the ErrCorruptRecord for the skipped keys, or nil.
func corruptRecords(keys []string, first error) error {
	if len(keys) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d skipped (%s): %v", ErrCorruptRecord, len(keys), strings.Join(keys, ", "), first)
}
