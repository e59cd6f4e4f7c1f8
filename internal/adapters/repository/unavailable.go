package repository

import (
	"context"
	"fmt"

	"github.com/okian/vibe/internal/domain/model"
)

// UnavailableBackend stands in for a store that could not be opened. Every
// read and write fails with ErrStorageUnavailable so callers keep seeing the
// outage while the service runs from memory.
type UnavailableBackend struct {
	cause error
}

// NewUnavailableBackend returns a backend that reports cause on every call.
func NewUnavailableBackend(cause error) *UnavailableBackend {
	return &UnavailableBackend{cause: cause}
}

func (u *UnavailableBackend) err() error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, u.cause)
}

// LoadAll implements Backend.
func (u *UnavailableBackend) LoadAll(context.Context) (map[string]*model.Profile, error) {
	return nil, u.err()
}

// ReplaceAll implements Backend.
func (u *UnavailableBackend) ReplaceAll(context.Context, map[string]*model.Profile) error {
	return u.err()
}

// Put implements RecordWriter.
func (u *UnavailableBackend) Put(context.Context, *model.Profile) error {
	return u.err()
}

// Close implements Backend.
func (u *UnavailableBackend) Close() error { return nil }
