package repository

import (
	"context"
	"sync"

	"github.com/okian/vibe/internal/domain/model"
)

// MemoryBackend keeps deep copies in process memory. State is lost on exit.
type MemoryBackend struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{profiles: make(map[string]*model.Profile)}
}

// LoadAll implements Backend.
func (m *MemoryBackend) LoadAll(_ context.Context) (map[string]*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*model.Profile, len(m.profiles))
	for id, p := range m.profiles {
		out[id] = p.Clone()
	}
	return out, nil
}

// Put implements RecordWriter.
func (m *MemoryBackend) Put(_ context.Context, p *model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = p.Clone()
	return nil
}

// ReplaceAll implements Backend.
func (m *MemoryBackend) ReplaceAll(_ context.Context, profiles map[string]*model.Profile) error {
	next := make(map[string]*model.Profile, len(profiles))
	for id, p := range profiles {
		next[id] = p.Clone()
	}
	m.mu.Lock()
	m.profiles = next
	m.mu.Unlock()
	return nil
}

// Close implements Backend.
func (m *MemoryBackend) Close() error { return nil }
