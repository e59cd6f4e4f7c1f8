// Package repository holds user preference profiles in memory with a
// pluggable durable backend.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/vibe/internal/domain/model"
	"github.com/okian/vibe/pkg/logger"
	"github.com/okian/vibe/pkg/metrics"
)

// MutateFunc changes a profile in place and reports whether it must be persisted.
type MutateFunc func(p *model.Profile) (dirty bool, err error)

// entry guards one user's profile; its mutex serializes every
// read-modify-write against that profile.
type entry struct {
	mu      sync.Mutex
	profile *model.Profile
}

// ProfileStore is the in-memory profile set. Reads and writes for different
// users proceed in parallel; one user's operations are serialized.
type ProfileStore struct {
	backend Backend
	writer  RecordWriter // nil when every write is a full rewrite

	mu      sync.RWMutex
	entries map[string]*entry

	saveMu sync.Mutex
	// partial is set when Load could not read the whole persisted set;
	// Save then upserts instead of rewriting.
	partial atomic.Bool

	defaultEpsilon        float64
	metricsUpdateInterval time.Duration
	log                   logger.Logger

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewProfileStore creates a store over backend and starts its metrics updater.
func NewProfileStore(ctx context.Context, backend Backend, opts ...Option) *ProfileStore {
	s := &ProfileStore{
		backend:               backend,
		entries:               make(map[string]*entry),
		defaultEpsilon:        model.DefaultEpsilon,
		metricsUpdateInterval: 5 * time.Second,
		log:                   logger.Nop(),
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if w, ok := backend.(RecordWriter); ok {
		s.writer = w
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Load replaces the in-memory set with the backend contents. When some
// records are corrupt the readable ones are installed; on any other failure
// the store keeps its current (normally empty) state. Either way the error
// wraps ErrStorageUnavailable and later saves never delete persisted records.
func (s *ProfileStore) Load(ctx context.Context) error {
	profiles, err := s.backend.LoadAll(ctx)
	if err != nil {
		s.partial.Store(true)
		metrics.RecordStoreError("load")
		if !errors.Is(err, ErrCorruptRecord) || profiles == nil {
			return fmt.Errorf("%w: load: %v", ErrStorageUnavailable, err)
		}
		s.log.Warn(ctx, "skipping unreadable profiles", logger.Error(err))
	}

	entries := make(map[string]*entry, len(profiles))
	for id, p := range profiles {
		entries[id] = &entry{profile: p}
	}
	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()

	metrics.UpdateProfilesTotal(len(entries))
	s.log.Info(ctx, "profiles loaded", logger.Int("count", len(entries)))
	if err != nil {
		return fmt.Errorf("%w: load: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// entry returns the user's entry, registering a fresh profile on first access.
func (s *ProfileStore) entry(userID string) *entry {
	s.mu.RLock()
	e, ok := s.entries[userID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[userID]; ok {
		return e
	}
	p := model.NewProfile(userID)
	p.Epsilon = s.defaultEpsilon
	e = &entry{profile: p}
	s.entries[userID] = e
	return e
}

// Get returns a copy of the user's profile, creating it if unseen.
func (s *ProfileStore) Get(_ context.Context, userID string) *model.Profile {
	e := s.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile.Clone()
}

// Mutate runs fn against the user's live profile under the user's lock and
// persists the result when fn reports it dirty. A persistence failure is
// returned wrapped in ErrStorageUnavailable; the in-memory change is kept.
func (s *ProfileStore) Mutate(ctx context.Context, userID string, fn MutateFunc) error {
	e := s.entry(userID)
	e.mu.Lock()

	dirty, err := fn(e.profile)
	if err != nil || !dirty {
		e.mu.Unlock()
		return err
	}

	if s.writer != nil {
		start := time.Now()
		err = s.writer.Put(ctx, e.profile)
		e.mu.Unlock()
		metrics.RecordStorePersistLatency(float64(time.Since(start).Microseconds()) / 1000)
		if err != nil {
			metrics.RecordStoreError("persist")
			return fmt.Errorf("%w: persist %s: %v", ErrStorageUnavailable, userID, err)
		}
		return nil
	}

	// Full rewrite: release the user first, Save takes its own copies.
	e.mu.Unlock()
	return s.Save(ctx)
}

// Save writes the full in-memory set to the backend, overwriting prior
// contents. Only one Save runs at a time; each profile is copied under its
// own lock so other users are never blocked for the duration of the write.
func (s *ProfileStore) Save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	start := time.Now()
	s.mu.RLock()
	entries := make(map[string]*entry, len(s.entries))
	for id, e := range s.entries {
		entries[id] = e
	}
	s.mu.RUnlock()

	snapshot := make(map[string]*model.Profile, len(entries))
	for id, e := range entries {
		e.mu.Lock()
		snapshot[id] = e.profile.Clone()
		e.mu.Unlock()
	}

	if err := s.write(ctx, snapshot); err != nil {
		metrics.RecordStoreError("save")
		return fmt.Errorf("%w: save: %v", ErrStorageUnavailable, err)
	}
	metrics.RecordStoreSaveLatency(float64(time.Since(start).Microseconds()) / 1000)
	return nil
}

// errPartialLoad refuses a full rewrite over records that were never read.
var errPartialLoad = errors.New("persisted set was not fully loaded; refusing to overwrite it")

func (s *ProfileStore) write(ctx context.Context, snapshot map[string]*model.Profile) error {
	if !s.partial.Load() {
		return s.backend.ReplaceAll(ctx, snapshot)
	}
	if s.writer == nil {
		return errPartialLoad
	}
	for id, p := range snapshot {
		if err := s.writer.Put(ctx, p); err != nil {
			return fmt.Errorf("upsert %s: %w", id, err)
		}
	}
	return nil
}

// Count returns the number of known profiles.
func (s *ProfileStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops background work and closes the backend. It is safe to call twice.
func (s *ProfileStore) Close() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
		err = s.backend.Close()
	})
	if err != nil {
		return fmt.Errorf("%w: close: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// startMetricsUpdater publishes the profile count periodically.
func (s *ProfileStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateProfilesTotal(s.Count(ctx))
			}
		}
	}()
}
