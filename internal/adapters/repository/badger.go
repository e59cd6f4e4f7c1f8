package repository

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/okian/vibe/internal/domain/model"
)

const profileKeyPrefix = "profile:"

// BadgerBackend stores one key per profile in BadgerDB.
type BadgerBackend struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a badger database in dir.
func OpenBadger(dir string) (*BadgerBackend, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open badger %s: %w", dir, err)
	}
	return NewBadgerBackend(db), nil
}

// NewBadgerBackend wraps an already opened database.
func NewBadgerBackend(db *badger.DB) *BadgerBackend {
	return &BadgerBackend{db: db}
}

func profileKey(userID string) []byte {
	return []byte(profileKeyPrefix + userID)
}

// LoadAll implements Backend. The key suffix is authoritative for the user ID.
func (b *BadgerBackend) LoadAll(_ context.Context) (map[string]*model.Profile, error) {
	out := make(map[string]*model.Profile)
	var (
		skipped []string
		first   error
	)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(profileKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			id := string(item.Key()[len(prefix):])
			err := item.Value(func(val []byte) error {
				var p model.Profile
				if err := json.Unmarshal(val, &p); err != nil {
					if first == nil {
						first = err
					}
					skipped = append(skipped, string(item.Key()))
					return nil
				}
				p.UserID = id
				out[id] = &p
				return nil
			})
			if err != nil {
				return fmt.Errorf("read %s: %w", item.Key(), err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, corruptRecords(skipped, first)
}

// Put implements RecordWriter with a single-key transaction.
func (b *BadgerBackend) Put(_ context.Context, p *model.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(profileKey(p.UserID), data)
	})
}

// ReplaceAll implements Backend: stale profile keys are deleted and the
// whole set is rewritten in one write batch.
func (b *BadgerBackend) ReplaceAll(_ context.Context, profiles map[string]*model.Profile) error {
	var stale [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(profileKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if _, keep := profiles[string(key[len(prefix):])]; !keep {
				stale = append(stale, key)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan profiles: %w", err)
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	for id, p := range profiles {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal profile %s: %w", id, err)
		}
		if err := wb.Set(profileKey(id), data); err != nil {
			return fmt.Errorf("set profile %s: %w", id, err)
		}
	}
	return wb.Flush()
}

// Close implements Backend.
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}
