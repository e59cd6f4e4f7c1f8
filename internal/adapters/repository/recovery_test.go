package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/dgraph-io/badger/v4"
	. "github.com/smartystreets/goconvey/convey"
	_ "modernc.org/sqlite"

	"github.com/okian/vibe/internal/adapters/repository"
	"github.com/okian/vibe/internal/domain/model"
)

func badgerKeys(db *badger.DB) []string {
	var keys []string
	_ = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	sort.Strings(keys)
	return keys
}

func TestProfileStore_CorruptBadgerRecord(t *testing.T) {
	Convey("Given a badger store with one undecodable record", t, func() {
		ctx := context.Background()
		db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
		So(err, ShouldBeNil)
		backend := repository.NewBadgerBackend(db)

		alice := model.NewProfile("alice")
		alice.GenreWeights["lofi"] = 0.12
		So(backend.Put(ctx, alice), ShouldBeNil)
		So(db.Update(func(txn *badger.Txn) error {
			if err := txn.Set([]byte("profile:bob"), []byte("{not json")); err != nil {
				return err
			}
			// written by an older build without the user_id field
			return txn.Set([]byte("profile:dave"), []byte(`{"genre_weights":{"jazz":0.3}}`))
		}), ShouldBeNil)

		store := repository.NewProfileStore(ctx, backend)
		defer func() { _ = store.Close() }()

		Convey("When the store loads, learns and takes a snapshot", func() {
			loadErr := store.Load(ctx)
			loaded := store.Count(ctx)
			So(store.Mutate(ctx, "carol", like(0.1)), ShouldBeNil)
			saveErr := store.Save(ctx)

			Convey("Then readable profiles are served and the load reports the bad record", func() {
				So(errors.Is(loadErr, repository.ErrStorageUnavailable), ShouldBeTrue)
				So(errors.Is(loadErr, repository.ErrCorruptRecord), ShouldBeTrue)
				So(loaded, ShouldEqual, 2)
				So(store.Get(ctx, "alice").GenreWeights["lofi"], ShouldEqual, 0.12)
				So(store.Get(ctx, "dave").UserID, ShouldEqual, "dave")
				So(store.Get(ctx, "dave").GenreWeights["jazz"], ShouldEqual, 0.3)
			})

			Convey("Then the snapshot keeps every persisted record", func() {
				So(saveErr, ShouldBeNil)
				So(badgerKeys(db), ShouldResemble, []string{"profile:alice", "profile:bob", "profile:carol", "profile:dave"})
			})
		})
	})
}

func TestSQLiteBackend_CorruptRecord(t *testing.T) {
	Convey("Given a sqlite store with one undecodable row", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "profiles.db")
		backend, err := repository.OpenSQLite(path)
		So(err, ShouldBeNil)
		defer func() { _ = backend.Close() }()

		So(backend.Put(ctx, model.NewProfile("alice")), ShouldBeNil)

		raw, err := sql.Open("sqlite", path)
		So(err, ShouldBeNil)
		_, err = raw.Exec(`INSERT INTO profiles (user_id, data, updated_at) VALUES ('bob', '{not json', 0)`)
		So(err, ShouldBeNil)
		So(raw.Close(), ShouldBeNil)

		Convey("When every profile is loaded", func() {
			got, err := backend.LoadAll(ctx)

			Convey("Then the readable rows come back with the corrupt one reported", func() {
				So(errors.Is(err, repository.ErrCorruptRecord), ShouldBeTrue)
				So(got, ShouldHaveLength, 1)
				So(got["alice"].UserID, ShouldEqual, "alice")
			})
		})
	})
}

func TestProfileStore_CorruptSnapshotFile(t *testing.T) {
	Convey("Given a snapshot file that cannot be decoded", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "user_profiles.json")
		So(os.WriteFile(path, []byte("{oops"), 0o600), ShouldBeNil)

		store := repository.NewProfileStore(ctx, repository.NewFileBackend(path))
		defer func() { _ = store.Close() }()

		Convey("When the store loads and then learns", func() {
			loadErr := store.Load(ctx)
			mutateErr := store.Mutate(ctx, "alice", like(0.12))

			Convey("Then the file is never overwritten and each write reports it", func() {
				So(errors.Is(loadErr, repository.ErrStorageUnavailable), ShouldBeTrue)
				So(errors.Is(mutateErr, repository.ErrStorageUnavailable), ShouldBeTrue)
				So(store.Get(ctx, "alice").GenreWeights["lofi"], ShouldEqual, 0.12)

				data, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, "{oops")
			})
		})
	})
}

func TestUnavailableBackend(t *testing.T) {
	Convey("Given a backend for a store that failed to open", t, func() {
		ctx := context.Background()
		b := repository.NewUnavailableBackend(errDisk)

		Convey("Then every read and write reports the outage", func() {
			_, err := b.LoadAll(ctx)
			So(errors.Is(err, repository.ErrStorageUnavailable), ShouldBeTrue)
			So(errors.Is(b.Put(ctx, model.NewProfile("u1")), repository.ErrStorageUnavailable), ShouldBeTrue)
			So(errors.Is(b.ReplaceAll(ctx, nil), repository.ErrStorageUnavailable), ShouldBeTrue)
			So(b.Close(), ShouldBeNil)
		})

		Convey("When a store runs on top of it", func() {
			store := repository.NewProfileStore(ctx, b)
			defer func() { _ = store.Close() }()
			loadErr := store.Load(ctx)
			mutateErr := store.Mutate(ctx, "u1", like(0.1))

			Convey("Then the store keeps working in memory", func() {
				So(errors.Is(loadErr, repository.ErrStorageUnavailable), ShouldBeTrue)
				So(errors.Is(mutateErr, repository.ErrStorageUnavailable), ShouldBeTrue)
				So(store.Get(ctx, "u1").GenreWeights["lofi"], ShouldEqual, 0.1)
				So(errors.Is(store.Save(ctx), repository.ErrStorageUnavailable), ShouldBeTrue)
			})
		})
	})
}
