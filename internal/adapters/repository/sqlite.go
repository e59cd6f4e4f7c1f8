package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/okian/vibe/internal/adapters/repository/migrations"
	"github.com/okian/vibe/internal/domain/model"
)

// goose keeps its base FS and dialect in package state.
var gooseMu sync.Mutex

// SQLiteBackend stores one row per profile with the JSON document in a TEXT column.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and applies migrations.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one writer; SQLite serializes writes anyway
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteBackend{db: db}, nil
}

func migrate(db *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// LoadAll implements Backend.
func (s *SQLiteBackend) LoadAll(ctx context.Context) (map[string]*model.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, data FROM profiles`)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]*model.Profile)
	var (
		skipped []string
		first   error
	)
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		var p model.Profile
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			if first == nil {
				first = err
			}
			skipped = append(skipped, id)
			continue
		}
		p.UserID = id
		out[id] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return out, corruptRecords(skipped, first)
}

const upsertProfile = `
	INSERT INTO profiles (user_id, data, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`

// Put implements RecordWriter with an upsert.
func (s *SQLiteBackend) Put(ctx context.Context, p *model.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, upsertProfile, p.UserID, string(data), time.Now().Unix()); err != nil {
		return fmt.Errorf("upsert profile %s: %w", p.UserID, err)
	}
	return nil
}

// ReplaceAll implements Backend inside a single transaction.
func (s *SQLiteBackend) ReplaceAll(ctx context.Context, profiles map[string]*model.Profile) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM profiles`); err != nil {
		return fmt.Errorf("clear profiles: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, upsertProfile)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().Unix()
	for id, p := range profiles {
		data, mErr := json.Marshal(p)
		if mErr != nil {
			err = fmt.Errorf("marshal profile %s: %w", id, mErr)
			return err
		}
		if _, err = stmt.ExecContext(ctx, id, string(data), now); err != nil {
			return fmt.Errorf("insert profile %s: %w", id, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close implements Backend.
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}
