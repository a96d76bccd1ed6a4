// Package sqlite implements the document store on an embedded SQLite
// database. Each operation runs in its own transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/artevasinkaizen-cmd/partesapp/internal/storage"
)

var _ storage.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	body TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_records_collection ON records(collection);
`

// Store is the SQLite-backed document store.
type Store struct {
	mu  sync.RWMutex
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the database at path and initializes the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// List returns the collection in insertion order, filtered by string
// equality on each filter key.
func (s *Store) List(ctx context.Context, collection string, filters map[string]string) ([]storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM records WHERE collection = ? ORDER BY rowid`, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	out := []storage.Record{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		rec, err := storage.DecodeRecordBytes(body)
		if err != nil {
			return nil, fmt.Errorf("decode record in %s: %w", collection, err)
		}
		if rec.Matches(filters) {
			out = append(out, rec)
		}
	}
	return out, rows.Err()
}

// Get fetches a single record by id.
func (s *Store) Get(ctx context.Context, collection, id string) (storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(ctx, s.db, collection, id)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) get(ctx context.Context, q querier, collection, id string) (storage.Record, error) {
	var body []byte
	err := q.QueryRowContext(ctx,
		`SELECT body FROM records WHERE collection = ? AND id = ?`, collection, id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, s.missingErr(ctx, q, collection)
	}
	if err != nil {
		return nil, err
	}
	return storage.DecodeRecordBytes(body)
}

// missingErr distinguishes an absent record from an absent collection.
func (s *Store) missingErr(ctx context.Context, q querier, collection string) error {
	if storage.KnownCollections[collection] {
		return storage.ErrNotFound
	}
	var n int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE collection = ?`, collection).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrCollectionNotFound
	}
	return storage.ErrNotFound
}

// Insert appends a record, assigning identity when absent. Auto-assigned
// epoch-millisecond ids are bumped forward on collision; caller-supplied ids
// fail with ErrAlreadyExists instead.
func (s *Store) Insert(ctx context.Context, collection string, rec storage.Record) (storage.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec = rec.Clone()
	assigned := rec.ID() == ""
	now := s.now()

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delete(rec, "id")
		}
		id := storage.EnsureIdentity(collection, rec, now.Add(time.Duration(attempt)*time.Millisecond))
		body, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}

		err = s.insertRow(ctx, collection, id, body, storage.Stringify(rec["created_at"]))
		if err == nil {
			return rec, nil
		}
		if isUniqueViolation(err) {
			if assigned && attempt < 10 {
				continue
			}
			return nil, storage.ErrAlreadyExists
		}
		return nil, fmt.Errorf("insert into %s: %w", collection, err)
	}
}

func (s *Store) insertRow(ctx context.Context, collection, id string, body []byte, createdAt string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO records (collection, id, body, created_at) VALUES (?, ?, ?, ?)`,
		collection, id, body, createdAt); err != nil {
		return err
	}
	return tx.Commit()
}

// Update shallow-merges patch into the stored record.
func (s *Store) Update(ctx context.Context, collection, id string, patch storage.Record) (storage.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rec, err := s.get(ctx, tx, collection, id)
	if err != nil {
		return nil, err
	}
	for k, v := range patch {
		rec[k] = v
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE records SET body = ? WHERE collection = ? AND id = ?`, body, collection, id); err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes the record with the given id.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return s.missingErr(ctx, tx, collection)
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	// modernc/sqlite reports constraint failures in the error text; there is
	// no exported error code type shared with database/sql.
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}
