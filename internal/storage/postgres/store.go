// Package postgres implements the document store on PostgreSQL, selected
// with STORAGE_DRIVER=postgres.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artevasinkaizen-cmd/partesapp/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// PgxPool is the subset of *pgxpool.Pool the store needs. It is also
// satisfied by pgxmock.PgxPoolIface in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Store provides Postgres-backed document persistence.
type Store struct {
	pool PgxPool
	now  func() time.Time
}

// NewStore wraps an existing pool.
func NewStore(pool PgxPool) *Store {
	return &Store{pool: pool, now: time.Now}
}

// Open connects to the database, runs migrations, and returns the store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if err := Migrate(ctx, dsn); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return NewStore(pool), nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// List returns the collection in insertion order, filtered by string
// equality on each filter key.
func (s *Store) List(ctx context.Context, collection string, filters map[string]string) ([]storage.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT body FROM records WHERE collection = $1 ORDER BY seq`, collection)
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
	row := s.pool.QueryRow(ctx,
		`SELECT body FROM records WHERE collection = $1 AND id = $2`, collection, id)
	var body []byte
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.missingErr(ctx, collection)
		}
		return nil, err
	}
	return storage.DecodeRecordBytes(body)
}

func (s *Store) missingErr(ctx context.Context, collection string) error {
	if storage.KnownCollections[collection] {
		return storage.ErrNotFound
	}
	var n int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM records WHERE collection = $1`, collection).Scan(&n); err != nil {
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
		_, err = s.pool.Exec(ctx,
			`INSERT INTO records (collection, id, body) VALUES ($1, $2, $3)`,
			collection, id, body)
		if err == nil {
			return rec, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if assigned && attempt < 10 {
				continue
			}
			return nil, storage.ErrAlreadyExists
		}
		return nil, fmt.Errorf("insert into %s: %w", collection, err)
	}
}

// Update shallow-merges patch into the stored record inside a transaction.
func (s *Store) Update(ctx context.Context, collection, id string, patch storage.Record) (storage.Record, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var body []byte
	err = tx.QueryRow(ctx,
		`SELECT body FROM records WHERE collection = $1 AND id = $2 FOR UPDATE`,
		collection, id).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.missingErr(ctx, collection)
		}
		return nil, err
	}
	rec, err := storage.DecodeRecordBytes(body)
	if err != nil {
		return nil, err
	}
	for k, v := range patch {
		rec[k] = v
	}
	merged, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE records SET body = $3 WHERE collection = $1 AND id = $2`,
		collection, id, merged); err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes the record with the given id.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM records WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return s.missingErr(ctx, collection)
	}
	return nil
}
