package storage

import (
	"context"
	"errors"
)

// ErrNotFound indicates a record does not exist in its collection.
var ErrNotFound = errors.New("record not found")

// ErrCollectionNotFound indicates the collection itself is unknown and empty.
var ErrCollectionNotFound = errors.New("collection not found")

// ErrAlreadyExists indicates an id collision on insert.
var ErrAlreadyExists = errors.New("record already exists")

// Collections the service persists. Collections outside this set spring into
// existence on first insert, mirroring document-store behavior.
const (
	CollectionUsers         = "users"
	CollectionPartes        = "partes"
	CollectionActuaciones   = "actuaciones"
	CollectionClients       = "clients"
	CollectionVerifications = "verifications"
	CollectionRefreshTokens = "refresh_tokens"
)

// KnownCollections are treated as existing even when empty.
var KnownCollections = map[string]bool{
	CollectionUsers:         true,
	CollectionPartes:        true,
	CollectionActuaciones:   true,
	CollectionClients:       true,
	CollectionVerifications: true,
	CollectionRefreshTokens: true,
}

// Store captures the document-repository operations needed by handlers and
// services. Every operation runs in its own transaction.
type Store interface {
	// List returns the collection in insertion order. Filters are matched by
	// string equality against the corresponding field of each record. An
	// unknown collection yields an empty slice, not an error.
	List(ctx context.Context, collection string, filters map[string]string) ([]Record, error)
	// Get fetches a single record by its string-normalized id.
	Get(ctx context.Context, collection, id string) (Record, error)
	// Insert appends a record, assigning id and created_at when absent, and
	// returns the stored record.
	Insert(ctx context.Context, collection string, rec Record) (Record, error)
	// Update shallow-merges patch into the record with the given id and
	// returns the merged record.
	Update(ctx context.Context, collection, id string, patch Record) (Record, error)
	// Delete removes the record with the given id.
	Delete(ctx context.Context, collection, id string) error
	Close() error
}
