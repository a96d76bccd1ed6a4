package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artevasinkaizen-cmd/partesapp/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAssignsIdentity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stored, err := s.Insert(ctx, storage.CollectionPartes, storage.Record{"description": "Avería"})
	require.NoError(t, err)

	// Partes get numeric epoch-millisecond ids.
	_, ok := stored["id"].(json.Number)
	assert.True(t, ok, "parte id should be numeric, got %T", stored["id"])
	assert.NotEmpty(t, stored["created_at"])

	stored, err = s.Insert(ctx, storage.CollectionClients, storage.Record{"name": "ACME"})
	require.NoError(t, err)
	_, ok = stored["id"].(string)
	assert.True(t, ok, "client id should be a string, got %T", stored["id"])
}

func TestInsertKeepsCallerIdentity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stored, err := s.Insert(ctx, storage.CollectionPartes, storage.Record{
		"id":          json.Number("123"),
		"description": "migrated",
		"created_at":  "2020-01-01T00:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, json.Number("123"), stored["id"])
	assert.Equal(t, "2020-01-01T00:00:00Z", stored["created_at"])

	got, err := s.Get(ctx, storage.CollectionPartes, "123")
	require.NoError(t, err)
	assert.Equal(t, "migrated", got["description"])
}

func TestInsertDuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, storage.CollectionUsers, storage.Record{"id": "u1", "email": "a@b.com"})
	require.NoError(t, err)

	_, err = s.Insert(ctx, storage.CollectionUsers, storage.Record{"id": "u1", "email": "c@d.com"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestListInsertionOrderAndFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, rec := range []storage.Record{
		{"id": "1", "status": "ABIERTO", "user": "ana"},
		{"id": "2", "status": "CERRADO", "user": "ana"},
		{"id": "3", "status": "ABIERTO", "user": "luis"},
	} {
		_, err := s.Insert(ctx, storage.CollectionPartes, rec)
		require.NoError(t, err)
	}

	all, err := s.List(ctx, storage.CollectionPartes, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "1", all[0].ID())
	assert.Equal(t, "3", all[2].ID())

	abiertos, err := s.List(ctx, storage.CollectionPartes, map[string]string{"status": "ABIERTO"})
	require.NoError(t, err)
	assert.Len(t, abiertos, 2)

	both, err := s.List(ctx, storage.CollectionPartes, map[string]string{"status": "ABIERTO", "user": "ana"})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "1", both[0].ID())
}

func TestListNumericFilterCoercion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, storage.CollectionActuaciones, storage.Record{
		"id":       json.Number("100"),
		"parte_id": json.Number("1755000000000"),
	})
	require.NoError(t, err)

	// A string filter must match the numeric field.
	got, err := s.List(ctx, storage.CollectionActuaciones, map[string]string{"parte_id": "1755000000000"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestListUnknownCollectionIsEmpty(t *testing.T) {
	s := newTestStore(t)

	got, err := s.List(context.Background(), "nothing_here", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpdateShallowMerge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, storage.CollectionPartes, storage.Record{
		"id":          "1",
		"description": "original",
		"status":      "ABIERTO",
	})
	require.NoError(t, err)

	merged, err := s.Update(ctx, storage.CollectionPartes, "1", storage.Record{"status": "CERRADO"})
	require.NoError(t, err)
	assert.Equal(t, "CERRADO", merged["status"])
	assert.Equal(t, "original", merged["description"], "untouched fields survive the patch")

	got, err := s.Get(ctx, storage.CollectionPartes, "1")
	require.NoError(t, err)
	assert.Equal(t, "CERRADO", got["status"])
}

func TestMissingDistinguishesCollectionFromItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Bootstrapped collections always exist, even empty.
	_, err := s.Get(ctx, storage.CollectionPartes, "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// An unseen collection does not.
	_, err = s.Get(ctx, "mystery", "nope")
	assert.ErrorIs(t, err, storage.ErrCollectionNotFound)

	// Once a record lands there, the collection exists.
	_, err = s.Insert(ctx, "mystery", storage.Record{"id": "1"})
	require.NoError(t, err)
	_, err = s.Get(ctx, "mystery", "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, storage.CollectionPartes, storage.Record{"id": "1"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, storage.CollectionPartes, "1"))

	err = s.Delete(ctx, storage.CollectionPartes, "1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = s.Delete(ctx, "mystery", "1")
	assert.ErrorIs(t, err, storage.ErrCollectionNotFound)
}
