package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectWithFiltersAndOrder(t *testing.T) {
	var gotURL string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"id": 1, "status": "ABIERTO"}]`)
	}))
	defer ts.Close()

	c := New(ts.URL)
	res := c.From("partes").
		Select("*").
		Eq("status", "ABIERTO").
		Order("created_at", false).
		Exec(context.Background())

	require.Nil(t, res.Error)
	assert.Equal(t, "/partes?order=created_at.desc&status=ABIERTO", gotURL)

	rows, ok := res.Data.([]any)
	require.True(t, ok)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, json.Number("1"), row["id"], "numbers stay as json.Number")
}

func TestEqCoercesNumericValues(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		io.WriteString(w, `[]`)
	}))
	defer ts.Close()

	c := New(ts.URL)
	res := c.From("actuaciones").Eq("parte_id", int64(1755000000000)).Exec(context.Background())
	require.Nil(t, res.Error)
	assert.Equal(t, "parte_id=1755000000000", gotQuery)
}

func TestInsertOne(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/partes", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"description": "nueva"}`, string(body))
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `[{"id": 1, "description": "nueva"}]`)
	}))
	defer ts.Close()

	c := New(ts.URL)
	res := c.From("partes").InsertOne(context.Background(), map[string]any{"description": "nueva"})
	require.Nil(t, res.Error)
	assert.Len(t, res.Data, 1)
}

func TestUpdateRequiresID(t *testing.T) {
	// No server: the builder must fail before any request goes out.
	c := New("http://127.0.0.1:0")

	res := c.From("partes").Update(map[string]any{"status": "CERRADO"}).Exec(context.Background())
	require.NotNil(t, res.Error)
	assert.Equal(t, MissingIDMessage, res.Error.Message)

	res = c.From("partes").Delete().Exec(context.Background())
	require.NotNil(t, res.Error)
	assert.Equal(t, MissingIDMessage, res.Error.Message)
}

func TestUpdateWithID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/partes/123", r.URL.Path)
		io.WriteString(w, `[{"id": 123, "status": "CERRADO"}]`)
	}))
	defer ts.Close()

	c := New(ts.URL)
	res := c.From("partes").
		Update(map[string]any{"status": "CERRADO"}).
		Eq("id", 123).
		Exec(context.Background())
	require.Nil(t, res.Error)
}

func TestDeleteByID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/partes/123", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	c := New(ts.URL)
	res := c.From("partes").DeleteByID(context.Background(), 123)
	require.Nil(t, res.Error)
	assert.Nil(t, res.Data)
}

func TestTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	c := New(ts.URL, WithTimeout(20*time.Millisecond))
	res := c.From("partes").Exec(context.Background())
	require.NotNil(t, res.Error)
	assert.Equal(t, "Timeout: El servidor no responde.", res.Error.Message)
}

func TestNonJSONBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>Bad Gateway</html>")
	}))
	defer ts.Close()

	c := New(ts.URL)
	res := c.From("partes").Exec(context.Background())
	require.NotNil(t, res.Error)
	assert.Contains(t, res.Error.Message, "Server Error (200)")
	assert.Contains(t, res.Error.Message, "<html>")
}

func TestErrorBodyMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error": "Item not found"}`)
	}))
	defer ts.Close()

	c := New(ts.URL)
	res := c.From("partes").DeleteByID(context.Background(), 999)
	require.NotNil(t, res.Error)
	assert.Equal(t, "Item not found", res.Error.Message)
}

func TestErrorBodyWithoutMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{}`)
	}))
	defer ts.Close()

	c := New(ts.URL)
	res := c.From("partes").Exec(context.Background())
	require.NotNil(t, res.Error)
	assert.Equal(t, "Request failed", res.Error.Message)
}

func authServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"user": {"id": "u1", "email": "ana@example.com", "role": "user", "user_metadata": {}},
			"session": {"access_token": "tok", "refresh_token": "ref", "expires_at": "2026-08-28T12:00:00Z"}
		}`)
	})
	mux.HandleFunc("POST /auth/update", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "ana@example.com", req["email"])
		io.WriteString(w, `{"user": {"id": "u1", "email": "ana@example.com", "user_metadata": {"full_name": "Ana"}}}`)
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"user": {"id": "u1", "email": "ana@example.com"},
			"session": {"access_token": "tok2", "refresh_token": "ref2", "expires_at": "2026-08-28T13:00:00Z"}
		}`)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestAuthSessionLifecycle(t *testing.T) {
	ts := authServer(t)
	c := New(ts.URL)

	sess, err := c.Auth().GetSession()
	require.NoError(t, err)
	assert.Nil(t, sess)

	res := c.Auth().SignInWithPassword(context.Background(), Credentials{
		Email:    "ana@example.com",
		Password: "secret123",
	})
	require.Nil(t, res.Error)

	sess, err = c.Auth().GetSession()
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "tok", sess.AccessToken)
	assert.Equal(t, "ref", sess.RefreshToken)
	assert.Equal(t, "ana@example.com", sess.User["email"])

	// Update targets the signed-in user's email and refreshes the cache.
	res = c.Auth().UpdateUser(context.Background(), map[string]any{"full_name": "Ana"})
	require.Nil(t, res.Error)
	user, err := c.Auth().GetUser()
	require.NoError(t, err)
	meta := user["user_metadata"].(map[string]any)
	assert.Equal(t, "Ana", meta["full_name"])

	res = c.Auth().Refresh(context.Background())
	require.Nil(t, res.Error)
	sess, err = c.Auth().GetSession()
	require.NoError(t, err)
	assert.Equal(t, "ref2", sess.RefreshToken)

	require.NoError(t, c.Auth().SignOut())
	res = c.Auth().UpdateUser(context.Background(), map[string]any{"x": 1})
	require.NotNil(t, res.Error)
	assert.Equal(t, "No session", res.Error.Message)
}

func TestFileSessionStore(t *testing.T) {
	path := t.TempDir() + "/session.json"
	store := NewFileSessionStore(path)

	sess, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, sess)

	require.NoError(t, store.Save(&Session{AccessToken: "tok", RefreshToken: "ref"}))

	// A fresh store over the same file sees the session.
	again := NewFileSessionStore(path)
	sess, err = again.Load()
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "tok", sess.AccessToken)

	require.NoError(t, store.Clear())
	sess, err = store.Load()
	require.NoError(t, err)
	assert.Nil(t, sess)
}
