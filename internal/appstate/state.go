// Package appstate holds the in-memory application state and the actions
// that mutate it. Every mutating action writes through the API client and
// then refetches the affected collections, so the cache never applies
// optimistic edits that could drift from the server.
package appstate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/artevasinkaizen-cmd/partesapp/internal/client"
	"github.com/artevasinkaizen-cmd/partesapp/internal/models"
	"github.com/artevasinkaizen-cmd/partesapp/internal/storage"
)

// ErrNoSession is returned by actions that require a signed-in user.
var ErrNoSession = errors.New("no active session")

// ErrNotFound is returned when a cached lookup misses.
var ErrNotFound = errors.New("not found")

// Store is the shared application state. All exported methods are safe for
// concurrent use.
type Store struct {
	mu  sync.RWMutex
	api *client.Client
	log *zap.Logger
	now func() time.Time

	currentUser *models.User
	partes      []models.Parte
	users       []models.User
	clients     []models.Client
}

// New builds a Store over the given API client.
func New(api *client.Client, log *zap.Logger) *Store {
	return &Store{api: api, log: log, now: time.Now}
}

// CurrentUser returns the signed-in user, or nil.
func (s *Store) CurrentUser() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentUser == nil {
		return nil
	}
	u := *s.currentUser
	return &u
}

// Partes returns the cached work orders, newest first.
func (s *Store) Partes() []models.Parte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Parte, len(s.partes))
	copy(out, s.partes)
	return out
}

// MyPartes returns the cached work orders owned by the signed-in user. New
// writes key ownership by user id, but rows migrated from older deployments
// may still carry the email, so both are matched.
func (s *Store) MyPartes() []models.Parte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentUser == nil {
		return nil
	}
	var out []models.Parte
	for _, p := range s.partes {
		if p.UserID == s.currentUser.ID || p.UserID == s.currentUser.Email {
			out = append(out, p)
		}
	}
	return out
}

// Users returns the cached user list.
func (s *Store) Users() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, len(s.users))
	copy(out, s.users)
	return out
}

// Clients returns the cached client list.
func (s *Store) Clients() []models.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Client, len(s.clients))
	copy(out, s.clients)
	return out
}

// GetParte returns the cached parte with the given id.
func (s *Store) GetParte(id int64) (models.Parte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.partes {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Parte{}, ErrNotFound
}

// CheckSession restores the signed-in user from the cached session, if any,
// and loads the data set. It reports whether a session was found.
func (s *Store) CheckSession(ctx context.Context) (bool, error) {
	sess, err := s.api.Auth().GetSession()
	if err != nil {
		return false, err
	}
	if sess == nil {
		return false, nil
	}
	user := models.UserFromRecord(storage.Record(sess.User))
	s.mu.Lock()
	s.currentUser = &user
	s.mu.Unlock()
	if err := s.FetchData(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// Login authenticates, stores the session user, and loads the data set.
func (s *Store) Login(ctx context.Context, email, password string) error {
	res := s.api.Auth().SignInWithPassword(ctx, client.Credentials{Email: email, Password: password})
	if res.Error != nil {
		return errors.New(res.Error.Message)
	}
	if err := s.adoptSessionUser(res); err != nil {
		return err
	}
	return s.FetchData(ctx)
}

// Register creates an account, stores the session user, and loads the data
// set. Metadata ends up in user_metadata on the server.
func (s *Store) Register(ctx context.Context, email, password string, metadata map[string]any) error {
	res := s.api.Auth().SignUp(ctx, client.Credentials{Email: email, Password: password, Data: metadata})
	if res.Error != nil {
		return errors.New(res.Error.Message)
	}
	if err := s.adoptSessionUser(res); err != nil {
		return err
	}
	return s.FetchData(ctx)
}

// Logout discards the session and clears all cached state.
func (s *Store) Logout() error {
	if err := s.api.Auth().SignOut(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentUser = nil
	s.partes = nil
	s.users = nil
	s.clients = nil
	return nil
}

// FetchData reloads partes, actuaciones, and users from the server and
// rebuilds the cached views. Partes come back newest first.
func (s *Store) FetchData(ctx context.Context) error {
	parteRecs, err := s.fetchAll(ctx, storage.CollectionPartes)
	if err != nil {
		return err
	}
	actRecs, err := s.fetchAll(ctx, storage.CollectionActuaciones)
	if err != nil {
		return err
	}
	userRecs, err := s.fetchAll(ctx, storage.CollectionUsers)
	if err != nil {
		return err
	}

	partes := make([]models.Parte, 0, len(parteRecs))
	for _, rec := range parteRecs {
		partes = append(partes, models.ParteFromRecord(rec, actRecs))
	}
	sort.SliceStable(partes, func(i, j int) bool {
		return partes[i].CreatedAt.After(partes[j].CreatedAt)
	})

	users := make([]models.User, 0, len(userRecs))
	for _, rec := range userRecs {
		users = append(users, models.UserFromRecord(rec))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.partes = partes
	s.users = users
	if s.currentUser != nil {
		for _, u := range users {
			if u.ID == s.currentUser.ID {
				refreshed := u
				s.currentUser = &refreshed
				break
			}
		}
	}
	return nil
}

// NewParte is the input for AddParte. A zero ID lets the server assign one.
type NewParte struct {
	ID      int64
	Title   string
	Status  models.ParteStatus
	PDFFile string
}

// AddParte creates a work order owned by the signed-in user.
func (s *Store) AddParte(ctx context.Context, input NewParte) error {
	user := s.CurrentUser()
	if user == nil {
		return ErrNoSession
	}
	status := input.Status
	if status == "" {
		status = models.StatusAbierto
	}
	if !status.Valid() {
		return fmt.Errorf("unknown status %q", status)
	}
	payload := map[string]any{
		"type":        "INCIDENCIA",
		"description": input.Title,
		"status":      string(status),
		"start_date":  s.now().UTC().Format(time.RFC3339),
		"user_id":     user.ID,
		"created_by":  user.Name(),
	}
	if input.ID != 0 {
		payload["id"] = input.ID
	}
	if input.PDFFile != "" {
		payload["pdf_file"] = input.PDFFile
	}
	res := s.api.From(storage.CollectionPartes).InsertOne(ctx, payload)
	if res.Error != nil {
		return errors.New(res.Error.Message)
	}
	return s.FetchData(ctx)
}

// UpdateParteStatus moves a work order to the given status. Entering CERRADO
// stamps closed_at; leaving it clears the stamp.
func (s *Store) UpdateParteStatus(ctx context.Context, id int64, status models.ParteStatus) error {
	if !status.Valid() {
		return fmt.Errorf("unknown status %q", status)
	}
	patch := map[string]any{"status": string(status)}
	if status == models.StatusCerrado {
		patch["closed_at"] = s.now().UTC().Format(time.RFC3339)
	} else {
		patch["closed_at"] = nil
	}
	res := s.api.From(storage.CollectionPartes).UpdateByID(ctx, id, patch)
	if res.Error != nil {
		return errors.New(res.Error.Message)
	}
	return s.FetchData(ctx)
}

// UpdateParte applies a partial column patch to a work order.
func (s *Store) UpdateParte(ctx context.Context, id int64, patch map[string]any) error {
	res := s.api.From(storage.CollectionPartes).UpdateByID(ctx, id, patch)
	if res.Error != nil {
		return errors.New(res.Error.Message)
	}
	return s.FetchData(ctx)
}

// DeleteParte removes a work order and its child actuaciones. The server
// does not cascade, so children go first.
func (s *Store) DeleteParte(ctx context.Context, id int64) error {
	children := s.api.From(storage.CollectionActuaciones).Eq("parte_id", id).Exec(ctx)
	if children.Error != nil {
		return errors.New(children.Error.Message)
	}
	for _, rec := range recordsFrom(children.Data) {
		res := s.api.From(storage.CollectionActuaciones).DeleteByID(ctx, rec["id"])
		if res.Error != nil {
			return errors.New(res.Error.Message)
		}
	}
	res := s.api.From(storage.CollectionPartes).DeleteByID(ctx, id)
	if res.Error != nil {
		return errors.New(res.Error.Message)
	}
	return s.FetchData(ctx)
}

// NewActuacion is the input for AddActuacion.
type NewActuacion struct {
	Type     models.ActuacionType
	Duration int // minutes
	Notes    string
}

// AddActuacion logs an action against a work order, attributed to the
// signed-in user.
func (s *Store) AddActuacion(ctx context.Context, parteID int64, input NewActuacion) error {
	user := s.CurrentUser()
	if user == nil {
		return ErrNoSession
	}
	if !input.Type.Valid() {
		return fmt.Errorf("unknown actuacion type %q", input.Type)
	}
	payload := map[string]any{
		"parte_id":    parteID,
		"type":        string(input.Type),
		"date":        s.now().UTC().Format(time.RFC3339),
		"duration":    input.Duration,
		"description": input.Notes,
		"user":        user.Name(),
	}
	res := s.api.From(storage.CollectionActuaciones).InsertOne(ctx, payload)
	if res.Error != nil {
		return errors.New(res.Error.Message)
	}
	return s.FetchData(ctx)
}

// UpdateActuacion applies a partial column patch to a logged action.
func (s *Store) UpdateActuacion(ctx context.Context, id string, patch map[string]any) error {
	res := s.api.From(storage.CollectionActuaciones).UpdateByID(ctx, id, patch)
	if res.Error != nil {
		return errors.New(res.Error.Message)
	}
	return s.FetchData(ctx)
}

// DeleteActuacion removes a logged action.
func (s *Store) DeleteActuacion(ctx context.Context, id string) error {
	res := s.api.From(storage.CollectionActuaciones).DeleteByID(ctx, id)
	if res.Error != nil {
		return errors.New(res.Error.Message)
	}
	return s.FetchData(ctx)
}

// AddClient and UpdateClient are carried as placeholders: the client surface
// exists in the UI but has no persistence flow wired yet.
func (s *Store) AddClient(ctx context.Context, c models.Client) error {
	s.log.Warn("client management not implemented", zap.String("name", c.Name))
	return nil
}

func (s *Store) UpdateClient(ctx context.Context, c models.Client) error {
	s.log.Warn("client management not implemented", zap.String("id", c.ID))
	return nil
}

// UpdateUserProfile patches the signed-in user's metadata.
func (s *Store) UpdateUserProfile(ctx context.Context, data map[string]any) error {
	if s.CurrentUser() == nil {
		return ErrNoSession
	}
	res := s.api.Auth().UpdateUser(ctx, data)
	if res.Error != nil {
		return errors.New(res.Error.Message)
	}
	if m, ok := res.Data.(map[string]any); ok {
		if raw, ok := m["user"].(map[string]any); ok {
			user := models.UserFromRecord(storage.Record(raw))
			s.mu.Lock()
			s.currentUser = &user
			s.mu.Unlock()
		}
	}
	return s.FetchData(ctx)
}

// ChangePassword sets a new password for the signed-in user.
func (s *Store) ChangePassword(ctx context.Context, newPassword string) error {
	if s.CurrentUser() == nil {
		return ErrNoSession
	}
	res := s.api.Auth().UpdateUser(ctx, map[string]any{"password": newPassword})
	if res.Error != nil {
		return errors.New(res.Error.Message)
	}
	return nil
}

// UploadAvatar stores a data-URL image as the signed-in user's avatar and
// returns the served URL.
func (s *Store) UploadAvatar(ctx context.Context, dataURL string) (string, error) {
	user := s.CurrentUser()
	if user == nil {
		return "", ErrNoSession
	}
	res := s.api.Do(ctx, "POST", "/upload/avatar", map[string]any{
		"image":  dataURL,
		"userId": user.ID,
	})
	if res.Error != nil {
		return "", errors.New(res.Error.Message)
	}
	url := ""
	if m, ok := res.Data.(map[string]any); ok {
		url, _ = m["avatarUrl"].(string)
	}
	s.mu.Lock()
	if s.currentUser != nil {
		s.currentUser.AvatarURL = url
	}
	s.mu.Unlock()
	if err := s.FetchData(ctx); err != nil {
		return url, err
	}
	return url, nil
}

// UpdateUserRole changes another account's role. Only admins see this
// surface in the UI; the state layer does not re-check.
func (s *Store) UpdateUserRole(ctx context.Context, userID, role string) error {
	res := s.api.From(storage.CollectionUsers).UpdateByID(ctx, userID, map[string]any{"role": role})
	if res.Error != nil {
		return errors.New(res.Error.Message)
	}
	return s.FetchData(ctx)
}

// DeleteUser removes an account.
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	res := s.api.From(storage.CollectionUsers).DeleteByID(ctx, userID)
	if res.Error != nil {
		return errors.New(res.Error.Message)
	}
	return s.FetchData(ctx)
}

// AdminCreateUser registers an account on someone else's behalf without
// touching the current session.
func (s *Store) AdminCreateUser(ctx context.Context, email, password string, metadata map[string]any) error {
	body := map[string]any{"email": email, "password": password}
	if metadata != nil {
		body["options"] = map[string]any{"data": metadata}
	}
	res := s.api.Do(ctx, "POST", "/auth/register", body)
	if res.Error != nil {
		return errors.New(res.Error.Message)
	}
	return s.FetchData(ctx)
}

func (s *Store) adoptSessionUser(res client.Result) error {
	m, ok := res.Data.(map[string]any)
	if !ok {
		return errors.New("malformed auth response")
	}
	raw, ok := m["user"].(map[string]any)
	if !ok {
		return errors.New("malformed auth response")
	}
	user := models.UserFromRecord(storage.Record(raw))
	s.mu.Lock()
	s.currentUser = &user
	s.mu.Unlock()
	return nil
}

func (s *Store) fetchAll(ctx context.Context, collection string) ([]storage.Record, error) {
	res := s.api.From(collection).Order("created_at", false).Exec(ctx)
	if res.Error != nil {
		return nil, errors.New(res.Error.Message)
	}
	return recordsFrom(res.Data), nil
}

func recordsFrom(data any) []storage.Record {
	rows, ok := data.([]any)
	if !ok {
		return nil
	}
	out := make([]storage.Record, 0, len(rows))
	for _, row := range rows {
		if m, ok := row.(map[string]any); ok {
			out = append(out, storage.Record(m))
		}
	}
	return out
}
