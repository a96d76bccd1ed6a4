package client

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Session is the cached authentication state for a signed-in user.
type Session struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresAt    string         `json:"expires_at"`
	User         map[string]any `json:"user"`
}

// SessionStore persists the current session between calls.
type SessionStore interface {
	Load() (*Session, error)
	Save(*Session) error
	Clear() error
}

// MemorySessionStore keeps the session in process memory.
type MemorySessionStore struct {
	mu      sync.Mutex
	session *Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{}
}

func (s *MemorySessionStore) Load() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session, nil
}

func (s *MemorySessionStore) Save(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = sess
	return nil
}

func (s *MemorySessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}

// FileSessionStore persists the session as JSON on disk so command-line
// consumers stay signed in across runs.
type FileSessionStore struct {
	mu   sync.Mutex
	path string
}

func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{path: path}
}

func (s *FileSessionStore) Load() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *FileSessionStore) Save(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *FileSessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// AuthClient groups the authentication endpoints.
type AuthClient struct {
	client *Client
}

// Credentials carries an email/password pair for sign-in and sign-up.
type Credentials struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data,omitempty"`
}

// GetSession returns the cached session, or nil when signed out.
func (a *AuthClient) GetSession() (*Session, error) {
	return a.client.sessions.Load()
}

// GetUser returns the cached session's user, or nil when signed out.
func (a *AuthClient) GetUser() (map[string]any, error) {
	sess, err := a.client.sessions.Load()
	if err != nil || sess == nil {
		return nil, err
	}
	return sess.User, nil
}

// SignInWithPassword authenticates and caches the resulting session.
func (a *AuthClient) SignInWithPassword(ctx context.Context, creds Credentials) Result {
	res := a.client.request(ctx, "POST", "/auth/login", map[string]any{
		"email":    creds.Email,
		"password": creds.Password,
	})
	if res.Error != nil {
		return res
	}
	if err := a.cacheSession(res.Data); err != nil {
		return Result{Error: &Error{Message: err.Error()}}
	}
	return res
}

// SignUp registers a new account and caches the resulting session.
func (a *AuthClient) SignUp(ctx context.Context, creds Credentials) Result {
	body := map[string]any{
		"email":    creds.Email,
		"password": creds.Password,
	}
	if creds.Data != nil {
		body["options"] = map[string]any{"data": creds.Data}
	}
	res := a.client.request(ctx, "POST", "/auth/register", body)
	if res.Error != nil {
		return res
	}
	if err := a.cacheSession(res.Data); err != nil {
		return Result{Error: &Error{Message: err.Error()}}
	}
	return res
}

// SignOut discards the cached session. The server keeps no session state
// beyond the refresh token, which simply goes unused.
func (a *AuthClient) SignOut() error {
	return a.client.sessions.Clear()
}

// UpdateUser patches the signed-in user's metadata or password. The target
// email comes from the cached session.
func (a *AuthClient) UpdateUser(ctx context.Context, data map[string]any) Result {
	sess, err := a.client.sessions.Load()
	if err != nil {
		return Result{Error: &Error{Message: err.Error()}}
	}
	if sess == nil {
		return Result{Error: &Error{Message: "No session"}}
	}
	email, _ := sess.User["email"].(string)
	res := a.client.request(ctx, "POST", "/auth/update", map[string]any{
		"email": email,
		"data":  data,
	})
	if res.Error != nil {
		return res
	}
	if m, ok := res.Data.(map[string]any); ok {
		if user, ok := m["user"].(map[string]any); ok {
			sess.User = user
			if err := a.client.sessions.Save(sess); err != nil {
				return Result{Error: &Error{Message: err.Error()}}
			}
		}
	}
	return res
}

// SendCode requests an email verification code.
func (a *AuthClient) SendCode(ctx context.Context, email string) Result {
	return a.client.request(ctx, "POST", "/auth/send-code", map[string]any{"email": email})
}

// VerifyCode checks an email verification code.
func (a *AuthClient) VerifyCode(ctx context.Context, email, code string) Result {
	return a.client.request(ctx, "POST", "/auth/verify-code", map[string]any{
		"email": email,
		"code":  code,
	})
}

// Refresh exchanges the cached refresh token for a new session.
func (a *AuthClient) Refresh(ctx context.Context) Result {
	sess, err := a.client.sessions.Load()
	if err != nil {
		return Result{Error: &Error{Message: err.Error()}}
	}
	if sess == nil || sess.RefreshToken == "" {
		return Result{Error: &Error{Message: "No session"}}
	}
	res := a.client.request(ctx, "POST", "/auth/refresh", map[string]any{
		"refresh_token": sess.RefreshToken,
	})
	if res.Error != nil {
		return res
	}
	if err := a.cacheSession(res.Data); err != nil {
		return Result{Error: &Error{Message: err.Error()}}
	}
	return res
}

// cacheSession extracts {user, session} from an auth response and saves it.
func (a *AuthClient) cacheSession(data any) error {
	m, ok := data.(map[string]any)
	if !ok {
		return nil
	}
	user, _ := m["user"].(map[string]any)
	raw, ok := m["session"].(map[string]any)
	if !ok {
		return nil
	}
	sess := &Session{User: user}
	if v, ok := raw["access_token"].(string); ok {
		sess.AccessToken = v
	}
	if v, ok := raw["refresh_token"].(string); ok {
		sess.RefreshToken = v
	}
	if v, ok := raw["expires_at"].(string); ok {
		sess.ExpiresAt = v
	}
	return a.client.sessions.Save(sess)
}
