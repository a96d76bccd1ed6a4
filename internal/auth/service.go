// Package auth implements registration, login, session issuance, and the
// email verification-code flow on top of the document store.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/artevasinkaizen-cmd/partesapp/internal/models"
	"github.com/artevasinkaizen-cmd/partesapp/internal/storage"
)

// Sentinel errors mapped to HTTP statuses by the handlers.
var (
	ErrEmailTaken         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCode        = errors.New("invalid code")
	ErrCodeExpired        = errors.New("code expired")
	ErrInvalidRefresh     = errors.New("invalid refresh token")
)

const codeTTL = 15 * time.Minute

// Seeded admin credentials for local/dev bootstrap. Not a secret.
const (
	seedAdminEmail    = "admin@admin.com"
	seedAdminPassword = "admin"
)

// Mailer delivers verification codes. A nil Mailer puts the service in dev
// mode, where codes are surfaced in the send-code response instead.
type Mailer interface {
	Send(ctx context.Context, to, code string) error
}

// Service owns authentication flows against the document store.
type Service struct {
	store      storage.Store
	tokens     *TokenManager
	refreshTTL time.Duration
	mailer     Mailer
	log        *zap.Logger
	now        func() time.Time
}

// NewService constructs the service. mailer may be nil for dev mode.
func NewService(store storage.Store, tokens *TokenManager, refreshTTL time.Duration, mailer Mailer, log *zap.Logger) *Service {
	return &Service{
		store:      store,
		tokens:     tokens,
		refreshTTL: refreshTTL,
		mailer:     mailer,
		log:        log,
		now:        time.Now,
	}
}

// SeedAdmin creates the bootstrap admin account when no users exist.
func (s *Service) SeedAdmin(ctx context.Context) error {
	users, err := s.store.List(ctx, storage.CollectionUsers, nil)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}
	_, _, err = s.Register(ctx, seedAdminEmail, seedAdminPassword, map[string]any{
		"full_name": "Super Admin",
		"role":      models.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	s.log.Info("seeded bootstrap admin account", zap.String("email", seedAdminEmail))
	return nil
}

// Register creates a user with hashed credentials and returns a session.
// metadata mirrors the wire options.data object; a role key overrides the
// default user role.
func (s *Service) Register(ctx context.Context, email, password string, metadata map[string]any) (models.User, models.Session, error) {
	existing, err := s.store.List(ctx, storage.CollectionUsers, map[string]string{"email": email})
	if err != nil {
		return models.User{}, models.Session{}, err
	}
	if len(existing) > 0 {
		return models.User{}, models.Session{}, ErrEmailTaken
	}

	hash, err := HashPassword(password)
	if err != nil {
		return models.User{}, models.Session{}, err
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	role := models.RoleUser
	if r, ok := metadata["role"].(string); ok && r != "" {
		role = r
	}

	rec := storage.Record{
		"id":            uuid.NewString(),
		"email":         email,
		"password_hash": hash,
		"role":          role,
		"user_metadata": metadata,
		"created_at":    s.now().UTC().Format(time.RFC3339),
	}
	stored, err := s.store.Insert(ctx, storage.CollectionUsers, rec)
	if err != nil {
		return models.User{}, models.Session{}, err
	}

	user := models.UserFromRecord(stored)
	session, err := s.issueSession(ctx, user)
	if err != nil {
		return models.User{}, models.Session{}, err
	}
	return user, session, nil
}

// Login authenticates by email and password.
func (s *Service) Login(ctx context.Context, email, password string) (models.User, models.Session, error) {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return models.User{}, models.Session{}, ErrInvalidCredentials
	}
	if !CheckPassword(user.PasswordHash, password) {
		return models.User{}, models.Session{}, ErrInvalidCredentials
	}
	session, err := s.issueSession(ctx, user)
	if err != nil {
		return models.User{}, models.Session{}, err
	}
	return user, session, nil
}

// UpdateUser merges data into the user's metadata, located by email. A
// password key re-hashes the credential instead of landing in metadata.
func (s *Service) UpdateUser(ctx context.Context, email string, data map[string]any) (models.User, error) {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return models.User{}, ErrUserNotFound
	}

	patch := storage.Record{}
	meta := user.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	for k, v := range data {
		if k == "password" {
			pw, _ := v.(string)
			hash, err := HashPassword(pw)
			if err != nil {
				return models.User{}, err
			}
			patch["password_hash"] = hash
			continue
		}
		meta[k] = v
	}
	patch["user_metadata"] = meta

	updated, err := s.store.Update(ctx, storage.CollectionUsers, user.ID, patch)
	if err != nil {
		return models.User{}, err
	}
	return models.UserFromRecord(updated), nil
}

// SendCode generates a 6-digit verification code, replaces any prior code
// for the email, and attempts delivery. When no mailer is configured the
// code is returned for dev use (mailed=false).
func (s *Service) SendCode(ctx context.Context, email string) (code string, mailed bool, err error) {
	code, err = generateCode()
	if err != nil {
		return "", false, err
	}

	// Single active code per email.
	prior, err := s.store.List(ctx, storage.CollectionVerifications, map[string]string{"email": email})
	if err != nil {
		return "", false, err
	}
	for _, rec := range prior {
		if err := s.store.Delete(ctx, storage.CollectionVerifications, rec.ID()); err != nil {
			return "", false, err
		}
	}

	_, err = s.store.Insert(ctx, storage.CollectionVerifications, storage.Record{
		"email":   email,
		"code":    code,
		"expires": s.now().Add(codeTTL).UnixMilli(),
	})
	if err != nil {
		return "", false, err
	}

	if s.mailer == nil {
		s.log.Info("dev mode verification code", zap.String("email", email))
		return code, false, nil
	}
	// Delivery failure degrades to dev mode rather than losing the code.
	if err := s.mailer.Send(ctx, email, code); err != nil {
		s.log.Warn("send verification email", zap.String("email", email), zap.Error(err))
		return code, false, nil
	}
	return code, true, nil
}

// VerifyCode validates a code by exact match and expiry, consuming the
// record on success.
func (s *Service) VerifyCode(ctx context.Context, email, code string) error {
	recs, err := s.store.List(ctx, storage.CollectionVerifications, map[string]string{"email": email, "code": code})
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return ErrInvalidCode
	}
	rec := recs[0]
	if asInt64(rec["expires"]) < s.now().UnixMilli() {
		return ErrCodeExpired
	}

	// Consume every code for this email.
	all, err := s.store.List(ctx, storage.CollectionVerifications, map[string]string{"email": email})
	if err != nil {
		return err
	}
	for _, r := range all {
		if err := s.store.Delete(ctx, storage.CollectionVerifications, r.ID()); err != nil {
			return err
		}
	}
	return nil
}

// Refresh rotates a refresh token, returning a fresh session.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (models.User, models.Session, error) {
	rec, err := s.store.Get(ctx, storage.CollectionRefreshTokens, refreshToken)
	if err != nil {
		return models.User{}, models.Session{}, ErrInvalidRefresh
	}
	// Single use: the token is consumed whether or not it is still live.
	if err := s.store.Delete(ctx, storage.CollectionRefreshTokens, refreshToken); err != nil {
		return models.User{}, models.Session{}, err
	}
	expires, _ := time.Parse(time.RFC3339, storage.Stringify(rec["expires_at"]))
	if s.now().After(expires) {
		return models.User{}, models.Session{}, ErrInvalidRefresh
	}

	userRec, err := s.store.Get(ctx, storage.CollectionUsers, storage.Stringify(rec["user_id"]))
	if err != nil {
		return models.User{}, models.Session{}, ErrInvalidRefresh
	}
	user := models.UserFromRecord(userRec)
	session, err := s.issueSession(ctx, user)
	if err != nil {
		return models.User{}, models.Session{}, err
	}
	return user, session, nil
}

func (s *Service) issueSession(ctx context.Context, user models.User) (models.Session, error) {
	access, exp, err := s.tokens.Generate(user)
	if err != nil {
		return models.Session{}, err
	}
	refresh := uuid.NewString()
	_, err = s.store.Insert(ctx, storage.CollectionRefreshTokens, storage.Record{
		"id":         refresh,
		"user_id":    user.ID,
		"expires_at": s.now().Add(s.refreshTTL).UTC().Format(time.RFC3339),
	})
	if err != nil {
		return models.Session{}, err
	}
	return models.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    exp,
		User:         user,
	}, nil
}

func (s *Service) findByEmail(ctx context.Context, email string) (models.User, error) {
	recs, err := s.store.List(ctx, storage.CollectionUsers, map[string]string{"email": email})
	if err != nil {
		return models.User{}, err
	}
	if len(recs) == 0 {
		return models.User{}, ErrUserNotFound
	}
	return models.UserFromRecord(recs[0]), nil
}

// generateCode returns a random 6-digit numeric code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case json.Number:
		n, _ := t.Int64()
		return n
	case int64:
		return t
	case float64:
		return int64(t)
	}
	return 0
}
