package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/artevasinkaizen-cmd/partesapp/internal/models"
	"github.com/artevasinkaizen-cmd/partesapp/internal/storage"
	"github.com/artevasinkaizen-cmd/partesapp/internal/storage/sqlite"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tokens := NewTokenManager("test-secret", "partes-app", time.Hour)
	return NewService(store, tokens, 24*time.Hour, nil, zap.NewNop())
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, session, err := svc.Register(ctx, "ana@example.com", "secret123", map[string]any{
		"full_name": "Ana García",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.Equal(t, "Ana García", user.Name())
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)

	got, _, err := svc.Login(ctx, "ana@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, _, err = svc.Login(ctx, "ana@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "ana@example.com", "secret123", nil)
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, "ana@example.com", "other", nil)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterRoleFromMetadata(t *testing.T) {
	svc := newTestService(t)

	user, _, err := svc.Register(context.Background(), "boss@example.com", "secret123", map[string]any{
		"role": models.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
}

func TestUpdateUserMetadataAndPassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "ana@example.com", "secret123", map[string]any{
		"full_name": "Ana",
	})
	require.NoError(t, err)

	updated, err := svc.UpdateUser(ctx, "ana@example.com", map[string]any{
		"full_name": "Ana García",
		"password":  "newsecret",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana García", updated.Metadata["full_name"])
	assert.NotContains(t, updated.Metadata, "password")

	_, _, err = svc.Login(ctx, "ana@example.com", "newsecret")
	require.NoError(t, err)
	_, _, err = svc.Login(ctx, "ana@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.UpdateUser(ctx, "nobody@example.com", map[string]any{"x": 1})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestVerificationCodeFlow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	code, mailed, err := svc.SendCode(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.False(t, mailed, "no mailer configured means dev mode")
	assert.Len(t, code, 6)

	require.NoError(t, svc.VerifyCode(ctx, "ana@example.com", code))

	// Codes are single use.
	err = svc.VerifyCode(ctx, "ana@example.com", code)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerificationCodeReplaced(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, _, err := svc.SendCode(ctx, "ana@example.com")
	require.NoError(t, err)
	second, _, err := svc.SendCode(ctx, "ana@example.com")
	require.NoError(t, err)

	if first != second {
		err = svc.VerifyCode(ctx, "ana@example.com", first)
		assert.ErrorIs(t, err, ErrInvalidCode)
	}
	require.NoError(t, svc.VerifyCode(ctx, "ana@example.com", second))
}

type stubMailer struct {
	to   string
	code string
	err  error
}

func (m *stubMailer) Send(_ context.Context, to, code string) error {
	m.to, m.code = to, code
	return m.err
}

func TestSendCodeWithMailer(t *testing.T) {
	svc := newTestService(t)
	m := &stubMailer{}
	svc.mailer = m

	code, mailed, err := svc.SendCode(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.True(t, mailed)
	assert.Equal(t, "ana@example.com", m.to)
	assert.Equal(t, code, m.code)
}

func TestSendCodeMailerFailureFallsBackToDevMode(t *testing.T) {
	svc := newTestService(t)
	svc.mailer = &stubMailer{err: assert.AnError}

	code, mailed, err := svc.SendCode(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.False(t, mailed)
	assert.Len(t, code, 6)

	// The stored code is still verifiable.
	require.NoError(t, svc.VerifyCode(context.Background(), "ana@example.com", code))
}

func TestVerificationCodeExpired(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	code, _, err := svc.SendCode(ctx, "ana@example.com")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(codeTTL + time.Minute) }
	err = svc.VerifyCode(ctx, "ana@example.com", code)
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestRefreshRotation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, session, err := svc.Register(ctx, "ana@example.com", "secret123", nil)
	require.NoError(t, err)

	got, next, err := svc.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.NotEqual(t, session.RefreshToken, next.RefreshToken)

	// The old token is consumed.
	_, _, err = svc.Refresh(ctx, session.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	_, _, err = svc.Refresh(ctx, "never-issued")
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestRefreshExpired(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, session, err := svc.Register(ctx, "ana@example.com", "secret123", nil)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	_, _, err = svc.Refresh(ctx, session.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestSeedAdmin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SeedAdmin(ctx))

	user, _, err := svc.Login(ctx, seedAdminEmail, seedAdminPassword)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)

	// Seeding is skipped once any user exists.
	require.NoError(t, svc.SeedAdmin(ctx))
	users, err := svc.store.List(ctx, storage.CollectionUsers, nil)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
