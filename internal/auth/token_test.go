package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artevasinkaizen-cmd/partesapp/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", "partes-app", time.Hour)
	user := models.User{ID: "u1", Email: "a@b.com", Role: models.RoleAdmin}

	token, exp, err := tm.Generate(user)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, exp.After(time.Now()))

	claims, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "partes-app", claims.Issuer)
}

func TestTokenWrongSecret(t *testing.T) {
	tm := NewTokenManager("secret", "partes-app", time.Hour)
	token, _, err := tm.Generate(models.User{ID: "u1"})
	require.NoError(t, err)

	other := NewTokenManager("different", "partes-app", time.Hour)
	_, err = other.Verify(token)
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	tm := NewTokenManager("secret", "partes-app", -time.Minute)
	token, _, err := tm.Generate(models.User{ID: "u1"})
	require.NoError(t, err)

	_, err = tm.Verify(token)
	assert.Error(t, err)
}
