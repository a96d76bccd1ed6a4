package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artevasinkaizen-cmd/partesapp/internal/storage"
)

func TestParteFromRecord(t *testing.T) {
	rec := storage.Record{
		"id":          json.Number("1755000000000"),
		"description": "Avería en sala 3",
		"status":      "ABIERTO",
		"start_date":  "2026-08-01T09:00:00Z",
		"created_by":  "Ana",
		"user_id":     "u1",
	}
	acts := []storage.Record{
		{
			"id":       json.Number("1755000000001"),
			"parte_id": json.Number("1755000000000"),
			"type":     "Llamada Realizada",
			"date":     "2026-08-01T10:00:00Z",
			"duration": json.Number("30"),
			"user":     "Ana",
		},
		{
			// Belongs to another parte, must be excluded.
			"id":       json.Number("1755000000002"),
			"parte_id": json.Number("999"),
			"type":     "Otros",
			"duration": json.Number("60"),
		},
	}

	p := ParteFromRecord(rec, acts)

	assert.Equal(t, int64(1755000000000), p.ID)
	assert.Equal(t, "Avería en sala 3", p.Title)
	assert.Equal(t, StatusAbierto, p.Status)
	assert.Equal(t, "2026-08-01T09:00:00Z", p.CreatedAt.Format("2006-01-02T15:04:05Z"))
	assert.Nil(t, p.ClosedAt)
	require.Len(t, p.Actuaciones, 1)
	assert.Equal(t, TypeLlamadaRealizada, p.Actuaciones[0].Type)
	assert.Equal(t, 30, p.TotalTime)
	assert.Equal(t, 1, p.TotalActuaciones)
}

func TestParteFromRecordDefaults(t *testing.T) {
	p := ParteFromRecord(storage.Record{"id": json.Number("1")}, nil)

	assert.Equal(t, "Sin título", p.Title)
	assert.Equal(t, "Sistema", p.CreatedBy)
	assert.NotNil(t, p.Actuaciones, "actuaciones serializes as [], never null")
	assert.Equal(t, 0, p.TotalTime)
}

func TestParteFromRecordClosedAt(t *testing.T) {
	p := ParteFromRecord(storage.Record{
		"id":        json.Number("1"),
		"status":    "CERRADO",
		"closed_at": "2026-08-02T18:00:00Z",
	}, nil)

	require.NotNil(t, p.ClosedAt)
	assert.Equal(t, StatusCerrado, p.Status)
}

func TestUserFromRecord(t *testing.T) {
	u := UserFromRecord(storage.Record{
		"id":            "u1",
		"email":         "ana@example.com",
		"password_hash": "$2a$10$hash",
		"user_metadata": map[string]any{"full_name": "Ana García"},
	})

	assert.Equal(t, "Ana García", u.Name())
	assert.Equal(t, RoleUser, u.Role, "role defaults to user")
	assert.Equal(t, "$2a$10$hash", u.PasswordHash)

	// The hash never serializes.
	out, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "hash")
}

func TestUserNameFallsBackToEmail(t *testing.T) {
	u := User{Email: "ana@example.com"}
	assert.Equal(t, "ana@example.com", u.Name())
}

func TestStatusAndTypeValidation(t *testing.T) {
	assert.True(t, StatusEnTramite.Valid())
	assert.False(t, ParteStatus("PENDIENTE").Valid())

	assert.True(t, TypeTratamientoFichero.Valid())
	assert.False(t, ActuacionType("Invento").Valid())
	assert.Len(t, ActuacionTypes, 15)
}
