package models

import (
	"encoding/json"
	"time"

	"github.com/artevasinkaizen-cmd/partesapp/internal/storage"
)

// Persisted column names are those of the hosted schema the application was
// written against; records keep them so the wire format stays compatible.

// ParteFromRecord maps a persisted parte row plus its child actuacion rows
// into the application shape, recomputing denormalized totals.
func ParteFromRecord(rec storage.Record, acts []storage.Record) Parte {
	id := recInt64(rec, "id")
	p := Parte{
		ID:            id,
		Title:         recStringOr(rec, "description", "Sin título"),
		Status:        ParteStatus(recString(rec, "status")),
		CreatedAt:     recTimeOr(rec, "start_date", recTime(rec, "created_at")),
		CreatedBy:     recStringOr(rec, "created_by", "Sistema"),
		UserID:        recString(rec, "user_id"),
		PDFFile:       recString(rec, "pdf_file"),
		PDFFileSigned: recString(rec, "pdf_file_signed"),
		Actuaciones:   []Actuacion{},
	}
	if closed := recTime(rec, "closed_at"); !closed.IsZero() {
		p.ClosedAt = &closed
	}
	for _, a := range acts {
		if recInt64(a, "parte_id") != id {
			continue
		}
		p.Actuaciones = append(p.Actuaciones, ActuacionFromRecord(a))
	}
	sum := 0
	for _, a := range p.Actuaciones {
		sum += a.Duration
	}
	p.TotalTime = int(recInt64(rec, "total_time"))
	if p.TotalTime == 0 {
		p.TotalTime = sum
	}
	p.TotalActuaciones = len(p.Actuaciones)
	return p
}

// ActuacionFromRecord maps a persisted actuacion row.
func ActuacionFromRecord(rec storage.Record) Actuacion {
	return Actuacion{
		ID:        storage.Stringify(rec["id"]),
		ParteID:   recInt64(rec, "parte_id"),
		Type:      ActuacionType(recString(rec, "type")),
		Timestamp: recTime(rec, "date"),
		Duration:  int(recInt64(rec, "duration")),
		Notes:     recString(rec, "description"),
		User:      recStringOr(rec, "user", "Sistema"),
	}
}

// UserFromRecord maps a persisted user row.
func UserFromRecord(rec storage.Record) User {
	u := User{
		ID:           recString(rec, "id"),
		Email:        recString(rec, "email"),
		Role:         recStringOr(rec, "role", RoleUser),
		AvatarURL:    recString(rec, "avatar_url"),
		PasswordHash: recString(rec, "password_hash"),
		CreatedAt:    recTime(rec, "created_at"),
	}
	if meta, ok := rec["user_metadata"].(map[string]any); ok {
		u.Metadata = meta
	} else {
		u.Metadata = map[string]any{}
	}
	return u
}

// ClientFromRecord maps a persisted client row.
func ClientFromRecord(rec storage.Record) Client {
	return Client{
		ID:     storage.Stringify(rec["id"]),
		Name:   recString(rec, "name"),
		DNI:    recString(rec, "dni"),
		Email:  recString(rec, "email"),
		Phone:  recString(rec, "phone"),
		UserID: recString(rec, "user_id"),
	}
}

func recString(rec storage.Record, key string) string {
	if v, ok := rec[key].(string); ok {
		return v
	}
	return ""
}

func recStringOr(rec storage.Record, key, fallback string) string {
	if v := recString(rec, key); v != "" {
		return v
	}
	return fallback
}

func recInt64(rec storage.Record, key string) int64 {
	switch v := rec[key].(type) {
	case json.Number:
		n, _ := v.Int64()
		return n
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

func recTime(rec storage.Record, key string) time.Time {
	s := recString(rec, key)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return time.Time{}
}

func recTimeOr(rec storage.Record, key string, fallback time.Time) time.Time {
	if t := recTime(rec, key); !t.IsZero() {
		return t
	}
	return fallback
}
