package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artevasinkaizen-cmd/partesapp/internal/models"
)

func day(d int, hour int) time.Time {
	return time.Date(2026, 8, d, hour, 0, 0, 0, time.UTC)
}

func TestBuild(t *testing.T) {
	partes := []models.Parte{
		{
			ID:        1,
			Status:    models.StatusAbierto,
			CreatedAt: day(1, 9),
			Actuaciones: []models.Actuacion{
				{Type: models.TypeLlamadaRealizada, Duration: 30, Timestamp: day(1, 10)},
				{Type: models.TypeDesplazamiento, Duration: 60, Timestamp: day(2, 11)},
			},
		},
		{
			ID:        2,
			Status:    models.StatusCerrado,
			CreatedAt: day(2, 14),
			Actuaciones: []models.Actuacion{
				{Type: models.TypeLlamadaRealizada, Duration: 15, Timestamp: day(2, 15)},
			},
		},
		{
			// Out of range, excluded entirely.
			ID:        3,
			Status:    models.StatusAbierto,
			CreatedAt: day(20, 9),
			Actuaciones: []models.Actuacion{
				{Type: models.TypeOtros, Duration: 999, Timestamp: day(20, 10)},
			},
		},
	}

	s := Build(partes, day(1, 0), day(3, 0))

	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.ByStatus[models.StatusAbierto])
	assert.Equal(t, 1, s.ByStatus[models.StatusCerrado])
	assert.Equal(t, 45, s.MinutesByType[models.TypeLlamadaRealizada])
	assert.Equal(t, 60, s.MinutesByType[models.TypeDesplazamiento])
	assert.Equal(t, 105, s.TotalMinutes)

	require.Len(t, s.Trend, 3)
	assert.Equal(t, TrendPoint{Day: "2026-08-01", Opened: 1, Minutes: 30}, s.Trend[0])
	assert.Equal(t, TrendPoint{Day: "2026-08-02", Opened: 1, Minutes: 75}, s.Trend[1])
	assert.Equal(t, TrendPoint{Day: "2026-08-03", Opened: 0, Minutes: 0}, s.Trend[2])
}

func TestBuildEmpty(t *testing.T) {
	s := Build(nil, day(1, 0), day(1, 0))
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0, s.TotalMinutes)
	require.Len(t, s.Trend, 1)
}
