// Package report computes the aggregations behind the dashboards: status
// distribution, time per actuacion type, and a daily activity trend.
package report

import (
	"time"

	"github.com/artevasinkaizen-cmd/partesapp/internal/models"
)

// TrendPoint is one day of activity.
type TrendPoint struct {
	Day     string `json:"day"` // 2006-01-02
	Opened  int    `json:"opened"`
	Minutes int    `json:"minutes"`
}

// Summary aggregates a set of partes for display.
type Summary struct {
	Total         int                            `json:"total"`
	ByStatus      map[models.ParteStatus]int     `json:"byStatus"`
	MinutesByType map[models.ActuacionType]int   `json:"minutesByType"`
	TotalMinutes  int                            `json:"totalMinutes"`
	Trend         []TrendPoint                   `json:"trend"`
}

// Build aggregates partes whose creation falls inside [from, to]. Actuacion
// minutes count toward the trend by their own timestamp.
func Build(partes []models.Parte, from, to time.Time) Summary {
	s := Summary{
		ByStatus:      map[models.ParteStatus]int{},
		MinutesByType: map[models.ActuacionType]int{},
	}

	opened := map[string]int{}
	minutes := map[string]int{}

	for _, p := range partes {
		if !inRange(p.CreatedAt, from, to) {
			continue
		}
		s.Total++
		s.ByStatus[p.Status]++
		opened[dayKey(p.CreatedAt)]++

		for _, a := range p.Actuaciones {
			s.MinutesByType[a.Type] += a.Duration
			s.TotalMinutes += a.Duration
			if inRange(a.Timestamp, from, to) {
				minutes[dayKey(a.Timestamp)] += a.Duration
			}
		}
	}

	for day := truncateDay(from); !day.After(to); day = day.AddDate(0, 0, 1) {
		key := dayKey(day)
		s.Trend = append(s.Trend, TrendPoint{
			Day:     key,
			Opened:  opened[key],
			Minutes: minutes[key],
		})
	}
	return s
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func truncateDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func inRange(t, from, to time.Time) bool {
	if t.IsZero() {
		return false
	}
	return !t.Before(truncateDay(from)) && t.Before(truncateDay(to).AddDate(0, 0, 1))
}
