package weather

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/fao56"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/entities"
)

// Static serves observations held in memory, regardless of the site.
type Static struct {
	mu   sync.RWMutex
	days []entities.DailyWeatherObservation
}

func NewStatic(days ...entities.DailyWeatherObservation) *Static {
	s := &Static{}
	s.Put(days...)
	return s
}

// Put adds observations, replacing any already stored for the same day.
func (s *Static) Put(days ...entities.DailyWeatherObservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range days {
		replaced := false
		for i := range s.days {
			if fao56.DaysBetween(s.days[i].Date, d.Date) == 0 {
				s.days[i] = d
				replaced = true
				break
			}
		}
		if !replaced {
			s.days = append(s.days, d)
		}
	}
	sort.Slice(s.days, func(i, j int) bool { return s.days[i].Date.Before(s.days[j].Date) })
}

func (s *Static) Name() string { return "static" }

func (s *Static) Daily(_ context.Context, _ entities.SiteLocation, from, to time.Time) ([]entities.DailyWeatherObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []entities.DailyWeatherObservation
	for _, d := range s.days {
		if fao56.DaysBetween(from, d.Date) >= 0 && fao56.DaysBetween(d.Date, to) >= 0 {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no records between %s and %s", ErrBadData,
			from.Format(entities.DateLayout), to.Format(entities.DateLayout))
	}
	return out, nil
}
