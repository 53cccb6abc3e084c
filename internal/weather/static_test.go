package weather

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/entities"
)

func obsOn(d time.Time, tmax float64) entities.DailyWeatherObservation {
	return entities.DailyWeatherObservation{Date: d, TMax: tmax, TMin: 15, RHMean: entities.Float(60), WindSpeed2m: 2}
}

func TestStaticRange(t *testing.T) {
	base := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	s := NewStatic(obsOn(base.AddDate(0, 0, 2), 30), obsOn(base, 28), obsOn(base.AddDate(0, 0, 1), 29))
	s.Put(obsOn(base.AddDate(0, 0, 1), 31))

	got, err := s.Daily(context.Background(), tono, base, base.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].TMax != 28 || got[1].TMax != 31 {
		t.Fatalf("got %+v", got)
	}

	if _, err := s.Daily(context.Background(), tono, base.AddDate(0, 1, 0), base.AddDate(0, 1, 2)); !errors.Is(err, ErrBadData) {
		t.Fatalf("err = %v, want ErrBadData", err)
	}
}
