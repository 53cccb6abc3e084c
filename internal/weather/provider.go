// Package weather fetches daily observations for the audit window.
package weather

import (
	"context"
	"errors"
	"time"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/entities"
)

var (
	// ErrUnavailable wraps transport failures, error statuses and an open breaker.
	ErrUnavailable = errors.New("weather source unavailable")
	// ErrBadData is returned when the source answers with unusable records.
	ErrBadData = errors.New("weather source returned bad data")
)

// DefaultWindSpeed2m replaces a missing wind record (FAO-56 guidance for
// data-poor sites).
const DefaultWindSpeed2m = 2.0

// Provider returns one observation per calendar day in [from, to], ascending.
type Provider interface {
	Name() string
	Daily(ctx context.Context, site entities.SiteLocation, from, to time.Time) ([]entities.DailyWeatherObservation, error)
}
