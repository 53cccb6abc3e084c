package weather

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/entities"
)

// Fallback asks each provider in turn and returns the first answer.
type Fallback struct {
	providers []Provider
}

func NewFallback(providers ...Provider) *Fallback { return &Fallback{providers: providers} }

func (f *Fallback) Name() string {
	names := make([]string, len(f.providers))
	for i, p := range f.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, "|")
}

func (f *Fallback) Daily(ctx context.Context, site entities.SiteLocation, from, to time.Time) ([]entities.DailyWeatherObservation, error) {
	var errs []error
	for _, p := range f.providers {
		days, err := p.Daily(ctx, site, from, to)
		if err == nil {
			return days, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("weather: %s failed, trying next provider: %v", p.Name(), err)
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: every provider failed: %v", ErrUnavailable, errors.Join(errs...))
}
