package fao56

import (
	"fmt"
	"time"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/entities"
)

// CropCoefficient is the Kc of a day together with where it came from.
type CropCoefficient struct {
	Kc          float64        `json:"kc"`
	Stage       entities.Stage `json:"stage"`
	DayOfCycle  int            `json:"day_of_cycle"` // 0 on the planting date
	DayOfStage  int            `json:"day_of_stage"`
	StageLength int            `json:"stage_length"`
}

// DaysBetween counts calendar days from a to b, ignoring clock time and
// daylight-saving shifts.
func DaysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// KcOnDay returns the crop coefficient for the day offset since planting.
// A stage covers offsets [start, start+Days); plateaus return their Kc and
// ramps interpolate linearly between KcStart and KcEnd.
func KcOnDay(p entities.CropProfile, offset int) (CropCoefficient, error) {
	if err := p.Check(); err != nil {
		return CropCoefficient{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if offset < 0 {
		return CropCoefficient{}, fmt.Errorf("%w: %s: %d days before planting", ErrOutOfCycle, p.Crop, -offset)
	}
	start := 0
	for _, s := range p.Stages {
		if offset < start+s.Days {
			pos := offset - start
			cc := CropCoefficient{Stage: s.Name, DayOfCycle: offset, DayOfStage: pos, StageLength: s.Days}
			if s.Kind == entities.Ramp {
				cc.Kc = s.KcStart + float64(pos)/float64(s.Days)*(s.KcEnd-s.KcStart)
			} else {
				cc.Kc = s.Kc
			}
			return cc, nil
		}
		start += s.Days
	}
	return CropCoefficient{}, fmt.Errorf("%w: %s: day %d beyond cycle length %d", ErrOutOfCycle, p.Crop, offset, start)
}

// KcOn returns the crop coefficient on date for a crop planted on planted.
func KcOn(p entities.CropProfile, planted, date time.Time) (CropCoefficient, error) {
	return KcOnDay(p, DaysBetween(planted, date))
}
