package fao56

import (
	"fmt"
	"math"
	"time"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/entities"
)

// BalanceDay is one input row of the water-balance fold.
type BalanceDay struct {
	Date     time.Time `json:"date"`
	ETo      float64   `json:"eto_mm"`
	Kc       float64   `json:"kc"`
	ETc      float64   `json:"etc_mm"`
	Rainfall float64   `json:"rain_mm"`
}

// EffectiveRainfall is the part of a day's rain the crop can use: rain above
// the runoff cap is lost, and the remainder is scaled by the rain efficiency.
func EffectiveRainfall(rainMM float64, p Params) float64 {
	r := rainMM
	if p.RunoffCapMM > 0 && r > p.RunoffCapMM {
		r = p.RunoffCapMM
	}
	return r * p.RainEfficiency
}

// FoldBalance runs the water balance over days, which must be consecutive
// calendar days in ascending order. seedMM is the deficit carried into the
// first day. The cumulative balance is neither floored nor capped: a
// negative value is a surplus cushion.
func FoldBalance(days []BalanceDay, seedMM float64, p Params) ([]entities.DailyWaterBalance, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(seedMM) || math.IsInf(seedMM, 0) {
		return nil, fmt.Errorf("%w: seed %v", ErrInvalidInput, seedMM)
	}

	out := make([]entities.DailyWaterBalance, 0, len(days))
	cum := seedMM
	for i, d := range days {
		if i > 0 {
			if step := DaysBetween(days[i-1].Date, d.Date); step != 1 {
				return nil, fmt.Errorf("%w: %s follows %s (%s)", ErrDiscontinuousAudit,
					d.Date.Format(entities.DateLayout), days[i-1].Date.Format(entities.DateLayout), describeStep(step))
			}
		}
		if !validDepth(d.ETc) || !validDepth(d.Rainfall) {
			return nil, fmt.Errorf("%w: %s: etc=%v rain=%v", ErrInvalidInput, d.Date.Format(entities.DateLayout), d.ETc, d.Rainfall)
		}

		eff := EffectiveRainfall(d.Rainfall, p)
		net := d.ETc - eff
		row := entities.DailyWaterBalance{
			Date:          d.Date,
			ETo:           d.ETo,
			Kc:            d.Kc,
			ETc:           d.ETc,
			Rainfall:      d.Rainfall,
			EffectiveRain: eff,
			Carried:       cum,
			Net:           net,
		}
		cum += net
		row.Cumulative = cum
		out = append(out, row)
	}
	return out, nil
}

// TrailingWindow keeps the last n days; n <= 0 keeps everything.
func TrailingWindow(days []BalanceDay, n int) []BalanceDay {
	if n <= 0 || len(days) <= n {
		return days
	}
	return days[len(days)-n:]
}

func describeStep(step int) string {
	switch {
	case step == 0:
		return "duplicate day"
	case step < 0:
		return "out of order"
	default:
		return fmt.Sprintf("gap of %d days", step-1)
	}
}

func validDepth(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
