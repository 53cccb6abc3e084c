package fao56

import (
	"fmt"
	"math"
	"time"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/entities"
)

// CropET is ETc = ETo × Kc in mm/day.
func CropET(etoMM, kc float64) (float64, error) {
	if math.IsNaN(etoMM) || math.IsInf(etoMM, 0) || etoMM < 0 {
		return 0, fmt.Errorf("%w: eto %v", ErrInvalidInput, etoMM)
	}
	if math.IsNaN(kc) || math.IsInf(kc, 0) || kc <= 0 {
		return 0, fmt.Errorf("%w: kc %v", ErrInvalidInput, kc)
	}
	return etoMM * kc, nil
}

// DailyDemand is the crop water demand of one day.
type DailyDemand struct {
	Date        time.Time       `json:"date"`
	Reference   ReferenceET     `json:"reference"`
	Coefficient CropCoefficient `json:"coefficient"`
	ETc         float64         `json:"etc_mm"`
	Rainfall    float64         `json:"rain_mm"`
}

// ComputeDemand chains ETo, Kc and ETc for one observation.
func ComputeDemand(o entities.DailyWeatherObservation, site entities.SiteLocation, crop entities.CropProfile, planted time.Time, p Params) (DailyDemand, error) {
	ref, err := ComputeETo(o, site, p)
	if err != nil {
		return DailyDemand{}, err
	}
	cc, err := KcOn(crop, planted, o.Date)
	if err != nil {
		return DailyDemand{}, err
	}
	etc, err := CropET(ref.ETo, cc.Kc)
	if err != nil {
		return DailyDemand{}, err
	}
	return DailyDemand{
		Date:        o.Date,
		Reference:   ref,
		Coefficient: cc,
		ETc:         etc,
		Rainfall:    o.Precipitation,
	}, nil
}

// BalanceDay returns the fold input for this demand.
func (d DailyDemand) BalanceDay() BalanceDay {
	return BalanceDay{Date: d.Date, ETo: d.Reference.ETo, Kc: d.Coefficient.Kc, ETc: d.ETc, Rainfall: d.Rainfall}
}
