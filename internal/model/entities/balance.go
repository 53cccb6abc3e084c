package entities

import "time"

// DailyWaterBalance is one day of the water-balance ledger.
// Depths in mm; positive balances are water owed to the crop.
type DailyWaterBalance struct {
	Date          time.Time `json:"date"`
	ETo           float64   `json:"eto_mm"`
	Kc            float64   `json:"kc"`
	ETc           float64   `json:"etc_mm"`
	Rainfall      float64   `json:"rain_mm"`
	EffectiveRain float64   `json:"effective_rain_mm"`
	Carried       float64   `json:"carried_mm"` // cumulative balance of the previous day
	Net           float64   `json:"net_mm"`     // ETc - effective rain
	Cumulative    float64   `json:"cumulative_mm"`
}

// Deficit reports whether the day closes with water owed to the crop.
func (d DailyWaterBalance) Deficit() bool { return d.Cumulative > 0 }
