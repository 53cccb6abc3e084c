package entities

import (
	"fmt"
	"time"
)

// DailyWeatherObservation is one day of weather at a site, as delivered by a
// weather source. Optional quantities are pointers; nil means "not measured".
type DailyWeatherObservation struct {
	Date time.Time `json:"date"`

	TMax float64 `json:"tmax_c"` // °C
	TMin float64 `json:"tmin_c"` // °C

	// Humidity, in order of preference: dewpoint, RHmax/RHmin, RHmean.
	DewPoint *float64 `json:"dewpoint_c,omitempty"`
	RHMax    *float64 `json:"rh_max_pct,omitempty"`
	RHMin    *float64 `json:"rh_min_pct,omitempty"`
	RHMean   *float64 `json:"rh_mean_pct,omitempty"`

	// Radiation: measured Rs, otherwise sunshine hours through Angström.
	SolarRadiation *float64 `json:"rs_mj_m2,omitempty"`   // MJ m-2 day-1
	SunshineHours  *float64 `json:"sunshine_h,omitempty"` // h

	WindSpeed2m   float64 `json:"u2_m_s"`    // m/s at 2 m
	Precipitation float64 `json:"precip_mm"` // mm

	// SourceETo is the reference ET published by the weather source, if any.
	// It is informational and never feeds the water balance.
	SourceETo *float64 `json:"source_eto_mm,omitempty"`
}

// Check validates the observation invariants.
func (o DailyWeatherObservation) Check() error {
	if o.Date.IsZero() {
		return fmt.Errorf("observation without date")
	}
	if o.TMax < o.TMin {
		return fmt.Errorf("%s: tmax %.2f < tmin %.2f", o.Day(), o.TMax, o.TMin)
	}
	for name, v := range map[string]*float64{"rh_max": o.RHMax, "rh_min": o.RHMin, "rh_mean": o.RHMean} {
		if v != nil && (*v < 0 || *v > 100) {
			return fmt.Errorf("%s: %s %.2f outside [0,100]", o.Day(), name, *v)
		}
	}
	if (o.RHMax == nil) != (o.RHMin == nil) {
		return fmt.Errorf("%s: rh_max and rh_min must be given together", o.Day())
	}
	if o.DewPoint == nil && o.RHMax == nil && o.RHMean == nil {
		return fmt.Errorf("%s: no humidity measure", o.Day())
	}
	if o.SolarRadiation != nil && *o.SolarRadiation < 0 {
		return fmt.Errorf("%s: negative solar radiation", o.Day())
	}
	if o.SunshineHours != nil && *o.SunshineHours < 0 {
		return fmt.Errorf("%s: negative sunshine duration", o.Day())
	}
	if o.WindSpeed2m < 0 {
		return fmt.Errorf("%s: negative wind speed", o.Day())
	}
	if o.Precipitation < 0 {
		return fmt.Errorf("%s: negative precipitation", o.Day())
	}
	return nil
}

// Day formats the observation date as YYYY-MM-DD.
func (o DailyWeatherObservation) Day() string { return o.Date.Format(DateLayout) }

// DateLayout is the calendar-day layout used across the module.
const DateLayout = "2006-01-02"

// Float returns a pointer to v, for building observations by hand.
func Float(v float64) *float64 { return &v }

// Midnight truncates t to the start of its calendar day in its own location.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
