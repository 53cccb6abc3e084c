package fao56

import (
	"math"
	"time"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/entities"
)

const (
	MethodPenmanMonteith = "penman-monteith"
	MethodHargreaves     = "hargreaves"
)

// ReferenceET is the reference evapotranspiration of one day together with
// the intermediates it was computed from.
type ReferenceET struct {
	Date       time.Time  `json:"date"`
	ETo        float64    `json:"eto_mm"`     // mm/day, >= 0
	RawETo     float64    `json:"raw_eto_mm"` // before ClampETo
	Clamped    bool       `json:"clamped"`
	Method     string     `json:"method"`
	Atmosphere Atmosphere `json:"atmosphere"`
}

// PenmanMonteith evaluates FAO-56 eq. 6 without clamping:
//
//	ETo = [0.408 Δ (Rn - G) + γ 900/(T+273) u2 (es - ea)] / [Δ + γ (1 + 0.34 u2)]
func PenmanMonteith(deltaKPaPerC, rnMJ, gMJ, gammaKPaPerC, tMeanC, u2, vpdKPa float64) float64 {
	num := 0.408*deltaKPaPerC*(rnMJ-gMJ) + gammaKPaPerC*(900/(tMeanC+273))*u2*vpdKPa
	den := deltaKPaPerC + gammaKPaPerC*(1+0.34*u2)
	return num / den
}

// Hargreaves evaluates FAO-56 eq. 52, the temperature-only estimate used
// when a day carries no radiation data. Ra is in MJ m-2 day-1.
func Hargreaves(tmaxC, tminC, raMJ float64) float64 {
	tmean := (tmaxC + tminC) / 2
	return 0.0023 * (tmean + 17.8) * math.Sqrt(math.Max(tmaxC-tminC, 0)) * 0.408 * raMJ
}

// ComputeETo derives the atmosphere for one observation and returns the
// clamped reference evapotranspiration. Penman-Monteith is used whenever
// radiation or sunshine is available, Hargreaves otherwise.
func ComputeETo(o entities.DailyWeatherObservation, site entities.SiteLocation, p Params) (ReferenceET, error) {
	a, err := DeriveAtmosphere(o, site, p)
	if err != nil {
		return ReferenceET{}, err
	}
	out := ReferenceET{Date: o.Date, Atmosphere: a}
	if a.Radiation.Source == RadiationNone {
		out.Method = MethodHargreaves
		out.RawETo = Hargreaves(o.TMax, o.TMin, a.Radiation.Ra)
	} else {
		out.Method = MethodPenmanMonteith
		out.RawETo = PenmanMonteith(a.DeltaKPaPerC, a.Radiation.Rn, p.SoilHeatFlux, a.GammaKPaPerC, a.TMeanC, o.WindSpeed2m, a.VPDKPa)
	}
	out.ETo, out.Clamped = ClampETo(out.RawETo)
	return out, nil
}
