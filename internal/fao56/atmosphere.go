package fao56

import (
	"fmt"
	"math"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/entities"
)

const (
	// KelvinOffset is the °C -> K shift used by FAO-56 for longwave terms.
	KelvinOffset = 273.16
	// latent heat ratio cp/(ε·λ), kPa °C-1 per kPa
	psychrometricFactor = 0.665e-3
)

// Humidity sources for the actual vapour pressure.
const (
	HumidityDewPoint = "dewpoint"
	HumidityRHMaxMin = "rh_max_min"
	HumidityRHMean   = "rh_mean"
)

// Atmosphere holds the quantities derived from one observation that the
// Penman-Monteith equation consumes.
type Atmosphere struct {
	TMeanC float64 `json:"tmean_c"`

	PressureKPa  float64 `json:"pressure_kpa"`
	GammaKPaPerC float64 `json:"gamma_kpa_c"`
	DeltaKPaPerC float64 `json:"delta_kpa_c"`

	EsKPa          float64 `json:"es_kpa"`
	EaKPa          float64 `json:"ea_kpa"`
	VPDKPa         float64 `json:"vpd_kpa"`
	VPDClamped     bool    `json:"vpd_clamped"`
	HumiditySource string  `json:"humidity_source"`

	Radiation Radiation `json:"radiation"`
}

// SaturationVaporPressure is e°(T) in kPa (FAO-56 eq. 11).
func SaturationVaporPressure(tC float64) float64 {
	return 0.6108 * math.Exp(17.27*tC/(tC+237.3))
}

// MeanSaturationVaporPressure averages e° at Tmax and Tmin (eq. 12).
func MeanSaturationVaporPressure(tmaxC, tminC float64) float64 {
	return (SaturationVaporPressure(tmaxC) + SaturationVaporPressure(tminC)) / 2
}

// SlopeVaporPressureCurve is Δ in kPa °C-1 at temperature T (eq. 13).
func SlopeVaporPressureCurve(tC float64) float64 {
	return 4098 * SaturationVaporPressure(tC) / math.Pow(tC+237.3, 2)
}

// AtmosphericPressure is P in kPa at elevation z metres (eq. 7).
func AtmosphericPressure(elevationM float64) float64 {
	base := (293 - 0.0065*elevationM) / 293
	if base <= 0 {
		return 0
	}
	return 101.3 * math.Pow(base, 5.26)
}

// PsychrometricConstant is γ in kPa °C-1 (eq. 8).
func PsychrometricConstant(pressureKPa float64) float64 {
	return psychrometricFactor * pressureKPa
}

// WindAt2m converts a wind speed measured at heightM to the 2 m reference
// height with the logarithmic profile (eq. 47).
func WindAt2m(speed, heightM float64) float64 {
	if heightM == 2 {
		return speed
	}
	return speed * 4.87 / math.Log(67.8*heightM-5.42)
}

// ActualVaporPressure picks the best available humidity measure: dewpoint
// (eq. 14), then RHmax/RHmin (eq. 17), then RHmean (eq. 19).
func ActualVaporPressure(o entities.DailyWeatherObservation) (float64, string, error) {
	switch {
	case o.DewPoint != nil:
		return SaturationVaporPressure(*o.DewPoint), HumidityDewPoint, nil
	case o.RHMax != nil && o.RHMin != nil:
		ea := (SaturationVaporPressure(o.TMin)*(*o.RHMax)/100 + SaturationVaporPressure(o.TMax)*(*o.RHMin)/100) / 2
		return ea, HumidityRHMaxMin, nil
	case o.RHMean != nil:
		return (*o.RHMean / 100) * MeanSaturationVaporPressure(o.TMax, o.TMin), HumidityRHMean, nil
	}
	return 0, "", fmt.Errorf("%w: %s: no humidity measure", ErrInvalidInput, o.Day())
}

// DeriveAtmosphere computes the psychrometric and radiation terms for one
// day at one site.
func DeriveAtmosphere(o entities.DailyWeatherObservation, site entities.SiteLocation, p Params) (Atmosphere, error) {
	if err := site.Check(); err != nil {
		return Atmosphere{}, fmt.Errorf("%w: site: %v", ErrInvalidInput, err)
	}
	if err := checkFinite(o); err != nil {
		return Atmosphere{}, err
	}
	if err := o.Check(); err != nil {
		return Atmosphere{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	a := Atmosphere{TMeanC: (o.TMax + o.TMin) / 2}

	a.PressureKPa = AtmosphericPressure(site.Elevation)
	if a.PressureKPa <= 0 {
		return Atmosphere{}, fmt.Errorf("%w: non-positive pressure at elevation %.0f m", ErrInvalidInput, site.Elevation)
	}
	a.GammaKPaPerC = PsychrometricConstant(a.PressureKPa)
	a.DeltaKPaPerC = SlopeVaporPressureCurve(a.TMeanC)

	a.EsKPa = MeanSaturationVaporPressure(o.TMax, o.TMin)
	ea, src, err := ActualVaporPressure(o)
	if err != nil {
		return Atmosphere{}, err
	}
	if a.EsKPa <= 0 || ea < 0 {
		return Atmosphere{}, fmt.Errorf("%w: %s: vapour pressure es=%.4f ea=%.4f", ErrInvalidInput, o.Day(), a.EsKPa, ea)
	}
	a.EaKPa, a.HumiditySource = ea, src
	a.VPDKPa, a.VPDClamped = ClampVPD(a.EsKPa - a.EaKPa)

	rad, err := DeriveRadiation(o, site, a.EaKPa, p)
	if err != nil {
		return Atmosphere{}, err
	}
	a.Radiation = rad
	return a, nil
}

func checkFinite(o entities.DailyWeatherObservation) error {
	vals := []float64{o.TMax, o.TMin, o.WindSpeed2m, o.Precipitation}
	for _, ptr := range []*float64{o.DewPoint, o.RHMax, o.RHMin, o.RHMean, o.SolarRadiation, o.SunshineHours} {
		if ptr != nil {
			vals = append(vals, *ptr)
		}
	}
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s: non-finite value", ErrInvalidInput, o.Day())
		}
	}
	return nil
}
