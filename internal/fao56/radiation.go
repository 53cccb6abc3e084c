package fao56

import (
	"fmt"
	"math"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/entities"
)

const (
	SolarConstant  = 0.0820   // Gsc, MJ m-2 min-1
	StefanBoltzman = 4.903e-9 // σ, MJ K-4 m-2 day-1
)

// Sources of the incoming shortwave radiation.
const (
	RadiationMeasured = "measured"
	RadiationSunshine = "sunshine"
	RadiationNone     = "none"
)

// Radiation is the daily radiation balance, all terms in MJ m-2 day-1.
type Radiation struct {
	Source        string  `json:"source"`
	Ra            float64 `json:"ra"`
	DaylightHours float64 `json:"daylight_h"`
	Rs            float64 `json:"rs"`
	Rso           float64 `json:"rso"`
	Rns           float64 `json:"rns"`
	Rnl           float64 `json:"rnl"`
	Rn            float64 `json:"rn"`
}

// InverseRelativeDistance is dr, the Earth-Sun distance factor (eq. 23).
func InverseRelativeDistance(dayOfYear int) float64 {
	return 1 + 0.033*math.Cos(2*math.Pi*float64(dayOfYear)/365)
}

// SolarDeclination is δ in radians (eq. 24).
func SolarDeclination(dayOfYear int) float64 {
	return 0.409 * math.Sin(2*math.Pi*float64(dayOfYear)/365-1.39)
}

// SunsetHourAngle is ωs in radians (eq. 25). Beyond the polar circles the
// argument leaves [-1,1]; it is clamped to give 0 (polar night) or π
// (midnight sun).
func SunsetHourAngle(latRad, declRad float64) float64 {
	x := -math.Tan(latRad) * math.Tan(declRad)
	return math.Acos(math.Max(-1, math.Min(1, x)))
}

// ExtraterrestrialRadiation is Ra for a latitude in degrees (eq. 21).
func ExtraterrestrialRadiation(latDeg float64, dayOfYear int) float64 {
	phi := latDeg * math.Pi / 180
	dr := InverseRelativeDistance(dayOfYear)
	dec := SolarDeclination(dayOfYear)
	ws := SunsetHourAngle(phi, dec)
	ra := 24 * 60 / math.Pi * SolarConstant * dr *
		(ws*math.Sin(phi)*math.Sin(dec) + math.Cos(phi)*math.Cos(dec)*math.Sin(ws))
	return math.Max(ra, 0)
}

// DaylightHours is the maximum possible sunshine duration N (eq. 34).
func DaylightHours(latDeg float64, dayOfYear int) float64 {
	return 24 / math.Pi * SunsetHourAngle(latDeg*math.Pi/180, SolarDeclination(dayOfYear))
}

// SolarRadiationFromSunshine is the Angström estimate of Rs (eq. 35).
func SolarRadiationFromSunshine(sunshineH, daylightH, ra, as, bs float64) float64 {
	if daylightH <= 0 {
		return as * ra
	}
	ratio := math.Min(sunshineH/daylightH, 1)
	return (as + bs*ratio) * ra
}

// ClearSkyRadiation is Rso from elevation (eq. 37).
func ClearSkyRadiation(elevationM, ra float64) float64 {
	return (0.75 + 2e-5*elevationM) * ra
}

// NetShortwaveRadiation is Rns = (1-α)·Rs (eq. 38).
func NetShortwaveRadiation(rs, albedo float64) float64 {
	return (1 - albedo) * rs
}

// NetLongwaveRadiation is Rnl (eq. 39). Rs/Rso is limited to 1.
func NetLongwaveRadiation(tmaxC, tminC, eaKPa, rs, rso float64) float64 {
	tmaxK4 := math.Pow(tmaxC+KelvinOffset, 4)
	tminK4 := math.Pow(tminC+KelvinOffset, 4)
	ratio := 1.0
	if rso > 0 {
		ratio = math.Min(rs/rso, 1)
	}
	return StefanBoltzman * (tmaxK4 + tminK4) / 2 * (0.34 - 0.14*math.Sqrt(eaKPa)) * (1.35*ratio - 0.35)
}

// DeriveRadiation computes the radiation balance of one day. With neither a
// measured Rs nor a sunshine duration only Ra and N are filled and Source is
// RadiationNone.
func DeriveRadiation(o entities.DailyWeatherObservation, site entities.SiteLocation, eaKPa float64, p Params) (Radiation, error) {
	j := o.Date.YearDay()
	r := Radiation{
		Ra:            ExtraterrestrialRadiation(site.Latitude, j),
		DaylightHours: DaylightHours(site.Latitude, j),
	}

	switch {
	case o.SolarRadiation != nil:
		r.Source, r.Rs = RadiationMeasured, *o.SolarRadiation
	case o.SunshineHours != nil:
		if *o.SunshineHours > r.DaylightHours+0.5 {
			return Radiation{}, fmt.Errorf("%w: %s: sunshine %.1f h exceeds daylight %.1f h",
				ErrInvalidInput, o.Day(), *o.SunshineHours, r.DaylightHours)
		}
		r.Source = RadiationSunshine
		r.Rs = SolarRadiationFromSunshine(*o.SunshineHours, r.DaylightHours, r.Ra, p.AngstromA, p.AngstromB)
	default:
		r.Source = RadiationNone
		return r, nil
	}

	r.Rso = ClearSkyRadiation(site.Elevation, r.Ra)
	r.Rns = NetShortwaveRadiation(r.Rs, p.Albedo)
	r.Rnl = NetLongwaveRadiation(o.TMax, o.TMin, eaKPa, r.Rs, r.Rso)
	r.Rn = r.Rns - r.Rnl
	return r, nil
}
