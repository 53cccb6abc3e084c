package fao56

// ClampVPD floors a vapour pressure deficit at zero. Humidity readings above
// 100% push ea over es; the deficit is then zero, not negative. The second
// result reports whether the floor was applied.
func ClampVPD(vpdKPa float64) (float64, bool) {
	if vpdKPa < 0 {
		return 0, true
	}
	return vpdKPa, false
}

// ClampETo floors a reference evapotranspiration at zero. Cold overcast days
// can give a negative Penman-Monteith result; it stands for negligible
// demand, not condensation.
func ClampETo(etoMM float64) (float64, bool) {
	if etoMM < 0 {
		return 0, true
	}
	return etoMM, false
}
