// Package fao56 implements the FAO Irrigation and Drainage Paper 56 daily
// computations used by the auditor: atmospheric parameters, Penman-Monteith
// reference evapotranspiration, the growth-stage crop coefficient, the
// rolling water balance and the pump runtime.
//
// Every function is pure. Units are carried in the identifiers: kPa for
// pressures, MJ m-2 day-1 for radiation, mm/day for evapotranspiration,
// °C for temperatures unless a name says Kelvin.
package fao56
