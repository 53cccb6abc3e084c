package fao56

import "errors"

var (
	// ErrInvalidInput marks malformed or out-of-range weather or site data.
	ErrInvalidInput = errors.New("invalid input")
	// ErrOutOfCycle marks a crop-coefficient query outside the growth cycle.
	ErrOutOfCycle = errors.New("date outside crop cycle")
	// ErrDiscontinuousAudit marks a gap, duplicate or reordering in a balance fold.
	ErrDiscontinuousAudit = errors.New("discontinuous audit")
	// ErrInvalidPumpConfig marks a non-positive area or discharge.
	ErrInvalidPumpConfig = errors.New("invalid pump config")
)
