package fao56

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	ReferenceAlbedo    = 0.23 // grass reference crop
	DefaultAngstromA   = 0.25
	DefaultAngstromB   = 0.50
	DefaultRunoffCapMM = 8.0
	DefaultWindowDays  = 7
)

// Params are the tunable constants of a scheme. Zero values are not
// defaults; start from DefaultParams.
type Params struct {
	Albedo       float64 `json:"albedo" validate:"gte=0,lte=1"`
	SoilHeatFlux float64 `json:"soil_heat_flux"` // G, MJ m-2 day-1; 0 for daily steps
	AngstromA    float64 `json:"angstrom_as" validate:"gte=0,lte=1"`
	AngstromB    float64 `json:"angstrom_bs" validate:"gte=0,lte=1"`

	// RunoffCapMM is the most rain a single day can contribute; the excess
	// runs off. A cap <= 0 disables it.
	RunoffCapMM float64 `json:"runoff_cap_mm"`
	// RainEfficiency is the share of (capped) rain reaching the root zone.
	RainEfficiency float64 `json:"rain_efficiency" validate:"gt=0,lte=1"`

	WindowDays int `json:"window_days" validate:"gt=0,lte=366"`
}

func DefaultParams() Params {
	return Params{
		Albedo:         ReferenceAlbedo,
		SoilHeatFlux:   0,
		AngstromA:      DefaultAngstromA,
		AngstromB:      DefaultAngstromB,
		RunoffCapMM:    DefaultRunoffCapMM,
		RainEfficiency: 1.0,
		WindowDays:     DefaultWindowDays,
	}
}

var validate = validator.New()

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: params: %v", ErrInvalidInput, err)
	}
	if p.AngstromA+p.AngstromB > 1 {
		return fmt.Errorf("%w: params: angstrom as+bs = %.2f > 1", ErrInvalidInput, p.AngstromA+p.AngstromB)
	}
	return nil
}
