package fao56

import (
	"fmt"
	"math"
	"time"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/entities"
)

// PumpSchedule is the water to apply and how long the pump must run.
type PumpSchedule struct {
	DepthMM  float64 `json:"depth_mm"`
	VolumeM3 float64 `json:"volume_m3"`
	Hours    float64 `json:"hours"`
}

// SchedulePump converts a net requirement depth into pumping hours. A
// surplus (depth <= 0) owes no irrigation and yields zero hours.
func SchedulePump(depthMM float64, pump entities.PumpConfig) (PumpSchedule, error) {
	if !(pump.AreaM2 > 0) || math.IsInf(pump.AreaM2, 0) {
		return PumpSchedule{}, fmt.Errorf("%w: area %v m2", ErrInvalidPumpConfig, pump.AreaM2)
	}
	if !(pump.DischargeM3H > 0) || math.IsInf(pump.DischargeM3H, 0) {
		return PumpSchedule{}, fmt.Errorf("%w: discharge %v m3/h", ErrInvalidPumpConfig, pump.DischargeM3H)
	}
	if math.IsNaN(depthMM) || math.IsInf(depthMM, 0) {
		return PumpSchedule{}, fmt.Errorf("%w: depth %v mm", ErrInvalidInput, depthMM)
	}
	if depthMM <= 0 {
		return PumpSchedule{DepthMM: 0}, nil
	}
	// mm × m2 = litres
	volume := depthMM * pump.AreaM2 / entities.LitersPerCubicMeter
	return PumpSchedule{
		DepthMM:  depthMM,
		VolumeM3: volume,
		Hours:    volume / pump.DischargeM3H,
	}, nil
}

// Runtime is Hours as a duration rounded to the minute.
func (s PumpSchedule) Runtime() time.Duration {
	return time.Duration(s.Hours * float64(time.Hour)).Round(time.Minute)
}

// Liters is the volume in litres.
func (s PumpSchedule) Liters() float64 { return s.VolumeM3 * entities.LitersPerCubicMeter }
