package entities

// Area and discharge conversions to the canonical m2 and m3/h.
const (
	SquareMetersPerHectare = 10000.0
	SquareMetersPerAcre    = 4046.86
	LitersPerCubicMeter    = 1000.0
)

// PumpConfig is the irrigated area and the pump discharge.
type PumpConfig struct {
	AreaM2       float64 `json:"area_m2" validate:"gt=0"`
	DischargeM3H float64 `json:"discharge_m3_h" validate:"gt=0"`
}

func Hectares(ha float64) float64 { return ha * SquareMetersPerHectare }
func Acres(ac float64) float64    { return ac * SquareMetersPerAcre }

// LitersPerSecond converts L/s to m3/h.
func LitersPerSecond(lps float64) float64 { return lps * 3600 / LitersPerCubicMeter }

// LitersPerMinute converts L/min to m3/h.
func LitersPerMinute(lpm float64) float64 { return lpm * 60 / LitersPerCubicMeter }
