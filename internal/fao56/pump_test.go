package fao56

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/entities"
)

func TestSchedulePump(t *testing.T) {
	s, err := SchedulePump(10, entities.PumpConfig{AreaM2: 10000, DischargeM3H: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.VolumeM3 != 100 || s.Hours != 5 {
		t.Fatalf("schedule = %+v, want 100 m3 / 5 h", s)
	}
	if s.Runtime() != 5*time.Hour {
		t.Errorf("runtime = %v", s.Runtime())
	}
	if s.Liters() != 100000 {
		t.Errorf("liters = %v", s.Liters())
	}
}

func TestSchedulePumpSurplus(t *testing.T) {
	for _, depth := range []float64{0, -3.2} {
		s, err := SchedulePump(depth, entities.PumpConfig{AreaM2: 5000, DischargeM3H: 12})
		if err != nil {
			t.Fatalf("depth %v: unexpected error: %v", depth, err)
		}
		if s.Hours != 0 || s.VolumeM3 != 0 || s.DepthMM != 0 {
			t.Errorf("depth %v: schedule = %+v, want zero", depth, s)
		}
	}
}

func TestSchedulePumpInvalidConfig(t *testing.T) {
	tests := []entities.PumpConfig{
		{AreaM2: 0, DischargeM3H: 10},
		{AreaM2: -1, DischargeM3H: 10},
		{AreaM2: 100, DischargeM3H: 0},
		{AreaM2: math.NaN(), DischargeM3H: 10},
		{AreaM2: 100, DischargeM3H: math.Inf(1)},
	}
	for _, pc := range tests {
		if _, err := SchedulePump(5, pc); !errors.Is(err, ErrInvalidPumpConfig) {
			t.Errorf("%+v: err = %v, want ErrInvalidPumpConfig", pc, err)
		}
	}
}

func TestPumpUnitConversions(t *testing.T) {
	approx(t, "hectares", entities.Hectares(2.5), 25000, 1e-9)
	approx(t, "acres", entities.Acres(1), 4046.86, 1e-9)
	approx(t, "l/s", entities.LitersPerSecond(5), 18, 1e-9)
	approx(t, "l/min", entities.LitersPerMinute(1000), 60, 1e-9)

	s, err := SchedulePump(25.4, entities.PumpConfig{AreaM2: entities.Acres(1), DischargeM3H: entities.LitersPerSecond(5)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	approx(t, "hours", s.Hours, 25.4*4046.86/1000/18, 1e-9)

	again, _ := SchedulePump(25.4, entities.PumpConfig{AreaM2: entities.Acres(1), DischargeM3H: entities.LitersPerSecond(5)})
	if again != s {
		t.Errorf("not idempotent: %+v vs %+v", again, s)
	}
}
