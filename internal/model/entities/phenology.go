package entities

import (
	"fmt"
	"strings"
)

type Stage string

const (
	StageInitial     Stage = "initial"
	StageDevelopment Stage = "development"
	StageMidSeason   Stage = "mid-season"
	StageLateSeason  Stage = "late-season"
)

// StageKind tells how Kc behaves inside a stage.
type StageKind string

const (
	Plateau StageKind = "plateau" // constant Kc
	Ramp    StageKind = "ramp"    // linear KcStart -> KcEnd
)

// KindOf returns the conventional kind of a named stage.
func KindOf(s Stage) StageKind {
	switch s {
	case StageDevelopment, StageLateSeason:
		return Ramp
	default:
		return Plateau
	}
}

// GrowthStage is one entry of a crop's Kc table.
type GrowthStage struct {
	Name    Stage     `json:"name" validate:"required"`
	Kind    StageKind `json:"kind" validate:"required,oneof=plateau ramp"`
	Days    int       `json:"days" validate:"gt=0"`
	Kc      float64   `json:"kc,omitempty"`       // plateau
	KcStart float64   `json:"kc_start,omitempty"` // ramp
	KcEnd   float64   `json:"kc_end,omitempty"`   // ramp
}

// CropProfile is the ordered, gap-free stage sequence of a crop.
type CropProfile struct {
	Crop     string        `json:"crop" validate:"required"`
	Category string        `json:"category,omitempty"`
	Stages   []GrowthStage `json:"stages" validate:"required,min=1,dive"`
}

// CycleLength is the total number of days covered by the stages.
func (p CropProfile) CycleLength() int {
	n := 0
	for _, s := range p.Stages {
		n += s.Days
	}
	return n
}

// Check validates stage kinds, durations and Kc values.
func (p CropProfile) Check() error {
	if strings.TrimSpace(p.Crop) == "" {
		return fmt.Errorf("crop profile without name")
	}
	if len(p.Stages) == 0 {
		return fmt.Errorf("crop %s: no stages", p.Crop)
	}
	for i, s := range p.Stages {
		if s.Days <= 0 {
			return fmt.Errorf("crop %s stage %d (%s): days %d <= 0", p.Crop, i, s.Name, s.Days)
		}
		switch s.Kind {
		case Plateau:
			if s.Kc <= 0 {
				return fmt.Errorf("crop %s stage %s: kc %.3f <= 0", p.Crop, s.Name, s.Kc)
			}
		case Ramp:
			if s.KcStart <= 0 || s.KcEnd <= 0 {
				return fmt.Errorf("crop %s stage %s: ramp kc %.3f->%.3f must be > 0", p.Crop, s.Name, s.KcStart, s.KcEnd)
			}
		default:
			return fmt.Errorf("crop %s stage %s: unknown kind %q", p.Crop, s.Name, s.Kind)
		}
	}
	return nil
}

// StageKc returns the representative Kc of a stage: the plateau value or the
// end value of a ramp.
func (p CropProfile) StageKc(name Stage) (float64, bool) {
	for _, s := range p.Stages {
		if s.Name != name {
			continue
		}
		if s.Kind == Ramp {
			return s.KcEnd, true
		}
		return s.Kc, true
	}
	return 0, false
}
