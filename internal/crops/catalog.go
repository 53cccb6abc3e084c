// Package crops holds the crop reference data: stage lengths and Kc values
// from FAO-56 tables 11 and 12.
package crops

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/entities"
)

//go:embed crops.json
var embedded []byte

var ErrUnknownCrop = errors.New("unknown crop")

// Stage keys of the short-form lookup (initial, mid-season, end of season).
const (
	KeyInit = "init"
	KeyMid  = "mid"
	KeyEnd  = "end"
)

var validate = validator.New()

type Catalog struct {
	byKey map[string]entities.CropProfile
	names []string
}

// Load reads a catalog from path, or the embedded table when path is empty.
func Load(path string) (*Catalog, error) {
	raw := embedded
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read crops: %w", err)
		}
		raw = b
	}
	return Parse(raw)
}

// Default is the embedded catalog.
func Default() *Catalog {
	c, err := Parse(embedded)
	if err != nil {
		panic(fmt.Sprintf("embedded crops table: %v", err))
	}
	return c
}

// Parse decodes and validates a JSON array of crop profiles.
func Parse(raw []byte) (*Catalog, error) {
	var list []entities.CropProfile
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode crops: %w", err)
	}
	if len(list) == 0 {
		return nil, errors.New("crops: empty catalog")
	}
	c := &Catalog{byKey: make(map[string]entities.CropProfile, len(list))}
	for _, p := range list {
		if err := validate.Struct(p); err != nil {
			return nil, fmt.Errorf("crop %q: %w", p.Crop, err)
		}
		if err := p.Check(); err != nil {
			return nil, err
		}
		if err := checkContinuity(p); err != nil {
			return nil, err
		}
		k := key(p.Crop)
		if _, dup := c.byKey[k]; dup {
			return nil, fmt.Errorf("crop %q listed twice", p.Crop)
		}
		c.byKey[k] = p
		c.names = append(c.names, p.Crop)
	}
	sort.Strings(c.names)
	return c, nil
}

// Get looks a crop up by name, ignoring case.
func (c *Catalog) Get(name string) (entities.CropProfile, error) {
	p, ok := c.byKey[key(name)]
	if !ok {
		return entities.CropProfile{}, fmt.Errorf("%w: %q", ErrUnknownCrop, name)
	}
	return p, nil
}

func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Profiles returns every profile ordered by crop name.
func (c *Catalog) Profiles() []entities.CropProfile {
	out := make([]entities.CropProfile, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, c.byKey[key(n)])
	}
	return out
}

// StageKc returns the Kc for a crop at a named point of the season without
// a date: init is the initial plateau, mid the mid-season plateau and end
// the value reached at harvest.
func (c *Catalog) StageKc(name, stageKey string) (float64, error) {
	p, err := c.Get(name)
	if err != nil {
		return 0, err
	}
	var (
		kc float64
		ok bool
	)
	switch strings.ToLower(strings.TrimSpace(stageKey)) {
	case KeyInit:
		kc, ok = p.StageKc(entities.StageInitial)
	case KeyMid:
		kc, ok = p.StageKc(entities.StageMidSeason)
	case KeyEnd:
		last := p.Stages[len(p.Stages)-1]
		kc, ok = p.StageKc(last.Name)
	default:
		return 0, fmt.Errorf("crop %s: unknown stage key %q (want init, mid or end)", p.Crop, stageKey)
	}
	if !ok {
		return 0, fmt.Errorf("crop %s has no %s stage", p.Crop, stageKey)
	}
	return kc, nil
}

// checkContinuity rejects ramps that do not join their neighbours.
func checkContinuity(p entities.CropProfile) error {
	for i, s := range p.Stages {
		if s.Kind != entities.Ramp {
			continue
		}
		if i > 0 && !same(s.KcStart, endKc(p.Stages[i-1])) {
			return fmt.Errorf("crop %s stage %s: ramp starts at %.2f, previous stage ends at %.2f",
				p.Crop, s.Name, s.KcStart, endKc(p.Stages[i-1]))
		}
		if i+1 < len(p.Stages) && p.Stages[i+1].Kind == entities.Plateau && !same(s.KcEnd, p.Stages[i+1].Kc) {
			return fmt.Errorf("crop %s stage %s: ramp ends at %.2f, next plateau is %.2f",
				p.Crop, s.Name, s.KcEnd, p.Stages[i+1].Kc)
		}
	}
	return nil
}

func endKc(s entities.GrowthStage) float64 {
	if s.Kind == entities.Ramp {
		return s.KcEnd
	}
	return s.Kc
}

func same(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func key(name string) string { return strings.ToLower(strings.TrimSpace(name)) }
