package auditor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/fao56"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/entities"
)

var validate = validator.New()

// Registry holds the registered fields by ID.
type Registry struct {
	mu     sync.RWMutex
	fields map[string]entities.Field
}

func NewRegistry(fields ...entities.Field) *Registry {
	r := &Registry{fields: make(map[string]entities.Field, len(fields))}
	for _, f := range fields {
		r.fields[f.ID] = f
	}
	return r
}

// LoadFields reads the registry file. A missing file yields an empty registry.
func LoadFields(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewRegistry(), nil
	}
	if err != nil {
		return nil, err
	}
	return ParseFields(raw)
}

// ParseFields decodes {"<field id>": {...}, ...}. Each record names a crop,
// a planting date, a site (a preset "scheme" and/or latitude, longitude,
// elevation_m) and a pump. Area may be given as area_m2, area_ha or
// area_acres; discharge as flow_m3h, flow_lps or flow_lpm.
func ParseFields(raw []byte) (*Registry, error) {
	var m map[string]map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	r := NewRegistry()
	for id, rec := range m {
		f, err := parseField(id, rec)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", id, err)
		}
		r.fields[id] = f
	}
	return r, nil
}

func parseField(id string, rec map[string]any) (entities.Field, error) {
	f := entities.Field{ID: id, Crop: toString(rec["crop"]), SeedMM: toF64(rec["seed_mm"])}
	if f.Crop == "" {
		return f, errors.New("missing crop")
	}

	planted, err := time.Parse(entities.DateLayout, toString(rec["planted"]))
	if err != nil {
		return f, fmt.Errorf("planted: %w", err)
	}
	f.Planted = planted

	if key := toString(rec["scheme"]); key != "" {
		site, ok := entities.Scheme(key)
		if !ok {
			return f, fmt.Errorf("unknown scheme %q", key)
		}
		f.Site = site
	} else {
		// without a scheme every coordinate must be given
		for _, k := range []string{"latitude", "longitude", "elevation_m"} {
			if _, ok := rec[k]; !ok {
				return f, fmt.Errorf("%w: %w: no scheme and no %s", fao56.ErrInvalidInput, entities.ErrIncompleteSite, k)
			}
		}
		f.Site.Name = id
	}
	if v, ok := rec["latitude"]; ok {
		f.Site.Latitude = toF64(v)
	}
	if v, ok := rec["longitude"]; ok {
		f.Site.Longitude = toF64(v)
	}
	if v, ok := rec["elevation_m"]; ok {
		f.Site.Elevation = toF64(v)
	}
	if err := f.Site.Check(); err != nil {
		return f, fmt.Errorf("%w: %v", fao56.ErrInvalidInput, err)
	}

	// area: prefer m2, then hectares, then acres
	switch {
	case rec["area_m2"] != nil:
		f.Pump.AreaM2 = toF64(rec["area_m2"])
	case rec["area_ha"] != nil:
		f.Pump.AreaM2 = entities.Hectares(toF64(rec["area_ha"]))
	case rec["area_acres"] != nil:
		f.Pump.AreaM2 = entities.Acres(toF64(rec["area_acres"]))
	}
	switch {
	case rec["flow_m3h"] != nil:
		f.Pump.DischargeM3H = toF64(rec["flow_m3h"])
	case rec["flow_lps"] != nil:
		f.Pump.DischargeM3H = entities.LitersPerSecond(toF64(rec["flow_lps"]))
	case rec["flow_lpm"] != nil:
		f.Pump.DischargeM3H = entities.LitersPerMinute(toF64(rec["flow_lpm"]))
	}
	if err := validate.Struct(f.Pump); err != nil {
		return f, fmt.Errorf("pump: %w", err)
	}
	return f, nil
}

func (r *Registry) Get(id string) (entities.Field, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fields[strings.TrimSpace(id)]
	return f, ok
}

// Put registers or replaces a field.
func (r *Registry) Put(f entities.Field) {
	r.mu.Lock()
	r.fields[f.ID] = f
	r.mu.Unlock()
}

// All returns the fields ordered by ID.
func (r *Registry) All() []entities.Field {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entities.Field, 0, len(r.fields))
	for _, f := range r.fields {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func toString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// toF64 reads JSON numbers and numeric strings, with either decimal separator.
func toF64(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case json.Number:
		f, _ := t.Float64()
		return f
	case string:
		if f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", "."), 64); err == nil {
			return f
		}
	}
	return 0
}
