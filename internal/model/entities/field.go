package entities

import (
	"encoding/json"
	"fmt"
	"time"
)

// Field represents a tract of land growing one crop, watered by one pump.
type Field struct {
	ID      string       `json:"id"`                // unique field identifier
	Crop    string       `json:"crop"`              // crop catalog key, e.g. "maize"
	Planted time.Time    `json:"planted"`           // planting date
	Site    SiteLocation `json:"site"`              // where the field is
	Pump    PumpConfig   `json:"pump"`              // irrigated area and discharge
	SeedMM  float64      `json:"seed_mm,omitempty"` // soil-moisture deficit at the start of an audit
}

// UnmarshalJSON rejects a field decoded without a site.
func (f *Field) UnmarshalJSON(b []byte) error {
	type plain Field
	var raw struct {
		plain
		Site *SiteLocation `json:"site"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Site == nil {
		return fmt.Errorf("field %q: %w", raw.ID, ErrIncompleteSite)
	}
	*f = Field(raw.plain)
	f.Site = *raw.Site
	return nil
}
