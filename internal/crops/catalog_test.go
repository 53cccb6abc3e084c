package crops

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/entities"
)

func TestEmbeddedCatalog(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load embedded: %v", err)
	}
	want := []string{"Banana", "Maize", "Onion", "Rice", "Tomato", "Yam"}
	if got := c.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("names = %v, want %v", got, want)
	}
	for _, p := range c.Profiles() {
		if len(p.Stages) != 4 {
			t.Errorf("%s: %d stages", p.Crop, len(p.Stages))
		}
	}
}

func TestGetIsCaseInsensitive(t *testing.T) {
	c := Default()
	p, err := c.Get("  mAIZE ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Crop != "Maize" || p.CycleLength() != 140 {
		t.Fatalf("maize = %s, %d days", p.Crop, p.CycleLength())
	}
	if _, err := c.Get("cassava"); !errors.Is(err, ErrUnknownCrop) {
		t.Fatalf("err = %v, want ErrUnknownCrop", err)
	}
}

func TestStageKc(t *testing.T) {
	c := Default()
	tests := []struct {
		crop, stage string
		want        float64
	}{
		{"Maize", KeyInit, 0.30},
		{"Maize", KeyMid, 1.20},
		{"Maize", KeyEnd, 0.35},
		{"Rice", KeyMid, 1.20},
		{"Onion", "END", 0.75},
	}
	for _, tt := range tests {
		got, err := c.StageKc(tt.crop, tt.stage)
		if err != nil {
			t.Fatalf("%s/%s: %v", tt.crop, tt.stage, err)
		}
		if got != tt.want {
			t.Errorf("%s/%s = %v, want %v", tt.crop, tt.stage, got, tt.want)
		}
	}
	if _, err := c.StageKc("Maize", "flowering"); err == nil {
		t.Error("expected error for unknown stage key")
	}
}

func TestParseRejectsBrokenProfiles(t *testing.T) {
	tests := []struct{ name, raw string }{
		{"empty", `[]`},
		{"not json", `{`},
		{"zero days", `[{"crop":"x","stages":[{"name":"initial","kind":"plateau","days":0,"kc":0.5}]}]`},
		{"bad kind", `[{"crop":"x","stages":[{"name":"initial","kind":"step","days":3,"kc":0.5}]}]`},
		{"no kc", `[{"crop":"x","stages":[{"name":"initial","kind":"plateau","days":3}]}]`},
		{"discontinuous", `[{"crop":"x","stages":[{"name":"initial","kind":"plateau","days":3,"kc":0.5},` +
			`{"name":"development","kind":"ramp","days":3,"kc_start":0.6,"kc_end":1.0}]}]`},
		{"duplicate", `[{"crop":"x","stages":[{"name":"initial","kind":"plateau","days":3,"kc":0.5}]},` +
			`{"crop":"X","stages":[{"name":"initial","kind":"plateau","days":3,"kc":0.5}]}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.raw)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crops.json")
	raw := `[{"crop":"Cowpea","category":"Legumes","stages":[` +
		`{"name":"initial","kind":"plateau","days":20,"kc":0.4},` +
		`{"name":"development","kind":"ramp","days":30,"kc_start":0.4,"kc_end":1.05}]}]`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	p, err := c.Get("cowpea")
	if err != nil {
		t.Fatal(err)
	}
	if p.Stages[1].Kind != entities.Ramp || p.CycleLength() != 50 {
		t.Fatalf("profile = %+v", p)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
