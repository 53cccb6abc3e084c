package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/crops"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/fao56"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/entities"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/services/auditor"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/weather"
)

type downProvider struct{}

func (downProvider) Name() string { return "down" }
func (downProvider) Daily(context.Context, entities.SiteLocation, time.Time, time.Time) ([]entities.DailyWeatherObservation, error) {
	return nil, weather.ErrUnavailable
}

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func week(from time.Time) []entities.DailyWeatherObservation {
	out := make([]entities.DailyWeatherObservation, 0, 7)
	for i := 0; i < 7; i++ {
		out = append(out, entities.DailyWeatherObservation{
			Date:           from.AddDate(0, 0, i),
			TMax:           34,
			TMin:           22,
			RHMean:         entities.Float(40),
			SolarRadiation: entities.Float(21),
			WindSpeed2m:    2,
		})
	}
	return out
}

func setup(t *testing.T, provider weather.Provider) *fiber.App {
	t.Helper()
	site, _ := entities.Scheme("tono")
	field := entities.Field{
		ID:      "tono-1",
		Crop:    "maize",
		Planted: date(2025, time.January, 1),
		Site:    site,
		Pump:    entities.PumpConfig{AreaM2: entities.Hectares(1), DischargeM3H: 20},
	}
	reg := prometheus.NewRegistry()
	svc, err := auditor.NewService(crops.Default(), auditor.NewRegistry(field), provider, nil,
		auditor.NewMetrics(reg), auditor.Options{Params: fao56.DefaultParams(), PastDays: 2})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewApp(svc, reg, false)
}

func do(t *testing.T, app *fiber.App, method, target string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

func TestHealthAndCatalog(t *testing.T) {
	app := setup(t, weather.NewStatic())

	if code, _ := do(t, app, http.MethodGet, "/health", nil); code != http.StatusOK {
		t.Fatalf("health = %d", code)
	}

	code, body := do(t, app, http.MethodGet, "/api/v1/crops", nil)
	var list struct {
		Crops []string `json:"crops"`
	}
	if err := json.Unmarshal(body, &list); err != nil || code != http.StatusOK {
		t.Fatalf("crops = %d %s", code, body)
	}
	if len(list.Crops) != 6 {
		t.Errorf("crops = %v", list.Crops)
	}

	if code, _ := do(t, app, http.MethodGet, "/api/v1/crops/Tomato", nil); code != http.StatusOK {
		t.Errorf("tomato = %d", code)
	}
	code, body = do(t, app, http.MethodGet, "/api/v1/crops/cassava", nil)
	if code != http.StatusNotFound || !strings.Contains(string(body), `"error":true`) {
		t.Errorf("cassava = %d %s", code, body)
	}

	code, body = do(t, app, http.MethodGet, "/api/v1/schemes", nil)
	var schemes struct {
		Schemes []struct {
			Key string `json:"key"`
		} `json:"schemes"`
	}
	if err := json.Unmarshal(body, &schemes); err != nil || code != http.StatusOK {
		t.Fatalf("schemes = %d %s", code, body)
	}
	if len(schemes.Schemes) != len(entities.SchemeKeys()) {
		t.Errorf("schemes = %d", len(schemes.Schemes))
	}
}

func TestKc(t *testing.T) {
	app := setup(t, weather.NewStatic())
	maize, _ := crops.Default().Get("maize")
	want, _ := fao56.KcOn(maize, date(2025, time.January, 1), date(2025, time.February, 2))

	code, body := do(t, app, http.MethodGet, "/api/v1/kc?crop=maize&planted=2025-01-01&date=2025-02-02", nil)
	var got struct {
		Coefficient fao56.CropCoefficient `json:"coefficient"`
	}
	if err := json.Unmarshal(body, &got); err != nil || code != http.StatusOK {
		t.Fatalf("kc = %d %s", code, body)
	}
	if got.Coefficient != want {
		t.Errorf("kc = %+v, want %+v", got.Coefficient, want)
	}

	code, body = do(t, app, http.MethodGet, "/api/v1/kc?crop=maize&stage=mid", nil)
	var stage struct {
		Kc float64 `json:"kc"`
	}
	if err := json.Unmarshal(body, &stage); err != nil || code != http.StatusOK || stage.Kc != 1.2 {
		t.Errorf("stage kc = %d %s", code, body)
	}

	cases := []struct {
		name   string
		target string
		code   int
	}{
		{"before planting", "/api/v1/kc?crop=maize&planted=2025-01-01&date=2024-12-25", http.StatusUnprocessableEntity},
		{"after harvest", "/api/v1/kc?crop=maize&planted=2025-01-01&date=2025-12-25", http.StatusUnprocessableEntity},
		{"no crop", "/api/v1/kc?planted=2025-01-01&date=2025-02-02", http.StatusBadRequest},
		{"no date", "/api/v1/kc?crop=maize&planted=2025-01-01", http.StatusBadRequest},
		{"bad date", "/api/v1/kc?crop=maize&planted=01/01/2025&date=2025-02-02", http.StatusBadRequest},
		{"bad stage", "/api/v1/kc?crop=maize&stage=flowering", http.StatusBadRequest},
		{"unknown crop", "/api/v1/kc?crop=cassava&stage=mid", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if code, body := do(t, app, http.MethodGet, tc.target, nil); code != tc.code {
				t.Errorf("code = %d, want %d: %s", code, tc.code, body)
			}
		})
	}
}

func TestETo(t *testing.T) {
	app := setup(t, weather.NewStatic())
	site, _ := entities.Scheme("kpong")
	obs := week(date(2025, time.March, 1))[0]
	want, err := fao56.ComputeETo(obs, site, fao56.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}

	code, body := do(t, app, http.MethodPost, "/api/v1/eto", map[string]any{"site": site, "observation": obs})
	var got fao56.ReferenceET
	if err := json.Unmarshal(body, &got); err != nil || code != http.StatusOK {
		t.Fatalf("eto = %d %s", code, body)
	}
	if math.Abs(got.ETo-want.ETo) > 1e-9 || got.Method != fao56.MethodPenmanMonteith {
		t.Errorf("eto = %v (%s), want %v", got.ETo, got.Method, want.ETo)
	}

	incomplete := []struct {
		name string
		body map[string]any
	}{
		{"no site", map[string]any{"observation": obs}},
		{"no latitude", map[string]any{"site": map[string]any{"longitude": 0.05, "elevation_m": 25}, "observation": obs}},
		{"no elevation", map[string]any{"site": map[string]any{"latitude": 6.1, "longitude": 0.05}, "observation": obs}},
	}
	for _, tc := range incomplete {
		if code, body := do(t, app, http.MethodPost, "/api/v1/eto", tc.body); code != http.StatusBadRequest {
			t.Errorf("%s = %d %s", tc.name, code, body)
		}
	}

	obs.TMin = 40
	if code, _ := do(t, app, http.MethodPost, "/api/v1/eto", map[string]any{"site": site, "observation": obs}); code != http.StatusBadRequest {
		t.Errorf("tmin above tmax = %d", code)
	}
}

func TestBalance(t *testing.T) {
	app := setup(t, weather.NewStatic())
	d0 := date(2025, time.March, 1)
	days := []map[string]any{
		{"date": d0, "etc_mm": 5},
		{"date": d0.AddDate(0, 0, 1), "etc_mm": 5, "rain_mm": 10},
		{"date": d0.AddDate(0, 0, 2), "eto_mm": 6.25, "kc": 0.8},
	}

	code, body := do(t, app, http.MethodPost, "/api/v1/balance", map[string]any{"days": days})
	var got struct {
		Days       []entities.DailyWaterBalance `json:"days"`
		Cumulative float64                      `json:"cumulative_mm"`
	}
	if err := json.Unmarshal(body, &got); err != nil || code != http.StatusOK {
		t.Fatalf("balance = %d %s", code, body)
	}
	if len(got.Days) != 3 || math.Abs(got.Cumulative-7) > 1e-9 {
		t.Errorf("cumulative = %v over %d days", got.Cumulative, len(got.Days))
	}

	noCap := 0.0
	code, body = do(t, app, http.MethodPost, "/api/v1/balance", map[string]any{"days": days, "runoff_cap_mm": noCap})
	if err := json.Unmarshal(body, &got); err != nil || code != http.StatusOK {
		t.Fatalf("balance = %d %s", code, body)
	}
	if math.Abs(got.Cumulative-5) > 1e-9 {
		t.Errorf("uncapped cumulative = %v, want 5", got.Cumulative)
	}

	// an explicit zero ETc is not recomputed from ETo and Kc
	days[2]["etc_mm"] = 0
	code, body = do(t, app, http.MethodPost, "/api/v1/balance", map[string]any{"days": days})
	if err := json.Unmarshal(body, &got); err != nil || code != http.StatusOK {
		t.Fatalf("balance = %d %s", code, body)
	}
	if math.Abs(got.Cumulative-2) > 1e-9 || got.Days[2].ETc != 0 {
		t.Errorf("cumulative = %v etc = %v, want 2 and 0", got.Cumulative, got.Days[2].ETc)
	}

	delete(days[2], "etc_mm")
	delete(days[2], "kc")
	if code, body := do(t, app, http.MethodPost, "/api/v1/balance", map[string]any{"days": days}); code != http.StatusBadRequest {
		t.Errorf("no etc and no kc = %d %s", code, body)
	}

	days[2]["kc"] = 0.8
	days[2]["date"] = d0.AddDate(0, 0, 3)
	if code, body := do(t, app, http.MethodPost, "/api/v1/balance", map[string]any{"days": days}); code != http.StatusBadRequest {
		t.Errorf("gap = %d %s", code, body)
	}
	if code, _ := do(t, app, http.MethodPost, "/api/v1/balance", map[string]any{"days": []map[string]any{}}); code != http.StatusBadRequest {
		t.Errorf("empty = %d", code)
	}
}

func TestPump(t *testing.T) {
	app := setup(t, weather.NewStatic())

	code, body := do(t, app, http.MethodPost, "/api/v1/pump", map[string]any{"depth_mm": 10, "area_ha": 1, "flow_lps": 5})
	var got struct {
		Schedule fao56.PumpSchedule `json:"schedule"`
		Runtime  string             `json:"runtime"`
	}
	if err := json.Unmarshal(body, &got); err != nil || code != http.StatusOK {
		t.Fatalf("pump = %d %s", code, body)
	}
	// 100 m3 at 18 m3/h
	if math.Abs(got.Schedule.Hours-100.0/18) > 1e-9 || got.Schedule.VolumeM3 != 100 {
		t.Errorf("schedule = %+v", got.Schedule)
	}

	if code, _ := do(t, app, http.MethodPost, "/api/v1/pump", map[string]any{"depth_mm": 10, "discharge_m3h": 20}); code != http.StatusBadRequest {
		t.Errorf("no area = %d", code)
	}
	if code, _ := do(t, app, http.MethodPost, "/api/v1/pump", map[string]any{"depth_mm": 10, "area_m2": -1, "discharge_m3h": 20}); code != http.StatusBadRequest {
		t.Errorf("negative area = %d", code)
	}
}

func TestAudit(t *testing.T) {
	app := setup(t, weather.NewStatic(week(date(2025, time.February, 8))...))

	code, body := do(t, app, http.MethodPost, "/api/v1/audit", auditor.AuditRequest{FieldID: "tono-1", Today: "2025-02-10"})
	var rep auditor.AuditReport
	if err := json.Unmarshal(body, &rep); err != nil || code != http.StatusOK {
		t.Fatalf("audit = %d %s", code, body)
	}
	if rep.TodayIndex != 2 || len(rep.Days) != 7 || rep.Schedule.Hours <= 0 {
		t.Errorf("report = index %d days %d hours %v", rep.TodayIndex, len(rep.Days), rep.Schedule.Hours)
	}

	_, metrics := do(t, app, http.MethodGet, "/metrics", nil)
	if !strings.Contains(string(metrics), `irrigation_audits_total{outcome="water_stress"} 1`) {
		t.Errorf("metrics missing audit counter:\n%s", metrics)
	}

	young := entities.Field{
		ID:      "young",
		Crop:    "maize",
		Planted: date(2025, time.February, 9),
		Site:    rep.Field.Site,
		Pump:    rep.Field.Pump,
	}
	late := young
	late.ID = "late"
	late.Planted = date(2025, time.February, 11)
	inline := func(site map[string]any) map[string]any {
		f := map[string]any{"id": "bare", "crop": "maize", "planted": date(2025, time.January, 1), "pump": rep.Field.Pump}
		if site != nil {
			f["site"] = site
		}
		return map[string]any{"field": f, "today": "2025-02-10"}
	}
	cases := []struct {
		name string
		req  any
		code int
	}{
		{"empty", map[string]any{}, http.StatusBadRequest},
		{"unknown field", auditor.AuditRequest{FieldID: "nope", Today: "2025-02-10"}, http.StatusNotFound},
		{"missing weather", auditor.AuditRequest{FieldID: "tono-1", Today: "2025-03-10"}, http.StatusBadGateway},
		{"planted yesterday", auditor.AuditRequest{Field: &young, Today: "2025-02-10"}, http.StatusOK},
		{"planted after today", auditor.AuditRequest{Field: &late, Today: "2025-02-10"}, http.StatusUnprocessableEntity},
		{"inline without site", inline(nil), http.StatusBadRequest},
		{"inline without latitude", inline(map[string]any{"longitude": -1.166, "elevation_m": 180}), http.StatusBadRequest},
		{"inline with site", inline(map[string]any{"latitude": 10.866, "longitude": -1.166, "elevation_m": 180}), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if code, body := do(t, app, http.MethodPost, "/api/v1/audit", tc.req); code != tc.code {
				t.Errorf("code = %d, want %d: %s", code, tc.code, body)
			}
		})
	}
}

func TestAuditWeatherDown(t *testing.T) {
	app := setup(t, downProvider{})
	code, body := do(t, app, http.MethodPost, "/api/v1/audit", auditor.AuditRequest{FieldID: "tono-1"})
	if code != http.StatusBadGateway || !strings.Contains(string(body), "weather") {
		t.Errorf("code = %d %s", code, body)
	}
}
