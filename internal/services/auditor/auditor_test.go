package auditor

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/crops"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/fao56"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/model"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/entities"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/weather"
	"github.com/LeonardoBeccarini/irrigation_audit/pkg/rabbitmq"
)

type sentMessage struct {
	topic   string
	qos     byte
	payload []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	err  error
	sent []sentMessage
}

func (p *fakePublisher) PublishMessage(message interface{}) error {
	return p.PublishToQos("default", 0, false, message)
}

func (p *fakePublisher) PublishToQos(topic string, qos byte, _ bool, message interface{}) error {
	if p.err != nil {
		return p.err
	}
	b, err := json.Marshal(message)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.sent = append(p.sent, sentMessage{topic, qos, b})
	p.mu.Unlock()
	return nil
}

func (p *fakePublisher) Close() {}

type failingProvider struct{}

func (failingProvider) Name() string { return "down" }
func (failingProvider) Daily(context.Context, entities.SiteLocation, time.Time, time.Time) ([]entities.DailyWeatherObservation, error) {
	return nil, weather.ErrUnavailable
}

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func hotDays(from time.Time, n int, rain float64) []entities.DailyWeatherObservation {
	out := make([]entities.DailyWeatherObservation, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, entities.DailyWeatherObservation{
			Date:           from.AddDate(0, 0, i),
			TMax:           35,
			TMin:           21,
			RHMean:         entities.Float(35),
			SolarRadiation: entities.Float(22),
			WindSpeed2m:    2,
			Precipitation:  rain,
		})
	}
	return out
}

func tonoField(id string) entities.Field {
	site, _ := entities.Scheme("tono")
	return entities.Field{
		ID:      id,
		Crop:    "maize",
		Planted: date(2025, time.January, 1),
		Site:    site,
		Pump:    entities.PumpConfig{AreaM2: entities.Hectares(1), DischargeM3H: 20},
	}
}

func newTestService(t *testing.T, provider weather.Provider, pub *fakePublisher, fields ...entities.Field) (*Service, *Metrics) {
	t.Helper()
	m := NewMetrics(prometheus.NewRegistry())
	var p rabbitmq.IPublisher
	if pub != nil {
		p = pub
	}
	svc, err := NewService(crops.Default(), NewRegistry(fields...), provider, p, m, Options{Params: fao56.DefaultParams(), PastDays: 2})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, m
}

func TestAuditWaterStress(t *testing.T) {
	today := date(2025, time.February, 10)
	from := today.AddDate(0, 0, -2)
	pub := &fakePublisher{}
	svc, m := newTestService(t, weather.NewStatic(hotDays(from, 7, 0)...), pub, tonoField("tono-1"))

	rep, err := svc.Audit(context.Background(), AuditRequest{FieldID: "tono-1", Today: "2025-02-10"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rep.Days) != 7 || rep.TodayIndex != 2 || !rep.Today.Equal(today) {
		t.Fatalf("days = %d index = %d today = %s", len(rep.Days), rep.TodayIndex, rep.Today)
	}
	if !rep.From.Equal(from) || !rep.To.Equal(from.AddDate(0, 0, 6)) {
		t.Errorf("window = %s..%s", rep.From, rep.To)
	}
	if rep.Stage != entities.StageDevelopment || rep.Crop != "Maize" || rep.Provider != "static" {
		t.Errorf("stage = %s crop = %s provider = %s", rep.Stage, rep.Crop, rep.Provider)
	}

	var cum float64
	for i, d := range rep.Days[:3] {
		cum += d.ETc
		if d.Method != fao56.MethodPenmanMonteith {
			t.Errorf("day %d method = %s", i, d.Method)
		}
	}
	if math.Abs(rep.DeficitMM-cum) > 1e-9 || rep.DeficitMM != rep.Days[2].Cumulative {
		t.Fatalf("deficit = %v, want %v", rep.DeficitMM, cum)
	}
	if math.Abs(rep.Schedule.Hours-rep.DeficitMM/2) > 1e-9 {
		t.Errorf("hours = %v for deficit %v over 1 ha at 20 m3/h", rep.Schedule.Hours, rep.DeficitMM)
	}
	if rep.Status != model.StatusWaterStress {
		t.Errorf("status = %s", rep.Status)
	}

	if len(pub.sent) != 1 {
		t.Fatalf("published %d events", len(pub.sent))
	}
	msg := pub.sent[0]
	if msg.topic != "event/irrigationAudit/tono-1" || msg.qos != 1 {
		t.Errorf("topic = %s qos = %d", msg.topic, msg.qos)
	}
	var evt model.IrrigationAuditEvent
	if err := json.Unmarshal(msg.payload, &evt); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if evt.AuditID != rep.AuditID || evt.PumpHours != rep.Schedule.Hours || len(evt.Days) != 7 {
		t.Errorf("event = %+v", evt)
	}

	if got := testutil.ToFloat64(m.audits.WithLabelValues("water_stress")); got != 1 {
		t.Errorf("water_stress audits = %v", got)
	}
	if got := testutil.ToFloat64(m.pumpHours.WithLabelValues("tono-1")); got != rep.Schedule.Hours {
		t.Errorf("pump hours gauge = %v", got)
	}
}

func TestAuditAdequateAfterRain(t *testing.T) {
	today := date(2025, time.February, 10)
	f := tonoField("tono-wet")
	f.SeedMM = -30
	svc, _ := newTestService(t, weather.NewStatic(hotDays(today.AddDate(0, 0, -2), 7, 20)...), nil, f)

	rep, err := svc.Audit(context.Background(), AuditRequest{FieldID: "tono-wet", Today: "2025-02-10"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Status != model.StatusAdequate || rep.Schedule.Hours != 0 {
		t.Fatalf("status = %s hours = %v deficit = %v", rep.Status, rep.Schedule.Hours, rep.DeficitMM)
	}
	for _, d := range rep.Days {
		if d.EffectiveRain != 8 {
			t.Fatalf("effective rain = %v, want the 8 mm cap", d.EffectiveRain)
		}
	}
	if rep.Days[0].Carried != -30 {
		t.Errorf("seed not carried: %v", rep.Days[0].Carried)
	}
}

func TestAuditDefaultsTodayToClock(t *testing.T) {
	today := date(2025, time.February, 10)
	svc, _ := newTestService(t, weather.NewStatic(hotDays(today.AddDate(0, 0, -2), 7, 0)...), nil, tonoField("tono-1"))
	svc.now = func() time.Time { return time.Date(2025, time.February, 10, 23, 30, 0, 0, time.UTC) }

	rep, err := svc.Audit(context.Background(), AuditRequest{FieldID: "tono-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rep.Today.Equal(today) {
		t.Fatalf("today = %s", rep.Today)
	}
}

func TestAuditInlineField(t *testing.T) {
	today := date(2025, time.February, 10)
	svc, _ := newTestService(t, weather.NewStatic(hotDays(today.AddDate(0, 0, -2), 7, 0)...), nil)
	f := tonoField("")
	f.Crop = "Tomato"
	rep, err := svc.Audit(context.Background(), AuditRequest{Field: &f, Today: "2025-02-10"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Field.ID != "adhoc" || rep.Crop != "Tomato" {
		t.Fatalf("field = %s crop = %s", rep.Field.ID, rep.Crop)
	}
}

func TestAuditClipsWindowToCycle(t *testing.T) {
	planted := date(2025, time.January, 1) // maize, 140 days

	tests := []struct {
		name     string
		today    time.Time
		days     int
		index    int
		from, to time.Time
		stage    entities.Stage
	}{
		{"planting day", planted, 5, 0, planted, planted.AddDate(0, 0, 4), entities.StageInitial},
		{"day after planting", planted.AddDate(0, 0, 1), 6, 1, planted, planted.AddDate(0, 0, 5), entities.StageInitial},
		{"last day of cycle", planted.AddDate(0, 0, 139), 3, 2, planted.AddDate(0, 0, 137), planted.AddDate(0, 0, 139), entities.StageLateSeason},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// the provider also holds days outside the cycle
			days := hotDays(tt.today.AddDate(0, 0, -2), 7, 0)
			svc, _ := newTestService(t, weather.NewStatic(days...), nil, tonoField("tono-1"))

			rep, err := svc.Audit(context.Background(), AuditRequest{FieldID: "tono-1", Today: tt.today.Format(entities.DateLayout)})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(rep.Days) != tt.days || rep.TodayIndex != tt.index {
				t.Fatalf("days = %d index = %d, want %d and %d", len(rep.Days), rep.TodayIndex, tt.days, tt.index)
			}
			if !rep.From.Equal(tt.from) || !rep.To.Equal(tt.to) {
				t.Errorf("window = %s..%s", rep.From.Format(entities.DateLayout), rep.To.Format(entities.DateLayout))
			}
			if rep.Stage != tt.stage || rep.DeficitMM != rep.Days[tt.index].Cumulative || rep.Schedule.Hours <= 0 {
				t.Errorf("stage = %s deficit = %v hours = %v", rep.Stage, rep.DeficitMM, rep.Schedule.Hours)
			}
		})
	}
}

func TestAuditErrors(t *testing.T) {
	today := date(2025, time.February, 10)
	from := today.AddDate(0, 0, -2)
	week := hotDays(from, 7, 0)
	gap := append(append([]entities.DailyWeatherObservation{}, week[:3]...), week[4:]...)

	late := tonoField("late")
	late.Planted = today.AddDate(0, 0, 1)
	cassava := tonoField("cassava")
	cassava.Crop = "cassava"

	tests := []struct {
		name     string
		provider weather.Provider
		req      AuditRequest
		want     error
	}{
		{"unknown field", weather.NewStatic(week...), AuditRequest{FieldID: "nope", Today: "2025-02-10"}, ErrUnknownField},
		{"unknown crop", weather.NewStatic(week...), AuditRequest{Field: &cassava, Today: "2025-02-10"}, crops.ErrUnknownCrop},
		{"planted after today", weather.NewStatic(week...), AuditRequest{Field: &late, Today: "2025-02-10"}, fao56.ErrOutOfCycle},
		{"harvested", weather.NewStatic(week...), AuditRequest{FieldID: "tono-1", Today: "2025-05-21"}, fao56.ErrOutOfCycle},
		{"weather down", failingProvider{}, AuditRequest{FieldID: "tono-1", Today: "2025-02-10"}, ErrWeather},
		{"gap", weather.NewStatic(gap...), AuditRequest{FieldID: "tono-1", Today: "2025-02-10"}, fao56.ErrDiscontinuousAudit},
		{"today missing", weather.NewStatic(week[:2]...), AuditRequest{FieldID: "tono-1", Today: "2025-02-10"}, ErrWeather},
		{"bad date", weather.NewStatic(week...), AuditRequest{FieldID: "tono-1", Today: "10/02/2025"}, fao56.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newTestService(t, tt.provider, nil, tonoField("tono-1"))
			_, err := svc.Audit(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if got := testutil.ToFloat64(m.audits.WithLabelValues("error")); got != 1 {
				t.Errorf("error audits = %v", got)
			}
		})
	}
}

func TestAuditSurvivesPublishFailure(t *testing.T) {
	today := date(2025, time.February, 10)
	pub := &fakePublisher{err: errors.New("broker down")}
	svc, _ := newTestService(t, weather.NewStatic(hotDays(today.AddDate(0, 0, -2), 7, 0)...), pub, tonoField("tono-1"))
	if _, err := svc.Audit(context.Background(), AuditRequest{FieldID: "tono-1", Today: "2025-02-10"}); err != nil {
		t.Fatalf("publish failure leaked: %v", err)
	}
}

func TestAuditAllAndScheduler(t *testing.T) {
	today := date(2025, time.February, 10)
	broken := tonoField("b-broken")
	broken.Crop = "cassava"
	pub := &fakePublisher{}
	svc, _ := newTestService(t, weather.NewStatic(hotDays(today.AddDate(0, 0, -2), 7, 0)...), pub,
		tonoField("a-tono"), broken, tonoField("c-tono"))
	svc.now = func() time.Time { return today.Add(6 * time.Hour) }

	n, err := svc.AuditAll(context.Background())
	if n != 2 || err == nil {
		t.Fatalf("audited %d, err = %v", n, err)
	}
	if !errors.Is(err, crops.ErrUnknownCrop) {
		t.Errorf("joined error lost its cause: %v", err)
	}

	NewScheduler(svc, "06:00", time.UTC).RunOnce()
	if len(pub.sent) != 4 {
		t.Fatalf("published %d events, want 4", len(pub.sent))
	}
}

func TestNewServiceValidates(t *testing.T) {
	p := fao56.DefaultParams()
	if _, err := NewService(crops.Default(), NewRegistry(), nil, nil, nil, Options{Params: p}); err == nil {
		t.Error("nil provider accepted")
	}
	if _, err := NewService(crops.Default(), NewRegistry(), weather.NewStatic(), nil, nil, Options{Params: p, PastDays: 7}); err == nil {
		t.Error("past days outside the window accepted")
	}
	bad := p
	bad.Albedo = 2
	if _, err := NewService(crops.Default(), NewRegistry(), weather.NewStatic(), nil, nil, Options{Params: bad}); err == nil {
		t.Error("invalid params accepted")
	}
}
