// Package auditor runs FAO-56 water-balance audits of registered fields and
// publishes the result of every run.
package auditor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/crops"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/fao56"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/model"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/entities"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/weather"
	"github.com/LeonardoBeccarini/irrigation_audit/pkg/rabbitmq"
)

var (
	ErrUnknownField = errors.New("unknown field")
	// ErrWeather wraps every failure of the weather provider.
	ErrWeather = errors.New("weather data unavailable")
)

const DefaultTopicTmpl = "event/irrigationAudit/{field}"

type Options struct {
	Params    fao56.Params
	PastDays  int // days before today inside the window
	TopicTmpl string
	Location  *time.Location // calendar used to decide what "today" is
}

type Service struct {
	catalog   *crops.Catalog
	fields    *Registry
	provider  weather.Provider
	publisher rabbitmq.IPublisher
	metrics   *Metrics

	params    fao56.Params
	pastDays  int
	topicTmpl string
	loc       *time.Location
	now       func() time.Time
}

// NewService wires an auditor. publisher and metrics may be nil.
func NewService(catalog *crops.Catalog, fields *Registry, provider weather.Provider, publisher rabbitmq.IPublisher, metrics *Metrics, opts Options) (*Service, error) {
	if catalog == nil || fields == nil {
		return nil, errors.New("auditor: crop catalog and field registry are required")
	}
	if provider == nil {
		return nil, errors.New("auditor: weather provider is nil")
	}
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}
	if opts.PastDays < 0 || opts.PastDays >= opts.Params.WindowDays {
		return nil, fmt.Errorf("auditor: past days %d outside [0,%d)", opts.PastDays, opts.Params.WindowDays)
	}
	if strings.TrimSpace(opts.TopicTmpl) == "" {
		opts.TopicTmpl = DefaultTopicTmpl
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		catalog:   catalog,
		fields:    fields,
		provider:  provider,
		publisher: publisher,
		metrics:   metrics,
		params:    opts.Params,
		pastDays:  opts.PastDays,
		topicTmpl: opts.TopicTmpl,
		loc:       opts.Location,
		now:       time.Now,
	}, nil
}

func (s *Service) Catalog() *crops.Catalog { return s.catalog }
func (s *Service) Fields() *Registry       { return s.fields }
func (s *Service) Params() fao56.Params    { return s.params }

// AuditRequest names a registered field, or carries one inline.
type AuditRequest struct {
	FieldID string          `json:"field_id,omitempty"`
	Field   *entities.Field `json:"field,omitempty"`
	Today   string          `json:"today,omitempty"` // YYYY-MM-DD, default the current day
}

// AuditDay is one ledger row plus how it was computed.
type AuditDay struct {
	entities.DailyWaterBalance
	Stage      entities.Stage `json:"stage"`
	Method     string         `json:"method"`
	VPDClamped bool           `json:"vpd_clamped,omitempty"`
	EToClamped bool           `json:"eto_clamped,omitempty"`
	SourceETo  *float64       `json:"source_eto_mm,omitempty"`
}

type AuditReport struct {
	AuditID    string             `json:"audit_id"`
	Field      entities.Field     `json:"field"`
	Crop       string             `json:"crop"`
	Provider   string             `json:"provider"`
	From       time.Time          `json:"from"`
	To         time.Time          `json:"to"`
	Today      time.Time          `json:"today"`
	TodayIndex int                `json:"today_index"`
	Days       []AuditDay         `json:"days"`
	Stage      entities.Stage     `json:"stage"`
	Kc         float64            `json:"kc"`
	DeficitMM  float64            `json:"deficit_mm"`
	Schedule   fao56.PumpSchedule `json:"schedule"`
	Status     string             `json:"status"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Event is the message published for the report.
func (r AuditReport) Event() model.IrrigationAuditEvent {
	days := make([]entities.DailyWaterBalance, len(r.Days))
	for i, d := range r.Days {
		days[i] = d.DailyWaterBalance
	}
	return model.IrrigationAuditEvent{
		AuditID:   r.AuditID,
		FieldID:   r.Field.ID,
		Crop:      r.Crop,
		Today:     r.Today,
		Status:    r.Status,
		DeficitMM: r.DeficitMM,
		VolumeM3:  r.Schedule.VolumeM3,
		PumpHours: r.Schedule.Hours,
		Days:      days,
		Timestamp: r.CreatedAt,
	}
}

// Audit runs the water balance over the window around today and schedules
// the pump for today's cumulative deficit. The window is clipped to the crop
// cycle; only a today outside the cycle fails with fao56.ErrOutOfCycle.
func (s *Service) Audit(ctx context.Context, req AuditRequest) (AuditReport, error) {
	rep, err := s.audit(ctx, req)
	if err != nil {
		s.metrics.observeFailure()
		log.Printf("auditor: audit field=%s failed: %v", fieldLabel(req), err)
		return AuditReport{}, err
	}
	s.metrics.observeReport(rep)
	log.Printf("auditor: field=%s crop=%s today=%s stage=%s deficit=%.2fmm volume=%.1fm3 hours=%.2f status=%s",
		rep.Field.ID, rep.Crop, rep.Today.Format(entities.DateLayout), rep.Stage, rep.DeficitMM,
		rep.Schedule.VolumeM3, rep.Schedule.Hours, rep.Status)

	if s.publisher != nil {
		if err := s.publish(rep); err != nil {
			// the audit itself stands; the recorder will miss this run
			log.Printf("auditor: publish audit %s: %v", rep.AuditID, err)
		}
	}
	return rep, nil
}

func (s *Service) audit(ctx context.Context, req AuditRequest) (AuditReport, error) {
	field, err := s.resolveField(req)
	if err != nil {
		return AuditReport{}, err
	}
	profile, err := s.catalog.Get(field.Crop)
	if err != nil {
		return AuditReport{}, err
	}
	today, err := s.today(req.Today)
	if err != nil {
		return AuditReport{}, err
	}
	if _, err := fao56.KcOn(profile, field.Planted, today); err != nil {
		return AuditReport{}, err
	}
	from, to := s.window(today, field.Planted, profile.CycleLength())

	start := time.Now()
	obs, err := s.provider.Daily(ctx, field.Site, from, to)
	s.metrics.observeFetch(time.Since(start))
	if err != nil {
		return AuditReport{}, fmt.Errorf("%w: %s: %v", ErrWeather, s.provider.Name(), err)
	}

	rows := make([]fao56.BalanceDay, 0, len(obs))
	meta := make([]AuditDay, 0, len(obs))
	for _, o := range obs {
		if !inCycle(o.Date, field.Planted, profile.CycleLength()) {
			continue
		}
		d, err := fao56.ComputeDemand(o, field.Site, profile, field.Planted, s.params)
		if err != nil {
			return AuditReport{}, fmt.Errorf("%s: %w", o.Day(), err)
		}
		rows = append(rows, d.BalanceDay())
		meta = append(meta, AuditDay{
			Stage:      d.Coefficient.Stage,
			Method:     d.Reference.Method,
			VPDClamped: d.Reference.Atmosphere.VPDClamped,
			EToClamped: d.Reference.Clamped,
			SourceETo:  o.SourceETo,
		})
	}
	if len(rows) == 0 {
		return AuditReport{}, fmt.Errorf("%w: %s: no observations inside the crop cycle", ErrWeather, s.provider.Name())
	}
	rows = fao56.TrailingWindow(rows, s.params.WindowDays)
	meta = meta[len(meta)-len(rows):]

	ledger, err := fao56.FoldBalance(rows, field.SeedMM, s.params)
	if err != nil {
		return AuditReport{}, err
	}
	idx := -1
	for i := range ledger {
		meta[i].DailyWaterBalance = ledger[i]
		if fao56.DaysBetween(ledger[i].Date, today) == 0 {
			idx = i
		}
	}
	if idx < 0 {
		return AuditReport{}, fmt.Errorf("%w: %s: no observation for today %s", ErrWeather, s.provider.Name(), today.Format(entities.DateLayout))
	}

	deficit := ledger[idx].Cumulative
	sched, err := fao56.SchedulePump(deficit, field.Pump)
	if err != nil {
		return AuditReport{}, err
	}
	status := model.StatusAdequate
	if sched.Hours > 0 {
		status = model.StatusWaterStress
	}
	return AuditReport{
		AuditID:    uuid.New().String(),
		Field:      field,
		Crop:       profile.Crop,
		Provider:   s.provider.Name(),
		From:       ledger[0].Date,
		To:         ledger[len(ledger)-1].Date,
		Today:      today,
		TodayIndex: idx,
		Days:       meta,
		Stage:      meta[idx].Stage,
		Kc:         ledger[idx].Kc,
		DeficitMM:  deficit,
		Schedule:   sched,
		Status:     status,
		CreatedAt:  s.now().UTC(),
	}, nil
}

// window is the audit window around today, clipped to the days of the crop
// cycle [planted, planted+cycle).
func (s *Service) window(today, planted time.Time, cycle int) (from, to time.Time) {
	from = today.AddDate(0, 0, -s.pastDays)
	to = from.AddDate(0, 0, s.params.WindowDays-1)
	if first := utcDay(planted); from.Before(first) {
		from = first
	}
	if last := utcDay(planted).AddDate(0, 0, cycle-1); to.After(last) {
		to = last
	}
	return from, to
}

func inCycle(day, planted time.Time, cycle int) bool {
	n := fao56.DaysBetween(planted, day)
	return n >= 0 && n < cycle
}

func utcDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AuditAll audits every registered field, continuing past failures.
func (s *Service) AuditAll(ctx context.Context) (int, error) {
	var errs []error
	ok := 0
	for _, f := range s.fields.All() {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if _, err := s.Audit(ctx, AuditRequest{FieldID: f.ID}); err != nil {
			errs = append(errs, fmt.Errorf("field %s: %w", f.ID, err))
			continue
		}
		ok++
	}
	return ok, errors.Join(errs...)
}

func (s *Service) resolveField(req AuditRequest) (entities.Field, error) {
	if req.Field != nil {
		f := *req.Field
		if strings.TrimSpace(f.ID) == "" {
			f.ID = "adhoc"
		}
		if err := f.Site.Check(); err != nil {
			return entities.Field{}, fmt.Errorf("%w: site: %v", fao56.ErrInvalidInput, err)
		}
		if f.Planted.IsZero() {
			return entities.Field{}, fmt.Errorf("%w: field without planting date", fao56.ErrInvalidInput)
		}
		return f, nil
	}
	f, ok := s.fields.Get(req.FieldID)
	if !ok {
		return entities.Field{}, fmt.Errorf("%w: %q", ErrUnknownField, req.FieldID)
	}
	return f, nil
}

// today is the audit day as a UTC calendar date.
func (s *Service) today(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) != "" {
		t, err := time.Parse(entities.DateLayout, strings.TrimSpace(raw))
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: today %q: want YYYY-MM-DD", fao56.ErrInvalidInput, raw)
		}
		return t, nil
	}
	lt := s.now().In(s.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, time.UTC), nil
}

func (s *Service) publish(rep AuditReport) error {
	topic := strings.NewReplacer("{field}", rep.Field.ID).Replace(s.topicTmpl)
	if err := s.publisher.PublishToQos(topic, 1, false, rep.Event()); err != nil {
		return err
	}
	log.Printf("auditor: audit %s published on %s (qos=1)", rep.AuditID, topic)
	return nil
}

func fieldLabel(req AuditRequest) string {
	if req.Field != nil {
		return req.Field.ID
	}
	return req.FieldID
}
