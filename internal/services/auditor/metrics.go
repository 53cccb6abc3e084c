package auditor

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the auditor's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	audits    *prometheus.CounterVec
	eto       *prometheus.GaugeVec
	deficit   *prometheus.GaugeVec
	pumpHours *prometheus.GaugeVec
	fetch     prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		audits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "irrigation_audits_total",
			Help: "Audit runs by outcome (water_stress, adequate, error).",
		}, []string{"outcome"}),
		eto: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "irrigation_eto_mm",
			Help: "Reference evapotranspiration of the audit day.",
		}, []string{"field"}),
		deficit: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "irrigation_deficit_mm",
			Help: "Cumulative water balance on the audit day; negative is a surplus.",
		}, []string{"field"}),
		pumpHours: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "irrigation_pump_hours",
			Help: "Pump runtime needed to cover the deficit.",
		}, []string{"field"}),
		fetch: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "irrigation_weather_fetch_seconds",
			Help:    "Latency of weather provider calls.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
}

func (m *Metrics) observeReport(r AuditReport) {
	if m == nil {
		return
	}
	m.audits.WithLabelValues(strings.ToLower(r.Status)).Inc()
	m.eto.WithLabelValues(r.Field.ID).Set(r.Days[r.TodayIndex].ETo)
	m.deficit.WithLabelValues(r.Field.ID).Set(r.DeficitMM)
	m.pumpHours.WithLabelValues(r.Field.ID).Set(r.Schedule.Hours)
}

func (m *Metrics) observeFailure() {
	if m == nil {
		return
	}
	m.audits.WithLabelValues("error").Inc()
}

func (m *Metrics) observeFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.fetch.Observe(d.Seconds())
}
