package event

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/model"
)

// FieldSummary is what the recorder has seen of one field.
type FieldSummary struct {
	FieldID     string    `json:"field_id"`
	Audits      int64     `json:"audits"`
	Points      int64     `json:"points"`
	LastAuditID string    `json:"last_audit_id"`
	LastStatus  string    `json:"last_status"`
	LastToday   time.Time `json:"last_today"`
	DeficitMM   float64   `json:"deficit_mm"`
	PumpHours   float64   `json:"pump_hours"`
}

// Writer queues audit points on the non-blocking WriteAPI, keeps a summary
// per field and remembers when an asynchronous write last failed.
type Writer struct {
	api     api.WriteAPI
	mu      sync.RWMutex
	lastErr time.Time
	fields  map[string]*FieldSummary
}

func NewWriter(w api.WriteAPI) *Writer {
	ww := &Writer{
		api:     w,
		lastErr: time.Now().Add(-24 * time.Hour),
		fields:  make(map[string]*FieldSummary),
	}
	go func() {
		for err := range w.Errors() {
			if err != nil {
				ww.mu.Lock()
				ww.lastErr = time.Now()
				ww.mu.Unlock()
				log.Printf("event: influx write error: %v", err)
			}
		}
	}()
	return ww
}

// Record queues the points of one audit event.
func (w *Writer) Record(evt model.IrrigationAuditEvent) {
	points := AuditToPoints(evt)
	for _, p := range points {
		w.api.WritePoint(p)
	}
	w.mu.Lock()
	fs := w.fields[evt.FieldID]
	if fs == nil {
		fs = &FieldSummary{FieldID: evt.FieldID}
		w.fields[evt.FieldID] = fs
	}
	fs.Audits++
	fs.Points += int64(len(points))
	// a replayed older audit must not hide the latest one
	if !evt.Today.Before(fs.LastToday) {
		fs.LastAuditID = evt.AuditID
		fs.LastStatus = evt.Status
		fs.LastToday = evt.Today
		fs.DeficitMM = evt.DeficitMM
		fs.PumpHours = evt.PumpHours
	}
	w.mu.Unlock()
	log.Printf("event: audit recorded audit_id=%s field=%s days=%d status=%s", evt.AuditID, evt.FieldID, len(points), evt.Status)
}

func (w *Writer) Flush() { w.api.Flush() }

// LastErrorAge is the time since the last write error.
func (w *Writer) LastErrorAge() time.Duration {
	if w == nil {
		return 99999 * time.Hour
	}
	w.mu.RLock()
	t := w.lastErr
	w.mu.RUnlock()
	return time.Since(t)
}

// Count is the number of points written for a field.
func (w *Writer) Count(fieldID string) int64 {
	if w == nil {
		return 0
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if fs := w.fields[fieldID]; fs != nil {
		return fs.Points
	}
	return 0
}

// Fields returns the field summaries ordered by field ID.
func (w *Writer) Fields() []FieldSummary {
	if w == nil {
		return nil
	}
	w.mu.RLock()
	out := make([]FieldSummary, 0, len(w.fields))
	for _, fs := range w.fields {
		out = append(out, *fs)
	}
	w.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].FieldID < out[j].FieldID })
	return out
}
