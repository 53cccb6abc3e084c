package event

import (
	"encoding/json"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/model"
)

type healthHandler struct {
	mqtt     mqtt.Client
	influxOK func() bool
	writer   *Writer
}

// NewHealthHandler reports ok, degraded or down, with the last audit seen for
// every field. influxOK is a cheap liveness probe for the database client.
func NewHealthHandler(m mqtt.Client, influxOK func() bool, w *Writer) http.Handler {
	return &healthHandler{mqtt: m, influxOK: influxOK, writer: w}
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	type status struct {
		Status          string         `json:"status"`
		MQTTConnected   bool           `json:"mqtt_connected"`
		InfluxOK        bool           `json:"influx_ok"`
		LastWriteErrorS float64        `json:"last_write_error_age_sec"`
		WaterStressed   int            `json:"water_stressed_fields"`
		Fields          []FieldSummary `json:"fields"`
	}
	st := status{
		MQTTConnected:   h.mqtt != nil && h.mqtt.IsConnectionOpen(),
		InfluxOK:        h.influxOK != nil && h.influxOK(),
		LastWriteErrorS: h.writer.LastErrorAge().Seconds(),
		Fields:          h.writer.Fields(),
	}
	for _, f := range st.Fields {
		if f.LastStatus == model.StatusWaterStress {
			st.WaterStressed++
		}
	}

	switch {
	case st.MQTTConnected && st.InfluxOK && h.writer.LastErrorAge() > 30*time.Second:
		st.Status = "ok"
	case st.MQTTConnected || st.InfluxOK:
		st.Status = "degraded"
	default:
		st.Status = "down"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}

type readyHandler struct {
	mqtt     mqtt.Client
	influxOK func() bool
	writer   *Writer
	minError time.Duration
}

// NewReadyHandler answers 200 only when every dependency is up and no write
// failed within minOkErrorAge.
func NewReadyHandler(m mqtt.Client, influxOK func() bool, w *Writer, minOkErrorAge time.Duration) http.Handler {
	return &readyHandler{mqtt: m, influxOK: influxOK, writer: w, minError: minOkErrorAge}
}

func (h *readyHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	ready := h.mqtt != nil && h.mqtt.IsConnectionOpen() &&
		h.influxOK != nil && h.influxOK() &&
		h.writer.LastErrorAge() > h.minError
	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	type resp struct {
		Ready bool `json:"ready"`
	}
	_ = json.NewEncoder(w).Encode(resp{Ready: ready})
}
