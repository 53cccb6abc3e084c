package event

import (
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/model"
)

// Measurement holds one point per field and ledger day. A later audit of
// the same day overwrites the earlier values.
const Measurement = "water_balance"

// AuditToPoints converts every ledger day of evt into a point. The point of
// the audit day also carries the pump schedule.
func AuditToPoints(evt model.IrrigationAuditEvent) []*write.Point {
	tags := map[string]string{"field_id": evt.FieldID}
	if evt.Crop != "" {
		tags["crop"] = evt.Crop
	}

	out := make([]*write.Point, 0, len(evt.Days))
	for _, d := range evt.Days {
		fields := map[string]interface{}{
			"eto":        d.ETo,
			"kc":         d.Kc,
			"etc":        d.ETc,
			"rain":       d.Rainfall,
			"rain_eff":   d.EffectiveRain,
			"net":        d.Net,
			"cumulative": d.Cumulative,
		}
		if d.Date.Equal(evt.Today) {
			fields["pump_hours"] = evt.PumpHours
			fields["volume_m3"] = evt.VolumeM3
			fields["status"] = evt.Status
			fields["audit_id"] = evt.AuditID
		}
		out = append(out, influxdb2.NewPoint(Measurement, tags, fields, d.Date))
	}
	return out
}
