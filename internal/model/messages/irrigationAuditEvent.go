package messages

import (
	"time"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/entities"
)

// IrrigationAuditEvent is published by the auditor after every audit run.
// Days holds the whole ledger so that consumers can rebuild the window.
type IrrigationAuditEvent struct {
	AuditID   string                       `json:"audit_id"`
	FieldID   string                       `json:"field_id"`
	Crop      string                       `json:"crop"`
	Today     time.Time                    `json:"today"`
	Status    string                       `json:"status"` // "WATER_STRESS" | "ADEQUATE"
	DeficitMM float64                      `json:"deficit_mm"`
	VolumeM3  float64                      `json:"volume_m3"`
	PumpHours float64                      `json:"pump_hours"`
	Days      []entities.DailyWaterBalance `json:"days"`
	Timestamp time.Time                    `json:"timestamp"`
}
