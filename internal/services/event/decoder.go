package event

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/model"
	"github.com/LeonardoBeccarini/irrigation_audit/pkg/dedup"
)

// AuditTopicPrefix is where the auditor publishes, one subtopic per field.
const AuditTopicPrefix = "event/irrigationAudit/"

// MQTTHandler decodes audit events and passes each new one to sink.
// QoS 1 redeliveries are dropped by audit ID.
type MQTTHandler struct {
	seen *dedup.Deduper
	sink func(model.IrrigationAuditEvent)
}

func NewMQTTHandler(seen *dedup.Deduper, sink func(model.IrrigationAuditEvent)) *MQTTHandler {
	if seen == nil {
		seen = dedup.New(dedup.DefaultTTL, dedup.DefaultMax)
	}
	return &MQTTHandler{seen: seen, sink: sink}
}

func (h *MQTTHandler) Handle(_ string, m mqtt.Message) error {
	topic := m.Topic()
	if !strings.HasPrefix(topic, AuditTopicPrefix) {
		return nil
	}
	evt, err := decodeAudit(topic, m.Payload())
	if err != nil {
		return fmt.Errorf("event: %s: %w", topic, err)
	}
	if !h.seen.ShouldProcess(dedupKey(evt, m.Payload())) {
		log.Printf("event: duplicate audit dropped audit_id=%s field=%s", evt.AuditID, evt.FieldID)
		return nil
	}
	if h.sink != nil {
		h.sink(evt)
	}
	return nil
}

func decodeAudit(topic string, payload []byte) (model.IrrigationAuditEvent, error) {
	var evt model.IrrigationAuditEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return model.IrrigationAuditEvent{}, err
	}
	if strings.TrimSpace(evt.FieldID) == "" {
		evt.FieldID = fieldFromTopic(topic)
	}
	if evt.FieldID == "" {
		return model.IrrigationAuditEvent{}, errors.New("audit: missing field")
	}
	if len(evt.Days) == 0 {
		return model.IrrigationAuditEvent{}, errors.New("audit: empty ledger")
	}
	return evt, nil
}

// fieldFromTopic reads the field from "event/irrigationAudit/{field}".
func fieldFromTopic(topic string) string {
	suffix := strings.TrimPrefix(topic, AuditTopicPrefix)
	return strings.TrimSpace(strings.SplitN(suffix, "/", 2)[0])
}

// dedupKey is the audit ID, or a payload hash for events that lack one.
func dedupKey(evt model.IrrigationAuditEvent, payload []byte) string {
	if evt.AuditID != "" {
		return evt.AuditID
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
