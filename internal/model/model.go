package model

import (
	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/entities"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/messages"
)

// Aliases exposing the common types to the services.

type (
	IrrigationAuditEvent    = messages.IrrigationAuditEvent
	Field                   = entities.Field
	SiteLocation            = entities.SiteLocation
	DailyWeatherObservation = entities.DailyWeatherObservation
	CropProfile             = entities.CropProfile
	DailyWaterBalance       = entities.DailyWaterBalance
	PumpConfig              = entities.PumpConfig
)

const (
	StatusWaterStress = "WATER_STRESS"
	StatusAdequate    = "ADEQUATE"
)
