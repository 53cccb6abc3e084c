package httpapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/fao56"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/entities"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/services/auditor"
)

// kcQuery selects a Kc either by dates or by a named stage (init, mid, end).
type kcQuery struct {
	Crop    string `validate:"required"`
	Planted string `validate:"required_without=Stage,omitempty,datetime=2006-01-02"`
	Date    string `validate:"required_with=Planted,omitempty,datetime=2006-01-02"`
	Stage   string `validate:"omitempty,oneof=init mid end"`
}

func kcHandler(c *fiber.Ctx, svc *auditor.Service) error {
	q := kcQuery{
		Crop:    c.Query("crop"),
		Planted: c.Query("planted"),
		Date:    c.Query("date"),
		Stage:   strings.ToLower(c.Query("stage")),
	}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if q.Planted == "" {
		kc, err := svc.Catalog().StageKc(q.Crop, q.Stage)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"crop": q.Crop, "stage": q.Stage, "kc": kc})
	}

	p, err := svc.Catalog().Get(q.Crop)
	if err != nil {
		return err
	}
	planted, _ := time.Parse(entities.DateLayout, q.Planted)
	date, _ := time.Parse(entities.DateLayout, q.Date)
	cc, err := fao56.KcOn(p, planted, date)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"crop": p.Crop, "coefficient": cc})
}

type etoRequest struct {
	Site        *entities.SiteLocation           `json:"site" validate:"required"`
	Observation entities.DailyWeatherObservation `json:"observation"`
}

func etoHandler(c *fiber.Ctx, svc *auditor.Service) error {
	var req etoRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body: "+err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	ref, err := fao56.ComputeETo(req.Observation, *req.Site, svc.Params())
	if err != nil {
		return err
	}
	return c.JSON(ref)
}

// balanceDay is a fold input whose ETc may be left out when ETo and Kc are
// given. An explicit etc_mm, zero included, is kept.
type balanceDay struct {
	Date     time.Time `json:"date"`
	ETo      *float64  `json:"eto_mm"`
	Kc       *float64  `json:"kc"`
	ETc      *float64  `json:"etc_mm"`
	Rainfall float64   `json:"rain_mm"`
}

func (d balanceDay) fold() (fao56.BalanceDay, error) {
	out := fao56.BalanceDay{Date: d.Date, Rainfall: d.Rainfall}
	if d.ETo != nil {
		out.ETo = *d.ETo
	}
	if d.Kc != nil {
		out.Kc = *d.Kc
	}
	if d.ETc != nil {
		out.ETc = *d.ETc
		return out, nil
	}
	if d.ETo == nil || d.Kc == nil {
		return out, fmt.Errorf("%w: %s: etc_mm or both eto_mm and kc required", fao56.ErrInvalidInput, d.Date.Format(entities.DateLayout))
	}
	etc, err := fao56.CropET(out.ETo, out.Kc)
	if err != nil {
		return out, err
	}
	out.ETc = etc
	return out, nil
}

type balanceRequest struct {
	SeedMM         float64      `json:"seed_mm"`
	RunoffCapMM    *float64     `json:"runoff_cap_mm,omitempty"`
	RainEfficiency *float64     `json:"rain_efficiency,omitempty"`
	Days           []balanceDay `json:"days" validate:"required,min=1"`
}

func balanceHandler(c *fiber.Ctx, svc *auditor.Service) error {
	var req balanceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body: "+err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	p := svc.Params()
	if req.RunoffCapMM != nil {
		p.RunoffCapMM = *req.RunoffCapMM
	}
	if req.RainEfficiency != nil {
		p.RainEfficiency = *req.RainEfficiency
	}
	days := make([]fao56.BalanceDay, len(req.Days))
	for i, d := range req.Days {
		bd, err := d.fold()
		if err != nil {
			return err
		}
		days[i] = bd
	}
	ledger, err := fao56.FoldBalance(days, req.SeedMM, p)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"days": ledger, "cumulative_mm": ledger[len(ledger)-1].Cumulative})
}

// pumpRequest takes one area and one discharge unit.
type pumpRequest struct {
	DepthMM      float64 `json:"depth_mm"`
	AreaM2       float64 `json:"area_m2" validate:"gte=0"`
	AreaHa       float64 `json:"area_ha" validate:"gte=0"`
	AreaAcres    float64 `json:"area_acres" validate:"gte=0"`
	DischargeM3H float64 `json:"discharge_m3h" validate:"gte=0"`
	FlowLps      float64 `json:"flow_lps" validate:"gte=0"`
	FlowLpm      float64 `json:"flow_lpm" validate:"gte=0"`
}

func (r pumpRequest) config() entities.PumpConfig {
	var pc entities.PumpConfig
	switch {
	case r.AreaM2 > 0:
		pc.AreaM2 = r.AreaM2
	case r.AreaHa > 0:
		pc.AreaM2 = entities.Hectares(r.AreaHa)
	case r.AreaAcres > 0:
		pc.AreaM2 = entities.Acres(r.AreaAcres)
	}
	switch {
	case r.DischargeM3H > 0:
		pc.DischargeM3H = r.DischargeM3H
	case r.FlowLps > 0:
		pc.DischargeM3H = entities.LitersPerSecond(r.FlowLps)
	case r.FlowLpm > 0:
		pc.DischargeM3H = entities.LitersPerMinute(r.FlowLpm)
	}
	return pc
}

func pumpHandler(c *fiber.Ctx) error {
	var req pumpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body: "+err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	pc := req.config()
	s, err := fao56.SchedulePump(req.DepthMM, pc)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"pump": pc, "schedule": s, "runtime": s.Runtime().String()})
}
