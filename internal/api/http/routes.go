package httpapi

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/crops"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/fao56"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/entities"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/services/auditor"
)

var validate = validator.New()

// NewApp builds the fiber application with middleware, health, metrics and
// the API routes.
func NewApp(svc *auditor.Service, gatherer prometheus.Gatherer, accessLog bool) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "irrigation-auditor",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          errorHandler,
	})
	if accessLog {
		app.Use(logger.New())
	}
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": "irrigation-auditor"})
	})
	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	RegisterRoutes(app, svc)
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := StatusFor(err)
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": true, "message": err.Error()})
}

// StatusFor maps audit errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, auditor.ErrUnknownField), errors.Is(err, crops.ErrUnknownCrop):
		return fiber.StatusNotFound
	case errors.Is(err, fao56.ErrOutOfCycle):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, auditor.ErrWeather):
		return fiber.StatusBadGateway
	case errors.Is(err, fao56.ErrInvalidInput),
		errors.Is(err, fao56.ErrInvalidPumpConfig),
		errors.Is(err, fao56.ErrDiscontinuousAudit):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// RegisterRoutes wires the /api/v1 handlers.
func RegisterRoutes(app *fiber.App, svc *auditor.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/crops", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"crops": svc.Catalog().Names()})
	})

	v1.Get("/crops/:name", func(c *fiber.Ctx) error {
		p, err := svc.Catalog().Get(c.Params("name"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"profile": p, "cycle_days": p.CycleLength()})
	})

	v1.Get("/schemes", func(c *fiber.Ctx) error {
		type scheme struct {
			Key  string                `json:"key"`
			Site entities.SiteLocation `json:"site"`
		}
		keys := entities.SchemeKeys()
		out := make([]scheme, 0, len(keys))
		for _, k := range keys {
			s, _ := entities.Scheme(k)
			out = append(out, scheme{Key: k, Site: s})
		}
		return c.JSON(fiber.Map{"schemes": out})
	})

	v1.Get("/kc", func(c *fiber.Ctx) error { return kcHandler(c, svc) })
	v1.Post("/eto", func(c *fiber.Ctx) error { return etoHandler(c, svc) })
	v1.Post("/balance", func(c *fiber.Ctx) error { return balanceHandler(c, svc) })
	v1.Post("/pump", pumpHandler)

	v1.Post("/audit", func(c *fiber.Ctx) error {
		var req auditor.AuditRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid body: "+err.Error())
		}
		if req.Field == nil && req.FieldID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "field_id or field is required")
		}
		rep, err := svc.Audit(c.UserContext(), req)
		if err != nil {
			return err
		}
		return c.JSON(rep)
	})
}
