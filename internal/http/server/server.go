// Package server builds the fiber application.
package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"url2pdf/internal/config"
	"url2pdf/internal/domain"
	"url2pdf/internal/gateway"
	"url2pdf/internal/http/handlers"
	"url2pdf/internal/http/middleware"
	"url2pdf/internal/infra/logging"
	"url2pdf/internal/render"
)

// Deps carries everything the app needs. Tokens and Storage may be nil.
type Deps struct {
	Config   config.Config
	Renderer gateway.Renderer
	Slots    *render.Slots
	Tokens   middleware.TokenStore
	Storage  fiber.Storage
}

// New creates the fiber app with middleware, routes and JSON errors.
func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		Prefork:               d.Config.Server.Prefork,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	middleware.Register(app, d.Config, d.Tokens, d.Storage)
	registerRoutes(app, d)

	// Ensure all responses, including 404s, return JSON.
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}

	logging.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": msg,
		},
	})
}

func registerRoutes(app *fiber.App, d Deps) {
	slots := d.Slots
	if slots == nil {
		slots = render.NewSlots(d.Config.Render.MaxConcurrent)
	}
	limited := &handlers.SlotRenderer{
		Next:           d.Renderer,
		Slots:          slots,
		AcquireTimeout: d.Config.Render.AcquireTimeout,
		RequestTimeout: d.Config.Render.RequestTimeout,
		MaxPDFBytes:    d.Config.Render.MaxPDFBytes,
	}
	robust, simple := d.Config.Policies.Robust, d.Config.Policies.Simple
	svc := handlers.NewPDFService(gateway.NewHandler(limited, robust, simple), slots)

	for path, p := range map[string]domain.RenderPolicy{
		"/generate-pdf":        robust,
		"/generate-pdf-simple": simple,
	} {
		h := svc.Handle(p)
		app.Get(path, h)
		app.Post(path, h)
		app.Options(path, h)
	}

	v1 := app.Group("/v1")
	v1.Get("/renders/stats", svc.HandleStats)
	v1.Get("/monitor", monitor.New())
}
