// Package main provides the Retrace API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/retrace-dev/retrace/pkg/persistence"
	"github.com/retrace-dev/retrace/pkg/registry"
	"github.com/retrace-dev/retrace/pkg/runstate"
	"github.com/retrace-dev/retrace/pkg/web"
)

type API struct {
	logger   *slog.Logger
	store    persistence.Persistence
	runner   web.FlowRunner
	states   runstate.Registry
	registry *registry.Registry
	validate *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	store persistence.Persistence,
	runner web.FlowRunner,
	states runstate.Registry,
	registry *registry.Registry,
) *API {
	return &API{
		logger:   logger,
		store:    store,
		runner:   runner,
		states:   states,
		registry: registry,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.store, a.runner, a.states, a.validate, a.registry, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Retrace API")
	})

	f := app.Group("/flows")
	f.Get("/", handlers.GetFlows)
	f.Post("/", handlers.CreateFlow)
	f.Get("/:id", handlers.GetFlow)
	f.Patch("/:id", handlers.UpdateFlow)
	f.Delete("/:id", handlers.DeleteFlow)
	f.Post("/:id/run", handlers.RunFlow)
	f.Get("/:id/runs", handlers.GetFlowRuns)

	r := app.Group("/runs")
	r.Get("/active", handlers.GetActiveRuns)
	r.Get("/:id", handlers.GetRun)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
