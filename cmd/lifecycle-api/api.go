// Package main provides the lifecycle API server.
package main

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hrdash/lifecycle/pkg/services"
	"github.com/hrdash/lifecycle/pkg/web"
)

type API struct {
	logger       *slog.Logger
	lifecycle    *services.Lifecycle
	provisioning *services.Provisioning
	gatherer     prometheus.Gatherer
	validate     *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	lifecycle *services.Lifecycle,
	provisioning *services.Provisioning,
	gatherer prometheus.Gatherer,
) *API {
	return &API{
		logger:       logger,
		lifecycle:    lifecycle,
		provisioning: provisioning,
		gatherer:     gatherer,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.lifecycle, a.provisioning, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			_, ok := a.lifecycle.HealthCheck(c.Context())

			return ok
		},
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Lifecycle API")
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{})))

	handlers.Register(app)

	return app
}

// Serve listens on port until ctx is done, then shuts the server down
// gracefully within timeout.
func (a *API) Serve(ctx context.Context, port int, timeout time.Duration) error {
	app := a.App()
	errCh := make(chan error, 1)

	go func() {
		errCh <- app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{DisableStartupMessage: true})
	}()

	a.logger.InfoContext(ctx, "Lifecycle API listening", "port", port)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.logger.InfoContext(ctx, "Shutting down lifecycle API")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		return app.ShutdownWithContext(shutdownCtx)
	}
}
