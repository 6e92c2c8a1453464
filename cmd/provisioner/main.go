package main

import (
	"context"
	"fmt"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/GabeCloud94/b2b-ez-catalogs/cmd/provisioner/container"
	"github.com/GabeCloud94/b2b-ez-catalogs/cmd/provisioner/repository"
	"github.com/GabeCloud94/b2b-ez-catalogs/cmd/provisioner/routes"
	"github.com/GabeCloud94/b2b-ez-catalogs/common/bootstrap"
)

func main() {
	ctx := context.Background()

	// Bootstrap common components (DB, logger, queue, cache, telemetry)
	components, err := bootstrap.Setup(ctx, "provisioner",
		bootstrap.WithDBInitHook(repository.InitSchema),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap provisioner: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize service container: %v\n", err)
		os.Exit(1)
	}
	defer serviceContainer.Close()

	// Subscribe to run completion events before accepting traffic so the
	// candidate cache is invalidated from the first run onward.
	if err := serviceContainer.ProvisionService.StartEventSubscribers(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start event subscribers: %v\n", err)
		os.Exit(1)
	}

	// Initialize Echo server
	e := setupEcho()

	// Setup middleware
	setupMiddleware(e)

	// Setup health check
	setupHealthCheck(e, serviceContainer)

	// Register all routes
	registerRoutes(e, serviceContainer)

	// Start server
	startServer(e, components)
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo, serviceContainer *container.Container) {
	e.GET("/health", func(c echo.Context) error {
		ctx := c.Request().Context()

		if err := serviceContainer.Components.Health(ctx); err != nil {
			return c.JSON(503, map[string]string{
				"status":  "degraded",
				"service": "provisioner",
				"error":   err.Error(),
			})
		}
		if err := serviceContainer.Redis.Health(ctx); err != nil {
			return c.JSON(503, map[string]string{
				"status":  "degraded",
				"service": "provisioner",
				"error":   err.Error(),
			})
		}
		return c.JSON(200, map[string]string{
			"status":  "ok",
			"service": "provisioner",
		})
	})
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, serviceContainer *container.Container) {
	routes.RegisterProvisioningRoutes(e, serviceContainer)
}

// startServer starts the Echo server on the configured port
func startServer(e *echo.Echo, components *bootstrap.Components) {
	port := components.Config.Service.Port
	components.Logger.Info("Starting provisioner", "port", port)

	if err := e.Start(fmt.Sprintf(":%d", port)); err != nil {
		components.Logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
