package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sistemas-ti/archivador/cmd/archivador/container"
	"github.com/sistemas-ti/archivador/cmd/archivador/repository"
	"github.com/sistemas-ti/archivador/cmd/archivador/routes"
	"github.com/sistemas-ti/archivador/common/bootstrap"
	"github.com/sistemas-ti/archivador/common/db"
	"github.com/sistemas-ti/archivador/common/server"
)

func main() {
	ctx := context.Background()

	// Bootstrap common components (config, logger, DB, blob storage)
	components, err := bootstrap.Setup(ctx, "archivador",
		bootstrap.WithDBInitHook(func(d *db.DB) error {
			return repository.EnsureSchema(ctx, d)
		}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap archivador: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize service container: %v\n", err)
		os.Exit(1)
	}

	// Initialize Echo server
	e := setupEcho(components)

	// Setup middleware
	setupMiddleware(e, components)

	// Setup health check and static assets
	setupHealthCheck(e, components)
	setupStatic(e, components)

	// Register all routes
	registerRoutes(e, serviceContainer)

	// Start server with graceful shutdown
	srv := server.New("archivador", components.Config.Service.Port, e, components.Logger)
	if err := srv.Start(); err != nil {
		components.Logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho(components *bootstrap.Components) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Catch-all: any otherwise-unhandled fault still yields a JSON error body
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := 500
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			msg = fmt.Sprintf("%v", he.Message)
		}

		if code >= 500 {
			components.Logger.Error("unhandled error", "path", c.Path(), "error", err)
		}

		c.JSON(code, map[string]any{
			"success": false,
			"error":   msg,
		})
	}

	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo, components *bootstrap.Components) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())

	// Cap request bodies slightly above the file limit to leave room for
	// the other multipart fields.
	limit := components.Config.Storage.MaxFileSizeBytes + 1<<20
	e.Use(middleware.BodyLimit(fmt.Sprintf("%d", limit)))
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo, components *bootstrap.Components) {
	e.GET("/health", func(c echo.Context) error {
		if err := components.Health(c.Request().Context()); err != nil {
			return c.JSON(503, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
		return c.JSON(200, map[string]string{
			"status":  "ok",
			"service": "archivador",
		})
	})
}

// setupStatic serves the browser client and the raw blob tree
func setupStatic(e *echo.Echo, components *bootstrap.Components) {
	e.Static("/uploads", components.Config.Storage.Root)
	e.Static("/", "public")
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, serviceContainer *container.Container) {
	routes.RegisterArchivoRoutes(e, serviceContainer)
	routes.RegisterStatsRoutes(e, serviceContainer)
}
