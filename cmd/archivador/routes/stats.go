package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/sistemas-ti/archivador/cmd/archivador/container"
	"github.com/sistemas-ti/archivador/cmd/archivador/handlers"
)

// RegisterStatsRoutes registers category and statistics routes
func RegisterStatsRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewStatsHandler(c)

	e.GET("/api/categorias", h.Categories)    // GET /api/categorias
	e.GET("/api/estadisticas", h.Statistics)  // GET /api/estadisticas
}
