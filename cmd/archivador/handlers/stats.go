package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sistemas-ti/archivador/cmd/archivador/container"
	"github.com/sistemas-ti/archivador/cmd/archivador/service"
	"github.com/sistemas-ti/archivador/common/bootstrap"
)

// StatsHandler serves category listings and catalog-wide statistics
type StatsHandler struct {
	components *bootstrap.Components
	archivos   *service.ArchivoService
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(c *container.Container) *StatsHandler {
	return &StatsHandler{
		components: c.Components,
		archivos:   c.ArchivoService,
	}
}

// Categories lists distinct categories with their counts
// GET /api/categorias
func (h *StatsHandler) Categories(c echo.Context) error {
	categorias, err := h.archivos.Categories(c.Request().Context())
	if err != nil {
		h.components.Logger.Error("failed to list categories", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, categorias)
}

// Statistics returns catalog-wide aggregates
// GET /api/estadisticas
func (h *StatsHandler) Statistics(c echo.Context) error {
	stats, err := h.archivos.Statistics(c.Request().Context())
	if err != nil {
		h.components.Logger.Error("failed to compute statistics", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, stats)
}
