package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sistemas-ti/archivador/cmd/archivador/container"
	"github.com/sistemas-ti/archivador/cmd/archivador/models"
	"github.com/sistemas-ti/archivador/cmd/archivador/service"
	"github.com/sistemas-ti/archivador/common/bootstrap"
)

// Client-facing messages, kept stable as part of the API contract.
const (
	msgArchivoNotFound = "Archivo no encontrado"
	msgBlobNotFound    = "Archivo fisico no encontrado"
	msgNoFile          = "No se recibio ningun archivo"
	msgUploaded        = "Archivo subido correctamente"
	msgDeleted         = "Archivo eliminado correctamente"
)

// ArchivoHandler handles archivo-related requests
type ArchivoHandler struct {
	components *bootstrap.Components
	archivos   *service.ArchivoService
}

// NewArchivoHandler creates a new archivo handler
func NewArchivoHandler(c *container.Container) *ArchivoHandler {
	return &ArchivoHandler{
		components: c.Components,
		archivos:   c.ArchivoService,
	}
}

// Upload stores an uploaded file and its metadata
// POST /api/upload
func (h *ArchivoHandler) Upload(c echo.Context) error {
	ctx := c.Request().Context()

	file, err := c.FormFile("archivo")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   msgNoFile,
		})
	}

	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
	}
	defer src.Close()

	archivo, err := h.archivos.Upload(ctx, service.UploadInput{
		Reader:         src,
		NombreOriginal: file.Filename,
		Tipo:           file.Header.Get("Content-Type"),
		Size:           file.Size,
		Descripcion:    c.FormValue("descripcion"),
		Categoria:      c.FormValue("categoria"),
	})
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   verr.Reason,
			})
		}
		h.components.Logger.Error("upload failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"id":      archivo.ID,
		"mensaje": msgUploaded,
		"archivo": map[string]any{
			"id":     archivo.ID,
			"nombre": archivo.NombreOriginal,
			"size":   archivo.Size,
			"ruta":   archivo.Ruta,
		},
	})
}

// List returns one page of archivos plus the matching total
// GET /api/archivos?categoria=&limite=&pagina=
func (h *ArchivoHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	categoria := c.QueryParam("categoria")

	// No limite parameter means no pagination: every matching row is
	// returned. A present but unusable value falls back to 50.
	limit := 0
	if raw := c.QueryParam("limite"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			v = 50
		}
		limit = v
	}

	page := 1
	if raw := c.QueryParam("pagina"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			page = v
		}
	}

	archivos, total, err := h.archivos.List(ctx, categoria, limit, page)
	if err != nil {
		return h.fail(c, err)
	}
	if archivos == nil {
		archivos = []*models.Archivo{}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"archivos": archivos,
		"total":    total,
		"pagina":   page,
	})
}

// Get returns one archivo by id
// GET /api/archivos/:id
func (h *ArchivoHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]any{"error": msgArchivoNotFound})
	}

	archivo, err := h.archivos.Get(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, archivo)
}

// Download streams the stored file as an attachment under its original name
// GET /api/archivos/descargar/:id
func (h *ArchivoHandler) Download(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]any{"error": msgArchivoNotFound})
	}

	archivo, path, err := h.archivos.Resolve(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}

	h.components.Logger.Info("descarga", "archivo_id", id, "nombre", archivo.NombreOriginal)

	return c.Attachment(path, archivo.NombreOriginal)
}

// Preview streams the stored file inline under its stored MIME type
// GET /api/archivos/preview/:id
func (h *ArchivoHandler) Preview(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]any{"error": msgArchivoNotFound})
	}

	archivo, path, err := h.archivos.Resolve(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentType, archivo.Tipo)
	c.Response().Header().Set(echo.HeaderContentDisposition, "inline")

	return c.File(path)
}

// Search returns archivos matching the term in name, description or category
// GET /api/archivos/buscar/:termino
func (h *ArchivoHandler) Search(c echo.Context) error {
	ctx := c.Request().Context()

	archivos, err := h.archivos.Search(ctx, c.Param("termino"))
	if err != nil {
		return h.fail(c, err)
	}
	if archivos == nil {
		archivos = []*models.Archivo{}
	}

	return c.JSON(http.StatusOK, archivos)
}

// Delete removes an archivo and best-effort removes its blob
// DELETE /api/archivos/:id
func (h *ArchivoHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]any{"error": msgArchivoNotFound})
	}

	if err := h.archivos.Delete(ctx, id); err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"mensaje": msgDeleted,
	})
}

// fail maps service errors onto the wire taxonomy: the two not-found
// variants keep distinct messages, anything else is a 500 with the
// underlying message surfaced.
func (h *ArchivoHandler) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrArchivoNotFound):
		return c.JSON(http.StatusNotFound, map[string]any{"error": msgArchivoNotFound})
	case errors.Is(err, service.ErrBlobNotFound):
		return c.JSON(http.StatusNotFound, map[string]any{"error": msgBlobNotFound})
	default:
		h.components.Logger.Error("request failed", "path", c.Path(), "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": err.Error()})
	}
}

func parseID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
