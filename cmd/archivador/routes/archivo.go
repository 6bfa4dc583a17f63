package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/sistemas-ti/archivador/cmd/archivador/container"
	"github.com/sistemas-ti/archivador/cmd/archivador/handlers"
)

// RegisterArchivoRoutes registers upload and archivo catalog routes
func RegisterArchivoRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewArchivoHandler(c)

	e.POST("/api/upload", h.Upload) // multipart: archivo, descripcion, categoria

	archivos := e.Group("/api/archivos")
	{
		archivos.GET("", h.List)                    // GET /api/archivos?categoria=&limite=&pagina=
		archivos.GET("/buscar/:termino", h.Search)  // GET /api/archivos/buscar/{termino}
		archivos.GET("/descargar/:id", h.Download)  // GET /api/archivos/descargar/{id}
		archivos.GET("/preview/:id", h.Preview)     // GET /api/archivos/preview/{id}
		archivos.GET("/:id", h.Get)                 // GET /api/archivos/{id}
		archivos.DELETE("/:id", h.Delete)           // DELETE /api/archivos/{id}
	}
}
