package models

import (
	"time"
)

// Archivo is one catalog row describing one uploaded file. Wire names are
// kept in Spanish to preserve the external API contract.
type Archivo struct {
	ID             int64     `json:"id"`
	NombreOriginal string    `json:"nombre_original"`
	NombreGuardado string    `json:"nombre_guardado"`
	Ruta           string    `json:"ruta"`
	Size           int64     `json:"size"`
	Tipo           string    `json:"tipo"`
	Descripcion    *string   `json:"descripcion"`
	Categoria      string    `json:"categoria"`
	Fecha          time.Time `json:"fecha"`
}

// CategoriaCount is a distinct category together with the number of
// archivos carrying it.
type CategoriaCount struct {
	Categoria string `json:"categoria"`
	Total     int64  `json:"total"`
}

// CategoriaCantidad mirrors CategoriaCount under the field names the
// statistics endpoint uses.
type CategoriaCantidad struct {
	Categoria string `json:"categoria"`
	Cantidad  int64  `json:"cantidad"`
}

// Estadisticas is the aggregate view over the whole catalog. TamanoTotalMB
// is rendered with two decimal places and is "0.00" for an empty catalog.
type Estadisticas struct {
	TotalArchivos int64               `json:"total_archivos"`
	PorCategoria  []CategoriaCantidad `json:"por_categoria"`
	TamanoTotalMB string              `json:"tamano_total_mb"`
}
