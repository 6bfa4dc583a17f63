package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sistemas-ti/archivador/cmd/archivador/models"
	"github.com/sistemas-ti/archivador/common/blobstore"
	"github.com/sistemas-ti/archivador/common/config"
	"github.com/sistemas-ti/archivador/common/logger"
)

// CategoriaTodos is the sentinel category meaning "no filter".
const CategoriaTodos = "todos"

// DefaultCategoria is assigned when an upload carries no category.
const DefaultCategoria = "general"

// ArchivoRepo is the catalog store surface the service depends on.
// Implemented by repository.ArchivoRepository.
type ArchivoRepo interface {
	Create(ctx context.Context, a *models.Archivo) error
	GetByID(ctx context.Context, id int64) (*models.Archivo, error)
	List(ctx context.Context, categoria string, limit, page int) ([]*models.Archivo, error)
	Count(ctx context.Context, categoria string) (int64, error)
	Search(ctx context.Context, term string) ([]*models.Archivo, error)
	Delete(ctx context.Context, id int64) error
	Categories(ctx context.Context) ([]models.CategoriaCount, error)
	CountAll(ctx context.Context) (int64, error)
	CountByCategory(ctx context.Context) ([]models.CategoriaCantidad, error)
	SumSize(ctx context.Context) (int64, error)
}

// ArchivoService orchestrates catalog metadata with the blob lifecycle.
// Blob writes happen before row inserts; row deletes happen before blob
// removal. Neither pair is transactional.
type ArchivoService struct {
	repo    ArchivoRepo
	blobs   *blobstore.Store
	storage config.StorageConfig
	log     *logger.Logger
}

// NewArchivoService creates a new archivo service
func NewArchivoService(repo ArchivoRepo, blobs *blobstore.Store, storage config.StorageConfig, log *logger.Logger) *ArchivoService {
	return &ArchivoService{
		repo:    repo,
		blobs:   blobs,
		storage: storage,
		log:     log,
	}
}

// UploadInput carries one incoming file and its declared metadata.
type UploadInput struct {
	Reader         io.Reader
	NombreOriginal string
	Tipo           string // MIME type as declared by the transport
	Size           int64  // size as declared by the transport
	Descripcion    string
	Categoria      string
}

// Upload validates the input, writes the blob and inserts the catalog row,
// in that order. If the insert fails after the blob was written, the
// orphaned blob is removed before the error is returned.
func (s *ArchivoService) Upload(ctx context.Context, in UploadInput) (*models.Archivo, error) {
	if in.Reader == nil || in.NombreOriginal == "" {
		return nil, NewValidationError("No se recibio ningun archivo")
	}

	if in.Size > s.storage.MaxFileSizeBytes {
		return nil, NewValidationError("El archivo excede el tamano maximo permitido")
	}

	// Extension and declared MIME must both match the allow-list. This is
	// a UX filter over client-supplied metadata, not a content sniff.
	if !s.typeAllowed(in.NombreOriginal, in.Tipo) {
		return nil, NewValidationError("Tipo de archivo no permitido")
	}

	now := time.Now()
	dest := s.blobs.DestinationFor(now)
	name := s.blobs.NameFor(in.NombreOriginal, now)
	ruta := blobstore.Join(dest, name)

	written, err := s.blobs.Write(in.Reader, ruta)
	if err != nil {
		return nil, fmt.Errorf("store uploaded file: %w", err)
	}

	archivo := &models.Archivo{
		NombreOriginal: in.NombreOriginal,
		NombreGuardado: name,
		Ruta:           ruta,
		Size:           written,
		Tipo:           in.Tipo,
		Categoria:      in.Categoria,
	}
	if archivo.Categoria == "" {
		archivo.Categoria = DefaultCategoria
	}
	if in.Descripcion != "" {
		archivo.Descripcion = &in.Descripcion
	}

	if err := s.repo.Create(ctx, archivo); err != nil {
		// The blob is already on disk; clean it up before surfacing
		// the failure so no orphan is left behind.
		if rmErr := s.blobs.Remove(ruta); rmErr != nil {
			s.log.Error("failed to remove orphaned blob", "ruta", ruta, "error", rmErr)
		}
		return nil, err
	}

	s.log.Info("archivo subido",
		"archivo_id", archivo.ID,
		"nombre", archivo.NombreOriginal,
		"size", archivo.Size,
		"categoria", archivo.Categoria,
	)

	return archivo, nil
}

// List returns one page of archivos plus the total count under the same
// filter. An empty or "todos" categoria disables the filter; a
// non-positive limit disables pagination and returns every matching row.
func (s *ArchivoService) List(ctx context.Context, categoria string, limit, page int) ([]*models.Archivo, int64, error) {
	if categoria == CategoriaTodos {
		categoria = ""
	}

	archivos, err := s.repo.List(ctx, categoria, limit, page)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repo.Count(ctx, categoria)
	if err != nil {
		return nil, 0, err
	}

	return archivos, total, nil
}

// Get retrieves one archivo by id.
func (s *ArchivoService) Get(ctx context.Context, id int64) (*models.Archivo, error) {
	archivo, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrArchivoNotFound
		}
		return nil, err
	}
	return archivo, nil
}

// Resolve looks up an archivo and verifies its blob is present, returning
// the record and the absolute path for streaming. The two failure modes
// stay distinguishable: ErrArchivoNotFound for a missing row,
// ErrBlobNotFound for a row whose file is gone from disk.
func (s *ArchivoService) Resolve(ctx context.Context, id int64) (*models.Archivo, string, error) {
	archivo, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	if !s.blobs.Exists(archivo.Ruta) {
		return nil, "", ErrBlobNotFound
	}

	return archivo, s.blobs.Abs(archivo.Ruta), nil
}

// Search returns archivos whose name, description or category contains the
// term, most recent first.
func (s *ArchivoService) Search(ctx context.Context, term string) ([]*models.Archivo, error) {
	return s.repo.Search(ctx, term)
}

// Delete removes the catalog row, then best-effort removes the blob. A
// physical-delete failure after the row is gone is logged, not surfaced.
func (s *ArchivoService) Delete(ctx context.Context, id int64) error {
	archivo, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.blobs.Remove(archivo.Ruta); err != nil {
		s.log.Warn("failed to remove blob after delete", "archivo_id", id, "ruta", archivo.Ruta, "error", err)
	}

	s.log.Info("archivo eliminado", "archivo_id", id)

	return nil
}

// Categories returns the distinct categories present in the catalog with
// their counts.
func (s *ArchivoService) Categories(ctx context.Context) ([]models.CategoriaCount, error) {
	return s.repo.Categories(ctx)
}

// Statistics aggregates the whole catalog. The total size is rendered in
// megabytes with two decimals and is "0.00" when the catalog is empty.
func (s *ArchivoService) Statistics(ctx context.Context) (*models.Estadisticas, error) {
	total, err := s.repo.CountAll(ctx)
	if err != nil {
		return nil, err
	}

	porCategoria, err := s.repo.CountByCategory(ctx)
	if err != nil {
		return nil, err
	}

	totalBytes, err := s.repo.SumSize(ctx)
	if err != nil {
		return nil, err
	}

	return &models.Estadisticas{
		TotalArchivos: total,
		PorCategoria:  porCategoria,
		TamanoTotalMB: fmt.Sprintf("%.2f", float64(totalBytes)/1024/1024),
	}, nil
}

// typeAllowed applies the extension/MIME allow-list: the extension must be
// listed and the declared MIME string must contain one of the listed
// tokens.
func (s *ArchivoService) typeAllowed(nombre, tipo string) bool {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(nombre), "."))
	tipo = strings.ToLower(tipo)

	extOK := false
	mimeOK := false
	for _, t := range s.storage.AllowedTypes {
		t = strings.ToLower(t)
		if ext == t {
			extOK = true
		}
		if t != "" && strings.Contains(tipo, t) {
			mimeOK = true
		}
	}

	return extOK && mimeOK
}
