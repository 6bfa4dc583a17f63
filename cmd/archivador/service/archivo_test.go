package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/sistemas-ti/archivador/cmd/archivador/models"
	"github.com/sistemas-ti/archivador/common/blobstore"
	"github.com/sistemas-ti/archivador/common/config"
	"github.com/sistemas-ti/archivador/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRepo implements ArchivoRepo with overridable behavior per test.
type stubRepo struct {
	createFn          func(ctx context.Context, a *models.Archivo) error
	getByIDFn         func(ctx context.Context, id int64) (*models.Archivo, error)
	listFn            func(ctx context.Context, categoria string, limit, page int) ([]*models.Archivo, error)
	countFn           func(ctx context.Context, categoria string) (int64, error)
	searchFn          func(ctx context.Context, term string) ([]*models.Archivo, error)
	deleteFn          func(ctx context.Context, id int64) error
	categoriesFn      func(ctx context.Context) ([]models.CategoriaCount, error)
	countAllFn        func(ctx context.Context) (int64, error)
	countByCategoryFn func(ctx context.Context) ([]models.CategoriaCantidad, error)
	sumSizeFn         func(ctx context.Context) (int64, error)
}

func (s *stubRepo) Create(ctx context.Context, a *models.Archivo) error {
	if s.createFn != nil {
		return s.createFn(ctx, a)
	}
	a.ID = 1
	return nil
}

func (s *stubRepo) GetByID(ctx context.Context, id int64) (*models.Archivo, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return nil, fmt.Errorf("failed to get archivo %d: %w", id, pgx.ErrNoRows)
}

func (s *stubRepo) List(ctx context.Context, categoria string, limit, page int) ([]*models.Archivo, error) {
	if s.listFn != nil {
		return s.listFn(ctx, categoria, limit, page)
	}
	return nil, nil
}

func (s *stubRepo) Count(ctx context.Context, categoria string) (int64, error) {
	if s.countFn != nil {
		return s.countFn(ctx, categoria)
	}
	return 0, nil
}

func (s *stubRepo) Search(ctx context.Context, term string) ([]*models.Archivo, error) {
	if s.searchFn != nil {
		return s.searchFn(ctx, term)
	}
	return nil, nil
}

func (s *stubRepo) Delete(ctx context.Context, id int64) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}

func (s *stubRepo) Categories(ctx context.Context) ([]models.CategoriaCount, error) {
	if s.categoriesFn != nil {
		return s.categoriesFn(ctx)
	}
	return []models.CategoriaCount{}, nil
}

func (s *stubRepo) CountAll(ctx context.Context) (int64, error) {
	if s.countAllFn != nil {
		return s.countAllFn(ctx)
	}
	return 0, nil
}

func (s *stubRepo) CountByCategory(ctx context.Context) ([]models.CategoriaCantidad, error) {
	if s.countByCategoryFn != nil {
		return s.countByCategoryFn(ctx)
	}
	return []models.CategoriaCantidad{}, nil
}

func (s *stubRepo) SumSize(ctx context.Context) (int64, error) {
	if s.sumSizeFn != nil {
		return s.sumSizeFn(ctx)
	}
	return 0, nil
}

func testStorage() config.StorageConfig {
	return config.StorageConfig{
		MaxFileSizeBytes: 10 << 20,
		AllowedTypes: []string{
			"jpeg", "jpg", "png", "gif", "pdf",
			"doc", "docx", "xls", "xlsx", "zip", "rar",
		},
	}
}

func newTestService(t *testing.T, repo ArchivoRepo) (*ArchivoService, *blobstore.Store) {
	t.Helper()
	blobs, err := blobstore.New(t.TempDir())
	require.NoError(t, err)
	return NewArchivoService(repo, blobs, testStorage(), logger.New("error", "text")), blobs
}

// blobCount walks the store root counting regular files outside the temp
// staging directory.
func blobCount(t *testing.T, blobs *blobstore.Store) int {
	t.Helper()
	count := 0
	err := filepath.WalkDir(blobs.Root(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".tmp" {
				return filepath.SkipDir
			}
			return nil
		}
		count++
		return nil
	})
	require.NoError(t, err)
	return count
}

func TestUploadHappyPath(t *testing.T) {
	var created *models.Archivo
	repo := &stubRepo{
		createFn: func(_ context.Context, a *models.Archivo) error {
			a.ID = 42
			created = a
			return nil
		},
	}
	svc, blobs := newTestService(t, repo)

	archivo, err := svc.Upload(context.Background(), UploadInput{
		Reader:         strings.NewReader("bytes del escaneo"),
		NombreOriginal: "informe anual.pdf",
		Tipo:           "application/pdf",
		Size:           17,
		Descripcion:    "informe de gestion",
		Categoria:      "informes",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(42), archivo.ID)
	assert.Equal(t, "informe anual.pdf", archivo.NombreOriginal)
	assert.Equal(t, "informes", archivo.Categoria)
	assert.Equal(t, "application/pdf", archivo.Tipo)
	assert.Equal(t, int64(len("bytes del escaneo")), archivo.Size)
	require.NotNil(t, archivo.Descripcion)
	assert.Equal(t, "informe de gestion", *archivo.Descripcion)

	// stored name keeps the extension and the sanitized base
	assert.True(t, strings.HasPrefix(archivo.NombreGuardado, "informe_anual-"))
	assert.True(t, strings.HasSuffix(archivo.NombreGuardado, ".pdf"))

	// the row points at a blob that exists under the root
	assert.True(t, blobs.Exists(archivo.Ruta))
	assert.NotNil(t, created)
}

func TestUploadDefaultsCategoria(t *testing.T) {
	svc, _ := newTestService(t, &stubRepo{})

	archivo, err := svc.Upload(context.Background(), UploadInput{
		Reader:         strings.NewReader("x"),
		NombreOriginal: "foto.jpg",
		Tipo:           "image/jpeg",
		Size:           1,
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultCategoria, archivo.Categoria)
	assert.Nil(t, archivo.Descripcion)
}

func TestUploadRejectsDisallowedExtension(t *testing.T) {
	createCalled := false
	repo := &stubRepo{
		createFn: func(context.Context, *models.Archivo) error {
			createCalled = true
			return nil
		},
	}
	svc, blobs := newTestService(t, repo)

	_, err := svc.Upload(context.Background(), UploadInput{
		Reader:         strings.NewReader("#!/bin/sh"),
		NombreOriginal: "script.sh",
		Tipo:           "application/x-sh",
		Size:           9,
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Tipo de archivo no permitido", verr.Reason)

	// rejection happens before any store interaction
	assert.False(t, createCalled)
	assert.Zero(t, blobCount(t, blobs))
}

func TestUploadRejectsMismatchedMime(t *testing.T) {
	svc, blobs := newTestService(t, &stubRepo{})

	// extension is allowed, declared MIME is not: both must match
	_, err := svc.Upload(context.Background(), UploadInput{
		Reader:         strings.NewReader("MZ"),
		NombreOriginal: "programa.pdf",
		Tipo:           "application/x-msdownload",
		Size:           2,
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, blobCount(t, blobs))
}

func TestUploadRejectsOversize(t *testing.T) {
	svc, blobs := newTestService(t, &stubRepo{})

	_, err := svc.Upload(context.Background(), UploadInput{
		Reader:         strings.NewReader("..."),
		NombreOriginal: "grande.pdf",
		Tipo:           "application/pdf",
		Size:           11 << 20,
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, blobCount(t, blobs))
}

func TestUploadRejectsMissingFile(t *testing.T) {
	svc, _ := newTestService(t, &stubRepo{})

	_, err := svc.Upload(context.Background(), UploadInput{})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "No se recibio ningun archivo", verr.Reason)
}

func TestUploadCleansOrphanOnInsertFailure(t *testing.T) {
	repo := &stubRepo{
		createFn: func(context.Context, *models.Archivo) error {
			return errors.New("deadlock detected")
		},
	}
	svc, blobs := newTestService(t, repo)

	_, err := svc.Upload(context.Background(), UploadInput{
		Reader:         strings.NewReader("contenido"),
		NombreOriginal: "huerfano.pdf",
		Tipo:           "application/pdf",
		Size:           9,
	})
	require.Error(t, err)

	// the just-written blob must be gone
	assert.Zero(t, blobCount(t, blobs))
}

func TestListTodosDisablesFilter(t *testing.T) {
	var gotCategoria string
	repo := &stubRepo{
		listFn: func(_ context.Context, categoria string, _, _ int) ([]*models.Archivo, error) {
			gotCategoria = categoria
			return []*models.Archivo{{ID: 1}}, nil
		},
		countFn: func(_ context.Context, categoria string) (int64, error) {
			assert.Equal(t, gotCategoria, categoria, "list and count must share the predicate")
			return 1, nil
		},
	}
	svc, _ := newTestService(t, repo)

	archivos, total, err := svc.List(context.Background(), CategoriaTodos, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "", gotCategoria)
	assert.Equal(t, int64(1), total)
	assert.Len(t, archivos, 1)
}

func TestGetNotFound(t *testing.T) {
	svc, _ := newTestService(t, &stubRepo{})

	_, err := svc.Get(context.Background(), 404)
	assert.ErrorIs(t, err, ErrArchivoNotFound)
}

func TestResolveDistinguishesMissingBlob(t *testing.T) {
	repo := &stubRepo{
		getByIDFn: func(_ context.Context, id int64) (*models.Archivo, error) {
			return &models.Archivo{ID: id, Ruta: "2025/01/desaparecido.pdf"}, nil
		},
	}
	svc, _ := newTestService(t, repo)

	// the row exists but its blob does not: a different 404 than Get
	_, _, err := svc.Resolve(context.Background(), 8)
	assert.ErrorIs(t, err, ErrBlobNotFound)
	assert.NotErrorIs(t, err, ErrArchivoNotFound)
}

func TestResolveReturnsAbsolutePath(t *testing.T) {
	repo := &stubRepo{
		getByIDFn: func(_ context.Context, id int64) (*models.Archivo, error) {
			return &models.Archivo{ID: id, Ruta: "2025/02/scan.png"}, nil
		},
	}
	svc, blobs := newTestService(t, repo)

	_, err := blobs.Write(strings.NewReader("png"), "2025/02/scan.png")
	require.NoError(t, err)

	_, path, err := svc.Resolve(context.Background(), 3)
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestDeleteNotFound(t *testing.T) {
	svc, _ := newTestService(t, &stubRepo{})

	err := svc.Delete(context.Background(), 12345)
	assert.ErrorIs(t, err, ErrArchivoNotFound)
}

func TestDeleteRemovesRowThenBlob(t *testing.T) {
	deleted := false
	repo := &stubRepo{
		getByIDFn: func(_ context.Context, id int64) (*models.Archivo, error) {
			return &models.Archivo{ID: id, Ruta: "2025/03/borrar.pdf"}, nil
		},
		deleteFn: func(_ context.Context, id int64) error {
			deleted = true
			return nil
		},
	}
	svc, blobs := newTestService(t, repo)

	_, err := blobs.Write(strings.NewReader("pdf"), "2025/03/borrar.pdf")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), 6))
	assert.True(t, deleted)
	assert.False(t, blobs.Exists("2025/03/borrar.pdf"))
}

func TestDeleteSurvivesMissingBlob(t *testing.T) {
	repo := &stubRepo{
		getByIDFn: func(_ context.Context, id int64) (*models.Archivo, error) {
			return &models.Archivo{ID: id, Ruta: "2025/04/ya-no-esta.pdf"}, nil
		},
	}
	svc, _ := newTestService(t, repo)

	// row removal succeeds even though there is no blob to remove
	require.NoError(t, svc.Delete(context.Background(), 9))
}

func TestStatisticsEmptyCatalog(t *testing.T) {
	svc, _ := newTestService(t, &stubRepo{})

	stats, err := svc.Statistics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(0), stats.TotalArchivos)
	assert.Empty(t, stats.PorCategoria)
	assert.Equal(t, "0.00", stats.TamanoTotalMB)
}

func TestStatisticsFormatsMegabytes(t *testing.T) {
	repo := &stubRepo{
		countAllFn: func(context.Context) (int64, error) { return 3, nil },
		sumSizeFn:  func(context.Context) (int64, error) { return 5*1024*1024 + 512*1024, nil },
		countByCategoryFn: func(context.Context) ([]models.CategoriaCantidad, error) {
			return []models.CategoriaCantidad{{Categoria: "general", Cantidad: 3}}, nil
		},
	}
	svc, _ := newTestService(t, repo)

	stats, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "5.50", stats.TamanoTotalMB)
	assert.Equal(t, int64(3), stats.TotalArchivos)
}
