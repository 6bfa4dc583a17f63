package repository

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sistemas-ti/archivador/cmd/archivador/models"
)

//go:embed schema.sql
var schemaSQL string

// Querier is the subset of the pgx pool interface the repository needs.
// Satisfied by *db.DB and by pgxmock pools in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ArchivoRepository handles database operations for the archivos catalog
type ArchivoRepository struct {
	db Querier
}

// NewArchivoRepository creates a new archivo repository
func NewArchivoRepository(db Querier) *ArchivoRepository {
	return &ArchivoRepository{db: db}
}

// EnsureSchema creates the archivos table and its indexes if absent.
// Run once at startup through the bootstrap DB init hook.
func EnsureSchema(ctx context.Context, db Querier) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure archivos schema: %w", err)
	}
	return nil
}

const archivoColumns = `id, nombre_original, nombre_guardado, ruta, size, tipo, descripcion, categoria, fecha`

// Create inserts a new archivo; the store assigns id and fecha.
func (r *ArchivoRepository) Create(ctx context.Context, a *models.Archivo) error {
	query := `
		INSERT INTO archivos (nombre_original, nombre_guardado, ruta, size, tipo, descripcion, categoria, fecha)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, fecha
	`

	err := r.db.QueryRow(ctx, query,
		a.NombreOriginal,
		a.NombreGuardado,
		a.Ruta,
		a.Size,
		a.Tipo,
		a.Descripcion,
		a.Categoria,
	).Scan(&a.ID, &a.Fecha)

	if err != nil {
		return fmt.Errorf("failed to create archivo: %w", err)
	}

	return nil
}

// GetByID retrieves an archivo by id. A missing row surfaces as a wrapped
// pgx.ErrNoRows.
func (r *ArchivoRepository) GetByID(ctx context.Context, id int64) (*models.Archivo, error) {
	query := `SELECT ` + archivoColumns + ` FROM archivos WHERE id = $1`

	a := &models.Archivo{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.NombreOriginal,
		&a.NombreGuardado,
		&a.Ruta,
		&a.Size,
		&a.Tipo,
		&a.Descripcion,
		&a.Categoria,
		&a.Fecha,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get archivo %d: %w", id, err)
	}

	return a, nil
}

// List retrieves archivos ordered by fecha descending. An empty categoria
// means no filter. A non-positive limit returns every matching row;
// otherwise rows are paginated with OFFSET (page-1)*limit.
func (r *ArchivoRepository) List(ctx context.Context, categoria string, limit, page int) ([]*models.Archivo, error) {
	query := `SELECT ` + archivoColumns + ` FROM archivos`
	args := []any{}

	if categoria != "" {
		args = append(args, categoria)
		query += fmt.Sprintf(" WHERE categoria = $%d", len(args))
	}

	query += " ORDER BY fecha DESC"

	if limit > 0 {
		if page < 1 {
			page = 1
		}
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, (page-1)*limit)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list archivos: %w", err)
	}
	defer rows.Close()

	return scanArchivos(rows)
}

// Count returns the number of rows matching the same predicate List uses,
// so pagination totals stay consistent with the returned page.
func (r *ArchivoRepository) Count(ctx context.Context, categoria string) (int64, error) {
	query := `SELECT COUNT(*) FROM archivos`
	args := []any{}

	if categoria != "" {
		args = append(args, categoria)
		query += fmt.Sprintf(" WHERE categoria = $%d", len(args))
	}

	var total int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count archivos: %w", err)
	}

	return total, nil
}

// Search retrieves archivos whose nombre_original, descripcion or
// categoria contains the term, ordered by fecha descending. No pagination.
func (r *ArchivoRepository) Search(ctx context.Context, term string) ([]*models.Archivo, error) {
	query := `
		SELECT ` + archivoColumns + `
		FROM archivos
		WHERE nombre_original ILIKE $1
		   OR descripcion ILIKE $1
		   OR categoria ILIKE $1
		ORDER BY fecha DESC
	`

	rows, err := r.db.Query(ctx, query, "%"+term+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to search archivos: %w", err)
	}
	defer rows.Close()

	return scanArchivos(rows)
}

// Delete removes an archivo row. Deleting an already-absent row is not an
// error; not-found is decided by the caller's preceding lookup.
func (r *ArchivoRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM archivos WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete archivo %d: %w", id, err)
	}

	return nil
}

// Categories returns the distinct categories with their row counts.
func (r *ArchivoRepository) Categories(ctx context.Context) ([]models.CategoriaCount, error) {
	query := `
		SELECT categoria, COUNT(*) AS total
		FROM archivos
		GROUP BY categoria
		ORDER BY categoria
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categorias := []models.CategoriaCount{}
	for rows.Next() {
		var c models.CategoriaCount
		if err := rows.Scan(&c.Categoria, &c.Total); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categorias = append(categorias, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categorias, nil
}

// CountAll returns the total number of archivos.
func (r *ArchivoRepository) CountAll(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM archivos`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count archivos: %w", err)
	}
	return total, nil
}

// CountByCategory returns per-category row counts for the statistics view.
func (r *ArchivoRepository) CountByCategory(ctx context.Context) ([]models.CategoriaCantidad, error) {
	query := `
		SELECT categoria, COUNT(*) AS cantidad
		FROM archivos
		GROUP BY categoria
		ORDER BY categoria
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count by category: %w", err)
	}
	defer rows.Close()

	counts := []models.CategoriaCantidad{}
	for rows.Next() {
		var c models.CategoriaCantidad
		if err := rows.Scan(&c.Categoria, &c.Cantidad); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category counts: %w", err)
	}

	return counts, nil
}

// SumSize returns the total stored bytes across all archivos. COALESCE
// keeps an empty catalog at zero instead of NULL.
func (r *ArchivoRepository) SumSize(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(size), 0) FROM archivos`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum archivo sizes: %w", err)
	}
	return total, nil
}

func scanArchivos(rows pgx.Rows) ([]*models.Archivo, error) {
	var archivos []*models.Archivo
	for rows.Next() {
		a := &models.Archivo{}
		err := rows.Scan(
			&a.ID,
			&a.NombreOriginal,
			&a.NombreGuardado,
			&a.Ruta,
			&a.Size,
			&a.Tipo,
			&a.Descripcion,
			&a.Categoria,
			&a.Fecha,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan archivo: %w", err)
		}
		archivos = append(archivos, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating archivos: %w", err)
	}

	return archivos, nil
}
