package repository

import (
	"context"

	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AreaRepository interface {
	List(ctx context.Context, activeOnly bool) ([]domain.ServiceArea, error)
	GetByID(ctx context.Context, id int64) (*domain.ServiceArea, error)
	// FindByZip returns the first active area serving zip, or nil.
	FindByZip(ctx context.Context, zip string) (*domain.ServiceArea, error)
	Create(ctx context.Context, a *domain.ServiceArea) (*domain.ServiceArea, error)
	Update(ctx context.Context, id int64, a *domain.ServiceArea) (*domain.ServiceArea, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type areaRepository struct {
	pool *pgxpool.Pool
}

func NewAreaRepository(pool *pgxpool.Pool) AreaRepository {
	return &areaRepository{pool: pool}
}

const areaCols = `id, name, zip_codes, is_active, created_at, updated_at`

func scanArea(row pgx.Row) (*domain.ServiceArea, error) {
	var a domain.ServiceArea
	err := row.Scan(&a.ID, &a.Name, &a.ZipCodes, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *areaRepository) List(ctx context.Context, activeOnly bool) ([]domain.ServiceArea, error) {
	q := `SELECT ` + areaCols + ` FROM service_areas`
	if activeOnly {
		q += ` WHERE is_active`
	}
	q += ` ORDER BY name`

	ctx, cancel := withTimeout(ctx)
	defer cancel()
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ServiceArea
	for rows.Next() {
		a, err := scanArea(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *areaRepository) GetByID(ctx context.Context, id int64) (*domain.ServiceArea, error) {
	const q = `SELECT ` + areaCols + ` FROM service_areas WHERE id = $1`
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanArea(r.pool.QueryRow(ctx, q, id))
}

func (r *areaRepository) FindByZip(ctx context.Context, zip string) (*domain.ServiceArea, error) {
	const q = `SELECT ` + areaCols + ` FROM service_areas
	WHERE is_active AND $1 = ANY(zip_codes) ORDER BY id LIMIT 1`
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanArea(r.pool.QueryRow(ctx, q, zip))
}

func (r *areaRepository) Create(ctx context.Context, a *domain.ServiceArea) (*domain.ServiceArea, error) {
	const q = `INSERT INTO service_areas (name, zip_codes, is_active) VALUES ($1, $2, $3) RETURNING ` + areaCols
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanArea(r.pool.QueryRow(ctx, q, a.Name, a.ZipCodes, a.IsActive))
}

func (r *areaRepository) Update(ctx context.Context, id int64, a *domain.ServiceArea) (*domain.ServiceArea, error) {
	const q = `UPDATE service_areas SET name = $2, zip_codes = $3, is_active = $4, updated_at = now()
	WHERE id = $1 RETURNING ` + areaCols
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanArea(r.pool.QueryRow(ctx, q, id, a.Name, a.ZipCodes, a.IsActive))
}

func (r *areaRepository) Delete(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	tag, err := r.pool.Exec(ctx, `DELETE FROM service_areas WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
