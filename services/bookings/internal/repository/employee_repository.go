package repository

import (
	"context"
	"fmt"

	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EmployeeRepository interface {
	Create(ctx context.Context, e *domain.Employee) (*domain.Employee, error)
	GetByID(ctx context.Context, id int64) (*domain.Employee, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Employee, error)
	Update(ctx context.Context, id int64, e *domain.Employee) (*domain.Employee, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type employeeRepository struct {
	pool *pgxpool.Pool
}

func NewEmployeeRepository(pool *pgxpool.Pool) EmployeeRepository {
	return &employeeRepository{pool: pool}
}

const employeeCols = `id, name, email, phone, position, permissions, is_active, created_at, updated_at`

func scanEmployee(row pgx.Row) (*domain.Employee, error) {
	var e domain.Employee
	err := row.Scan(&e.ID, &e.Name, &e.Email, &e.Phone, &e.Position, &e.Permissions,
		&e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *employeeRepository) Create(ctx context.Context, e *domain.Employee) (*domain.Employee, error) {
	const q = `INSERT INTO employees (name, email, phone, position, permissions, is_active)
	VALUES ($1, lower($2), $3, $4, $5, $6) RETURNING ` + employeeCols
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	perms := e.Permissions
	if perms == nil {
		perms = []string{}
	}
	out, err := scanEmployee(r.pool.QueryRow(ctx, q, e.Name, e.Email, e.Phone, e.Position, perms, e.IsActive))
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("employee %s: %w", e.Email, domain.ErrDuplicate)
	}
	return out, err
}

func (r *employeeRepository) GetByID(ctx context.Context, id int64) (*domain.Employee, error) {
	const q = `SELECT ` + employeeCols + ` FROM employees WHERE id = $1`
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanEmployee(r.pool.QueryRow(ctx, q, id))
}

func (r *employeeRepository) List(ctx context.Context, activeOnly bool) ([]domain.Employee, error) {
	q := `SELECT ` + employeeCols + ` FROM employees`
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

	var out []domain.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *employeeRepository) Update(ctx context.Context, id int64, e *domain.Employee) (*domain.Employee, error) {
	const q = `UPDATE employees SET name = $2, email = lower($3), phone = $4, position = $5,
		permissions = $6, is_active = $7, updated_at = now()
	WHERE id = $1 RETURNING ` + employeeCols
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	perms := e.Permissions
	if perms == nil {
		perms = []string{}
	}
	out, err := scanEmployee(r.pool.QueryRow(ctx, q, id, e.Name, e.Email, e.Phone, e.Position, perms, e.IsActive))
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("employee %s: %w", e.Email, domain.ErrDuplicate)
	}
	return out, err
}

func (r *employeeRepository) Delete(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	tag, err := r.pool.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
