package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CustomerRepository interface {
	// UpsertByEmail creates the customer on first booking, otherwise refreshes
	// contact details and bumps the booking count. ReferralCode is only used
	// on insert.
	UpsertByEmail(ctx context.Context, c *domain.Customer) (*domain.Customer, error)
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	GetByReferralCode(ctx context.Context, code string) (*domain.Customer, error)
	List(ctx context.Context, search string, limit, offset int) ([]domain.Customer, error)
	Update(ctx context.Context, id int64, patch domain.CustomerPatch) (*domain.Customer, error)
}

type customerRepository struct {
	pool *pgxpool.Pool
}

func NewCustomerRepository(pool *pgxpool.Pool) CustomerRepository {
	return &customerRepository{pool: pool}
}

const customerCols = `id, name, email, phone, address, zip_code, referral_code, notes, total_bookings, created_at, updated_at`

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.ZipCode,
		&c.ReferralCode, &c.Notes, &c.TotalBookings, &c.CreatedAt, &c.UpdatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *customerRepository) UpsertByEmail(ctx context.Context, c *domain.Customer) (*domain.Customer, error) {
	const q = `INSERT INTO customers (name, email, phone, address, zip_code, referral_code, total_bookings)
	VALUES ($1, lower($2), $3, $4, $5, $6, 1)
	ON CONFLICT (email) DO UPDATE SET
		name = EXCLUDED.name, phone = EXCLUDED.phone, address = EXCLUDED.address,
		zip_code = EXCLUDED.zip_code, total_bookings = customers.total_bookings + 1,
		updated_at = now()
	RETURNING ` + customerCols
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanCustomer(r.pool.QueryRow(ctx, q, c.Name, c.Email, c.Phone, c.Address, c.ZipCode, c.ReferralCode))
}

func (r *customerRepository) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	const q = `SELECT ` + customerCols + ` FROM customers WHERE id = $1`
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanCustomer(r.pool.QueryRow(ctx, q, id))
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	const q = `SELECT ` + customerCols + ` FROM customers WHERE email = lower($1)`
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanCustomer(r.pool.QueryRow(ctx, q, email))
}

func (r *customerRepository) GetByReferralCode(ctx context.Context, code string) (*domain.Customer, error) {
	const q = `SELECT ` + customerCols + ` FROM customers WHERE referral_code = upper($1)`
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanCustomer(r.pool.QueryRow(ctx, q, code))
}

func (r *customerRepository) List(ctx context.Context, search string, limit, offset int) ([]domain.Customer, error) {
	limit, offset = clampPage(limit, offset)
	sb := psql.Select(customerCols).From("customers")
	if search != "" {
		like := "%" + search + "%"
		sb = sb.Where(squirrel.Or{
			squirrel.ILike{"name": like},
			squirrel.ILike{"email": like},
			squirrel.ILike{"phone": like},
		})
	}
	q, args, err := sb.OrderBy("created_at DESC").Limit(uint64(limit)).Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build customer list: %w", err)
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *customerRepository) Update(ctx context.Context, id int64, patch domain.CustomerPatch) (*domain.Customer, error) {
	ub := psql.Update("customers").Set("updated_at", squirrel.Expr("now()"))
	if patch.Name != nil {
		ub = ub.Set("name", *patch.Name)
	}
	if patch.Phone != nil {
		ub = ub.Set("phone", *patch.Phone)
	}
	if patch.Address != nil {
		ub = ub.Set("address", *patch.Address)
	}
	if patch.ZipCode != nil {
		ub = ub.Set("zip_code", *patch.ZipCode)
	}
	if patch.Notes != nil {
		ub = ub.Set("notes", *patch.Notes)
	}
	q, args, err := ub.Where(squirrel.Eq{"id": id}).Suffix("RETURNING " + customerCols).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build customer update: %w", err)
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanCustomer(r.pool.QueryRow(ctx, q, args...))
}
