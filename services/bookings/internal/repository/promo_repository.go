package repository

import (
	"context"
	"fmt"

	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PromoRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.PromoCode, error)
	GetByID(ctx context.Context, id int64) (*domain.PromoCode, error)
	List(ctx context.Context, limit, offset int) ([]domain.PromoCode, error)
	Create(ctx context.Context, in domain.PromoCodeInput) (*domain.PromoCode, error)
	Update(ctx context.Context, id int64, in domain.PromoCodeInput) (*domain.PromoCode, error)
	Delete(ctx context.Context, id int64) (bool, error)
	// IncrementUsage counts one use and reports false when the code is
	// already at its usage limit.
	IncrementUsage(ctx context.Context, id int64) (bool, error)
	// ReleaseUsage returns a use taken by IncrementUsage.
	ReleaseUsage(ctx context.Context, id int64) error
}

type promoRepository struct {
	pool *pgxpool.Pool
}

func NewPromoRepository(pool *pgxpool.Pool) PromoRepository {
	return &promoRepository{pool: pool}
}

const promoCols = `id, code, description, discount_type, discount_value, min_subtotal_cents,
valid_from, valid_until, max_uses, usage_count, is_active, created_at, updated_at`

func scanPromo(row pgx.Row) (*domain.PromoCode, error) {
	var p domain.PromoCode
	err := row.Scan(&p.ID, &p.Code, &p.Description, &p.DiscountType, &p.DiscountValue, &p.MinSubtotalCents,
		&p.ValidFrom, &p.ValidUntil, &p.MaxUses, &p.UsageCount, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *promoRepository) GetByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	const q = `SELECT ` + promoCols + ` FROM promo_codes WHERE upper(code) = upper($1)`
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanPromo(r.pool.QueryRow(ctx, q, code))
}

func (r *promoRepository) GetByID(ctx context.Context, id int64) (*domain.PromoCode, error) {
	const q = `SELECT ` + promoCols + ` FROM promo_codes WHERE id = $1`
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanPromo(r.pool.QueryRow(ctx, q, id))
}

func (r *promoRepository) List(ctx context.Context, limit, offset int) ([]domain.PromoCode, error) {
	limit, offset = clampPage(limit, offset)
	const q = `SELECT ` + promoCols + ` FROM promo_codes ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PromoCode
	for rows.Next() {
		p, err := scanPromo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *promoRepository) Create(ctx context.Context, in domain.PromoCodeInput) (*domain.PromoCode, error) {
	const q = `INSERT INTO promo_codes (code, description, discount_type, discount_value,
		min_subtotal_cents, valid_from, valid_until, max_uses, is_active)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	RETURNING ` + promoCols
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	p, err := scanPromo(r.pool.QueryRow(ctx, q, in.Code, in.Description, in.DiscountType, in.DiscountValue,
		in.MinSubtotalCents, in.ValidFrom, in.ValidUntil, in.MaxUses, in.IsActive))
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("promo code %s: %w", in.Code, domain.ErrDuplicate)
	}
	return p, err
}

func (r *promoRepository) Update(ctx context.Context, id int64, in domain.PromoCodeInput) (*domain.PromoCode, error) {
	const q = `UPDATE promo_codes SET code=$2, description=$3, discount_type=$4, discount_value=$5,
		min_subtotal_cents=$6, valid_from=$7, valid_until=$8, max_uses=$9, is_active=$10, updated_at=now()
	WHERE id=$1
	RETURNING ` + promoCols
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	p, err := scanPromo(r.pool.QueryRow(ctx, q, id, in.Code, in.Description, in.DiscountType, in.DiscountValue,
		in.MinSubtotalCents, in.ValidFrom, in.ValidUntil, in.MaxUses, in.IsActive))
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("promo code %s: %w", in.Code, domain.ErrDuplicate)
	}
	return p, err
}

func (r *promoRepository) Delete(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	tag, err := r.pool.Exec(ctx, `DELETE FROM promo_codes WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *promoRepository) IncrementUsage(ctx context.Context, id int64) (bool, error) {
	const q = `UPDATE promo_codes SET usage_count = usage_count + 1, updated_at = now()
	WHERE id = $1 AND (max_uses IS NULL OR usage_count < max_uses)`
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *promoRepository) ReleaseUsage(ctx context.Context, id int64) error {
	const q = `UPDATE promo_codes SET usage_count = usage_count - 1, updated_at = now()
	WHERE id = $1 AND usage_count > 0`
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	_, err := r.pool.Exec(ctx, q, id)
	return err
}
