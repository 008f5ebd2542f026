package repository

import (
	"context"

	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CapacityRepository interface {
	// ForDate returns capacity overrides keyed by time slot.
	ForDate(ctx context.Context, date string) (map[string]int, error)
	List(ctx context.Context, from, to string) ([]domain.CapacityOverride, error)
	Upsert(ctx context.Context, o *domain.CapacityOverride) (*domain.CapacityOverride, error)
	Delete(ctx context.Context, id int64) (*domain.CapacityOverride, error)
}

type capacityRepository struct {
	pool *pgxpool.Pool
}

func NewCapacityRepository(pool *pgxpool.Pool) CapacityRepository {
	return &capacityRepository{pool: pool}
}

const overrideCols = `id, to_char(slot_date, 'YYYY-MM-DD'), time_slot, capacity, created_at`

func (r *capacityRepository) ForDate(ctx context.Context, date string) (map[string]int, error) {
	const q = `SELECT time_slot, capacity FROM slot_capacity_overrides WHERE slot_date = to_date($1, 'YYYY-MM-DD')`
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var slot string
		var capacity int
		if err := rows.Scan(&slot, &capacity); err != nil {
			return nil, err
		}
		out[slot] = capacity
	}
	return out, rows.Err()
}

func (r *capacityRepository) List(ctx context.Context, from, to string) ([]domain.CapacityOverride, error) {
	sb := psql.Select(overrideCols).From("slot_capacity_overrides")
	if from != "" {
		sb = sb.Where("slot_date >= to_date(?, 'YYYY-MM-DD')", from)
	}
	if to != "" {
		sb = sb.Where("slot_date <= to_date(?, 'YYYY-MM-DD')", to)
	}
	q, args, err := sb.OrderBy("slot_date", "time_slot").ToSql()
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CapacityOverride
	for rows.Next() {
		var o domain.CapacityOverride
		if err := rows.Scan(&o.ID, &o.Date, &o.TimeSlot, &o.Capacity, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *capacityRepository) Upsert(ctx context.Context, o *domain.CapacityOverride) (*domain.CapacityOverride, error) {
	const q = `INSERT INTO slot_capacity_overrides (slot_date, time_slot, capacity)
	VALUES (to_date($1, 'YYYY-MM-DD'), $2, $3)
	ON CONFLICT (slot_date, time_slot) DO UPDATE SET capacity = EXCLUDED.capacity
	RETURNING ` + overrideCols
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var out domain.CapacityOverride
	err := r.pool.QueryRow(ctx, q, o.Date, o.TimeSlot, o.Capacity).
		Scan(&out.ID, &out.Date, &out.TimeSlot, &out.Capacity, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *capacityRepository) Delete(ctx context.Context, id int64) (*domain.CapacityOverride, error) {
	const q = `DELETE FROM slot_capacity_overrides WHERE id = $1 RETURNING ` + overrideCols
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var out domain.CapacityOverride
	err := r.pool.QueryRow(ctx, q, id).Scan(&out.ID, &out.Date, &out.TimeSlot, &out.Capacity, &out.CreatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
