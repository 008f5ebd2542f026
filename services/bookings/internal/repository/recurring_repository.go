package repository

import (
	"context"

	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RecurringRepository interface {
	Create(ctx context.Context, rb *domain.RecurringBooking) (*domain.RecurringBooking, error)
	GetByID(ctx context.Context, id int64) (*domain.RecurringBooking, error)
	List(ctx context.Context, status *domain.RecurringStatus, limit, offset int) ([]domain.RecurringBooking, error)
	// Save writes every mutable field of rb.
	Save(ctx context.Context, rb *domain.RecurringBooking) (*domain.RecurringBooking, error)
	Delete(ctx context.Context, id int64) (bool, error)
	// ListDue returns active series whose next occurrence is on or before through.
	ListDue(ctx context.Context, through string) ([]domain.RecurringBooking, error)
}

type recurringRepository struct {
	pool *pgxpool.Pool
}

func NewRecurringRepository(pool *pgxpool.Pool) RecurringRepository {
	return &recurringRepository{pool: pool}
}

const recurringCols = `id, customer_name, email, phone, address, zip_code, service, property_size,
time_slot, frequency, to_char(next_occurrence, 'YYYY-MM-DD'), anchor_day, to_char(end_date, 'YYYY-MM-DD'),
status, notes, stripe_customer_id, payment_method_id, created_at, updated_at`

func scanRecurring(row pgx.Row) (*domain.RecurringBooking, error) {
	var rb domain.RecurringBooking
	var endDate *string
	err := row.Scan(&rb.ID, &rb.CustomerName, &rb.Email, &rb.Phone, &rb.Address, &rb.ZipCode,
		&rb.Service, &rb.PropertySize, &rb.TimeSlot, &rb.Frequency, &rb.NextOccurrence, &rb.AnchorDay, &endDate,
		&rb.Status, &rb.Notes, &rb.StripeCustomerID, &rb.PaymentMethodID, &rb.CreatedAt, &rb.UpdatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rb.EndDate = derefString(endDate)
	return &rb, nil
}

func (r *recurringRepository) queryAll(ctx context.Context, q string, args ...any) ([]domain.RecurringBooking, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RecurringBooking
	for rows.Next() {
		rb, err := scanRecurring(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rb)
	}
	return out, rows.Err()
}

func (r *recurringRepository) Create(ctx context.Context, rb *domain.RecurringBooking) (*domain.RecurringBooking, error) {
	const q = `INSERT INTO recurring_bookings (
		customer_name, email, phone, address, zip_code, service, property_size,
		time_slot, frequency, next_occurrence, end_date, status, notes,
		stripe_customer_id, payment_method_id, anchor_day
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,to_date($10, 'YYYY-MM-DD'),to_date($11, 'YYYY-MM-DD'),$12,$13,$14,$15,$16)
	RETURNING ` + recurringCols
	if rb.Status == "" {
		rb.Status = domain.RecurringActive
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanRecurring(r.pool.QueryRow(ctx, q,
		rb.CustomerName, rb.Email, rb.Phone, rb.Address, rb.ZipCode, rb.Service, rb.PropertySize,
		rb.TimeSlot, rb.Frequency, rb.NextOccurrence, nullDate(rb.EndDate), rb.Status, rb.Notes,
		rb.StripeCustomerID, rb.PaymentMethodID, rb.AnchorDay,
	))
}

func (r *recurringRepository) GetByID(ctx context.Context, id int64) (*domain.RecurringBooking, error) {
	const q = `SELECT ` + recurringCols + ` FROM recurring_bookings WHERE id = $1`
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanRecurring(r.pool.QueryRow(ctx, q, id))
}

func (r *recurringRepository) List(ctx context.Context, status *domain.RecurringStatus, limit, offset int) ([]domain.RecurringBooking, error) {
	limit, offset = clampPage(limit, offset)
	if status != nil {
		const q = `SELECT ` + recurringCols + ` FROM recurring_bookings WHERE status = $1
		ORDER BY next_occurrence LIMIT $2 OFFSET $3`
		return r.queryAll(ctx, q, *status, limit, offset)
	}
	const q = `SELECT ` + recurringCols + ` FROM recurring_bookings
	ORDER BY next_occurrence LIMIT $1 OFFSET $2`
	return r.queryAll(ctx, q, limit, offset)
}

func (r *recurringRepository) Save(ctx context.Context, rb *domain.RecurringBooking) (*domain.RecurringBooking, error) {
	const q = `UPDATE recurring_bookings SET
		time_slot = $2, frequency = $3, next_occurrence = to_date($4, 'YYYY-MM-DD'),
		end_date = to_date($5, 'YYYY-MM-DD'), status = $6, notes = $7, anchor_day = $8, updated_at = now()
	WHERE id = $1
	RETURNING ` + recurringCols
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanRecurring(r.pool.QueryRow(ctx, q, rb.ID, rb.TimeSlot, rb.Frequency, rb.NextOccurrence,
		nullDate(rb.EndDate), rb.Status, rb.Notes, rb.AnchorDay))
}

func (r *recurringRepository) Delete(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	tag, err := r.pool.Exec(ctx, `DELETE FROM recurring_bookings WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *recurringRepository) ListDue(ctx context.Context, through string) ([]domain.RecurringBooking, error) {
	const q = `SELECT ` + recurringCols + ` FROM recurring_bookings
	WHERE status = 'active' AND next_occurrence <= to_date($1, 'YYYY-MM-DD')
	ORDER BY next_occurrence, id`
	return r.queryAll(ctx, q, through)
}
