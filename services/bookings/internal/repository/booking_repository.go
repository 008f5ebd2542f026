package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Cancellation is what gets stamped on a booking when it is cancelled.
type Cancellation struct {
	Reason    string
	FeeStatus domain.FeeStatus
	FeeCents  int64
	At        time.Time
}

type BookingRepository interface {
	// CreateWithinCapacity inserts b unless its slot already holds capacity
	// active bookings, in which case it returns domain.ErrSlotFull.
	CreateWithinCapacity(ctx context.Context, b *domain.Booking, capacity int) (*domain.Booking, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetByToken(ctx context.Context, token string) (*domain.Booking, error)
	List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error)
	// CountBySlot returns active bookings per time slot on date.
	CountBySlot(ctx context.Context, date string) (map[string]int, error)
	Update(ctx context.Context, id int64, patch domain.BookingPatch) (*domain.Booking, error)
	MoveWithinCapacity(ctx context.Context, id int64, date, timeSlot string, capacity int) (*domain.Booking, error)
	// Cancel returns nil, nil when the booking is missing or already closed.
	Cancel(ctx context.Context, id int64, c Cancellation) (*domain.Booking, error)
	// SetFeeStatus moves the fee from one status to another and returns nil, nil
	// when the fee was not in the from status.
	SetFeeStatus(ctx context.Context, id int64, from, to domain.FeeStatus) (*domain.Booking, error)
	// Complete returns nil, nil unless the booking was confirmed.
	Complete(ctx context.Context, id int64, at time.Time) (*domain.Booking, error)
	ExistsForRecurring(ctx context.Context, recurringID int64, date string) (bool, error)
	LinkCustomer(ctx context.Context, id, customerID int64) error
}

type bookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &bookingRepository{pool: pool}
}

const bookingCols = `id, manage_token, status, service, property_size,
to_char(booking_date, 'YYYY-MM-DD'), time_slot,
customer_name, email, phone, address, zip_code, notes,
customer_id, recurring_id, promo_code_id, referral_code,
subtotal_cents, discount_cents, total_cents,
stripe_customer_id, payment_method_id, assigned_employee_ids,
cancellation_fee_status, cancellation_fee_cents, cancellation_reason,
cancelled_at, completed_at, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID, &b.ManageToken, &b.Status, &b.Service, &b.PropertySize,
		&b.Date, &b.TimeSlot,
		&b.CustomerName, &b.Email, &b.Phone, &b.Address, &b.ZipCode, &b.Notes,
		&b.CustomerID, &b.RecurringID, &b.PromoCodeID, &b.ReferralCode,
		&b.SubtotalCents, &b.DiscountCents, &b.TotalCents,
		&b.StripeCustomerID, &b.PaymentMethodID, &b.AssignedEmployeeIDs,
		&b.CancellationFeeStatus, &b.CancellationFeeCents, &b.CancellationReason,
		&b.CancelledAt, &b.CompletedAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// scanOne maps pgx.ErrNoRows to nil, nil.
func scanOne(row pgx.Row) (*domain.Booking, error) {
	b, err := scanBooking(row)
	if isNoRows(err) {
		return nil, nil
	}
	return b, err
}

// lockSlot serializes writers for one date and time slot until the
// transaction ends.
func lockSlot(ctx context.Context, tx pgx.Tx, date, timeSlot string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, date+"|"+timeSlot)
	return err
}

func countSlot(ctx context.Context, tx pgx.Tx, date, timeSlot string, exceptID int64) (int, error) {
	const q = `SELECT count(*) FROM bookings
	WHERE booking_date = to_date($1, 'YYYY-MM-DD') AND time_slot = $2
	AND status <> 'cancelled' AND id <> $3`
	var n int
	err := tx.QueryRow(ctx, q, date, timeSlot, exceptID).Scan(&n)
	return n, err
}

func (r *bookingRepository) CreateWithinCapacity(ctx context.Context, b *domain.Booking, capacity int) (*domain.Booking, error) {
	const q = `INSERT INTO bookings (
		manage_token, status, service, property_size, booking_date, time_slot,
		customer_name, email, phone, address, zip_code, notes,
		customer_id, recurring_id, promo_code_id, referral_code,
		subtotal_cents, discount_cents, total_cents,
		stripe_customer_id, payment_method_id
	) VALUES ($1,$2,$3,$4,to_date($5, 'YYYY-MM-DD'),$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
	RETURNING ` + bookingCols

	if b.ManageToken == "" {
		b.ManageToken = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = domain.BookingPending
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockSlot(ctx, tx, b.Date, b.TimeSlot); err != nil {
		return nil, fmt.Errorf("lock slot: %w", err)
	}
	booked, err := countSlot(ctx, tx, b.Date, b.TimeSlot, 0)
	if err != nil {
		return nil, fmt.Errorf("count slot: %w", err)
	}
	if booked >= capacity {
		return nil, domain.ErrSlotFull
	}

	created, err := scanBooking(tx.QueryRow(ctx, q,
		b.ManageToken, b.Status, b.Service, b.PropertySize, b.Date, b.TimeSlot,
		b.CustomerName, b.Email, b.Phone, b.Address, b.ZipCode, b.Notes,
		b.CustomerID, b.RecurringID, b.PromoCodeID, b.ReferralCode,
		b.SubtotalCents, b.DiscountCents, b.TotalCents,
		b.StripeCustomerID, b.PaymentMethodID,
	))
	if err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id=$1`
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanOne(r.pool.QueryRow(ctx, q, id))
}

func (r *bookingRepository) GetByToken(ctx context.Context, token string) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE manage_token=$1`
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanOne(r.pool.QueryRow(ctx, q, token))
}

func (r *bookingRepository) List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	limit, offset := clampPage(f.Limit, f.Offset)

	sb := psql.Select(bookingCols).From("bookings")
	if f.Status != nil {
		sb = sb.Where(squirrel.Eq{"status": *f.Status})
	}
	if f.DateFrom != "" {
		sb = sb.Where("booking_date >= to_date(?, 'YYYY-MM-DD')", f.DateFrom)
	}
	if f.DateTo != "" {
		sb = sb.Where("booking_date <= to_date(?, 'YYYY-MM-DD')", f.DateTo)
	}
	if f.EmployeeID != nil {
		sb = sb.Where("? = ANY(assigned_employee_ids)", *f.EmployeeID)
	}
	if f.Email != "" {
		sb = sb.Where("lower(email) = lower(?)", f.Email)
	}
	q, args, err := sb.OrderBy("booking_date DESC", "time_slot", "id DESC").
		Limit(uint64(limit)).Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *bookingRepository) CountBySlot(ctx context.Context, date string) (map[string]int, error) {
	const q = `SELECT time_slot, count(*) FROM bookings
	WHERE booking_date = to_date($1, 'YYYY-MM-DD') AND status <> 'cancelled'
	GROUP BY time_slot`
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var slot string
		var n int
		if err := rows.Scan(&slot, &n); err != nil {
			return nil, err
		}
		counts[slot] = n
	}
	return counts, rows.Err()
}

func (r *bookingRepository) Update(ctx context.Context, id int64, patch domain.BookingPatch) (*domain.Booking, error) {
	ub := psql.Update("bookings").Set("updated_at", squirrel.Expr("now()"))
	if patch.Status != nil {
		ub = ub.Set("status", *patch.Status)
	}
	if patch.AssignedEmployeeIDs != nil {
		ids := *patch.AssignedEmployeeIDs
		if ids == nil {
			ids = []int64{}
		}
		ub = ub.Set("assigned_employee_ids", ids)
	}
	if patch.Notes != nil {
		ub = ub.Set("notes", *patch.Notes)
	}
	if patch.CustomerName != nil {
		ub = ub.Set("customer_name", *patch.CustomerName)
	}
	if patch.Phone != nil {
		ub = ub.Set("phone", *patch.Phone)
	}
	if patch.Address != nil {
		ub = ub.Set("address", *patch.Address)
	}
	q, args, err := ub.Where(squirrel.Eq{"id": id}).Suffix("RETURNING " + bookingCols).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update query: %w", err)
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanOne(r.pool.QueryRow(ctx, q, args...))
}

func (r *bookingRepository) MoveWithinCapacity(ctx context.Context, id int64, date, timeSlot string, capacity int) (*domain.Booking, error) {
	const q = `UPDATE bookings SET booking_date = to_date($2, 'YYYY-MM-DD'), time_slot = $3, updated_at = now()
	WHERE id = $1 AND status IN ('pending','confirmed')
	RETURNING ` + bookingCols

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockSlot(ctx, tx, date, timeSlot); err != nil {
		return nil, fmt.Errorf("lock slot: %w", err)
	}
	booked, err := countSlot(ctx, tx, date, timeSlot, id)
	if err != nil {
		return nil, fmt.Errorf("count slot: %w", err)
	}
	if booked >= capacity {
		return nil, domain.ErrSlotFull
	}

	b, err := scanOne(tx.QueryRow(ctx, q, id, date, timeSlot))
	if err != nil || b == nil {
		return b, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return b, nil
}

func (r *bookingRepository) Cancel(ctx context.Context, id int64, c Cancellation) (*domain.Booking, error) {
	const q = `UPDATE bookings SET status = 'cancelled',
		cancellation_reason = $2, cancellation_fee_status = $3, cancellation_fee_cents = $4,
		cancelled_at = $5, updated_at = now()
	WHERE id = $1 AND status IN ('pending','confirmed')
	RETURNING ` + bookingCols
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanOne(r.pool.QueryRow(ctx, q, id, c.Reason, c.FeeStatus, c.FeeCents, c.At))
}

func (r *bookingRepository) SetFeeStatus(ctx context.Context, id int64, from, to domain.FeeStatus) (*domain.Booking, error) {
	const q = `UPDATE bookings SET cancellation_fee_status = $3, updated_at = now()
	WHERE id = $1 AND cancellation_fee_status = $2
	RETURNING ` + bookingCols
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanOne(r.pool.QueryRow(ctx, q, id, from, to))
}

func (r *bookingRepository) Complete(ctx context.Context, id int64, at time.Time) (*domain.Booking, error) {
	const q = `UPDATE bookings SET status = 'completed', completed_at = $2, updated_at = now()
	WHERE id = $1 AND status = 'confirmed'
	RETURNING ` + bookingCols
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanOne(r.pool.QueryRow(ctx, q, id, at))
}

func (r *bookingRepository) ExistsForRecurring(ctx context.Context, recurringID int64, date string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM bookings
	WHERE recurring_id = $1 AND booking_date = to_date($2, 'YYYY-MM-DD'))`
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	var ok bool
	err := r.pool.QueryRow(ctx, q, recurringID, date).Scan(&ok)
	return ok, err
}

func (r *bookingRepository) LinkCustomer(ctx context.Context, id, customerID int64) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	_, err := r.pool.Exec(ctx, `UPDATE bookings SET customer_id = $2 WHERE id = $1`, id, customerID)
	return err
}
