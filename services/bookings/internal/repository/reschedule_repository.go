package repository

import (
	"context"
	"time"

	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RescheduleRepository interface {
	// Create returns domain.ErrPendingReschedule when the booking already has
	// a pending request.
	Create(ctx context.Context, req *domain.RescheduleRequest) (*domain.RescheduleRequest, error)
	GetByID(ctx context.Context, id int64) (*domain.RescheduleRequest, error)
	List(ctx context.Context, status *domain.RescheduleStatus, limit, offset int) ([]domain.RescheduleRequest, error)
	PendingForBooking(ctx context.Context, bookingID int64) (*domain.RescheduleRequest, error)
	// Decide moves a pending request to status and returns nil, nil when the
	// request was already decided.
	Decide(ctx context.Context, id int64, status domain.RescheduleStatus, note string, by *int64, at time.Time) (*domain.RescheduleRequest, error)
}

type rescheduleRepository struct {
	pool *pgxpool.Pool
}

func NewRescheduleRepository(pool *pgxpool.Pool) RescheduleRepository {
	return &rescheduleRepository{pool: pool}
}

const rescheduleCols = `id, booking_id, to_char(current_date_, 'YYYY-MM-DD'), current_time_slot,
to_char(requested_date, 'YYYY-MM-DD'), requested_time_slot, reason, status, admin_note,
decided_by, decided_at, created_at`

func scanReschedule(row pgx.Row) (*domain.RescheduleRequest, error) {
	var rr domain.RescheduleRequest
	err := row.Scan(&rr.ID, &rr.BookingID, &rr.CurrentDate, &rr.CurrentTimeSlot,
		&rr.RequestedDate, &rr.RequestedTimeSlot, &rr.Reason, &rr.Status, &rr.AdminNote,
		&rr.DecidedBy, &rr.DecidedAt, &rr.CreatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rr, nil
}

func (r *rescheduleRepository) Create(ctx context.Context, req *domain.RescheduleRequest) (*domain.RescheduleRequest, error) {
	const q = `INSERT INTO reschedule_requests (
		booking_id, current_date_, current_time_slot, requested_date, requested_time_slot, reason, status
	) VALUES ($1, to_date($2, 'YYYY-MM-DD'), $3, to_date($4, 'YYYY-MM-DD'), $5, $6, 'pending')
	RETURNING ` + rescheduleCols
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	out, err := scanReschedule(r.pool.QueryRow(ctx, q, req.BookingID, req.CurrentDate, req.CurrentTimeSlot,
		req.RequestedDate, req.RequestedTimeSlot, req.Reason))
	if isUniqueViolation(err) {
		return nil, domain.ErrPendingReschedule
	}
	return out, err
}

func (r *rescheduleRepository) GetByID(ctx context.Context, id int64) (*domain.RescheduleRequest, error) {
	const q = `SELECT ` + rescheduleCols + ` FROM reschedule_requests WHERE id = $1`
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanReschedule(r.pool.QueryRow(ctx, q, id))
}

func (r *rescheduleRepository) List(ctx context.Context, status *domain.RescheduleStatus, limit, offset int) ([]domain.RescheduleRequest, error) {
	limit, offset = clampPage(limit, offset)
	q := `SELECT ` + rescheduleCols + ` FROM reschedule_requests`
	args := []any{}
	if status != nil {
		q += ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, *status, limit, offset)
	} else {
		q += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RescheduleRequest
	for rows.Next() {
		rr, err := scanReschedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rr)
	}
	return out, rows.Err()
}

func (r *rescheduleRepository) PendingForBooking(ctx context.Context, bookingID int64) (*domain.RescheduleRequest, error) {
	const q = `SELECT ` + rescheduleCols + ` FROM reschedule_requests WHERE booking_id = $1 AND status = 'pending'`
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanReschedule(r.pool.QueryRow(ctx, q, bookingID))
}

func (r *rescheduleRepository) Decide(ctx context.Context, id int64, status domain.RescheduleStatus, note string, by *int64, at time.Time) (*domain.RescheduleRequest, error) {
	const q = `UPDATE reschedule_requests SET status = $2, admin_note = $3, decided_by = $4, decided_at = $5
	WHERE id = $1 AND status = 'pending'
	RETURNING ` + rescheduleCols
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanReschedule(r.pool.QueryRow(ctx, q, id, status, note, by, at))
}
