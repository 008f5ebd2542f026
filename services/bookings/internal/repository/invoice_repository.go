package repository

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type InvoiceRepository interface {
	// Create issues an invoice, or returns the existing one for the booking.
	Create(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error)
	GetByID(ctx context.Context, id int64) (*domain.Invoice, error)
	List(ctx context.Context, status *domain.InvoiceStatus, limit, offset int) ([]domain.Invoice, error)
	// SetStatus returns nil, nil unless the invoice was unpaid.
	SetStatus(ctx context.Context, id int64, status domain.InvoiceStatus, at time.Time) (*domain.Invoice, error)
}

// AnalyticsRepository aggregates bookings for the admin dashboard.
type AnalyticsRepository interface {
	Summary(ctx context.Context, from, to string) (*domain.AnalyticsSummary, error)
}

type invoiceRepository struct {
	pool *pgxpool.Pool
}

func NewInvoiceRepository(pool *pgxpool.Pool) InvoiceRepository {
	return &invoiceRepository{pool: pool}
}

const invoiceCols = `id, number, booking_id, customer_email, customer_name, amount_cents, status, issued_at, paid_at`

func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.BookingID, &inv.CustomerEmail, &inv.CustomerName,
		&inv.AmountCents, &inv.Status, &inv.IssuedAt, &inv.PaidAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepository) Create(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error) {
	const q = `INSERT INTO invoices (number, booking_id, customer_email, customer_name, amount_cents, status, issued_at)
	VALUES ($1, $2, $3, $4, $5, 'unpaid', $6)
	ON CONFLICT (booking_id) DO UPDATE SET booking_id = EXCLUDED.booking_id
	RETURNING ` + invoiceCols
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanInvoice(r.pool.QueryRow(ctx, q, inv.Number, inv.BookingID, inv.CustomerEmail, inv.CustomerName,
		inv.AmountCents, inv.IssuedAt))
}

func (r *invoiceRepository) GetByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	const q = `SELECT ` + invoiceCols + ` FROM invoices WHERE id = $1`
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanInvoice(r.pool.QueryRow(ctx, q, id))
}

func (r *invoiceRepository) List(ctx context.Context, status *domain.InvoiceStatus, limit, offset int) ([]domain.Invoice, error) {
	limit, offset = clampPage(limit, offset)
	sb := psql.Select(invoiceCols).From("invoices")
	if status != nil {
		sb = sb.Where(squirrel.Eq{"status": *status})
	}
	q, args, err := sb.OrderBy("issued_at DESC").Limit(uint64(limit)).Offset(uint64(offset)).ToSql()
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

	var out []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

func (r *invoiceRepository) SetStatus(ctx context.Context, id int64, status domain.InvoiceStatus, at time.Time) (*domain.Invoice, error) {
	const q = `UPDATE invoices SET status = $2,
		paid_at = CASE WHEN $2 = 'paid' THEN $3::timestamptz ELSE paid_at END
	WHERE id = $1 AND status = 'unpaid'
	RETURNING ` + invoiceCols
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanInvoice(r.pool.QueryRow(ctx, q, id, status, at))
}

type analyticsRepository struct {
	pool *pgxpool.Pool
}

func NewAnalyticsRepository(pool *pgxpool.Pool) AnalyticsRepository {
	return &analyticsRepository{pool: pool}
}

func (r *analyticsRepository) rangeWhere(sb squirrel.SelectBuilder, from, to string) squirrel.SelectBuilder {
	if from != "" {
		sb = sb.Where("booking_date >= to_date(?, 'YYYY-MM-DD')", from)
	}
	if to != "" {
		sb = sb.Where("booking_date <= to_date(?, 'YYYY-MM-DD')", to)
	}
	return sb
}

func (r *analyticsRepository) groupCount(ctx context.Context, col, from, to string) (map[string]int, error) {
	q, args, err := r.rangeWhere(psql.Select(col, "count(*)").From("bookings"), from, to).GroupBy(col).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, rows.Err()
}

func (r *analyticsRepository) Summary(ctx context.Context, from, to string) (*domain.AnalyticsSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	s := &domain.AnalyticsSummary{From: from, To: to}
	var err error
	if s.ByStatus, err = r.groupCount(ctx, "status", from, to); err != nil {
		return nil, err
	}
	if s.ByService, err = r.groupCount(ctx, "service", from, to); err != nil {
		return nil, err
	}

	q, args, err := r.rangeWhere(psql.Select(
		"count(*)",
		"coalesce(sum(total_cents) FILTER (WHERE status = 'completed'), 0)",
		"coalesce(sum(discount_cents) FILTER (WHERE status <> 'cancelled'), 0)",
		"coalesce(sum(cancellation_fee_cents) FILTER (WHERE cancellation_fee_status = 'charged'), 0)",
	).From("bookings"), from, to).ToSql()
	if err != nil {
		return nil, err
	}
	if err := r.pool.QueryRow(ctx, q, args...).Scan(
		&s.TotalBookings, &s.RevenueCents, &s.DiscountCents, &s.CancellationFeesCents,
	); err != nil {
		return nil, err
	}
	if completed := s.ByStatus[string(domain.BookingCompleted)]; completed > 0 {
		s.AverageTicketCents = s.RevenueCents / int64(completed)
	}
	return s, nil
}
