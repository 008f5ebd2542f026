package repository

import (
	"context"
	"time"

	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReferralRepository interface {
	// Create returns domain.ErrAlreadyReferred when the referee already has a referral.
	Create(ctx context.Context, ref *domain.Referral) (*domain.Referral, error)
	GetByRefereeEmail(ctx context.Context, email string) (*domain.Referral, error)
	ListByReferrer(ctx context.Context, email string) ([]domain.Referral, error)
	// CompleteForBooking marks the pending referral of a booking completed and
	// returns nil, nil when there is none.
	CompleteForBooking(ctx context.Context, bookingID int64, at time.Time) (*domain.Referral, error)
}

type referralRepository struct {
	pool *pgxpool.Pool
}

func NewReferralRepository(pool *pgxpool.Pool) ReferralRepository {
	return &referralRepository{pool: pool}
}

const referralCols = `id, code, referrer_email, referee_email, booking_id, status, reward_cents, created_at, completed_at`

func scanReferral(row pgx.Row) (*domain.Referral, error) {
	var ref domain.Referral
	err := row.Scan(&ref.ID, &ref.Code, &ref.ReferrerEmail, &ref.RefereeEmail, &ref.BookingID,
		&ref.Status, &ref.RewardCents, &ref.CreatedAt, &ref.CompletedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *referralRepository) Create(ctx context.Context, ref *domain.Referral) (*domain.Referral, error) {
	const q = `INSERT INTO referrals (code, referrer_email, referee_email, booking_id, status, reward_cents)
	VALUES ($1, lower($2), lower($3), $4, 'pending', $5)
	RETURNING ` + referralCols
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	out, err := scanReferral(r.pool.QueryRow(ctx, q, ref.Code, ref.ReferrerEmail, ref.RefereeEmail, ref.BookingID, ref.RewardCents))
	if isUniqueViolation(err) {
		return nil, domain.ErrAlreadyReferred
	}
	return out, err
}

func (r *referralRepository) GetByRefereeEmail(ctx context.Context, email string) (*domain.Referral, error) {
	const q = `SELECT ` + referralCols + ` FROM referrals WHERE referee_email = lower($1)`
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanReferral(r.pool.QueryRow(ctx, q, email))
}

func (r *referralRepository) ListByReferrer(ctx context.Context, email string) ([]domain.Referral, error) {
	const q = `SELECT ` + referralCols + ` FROM referrals WHERE referrer_email = lower($1) ORDER BY created_at DESC`
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Referral
	for rows.Next() {
		ref, err := scanReferral(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ref)
	}
	return out, rows.Err()
}

func (r *referralRepository) CompleteForBooking(ctx context.Context, bookingID int64, at time.Time) (*domain.Referral, error) {
	const q = `UPDATE referrals SET status = 'completed', completed_at = $2
	WHERE booking_id = $1 AND status = 'pending'
	RETURNING ` + referralCols
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanReferral(r.pool.QueryRow(ctx, q, bookingID, at))
}
