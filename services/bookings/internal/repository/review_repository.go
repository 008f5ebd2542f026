package repository

import (
	"context"

	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReviewRepository interface {
	// Create returns domain.ErrAlreadyReviewed for a second review of a booking.
	Create(ctx context.Context, rv *domain.Review) (*domain.Review, error)
	List(ctx context.Context, publishedOnly bool, limit, offset int) ([]domain.Review, error)
	SetPublished(ctx context.Context, id int64, published bool) (*domain.Review, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type reviewRepository struct {
	pool *pgxpool.Pool
}

func NewReviewRepository(pool *pgxpool.Pool) ReviewRepository {
	return &reviewRepository{pool: pool}
}

const reviewCols = `id, booking_id, customer_name, rating, comment, is_published, created_at`

func scanReview(row pgx.Row) (*domain.Review, error) {
	var rv domain.Review
	err := row.Scan(&rv.ID, &rv.BookingID, &rv.CustomerName, &rv.Rating, &rv.Comment, &rv.IsPublished, &rv.CreatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *reviewRepository) Create(ctx context.Context, rv *domain.Review) (*domain.Review, error) {
	const q = `INSERT INTO reviews (booking_id, customer_name, rating, comment, is_published)
	VALUES ($1, $2, $3, $4, false) RETURNING ` + reviewCols
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	out, err := scanReview(r.pool.QueryRow(ctx, q, rv.BookingID, rv.CustomerName, rv.Rating, rv.Comment))
	if isUniqueViolation(err) {
		return nil, domain.ErrAlreadyReviewed
	}
	return out, err
}

func (r *reviewRepository) List(ctx context.Context, publishedOnly bool, limit, offset int) ([]domain.Review, error) {
	limit, offset = clampPage(limit, offset)
	q := `SELECT ` + reviewCols + ` FROM reviews`
	if publishedOnly {
		q += ` WHERE is_published`
	}
	q += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	ctx, cancel := withTimeout(ctx)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rv)
	}
	return out, rows.Err()
}

func (r *reviewRepository) SetPublished(ctx context.Context, id int64, published bool) (*domain.Review, error) {
	const q = `UPDATE reviews SET is_published = $2 WHERE id = $1 RETURNING ` + reviewCols
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanReview(r.pool.QueryRow(ctx, q, id, published))
}

func (r *reviewRepository) Delete(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	tag, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
