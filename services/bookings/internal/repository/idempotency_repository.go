package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyRepository ties an Idempotency-Key to the booking it produced.
// A key is reserved before the booking is created so concurrent submissions
// with the same key cannot both insert.
type IdempotencyRepository interface {
	// Reserve claims key until ttl passes. When the key is already held it
	// returns reserved=false with the stored booking id, or 0 while the
	// holder is still creating its booking.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bookingID int64, reserved bool, err error)
	// Attach stores the booking created under a reserved key.
	Attach(ctx context.Context, key string, bookingID int64) error
	// Release drops a reservation that never produced a booking.
	Release(ctx context.Context, key string) error
	CleanupExpired(ctx context.Context) (int64, error)
}

type idempotencyRepository struct {
	pool *pgxpool.Pool
}

func NewIdempotencyRepository(pool *pgxpool.Pool) IdempotencyRepository {
	return &idempotencyRepository{pool: pool}
}

// HashKey stores keys at a fixed length without keeping the raw client value.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (r *idempotencyRepository) Reserve(ctx context.Context, key string, ttl time.Duration) (int64, bool, error) {
	const claim = `INSERT INTO booking_idempotency (key_hash, booking_id, expires_at)
	VALUES ($1, NULL, $2)
	ON CONFLICT (key_hash) DO UPDATE SET booking_id = NULL, expires_at = EXCLUDED.expires_at
	WHERE booking_idempotency.expires_at <= now()
	RETURNING key_hash`
	const held = `SELECT COALESCE(booking_id, 0) FROM booking_idempotency WHERE key_hash = $1`
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	hash := HashKey(key)
	var claimed string
	err := r.pool.QueryRow(ctx, claim, hash, time.Now().Add(ttl)).Scan(&claimed)
	if err == nil {
		return 0, true, nil
	}
	if !isNoRows(err) {
		return 0, false, err
	}

	var id int64
	err = r.pool.QueryRow(ctx, held, hash).Scan(&id)
	if isNoRows(err) {
		return 0, false, nil
	}
	return id, false, err
}

func (r *idempotencyRepository) Attach(ctx context.Context, key string, bookingID int64) error {
	const q = `UPDATE booking_idempotency SET booking_id = $2 WHERE key_hash = $1`
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, HashKey(key), bookingID)
	return err
}

func (r *idempotencyRepository) Release(ctx context.Context, key string) error {
	const q = `DELETE FROM booking_idempotency WHERE key_hash = $1 AND booking_id IS NULL`
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, HashKey(key))
	return err
}

func (r *idempotencyRepository) CleanupExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM booking_idempotency WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
