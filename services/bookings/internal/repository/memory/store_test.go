package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/diagnosis/cleanbook/services/bookings/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBooking(date, slot string) *domain.Booking {
	return &domain.Booking{
		Service: "Residential", PropertySize: "Medium (1000-2000 sq ft)",
		Date: date, TimeSlot: slot, CustomerName: "Ann", Email: "ann@example.com",
	}
}

func TestCreateWithinCapacityUnderContention(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created, full := 0, 0
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repos.Bookings.CreateWithinCapacity(ctx, newBooking("2025-06-10", "10:00 AM"), 3)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
			} else {
				assert.ErrorIs(t, err, domain.ErrSlotFull)
				full++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, created)
	assert.Equal(t, 7, full)

	counts, err := repos.Bookings.CountBySlot(ctx, "2025-06-10")
	require.NoError(t, err)
	assert.Equal(t, 3, counts["10:00 AM"])
}

func TestCancelledBookingsFreeCapacity(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()

	b, err := repos.Bookings.CreateWithinCapacity(ctx, newBooking("2025-06-10", "4:00 PM"), 1)
	require.NoError(t, err)
	assert.NotEmpty(t, b.ManageToken)
	assert.Equal(t, domain.FeeNotApplicable, b.CancellationFeeStatus)

	_, err = repos.Bookings.CreateWithinCapacity(ctx, newBooking("2025-06-10", "4:00 PM"), 1)
	require.ErrorIs(t, err, domain.ErrSlotFull)

	cancelled, err := repos.Bookings.Cancel(ctx, b.ID, repository.Cancellation{FeeStatus: domain.FeeNotApplicable, At: time.Now()})
	require.NoError(t, err)
	require.NotNil(t, cancelled)

	again, err := repos.Bookings.Cancel(ctx, b.ID, repository.Cancellation{})
	require.NoError(t, err)
	assert.Nil(t, again, "closed bookings cannot be cancelled twice")

	_, err = repos.Bookings.CreateWithinCapacity(ctx, newBooking("2025-06-10", "4:00 PM"), 1)
	assert.NoError(t, err)
}

func TestMoveWithinCapacityIgnoresItself(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()

	b, err := repos.Bookings.CreateWithinCapacity(ctx, newBooking("2025-06-10", "8:00 AM"), 1)
	require.NoError(t, err)

	moved, err := repos.Bookings.MoveWithinCapacity(ctx, b.ID, "2025-06-10", "8:00 AM", 1)
	require.NoError(t, err)
	assert.Equal(t, "8:00 AM", moved.TimeSlot)

	_, err = repos.Bookings.CreateWithinCapacity(ctx, newBooking("2025-06-11", "8:00 AM"), 1)
	require.NoError(t, err)
	_, err = repos.Bookings.MoveWithinCapacity(ctx, b.ID, "2025-06-11", "8:00 AM", 1)
	assert.ErrorIs(t, err, domain.ErrSlotFull)
}

func TestPromoIncrementUsageRespectsLimit(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()
	limit := 1

	p, err := repos.Promos.Create(ctx, domain.PromoCodeInput{
		Code: "SPRING", DiscountType: domain.DiscountFixed, DiscountValue: 500, MaxUses: &limit, IsActive: true,
	})
	require.NoError(t, err)

	ok, err := repos.Promos.IncrementUsage(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repos.Promos.IncrementUsage(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repos.Promos.ReleaseUsage(ctx, p.ID))
	require.NoError(t, repos.Promos.ReleaseUsage(ctx, p.ID))
	got, err := repos.Promos.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UsageCount)

	ok, err = repos.Promos.IncrementUsage(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = repos.Promos.Create(ctx, domain.PromoCodeInput{Code: "spring", DiscountType: domain.DiscountFixed, DiscountValue: 1})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestIdempotencyReservation(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store := NewStore().WithClock(func() time.Time { return now })
	repos := store.Repositories()
	ctx := context.Background()

	id, reserved, err := repos.Idempotency.Reserve(ctx, "key-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Zero(t, id)

	// Held but not yet attached.
	id, reserved, err = repos.Idempotency.Reserve(ctx, "key-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Zero(t, id)

	require.NoError(t, repos.Idempotency.Attach(ctx, "key-1", 42))
	require.NoError(t, repos.Idempotency.Release(ctx, "key-1"))
	id, reserved, err = repos.Idempotency.Reserve(ctx, "key-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Equal(t, int64(42), id)

	now = now.Add(2 * time.Hour)
	n, err := repos.Idempotency.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, reserved, err = repos.Idempotency.Reserve(ctx, "key-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestIdempotencyReleaseFreesKey(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()

	_, reserved, err := repos.Idempotency.Reserve(ctx, "key-2", time.Hour)
	require.NoError(t, err)
	require.True(t, reserved)
	require.NoError(t, repos.Idempotency.Release(ctx, "key-2"))

	_, reserved, err = repos.Idempotency.Reserve(ctx, "key-2", time.Hour)
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestIdempotencyReserveUnderContention(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, reserved, err := repos.Idempotency.Reserve(ctx, "shared", time.Hour)
			assert.NoError(t, err)
			if reserved {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestListOrdersLikePostgres(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()

	for _, b := range []*domain.Booking{
		newBooking("2025-06-10", "8:00 AM"),
		newBooking("2025-06-11", "2:00 PM"),
		newBooking("2025-06-10", "10:00 AM"),
		newBooking("2025-06-10", "8:00 AM"),
	} {
		_, err := repos.Bookings.CreateWithinCapacity(ctx, b, 5)
		require.NoError(t, err)
	}

	list, err := repos.Bookings.List(ctx, domain.BookingFilter{})
	require.NoError(t, err)
	require.Len(t, list, 4)

	var got []string
	for _, b := range list {
		got = append(got, b.Date+" "+b.TimeSlot)
	}
	assert.Equal(t, []string{
		"2025-06-11 2:00 PM",
		"2025-06-10 10:00 AM",
		"2025-06-10 8:00 AM",
		"2025-06-10 8:00 AM",
	}, got)
	assert.Greater(t, list[2].ID, list[3].ID)
}
