package service

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/cleanbook/pkg/cache"
	"github.com/diagnosis/cleanbook/pkg/config"
	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/diagnosis/cleanbook/services/bookings/internal/repository"
	"github.com/diagnosis/cleanbook/services/bookings/internal/schedule"
)

// AvailabilityService answers how much room every fixed slot has left on a
// date. Results are cached per date and dropped whenever a booking on that
// date is created, cancelled or moved.
type AvailabilityService interface {
	ForDate(ctx context.Context, date string) ([]domain.SlotAvailability, error)
	// Capacity is the effective capacity of one slot on date.
	Capacity(ctx context.Context, date, timeSlot string) (int, error)
	Invalidate(ctx context.Context, dates ...string)

	ListOverrides(ctx context.Context, from, to string) ([]domain.CapacityOverride, error)
	SetOverride(ctx context.Context, o *domain.CapacityOverride) (*domain.CapacityOverride, error)
	DeleteOverride(ctx context.Context, id int64) error
}

type availabilityService struct {
	bookingRepo  repository.BookingRepository
	capacityRepo repository.CapacityRepository
	schedule     *schedule.Schedule
	cache        *cache.Query[[]domain.SlotAvailability]
	loc          *time.Location
	now          func() time.Time
}

func NewAvailabilityService(
	bookingRepo repository.BookingRepository,
	capacityRepo repository.CapacityRepository,
	sched *schedule.Schedule,
	store cache.Store,
	cfg config.BookingConfig,
	opts ...Option,
) AvailabilityService {
	o := buildOptions(opts)
	return &availabilityService{
		bookingRepo:  bookingRepo,
		capacityRepo: capacityRepo,
		schedule:     sched,
		cache:        cache.NewQuery[[]domain.SlotAvailability](store, "available-slots", cfg.AvailabilityCacheTTL),
		loc:          cfg.Location(),
		now:          o.now,
	}
}

func (s *availabilityService) checkDate(date string) error {
	if _, err := domain.ParseDate(date); err != nil {
		return err
	}
	if date < today(s.now(), s.loc) {
		return domain.ErrPastDate
	}
	return nil
}

func (s *availabilityService) ForDate(ctx context.Context, date string) ([]domain.SlotAvailability, error) {
	if err := s.checkDate(date); err != nil {
		return nil, err
	}
	return s.cache.Get(ctx, date, func(ctx context.Context) ([]domain.SlotAvailability, error) {
		booked, err := s.bookingRepo.CountBySlot(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("count bookings: %w", err)
		}
		overrides, err := s.capacityRepo.ForDate(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("load capacity overrides: %w", err)
		}

		slots := make([]domain.SlotAvailability, 0, len(s.schedule.Slots))
		for _, sl := range s.schedule.Slots {
			capacity := sl.Capacity
			if c, ok := overrides[sl.Time]; ok {
				capacity = c
			}
			slots = append(slots, domain.SlotAvailability{
				TimeSlot:  sl.Time,
				Capacity:  capacity,
				Available: domain.Available(capacity, booked[sl.Time]),
			})
		}
		return slots, nil
	})
}

func (s *availabilityService) Capacity(ctx context.Context, date, timeSlot string) (int, error) {
	sl, ok := s.schedule.Slot(timeSlot)
	if !ok {
		return 0, domain.ErrUnknownSlot
	}
	overrides, err := s.capacityRepo.ForDate(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("load capacity overrides: %w", err)
	}
	if c, ok := overrides[timeSlot]; ok {
		return c, nil
	}
	return sl.Capacity, nil
}

func (s *availabilityService) Invalidate(ctx context.Context, dates ...string) {
	s.cache.Invalidate(ctx, dates...)
}

func (s *availabilityService) ListOverrides(ctx context.Context, from, to string) ([]domain.CapacityOverride, error) {
	return s.capacityRepo.List(ctx, from, to)
}

func (s *availabilityService) SetOverride(ctx context.Context, o *domain.CapacityOverride) (*domain.CapacityOverride, error) {
	if _, err := domain.ParseDate(o.Date); err != nil {
		return nil, err
	}
	if _, ok := s.schedule.Slot(o.TimeSlot); !ok {
		return nil, domain.ErrUnknownSlot
	}
	saved, err := s.capacityRepo.Upsert(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("save capacity override: %w", err)
	}
	s.Invalidate(ctx, saved.Date)
	return saved, nil
}

func (s *availabilityService) DeleteOverride(ctx context.Context, id int64) error {
	removed, err := s.capacityRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete capacity override: %w", err)
	}
	if removed == nil {
		return domain.ErrNotFound
	}
	s.Invalidate(ctx, removed.Date)
	return nil
}
