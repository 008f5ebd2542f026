package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/cleanbook/pkg/config"
	"github.com/diagnosis/cleanbook/pkg/events"
	"github.com/diagnosis/cleanbook/pkg/logger"
	"github.com/diagnosis/cleanbook/pkg/utils"
	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/diagnosis/cleanbook/services/bookings/internal/repository"
	"github.com/diagnosis/cleanbook/services/bookings/internal/schedule"
)

type RecurringService interface {
	Create(ctx context.Context, rb *domain.RecurringBooking) (*domain.RecurringBooking, error)
	Get(ctx context.Context, id int64) (*domain.RecurringBooking, error)
	List(ctx context.Context, status *domain.RecurringStatus, limit, offset int) ([]domain.RecurringBooking, error)
	Update(ctx context.Context, id int64, patch domain.RecurringPatch) (*domain.RecurringBooking, error)
	Delete(ctx context.Context, id int64) error

	// Materialize books every occurrence of active series that falls within
	// the horizon and returns how many bookings it created.
	Materialize(ctx context.Context) (int, error)
	// Run materializes on every tick until ctx is done.
	Run(ctx context.Context)
}

type recurringService struct {
	repos        repository.Set
	availability AvailabilityService
	schedule     *schedule.Schedule
	eventBus     events.Publisher
	cfg          config.BookingConfig
	loc          *time.Location
	now          func() time.Time
}

func NewRecurringService(
	repos repository.Set,
	availability AvailabilityService,
	sched *schedule.Schedule,
	eventBus events.Publisher,
	cfg config.BookingConfig,
	opts ...Option,
) RecurringService {
	o := buildOptions(opts)
	return &recurringService{
		repos:        repos,
		availability: availability,
		schedule:     sched,
		eventBus:     eventBus,
		cfg:          cfg,
		loc:          cfg.Location(),
		now:          o.now,
	}
}

func (s *recurringService) validate(rb *domain.RecurringBooking) error {
	if _, ok := s.schedule.Slot(rb.TimeSlot); !ok {
		return domain.ErrUnknownSlot
	}
	if _, err := s.schedule.Price(rb.Service, rb.PropertySize); err != nil {
		return err
	}
	if _, err := domain.ParseDate(rb.NextOccurrence); err != nil {
		return err
	}
	if rb.EndDate != "" {
		if _, err := domain.ParseDate(rb.EndDate); err != nil {
			return err
		}
		if rb.EndDate < rb.NextOccurrence {
			return domain.ErrInvalidDate
		}
	}
	return nil
}

func (s *recurringService) Create(ctx context.Context, rb *domain.RecurringBooking) (*domain.RecurringBooking, error) {
	rb.CustomerName = utils.NormalizeString(rb.CustomerName)
	rb.Email = utils.NormalizeEmail(rb.Email)
	rb.Phone = utils.NormalizePhone(rb.Phone)
	rb.Address = utils.NormalizeString(rb.Address)
	rb.ZipCode = utils.NormalizeZip(rb.ZipCode)
	if !utils.IsValidZip(rb.ZipCode) {
		return nil, domain.ErrInvalidZip
	}
	if err := s.validate(rb); err != nil {
		return nil, err
	}
	if rb.NextOccurrence < today(s.now(), s.loc) {
		return nil, domain.ErrPastDate
	}
	rb.Status = domain.RecurringActive
	rb.AnchorDay = anchorDay(rb.NextOccurrence)

	created, err := s.repos.Recurring.Create(ctx, rb)
	if err != nil {
		return nil, fmt.Errorf("create recurring series: %w", err)
	}
	return created, nil
}

func (s *recurringService) Get(ctx context.Context, id int64) (*domain.RecurringBooking, error) {
	rb, err := s.repos.Recurring.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get recurring series: %w", err)
	}
	if rb == nil {
		return nil, domain.ErrNotFound
	}
	return rb, nil
}

func (s *recurringService) List(ctx context.Context, status *domain.RecurringStatus, limit, offset int) ([]domain.RecurringBooking, error) {
	return s.repos.Recurring.List(ctx, status, limit, offset)
}

func (s *recurringService) Update(ctx context.Context, id int64, patch domain.RecurringPatch) (*domain.RecurringBooking, error) {
	rb, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Status != nil && *patch.Status != rb.Status {
		if !rb.Status.CanTransitionTo(*patch.Status) {
			return nil, domain.ErrInvalidTransition
		}
		rb.Status = *patch.Status
	}
	if patch.Frequency != nil {
		rb.Frequency = *patch.Frequency
	}
	if patch.TimeSlot != nil {
		rb.TimeSlot = *patch.TimeSlot
	}
	if patch.NextOccurrence != nil {
		rb.NextOccurrence = *patch.NextOccurrence
		rb.AnchorDay = anchorDay(rb.NextOccurrence)
	}
	if patch.EndDate != nil {
		rb.EndDate = *patch.EndDate
	}
	if patch.Notes != nil {
		rb.Notes = utils.NormalizeString(*patch.Notes)
	}
	if err := s.validate(rb); err != nil {
		return nil, err
	}

	saved, err := s.repos.Recurring.Save(ctx, rb)
	if err != nil {
		return nil, fmt.Errorf("save recurring series: %w", err)
	}
	if saved == nil {
		return nil, domain.ErrNotFound
	}
	return saved, nil
}

func (s *recurringService) Delete(ctx context.Context, id int64) error {
	ok, err := s.repos.Recurring.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete recurring series: %w", err)
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

func (s *recurringService) Materialize(ctx context.Context) (int, error) {
	now := s.now().In(s.loc)
	from := now.Format(domain.DateLayout)
	through := now.Add(s.cfg.RecurringHorizon).Format(domain.DateLayout)

	due, err := s.repos.Recurring.ListDue(ctx, through)
	if err != nil {
		return 0, fmt.Errorf("list due recurring series: %w", err)
	}

	created := 0
	for i := range due {
		rb := &due[i]
		for rb.Status == domain.RecurringActive && rb.NextOccurrence <= through {
			if rb.Ended(rb.NextOccurrence) {
				rb.Status = domain.RecurringCancelled
				break
			}
			if rb.NextOccurrence >= from {
				ok, err := s.book(ctx, rb)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to materialize occurrence", "error", err,
						"recurring_id", rb.ID, "date", rb.NextOccurrence)
				}
				if ok {
					created++
				}
			}
			if err := rb.Advance(); err != nil {
				rb.Status = domain.RecurringPaused
				break
			}
		}
		if rb.Ended(rb.NextOccurrence) {
			rb.Status = domain.RecurringCancelled
		}
		if _, err := s.repos.Recurring.Save(ctx, rb); err != nil {
			logger.ErrorContext(ctx, "Failed to advance recurring series", "error", err, "recurring_id", rb.ID)
		}
	}
	return created, nil
}

// book creates the occurrence at rb.NextOccurrence unless it exists. A full
// slot is logged and skipped.
func (s *recurringService) book(ctx context.Context, rb *domain.RecurringBooking) (bool, error) {
	date := rb.NextOccurrence
	exists, err := s.repos.Bookings.ExistsForRecurring(ctx, rb.ID, date)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	price, err := s.schedule.Price(rb.Service, rb.PropertySize)
	if err != nil {
		return false, err
	}
	capacity, err := s.availability.Capacity(ctx, date, rb.TimeSlot)
	if err != nil {
		return false, err
	}

	b := &domain.Booking{
		Status:                domain.BookingPending,
		Service:               rb.Service,
		PropertySize:          rb.PropertySize,
		Date:                  date,
		TimeSlot:              rb.TimeSlot,
		CustomerName:          rb.CustomerName,
		Email:                 rb.Email,
		Phone:                 rb.Phone,
		Address:               rb.Address,
		ZipCode:               rb.ZipCode,
		Notes:                 rb.Notes,
		RecurringID:           &rb.ID,
		SubtotalCents:         price,
		TotalCents:            price,
		StripeCustomerID:      rb.StripeCustomerID,
		PaymentMethodID:       rb.PaymentMethodID,
		AssignedEmployeeIDs:   []int64{},
		CancellationFeeStatus: domain.FeeNotApplicable,
	}
	if c, err := s.repos.Customers.GetByEmail(ctx, rb.Email); err == nil && c != nil {
		b.CustomerID = &c.ID
	}

	created, err := s.repos.Bookings.CreateWithinCapacity(ctx, b, capacity)
	if errors.Is(err, domain.ErrSlotFull) {
		logger.WarnContext(ctx, "Slot full, skipping recurring occurrence",
			"recurring_id", rb.ID, "date", date, "time_slot", rb.TimeSlot)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.availability.Invalidate(ctx, date)
	publish(ctx, s.eventBus, events.RecurringMaterialized, events.RecurringMaterializedEvent{
		RecurringID: rb.ID,
		BookingID:   created.ID,
		Date:        created.Date,
		TimeSlot:    created.TimeSlot,
	}, "recurring_id", rb.ID)
	return true, nil
}

func (s *recurringService) Run(ctx context.Context) {
	s.tick(ctx)

	ticker := time.NewTicker(s.cfg.RecurringInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *recurringService) tick(ctx context.Context) {
	n, err := s.Materialize(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Recurring materializer failed", "error", err)
	} else if n > 0 {
		logger.InfoContext(ctx, "Recurring bookings materialized", "count", n)
	}

	if removed, err := s.repos.Idempotency.CleanupExpired(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to clean up idempotency keys", "error", err)
	} else if removed > 0 {
		logger.DebugContext(ctx, "Idempotency keys expired", "count", removed)
	}
}
