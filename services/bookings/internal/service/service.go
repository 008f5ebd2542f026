package service

import (
	"context"
	"time"

	"github.com/diagnosis/cleanbook/pkg/cache"
	"github.com/diagnosis/cleanbook/pkg/config"
	"github.com/diagnosis/cleanbook/pkg/events"
	"github.com/diagnosis/cleanbook/pkg/logger"
	"github.com/diagnosis/cleanbook/pkg/payments"
	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/diagnosis/cleanbook/services/bookings/internal/repository"
	"github.com/diagnosis/cleanbook/services/bookings/internal/schedule"
)

// Services is every service the HTTP layer and background workers use.
type Services struct {
	Availability AvailabilityService
	Discounts    DiscountService
	Bookings     BookingService
	Reschedules  RescheduleService
	Recurring    RecurringService
	Areas        AreaService
	Content      ContentService
	People       PeopleService
	Billing      BillingService
}

// New wires the services over one repository set.
func New(
	repos repository.Set,
	sched *schedule.Schedule,
	store cache.Store,
	eventBus events.Publisher,
	paymentProvider payments.Provider,
	cfg config.BookingConfig,
	opts ...Option,
) *Services {
	availability := NewAvailabilityService(repos.Bookings, repos.Capacity, sched, store, cfg, opts...)
	discounts := NewDiscountService(repos.Promos, repos.Referrals, repos.Customers, cfg, opts...)
	return &Services{
		Availability: availability,
		Discounts:    discounts,
		Bookings:     NewBookingService(repos, availability, discounts, sched, paymentProvider, eventBus, cfg, opts...),
		Reschedules:  NewRescheduleService(repos.Bookings, repos.Reschedules, availability, sched, eventBus, cfg, opts...),
		Recurring:    NewRecurringService(repos, availability, sched, eventBus, cfg, opts...),
		Areas:        NewAreaService(repos.Areas),
		Content:      NewContentService(repos.Content, repos.Reviews, store),
		People:       NewPeopleService(repos.Customers, repos.Employees),
		Billing:      NewBillingService(repos.Invoices, repos.Analytics, paymentProvider, cfg, opts...),
	}
}

type options struct {
	now func() time.Time
}

// Option customizes a service at construction.
type Option func(*options)

// WithClock replaces time.Now, mainly for tests around the cancellation cutoff.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// publish sends an event after a committed mutation. Failures are logged and
// never undo the mutation.
func publish(ctx context.Context, bus events.Publisher, subject string, event any, attrs ...any) {
	if bus == nil {
		return
	}
	if err := bus.Publish(ctx, subject, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event", append([]any{"subject", subject, "error", err}, attrs...)...)
	}
}

// today returns the calendar date of now in loc.
func today(now time.Time, loc *time.Location) string {
	return now.In(loc).Format("2006-01-02")
}

func anchorDay(date string) int {
	d, err := domain.ParseDate(date)
	if err != nil {
		return 0
	}
	return d.Day()
}
