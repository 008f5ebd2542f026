package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Set is every repository the bookings service runs on.
type Set struct {
	Bookings    BookingRepository
	Idempotency IdempotencyRepository
	Capacity    CapacityRepository
	Promos      PromoRepository
	Referrals   ReferralRepository
	Customers   CustomerRepository
	Areas       AreaRepository
	Recurring   RecurringRepository
	Reschedules RescheduleRepository
	Employees   EmployeeRepository
	Content     ContentRepository
	Reviews     ReviewRepository
	Invoices    InvoiceRepository
	Analytics   AnalyticsRepository
}

func NewPostgresSet(pool *pgxpool.Pool) Set {
	return Set{
		Bookings:    NewBookingRepository(pool),
		Idempotency: NewIdempotencyRepository(pool),
		Capacity:    NewCapacityRepository(pool),
		Promos:      NewPromoRepository(pool),
		Referrals:   NewReferralRepository(pool),
		Customers:   NewCustomerRepository(pool),
		Areas:       NewAreaRepository(pool),
		Recurring:   NewRecurringRepository(pool),
		Reschedules: NewRescheduleRepository(pool),
		Employees:   NewEmployeeRepository(pool),
		Content:     NewContentRepository(pool),
		Reviews:     NewReviewRepository(pool),
		Invoices:    NewInvoiceRepository(pool),
		Analytics:   NewAnalyticsRepository(pool),
	}
}
