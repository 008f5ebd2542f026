// Package memory implements the repository interfaces on in-process maps.
// It backs STORAGE_DRIVER=memory and the handler and service tests.
package memory

import (
	"slices"
	"sync"
	"time"

	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/diagnosis/cleanbook/services/bookings/internal/repository"
)

type idemEntry struct {
	bookingID int64
	expires   time.Time
}

// Store holds every table behind one mutex. Values handed out are copies.
type Store struct {
	mu  sync.Mutex
	now func() time.Time
	ids map[string]int64

	bookings    map[int64]*domain.Booking
	idempotency map[string]idemEntry
	overrides   map[int64]*domain.CapacityOverride
	promos      map[int64]*domain.PromoCode
	referrals   map[int64]*domain.Referral
	customers   map[int64]*domain.Customer
	areas       map[int64]*domain.ServiceArea
	recurring   map[int64]*domain.RecurringBooking
	reschedules map[int64]*domain.RescheduleRequest
	employees   map[int64]*domain.Employee
	sections    map[string]*domain.CmsSection
	content     map[string]map[string]*domain.CmsContent
	assets      map[int64]*domain.CmsAsset
	faqs        map[int64]*domain.FAQ
	reviews     map[int64]*domain.Review
	invoices    map[int64]*domain.Invoice
}

func NewStore() *Store {
	return &Store{
		now:         time.Now,
		ids:         make(map[string]int64),
		bookings:    make(map[int64]*domain.Booking),
		idempotency: make(map[string]idemEntry),
		overrides:   make(map[int64]*domain.CapacityOverride),
		promos:      make(map[int64]*domain.PromoCode),
		referrals:   make(map[int64]*domain.Referral),
		customers:   make(map[int64]*domain.Customer),
		areas:       make(map[int64]*domain.ServiceArea),
		recurring:   make(map[int64]*domain.RecurringBooking),
		reschedules: make(map[int64]*domain.RescheduleRequest),
		employees:   make(map[int64]*domain.Employee),
		sections:    make(map[string]*domain.CmsSection),
		content:     make(map[string]map[string]*domain.CmsContent),
		assets:      make(map[int64]*domain.CmsAsset),
		faqs:        make(map[int64]*domain.FAQ),
		reviews:     make(map[int64]*domain.Review),
		invoices:    make(map[int64]*domain.Invoice),
	}
}

// WithClock replaces the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) nextID(table string) int64 {
	s.ids[table]++
	return s.ids[table]
}

// Repositories exposes the store as a repository set.
func (s *Store) Repositories() repository.Set {
	return repository.Set{
		Bookings:    bookingRepo{s},
		Idempotency: idempotencyRepo{s},
		Capacity:    capacityRepo{s},
		Promos:      promoRepo{s},
		Referrals:   referralRepo{s},
		Customers:   customerRepo{s},
		Areas:       areaRepo{s},
		Recurring:   recurringRepo{s},
		Reschedules: rescheduleRepo{s},
		Employees:   employeeRepo{s},
		Content:     contentRepo{s},
		Reviews:     reviewRepo{s},
		Invoices:    invoiceRepo{s},
		Analytics:   analyticsRepo{s},
	}
}

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	return items[offset:min(offset+limit, len(items))]
}

func ptr[T any](v T) *T { return &v }

func cloneBooking(b *domain.Booking) *domain.Booking {
	c := *b
	c.AssignedEmployeeIDs = slices.Clone(b.AssignedEmployeeIDs)
	if c.AssignedEmployeeIDs == nil {
		c.AssignedEmployeeIDs = []int64{}
	}
	return &c
}
