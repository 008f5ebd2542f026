package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/diagnosis/cleanbook/services/bookings/internal/repository"
	"github.com/google/uuid"
)

type bookingRepo struct{ s *Store }

var _ repository.BookingRepository = bookingRepo{}

func (r bookingRepo) countSlot(date, slot string, exceptID int64) int {
	n := 0
	for _, b := range r.s.bookings {
		if b.ID != exceptID && b.Date == date && b.TimeSlot == slot && b.IsActive() {
			n++
		}
	}
	return n
}

func (r bookingRepo) CreateWithinCapacity(_ context.Context, b *domain.Booking, capacity int) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.countSlot(b.Date, b.TimeSlot, 0) >= capacity {
		return nil, domain.ErrSlotFull
	}
	nb := cloneBooking(b)
	nb.ID = r.s.nextID("bookings")
	if nb.ManageToken == "" {
		nb.ManageToken = uuid.NewString()
	}
	if nb.Status == "" {
		nb.Status = domain.BookingPending
	}
	if nb.CancellationFeeStatus == "" {
		nb.CancellationFeeStatus = domain.FeeNotApplicable
	}
	nb.CreatedAt = r.s.now()
	nb.UpdatedAt = nb.CreatedAt
	r.s.bookings[nb.ID] = nb
	return cloneBooking(nb), nil
}

func (r bookingRepo) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if b, ok := r.s.bookings[id]; ok {
		return cloneBooking(b), nil
	}
	return nil, nil
}

func (r bookingRepo) GetByToken(_ context.Context, token string) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bookings {
		if b.ManageToken == token {
			return cloneBooking(b), nil
		}
	}
	return nil, nil
}

func (r bookingRepo) List(_ context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.Booking
	for _, b := range r.s.bookings {
		if f.Status != nil && b.Status != *f.Status {
			continue
		}
		if f.DateFrom != "" && b.Date < f.DateFrom {
			continue
		}
		if f.DateTo != "" && b.Date > f.DateTo {
			continue
		}
		if f.EmployeeID != nil && !b.IsAssignedTo(*f.EmployeeID) {
			continue
		}
		if f.Email != "" && !strings.EqualFold(b.Email, f.Email) {
			continue
		}
		out = append(out, *cloneBooking(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		if out[i].TimeSlot != out[j].TimeSlot {
			return out[i].TimeSlot < out[j].TimeSlot
		}
		return out[i].ID > out[j].ID
	})
	return page(out, f.Limit, f.Offset), nil
}

func (r bookingRepo) CountBySlot(_ context.Context, date string) (map[string]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := make(map[string]int)
	for _, b := range r.s.bookings {
		if b.Date == date && b.IsActive() {
			counts[b.TimeSlot]++
		}
	}
	return counts, nil
}

func (r bookingRepo) Update(_ context.Context, id int64, patch domain.BookingPatch) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, nil
	}
	if patch.Status != nil {
		b.Status = *patch.Status
	}
	if patch.AssignedEmployeeIDs != nil {
		b.AssignedEmployeeIDs = append([]int64{}, (*patch.AssignedEmployeeIDs)...)
	}
	if patch.Notes != nil {
		b.Notes = *patch.Notes
	}
	if patch.CustomerName != nil {
		b.CustomerName = *patch.CustomerName
	}
	if patch.Phone != nil {
		b.Phone = *patch.Phone
	}
	if patch.Address != nil {
		b.Address = *patch.Address
	}
	b.UpdatedAt = r.s.now()
	return cloneBooking(b), nil
}

func (r bookingRepo) MoveWithinCapacity(_ context.Context, id int64, date, timeSlot string, capacity int) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.countSlot(date, timeSlot, id) >= capacity {
		return nil, domain.ErrSlotFull
	}
	b, ok := r.s.bookings[id]
	if !ok || b.IsClosed() {
		return nil, nil
	}
	b.Date, b.TimeSlot = date, timeSlot
	b.UpdatedAt = r.s.now()
	return cloneBooking(b), nil
}

func (r bookingRepo) Cancel(_ context.Context, id int64, c repository.Cancellation) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok || b.IsClosed() {
		return nil, nil
	}
	b.Status = domain.BookingCancelled
	b.CancellationReason = c.Reason
	b.CancellationFeeStatus = c.FeeStatus
	b.CancellationFeeCents = c.FeeCents
	b.CancelledAt = ptr(c.At)
	b.UpdatedAt = r.s.now()
	return cloneBooking(b), nil
}

func (r bookingRepo) SetFeeStatus(_ context.Context, id int64, from, to domain.FeeStatus) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok || b.CancellationFeeStatus != from {
		return nil, nil
	}
	b.CancellationFeeStatus = to
	b.UpdatedAt = r.s.now()
	return cloneBooking(b), nil
}

func (r bookingRepo) Complete(_ context.Context, id int64, at time.Time) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok || b.Status != domain.BookingConfirmed {
		return nil, nil
	}
	b.Status = domain.BookingCompleted
	b.CompletedAt = ptr(at)
	b.UpdatedAt = r.s.now()
	return cloneBooking(b), nil
}

func (r bookingRepo) ExistsForRecurring(_ context.Context, recurringID int64, date string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bookings {
		if b.RecurringID != nil && *b.RecurringID == recurringID && b.Date == date {
			return true, nil
		}
	}
	return false, nil
}

func (r bookingRepo) LinkCustomer(_ context.Context, id, customerID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if b, ok := r.s.bookings[id]; ok {
		b.CustomerID = ptr(customerID)
	}
	return nil
}

type idempotencyRepo struct{ s *Store }

func (r idempotencyRepo) Reserve(_ context.Context, key string, ttl time.Duration) (int64, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h := repository.HashKey(key)
	if e, ok := r.s.idempotency[h]; ok && r.s.now().Before(e.expires) {
		return e.bookingID, false, nil
	}
	r.s.idempotency[h] = idemEntry{expires: r.s.now().Add(ttl)}
	return 0, true, nil
}

func (r idempotencyRepo) Attach(_ context.Context, key string, bookingID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h := repository.HashKey(key)
	if e, ok := r.s.idempotency[h]; ok {
		e.bookingID = bookingID
		r.s.idempotency[h] = e
	}
	return nil
}

func (r idempotencyRepo) Release(_ context.Context, key string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h := repository.HashKey(key)
	if e, ok := r.s.idempotency[h]; ok && e.bookingID == 0 {
		delete(r.s.idempotency, h)
	}
	return nil
}

func (r idempotencyRepo) CleanupExpired(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, e := range r.s.idempotency {
		if r.s.now().After(e.expires) {
			delete(r.s.idempotency, k)
			n++
		}
	}
	return n, nil
}

type capacityRepo struct{ s *Store }

func (r capacityRepo) ForDate(_ context.Context, date string) (map[string]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[string]int)
	for _, o := range r.s.overrides {
		if o.Date == date {
			out[o.TimeSlot] = o.Capacity
		}
	}
	return out, nil
}

func (r capacityRepo) List(_ context.Context, from, to string) ([]domain.CapacityOverride, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.CapacityOverride
	for _, o := range r.s.overrides {
		if (from == "" || o.Date >= from) && (to == "" || o.Date <= to) {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].TimeSlot < out[j].TimeSlot
	})
	return out, nil
}

func (r capacityRepo) Upsert(_ context.Context, o *domain.CapacityOverride) (*domain.CapacityOverride, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.overrides {
		if existing.Date == o.Date && existing.TimeSlot == o.TimeSlot {
			existing.Capacity = o.Capacity
			c := *existing
			return &c, nil
		}
	}
	n := *o
	n.ID = r.s.nextID("overrides")
	n.CreatedAt = r.s.now()
	r.s.overrides[n.ID] = &n
	c := n
	return &c, nil
}

func (r capacityRepo) Delete(_ context.Context, id int64) (*domain.CapacityOverride, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.overrides[id]
	if !ok {
		return nil, nil
	}
	delete(r.s.overrides, id)
	c := *o
	return &c, nil
}
