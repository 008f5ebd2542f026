package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
)

type recurringRepo struct{ s *Store }

func (r recurringRepo) Create(_ context.Context, rb *domain.RecurringBooking) (*domain.RecurringBooking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := *rb
	n.ID = r.s.nextID("recurring")
	if n.Status == "" {
		n.Status = domain.RecurringActive
	}
	n.CreatedAt = r.s.now()
	n.UpdatedAt = n.CreatedAt
	r.s.recurring[n.ID] = &n
	c := n
	return &c, nil
}

func (r recurringRepo) GetByID(_ context.Context, id int64) (*domain.RecurringBooking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if rb, ok := r.s.recurring[id]; ok {
		c := *rb
		return &c, nil
	}
	return nil, nil
}

func (r recurringRepo) List(_ context.Context, status *domain.RecurringStatus, limit, offset int) ([]domain.RecurringBooking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.RecurringBooking
	for _, rb := range r.s.recurring {
		if status == nil || rb.Status == *status {
			out = append(out, *rb)
		}
	}
	sortRecurring(out)
	return page(out, limit, offset), nil
}

func (r recurringRepo) Save(_ context.Context, rb *domain.RecurringBooking) (*domain.RecurringBooking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.recurring[rb.ID]
	if !ok {
		return nil, nil
	}
	cur.TimeSlot = rb.TimeSlot
	cur.Frequency = rb.Frequency
	cur.NextOccurrence = rb.NextOccurrence
	cur.AnchorDay = rb.AnchorDay
	cur.EndDate = rb.EndDate
	cur.Status = rb.Status
	cur.Notes = rb.Notes
	cur.UpdatedAt = r.s.now()
	c := *cur
	return &c, nil
}

func (r recurringRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.recurring[id]
	delete(r.s.recurring, id)
	return ok, nil
}

func (r recurringRepo) ListDue(_ context.Context, through string) ([]domain.RecurringBooking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.RecurringBooking
	for _, rb := range r.s.recurring {
		if rb.Status == domain.RecurringActive && rb.NextOccurrence <= through {
			out = append(out, *rb)
		}
	}
	sortRecurring(out)
	return out, nil
}

func sortRecurring(out []domain.RecurringBooking) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].NextOccurrence != out[j].NextOccurrence {
			return out[i].NextOccurrence < out[j].NextOccurrence
		}
		return out[i].ID < out[j].ID
	})
}

type rescheduleRepo struct{ s *Store }

func (r rescheduleRepo) Create(_ context.Context, req *domain.RescheduleRequest) (*domain.RescheduleRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rr := range r.s.reschedules {
		if rr.BookingID == req.BookingID && rr.Status == domain.ReschedulePending {
			return nil, domain.ErrPendingReschedule
		}
	}
	n := *req
	n.ID = r.s.nextID("reschedules")
	n.Status = domain.ReschedulePending
	n.CreatedAt = r.s.now()
	r.s.reschedules[n.ID] = &n
	c := n
	return &c, nil
}

func (r rescheduleRepo) GetByID(_ context.Context, id int64) (*domain.RescheduleRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if rr, ok := r.s.reschedules[id]; ok {
		c := *rr
		return &c, nil
	}
	return nil, nil
}

func (r rescheduleRepo) List(_ context.Context, status *domain.RescheduleStatus, limit, offset int) ([]domain.RescheduleRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.RescheduleRequest
	for _, rr := range r.s.reschedules {
		if status == nil || rr.Status == *status {
			out = append(out, *rr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, limit, offset), nil
}

func (r rescheduleRepo) PendingForBooking(_ context.Context, bookingID int64) (*domain.RescheduleRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rr := range r.s.reschedules {
		if rr.BookingID == bookingID && rr.Status == domain.ReschedulePending {
			c := *rr
			return &c, nil
		}
	}
	return nil, nil
}

func (r rescheduleRepo) Decide(_ context.Context, id int64, status domain.RescheduleStatus, note string, by *int64, at time.Time) (*domain.RescheduleRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rr, ok := r.s.reschedules[id]
	if !ok || rr.Status != domain.ReschedulePending {
		return nil, nil
	}
	rr.Status = status
	rr.AdminNote = note
	rr.DecidedBy = by
	rr.DecidedAt = ptr(at)
	c := *rr
	return &c, nil
}

type employeeRepo struct{ s *Store }

func cloneEmployee(e *domain.Employee) *domain.Employee {
	c := *e
	c.Permissions = slices.Clone(e.Permissions)
	if c.Permissions == nil {
		c.Permissions = []string{}
	}
	return &c
}

func (r employeeRepo) emailTaken(email string, exceptID int64) bool {
	for _, e := range r.s.employees {
		if e.ID != exceptID && strings.EqualFold(e.Email, email) {
			return true
		}
	}
	return false
}

func (r employeeRepo) Create(_ context.Context, e *domain.Employee) (*domain.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.emailTaken(e.Email, 0) {
		return nil, fmt.Errorf("employee %s: %w", e.Email, domain.ErrDuplicate)
	}
	n := cloneEmployee(e)
	n.ID = r.s.nextID("employees")
	n.Email = strings.ToLower(n.Email)
	n.CreatedAt = r.s.now()
	n.UpdatedAt = n.CreatedAt
	r.s.employees[n.ID] = n
	return cloneEmployee(n), nil
}

func (r employeeRepo) GetByID(_ context.Context, id int64) (*domain.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if e, ok := r.s.employees[id]; ok {
		return cloneEmployee(e), nil
	}
	return nil, nil
}

func (r employeeRepo) List(_ context.Context, activeOnly bool) ([]domain.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Employee
	for _, e := range r.s.employees {
		if activeOnly && !e.IsActive {
			continue
		}
		out = append(out, *cloneEmployee(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r employeeRepo) Update(_ context.Context, id int64, e *domain.Employee) (*domain.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.employees[id]
	if !ok {
		return nil, nil
	}
	if r.emailTaken(e.Email, id) {
		return nil, fmt.Errorf("employee %s: %w", e.Email, domain.ErrDuplicate)
	}
	cur.Name, cur.Email, cur.Phone, cur.Position = e.Name, strings.ToLower(e.Email), e.Phone, e.Position
	cur.Permissions = slices.Clone(e.Permissions)
	cur.IsActive = e.IsActive
	cur.UpdatedAt = r.s.now()
	return cloneEmployee(cur), nil
}

func (r employeeRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.employees[id]
	delete(r.s.employees, id)
	return ok, nil
}

type invoiceRepo struct{ s *Store }

func (r invoiceRepo) Create(_ context.Context, inv *domain.Invoice) (*domain.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.invoices {
		if existing.BookingID == inv.BookingID {
			c := *existing
			return &c, nil
		}
	}
	n := *inv
	n.ID = r.s.nextID("invoices")
	n.Status = domain.InvoiceUnpaid
	r.s.invoices[n.ID] = &n
	c := n
	return &c, nil
}

func (r invoiceRepo) GetByID(_ context.Context, id int64) (*domain.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if inv, ok := r.s.invoices[id]; ok {
		c := *inv
		return &c, nil
	}
	return nil, nil
}

func (r invoiceRepo) List(_ context.Context, status *domain.InvoiceStatus, limit, offset int) ([]domain.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Invoice
	for _, inv := range r.s.invoices {
		if status == nil || inv.Status == *status {
			out = append(out, *inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, limit, offset), nil
}

func (r invoiceRepo) SetStatus(_ context.Context, id int64, status domain.InvoiceStatus, at time.Time) (*domain.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[id]
	if !ok || inv.Status != domain.InvoiceUnpaid {
		return nil, nil
	}
	inv.Status = status
	if status == domain.InvoicePaid {
		inv.PaidAt = ptr(at)
	}
	c := *inv
	return &c, nil
}

type analyticsRepo struct{ s *Store }

func (r analyticsRepo) Summary(_ context.Context, from, to string) (*domain.AnalyticsSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sum := &domain.AnalyticsSummary{
		From:      from,
		To:        to,
		ByStatus:  make(map[string]int),
		ByService: make(map[string]int),
	}
	for _, b := range r.s.bookings {
		if (from != "" && b.Date < from) || (to != "" && b.Date > to) {
			continue
		}
		sum.TotalBookings++
		sum.ByStatus[string(b.Status)]++
		sum.ByService[b.Service]++
		if b.Status == domain.BookingCompleted {
			sum.RevenueCents += b.TotalCents
		}
		if b.Status != domain.BookingCancelled {
			sum.DiscountCents += b.DiscountCents
		}
		if b.CancellationFeeStatus == domain.FeeCharged {
			sum.CancellationFeesCents += b.CancellationFeeCents
		}
	}
	if n := sum.ByStatus[string(domain.BookingCompleted)]; n > 0 {
		sum.AverageTicketCents = sum.RevenueCents / int64(n)
	}
	return sum, nil
}
