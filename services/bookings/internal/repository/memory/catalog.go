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

type promoRepo struct{ s *Store }

func promoFromInput(p *domain.PromoCode, in domain.PromoCodeInput) {
	p.Code = in.Code
	p.Description = in.Description
	p.DiscountType = in.DiscountType
	p.DiscountValue = in.DiscountValue
	p.MinSubtotalCents = in.MinSubtotalCents
	p.ValidFrom = in.ValidFrom
	p.ValidUntil = in.ValidUntil
	p.MaxUses = in.MaxUses
	p.IsActive = in.IsActive
}

func (r promoRepo) codeTaken(code string, exceptID int64) bool {
	for _, p := range r.s.promos {
		if p.ID != exceptID && strings.EqualFold(p.Code, code) {
			return true
		}
	}
	return false
}

func (r promoRepo) GetByCode(_ context.Context, code string) (*domain.PromoCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.promos {
		if strings.EqualFold(p.Code, code) {
			c := *p
			return &c, nil
		}
	}
	return nil, nil
}

func (r promoRepo) GetByID(_ context.Context, id int64) (*domain.PromoCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.promos[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, nil
}

func (r promoRepo) List(_ context.Context, limit, offset int) ([]domain.PromoCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.PromoCode, 0, len(r.s.promos))
	for _, p := range r.s.promos {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, limit, offset), nil
}

func (r promoRepo) Create(_ context.Context, in domain.PromoCodeInput) (*domain.PromoCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.codeTaken(in.Code, 0) {
		return nil, fmt.Errorf("promo code %s: %w", in.Code, domain.ErrDuplicate)
	}
	p := &domain.PromoCode{ID: r.s.nextID("promos"), CreatedAt: r.s.now()}
	promoFromInput(p, in)
	p.UpdatedAt = p.CreatedAt
	r.s.promos[p.ID] = p
	c := *p
	return &c, nil
}

func (r promoRepo) Update(_ context.Context, id int64, in domain.PromoCodeInput) (*domain.PromoCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.promos[id]
	if !ok {
		return nil, nil
	}
	if r.codeTaken(in.Code, id) {
		return nil, fmt.Errorf("promo code %s: %w", in.Code, domain.ErrDuplicate)
	}
	promoFromInput(p, in)
	p.UpdatedAt = r.s.now()
	c := *p
	return &c, nil
}

func (r promoRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.promos[id]
	delete(r.s.promos, id)
	return ok, nil
}

func (r promoRepo) IncrementUsage(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.promos[id]
	if !ok || (p.MaxUses != nil && p.UsageCount >= *p.MaxUses) {
		return false, nil
	}
	p.UsageCount++
	return true, nil
}

func (r promoRepo) ReleaseUsage(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.promos[id]; ok && p.UsageCount > 0 {
		p.UsageCount--
	}
	return nil
}

type referralRepo struct{ s *Store }

func (r referralRepo) Create(_ context.Context, ref *domain.Referral) (*domain.Referral, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.referrals {
		if strings.EqualFold(existing.RefereeEmail, ref.RefereeEmail) {
			return nil, domain.ErrAlreadyReferred
		}
	}
	n := *ref
	n.ID = r.s.nextID("referrals")
	n.ReferrerEmail = strings.ToLower(n.ReferrerEmail)
	n.RefereeEmail = strings.ToLower(n.RefereeEmail)
	n.Status = domain.ReferralPending
	n.CreatedAt = r.s.now()
	r.s.referrals[n.ID] = &n
	c := n
	return &c, nil
}

func (r referralRepo) GetByRefereeEmail(_ context.Context, email string) (*domain.Referral, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ref := range r.s.referrals {
		if strings.EqualFold(ref.RefereeEmail, email) {
			c := *ref
			return &c, nil
		}
	}
	return nil, nil
}

func (r referralRepo) ListByReferrer(_ context.Context, email string) ([]domain.Referral, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Referral
	for _, ref := range r.s.referrals {
		if strings.EqualFold(ref.ReferrerEmail, email) {
			out = append(out, *ref)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r referralRepo) CompleteForBooking(_ context.Context, bookingID int64, at time.Time) (*domain.Referral, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ref := range r.s.referrals {
		if ref.BookingID == bookingID && ref.Status == domain.ReferralPending {
			ref.Status = domain.ReferralCompleted
			ref.CompletedAt = ptr(at)
			c := *ref
			return &c, nil
		}
	}
	return nil, nil
}

type customerRepo struct{ s *Store }

func (r customerRepo) find(match func(*domain.Customer) bool) *domain.Customer {
	for _, c := range r.s.customers {
		if match(c) {
			cp := *c
			return &cp
		}
	}
	return nil
}

func (r customerRepo) UpsertByEmail(_ context.Context, in *domain.Customer) (*domain.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	for _, c := range r.s.customers {
		if strings.EqualFold(c.Email, in.Email) {
			c.Name, c.Phone, c.Address, c.ZipCode = in.Name, in.Phone, in.Address, in.ZipCode
			c.TotalBookings++
			c.UpdatedAt = now
			cp := *c
			return &cp, nil
		}
	}
	c := *in
	c.ID = r.s.nextID("customers")
	c.Email = strings.ToLower(c.Email)
	c.TotalBookings = 1
	c.CreatedAt, c.UpdatedAt = now, now
	r.s.customers[c.ID] = &c
	cp := c
	return &cp, nil
}

func (r customerRepo) GetByID(_ context.Context, id int64) (*domain.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.find(func(c *domain.Customer) bool { return c.ID == id }), nil
}

func (r customerRepo) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.find(func(c *domain.Customer) bool { return strings.EqualFold(c.Email, email) }), nil
}

func (r customerRepo) GetByReferralCode(_ context.Context, code string) (*domain.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.find(func(c *domain.Customer) bool { return strings.EqualFold(c.ReferralCode, code) }), nil
}

func (r customerRepo) List(_ context.Context, search string, limit, offset int) ([]domain.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	needle := strings.ToLower(search)
	var out []domain.Customer
	for _, c := range r.s.customers {
		if needle != "" &&
			!strings.Contains(strings.ToLower(c.Name), needle) &&
			!strings.Contains(strings.ToLower(c.Email), needle) &&
			!strings.Contains(c.Phone, needle) {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, limit, offset), nil
}

func (r customerRepo) Update(_ context.Context, id int64, p domain.CustomerPatch) (*domain.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.customers[id]
	if !ok {
		return nil, nil
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.Address != nil {
		c.Address = *p.Address
	}
	if p.ZipCode != nil {
		c.ZipCode = *p.ZipCode
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
	c.UpdatedAt = r.s.now()
	cp := *c
	return &cp, nil
}

type areaRepo struct{ s *Store }

func cloneArea(a *domain.ServiceArea) *domain.ServiceArea {
	c := *a
	c.ZipCodes = slices.Clone(a.ZipCodes)
	return &c
}

func (r areaRepo) List(_ context.Context, activeOnly bool) ([]domain.ServiceArea, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.ServiceArea
	for _, a := range r.s.areas {
		if activeOnly && !a.IsActive {
			continue
		}
		out = append(out, *cloneArea(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r areaRepo) GetByID(_ context.Context, id int64) (*domain.ServiceArea, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a, ok := r.s.areas[id]; ok {
		return cloneArea(a), nil
	}
	return nil, nil
}

func (r areaRepo) FindByZip(_ context.Context, zip string) (*domain.ServiceArea, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var found *domain.ServiceArea
	for _, a := range r.s.areas {
		if a.Serves(zip) && (found == nil || a.ID < found.ID) {
			found = a
		}
	}
	if found == nil {
		return nil, nil
	}
	return cloneArea(found), nil
}

func (r areaRepo) Create(_ context.Context, a *domain.ServiceArea) (*domain.ServiceArea, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := cloneArea(a)
	n.ID = r.s.nextID("areas")
	n.CreatedAt = r.s.now()
	n.UpdatedAt = n.CreatedAt
	r.s.areas[n.ID] = n
	return cloneArea(n), nil
}

func (r areaRepo) Update(_ context.Context, id int64, a *domain.ServiceArea) (*domain.ServiceArea, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.areas[id]
	if !ok {
		return nil, nil
	}
	cur.Name = a.Name
	cur.ZipCodes = slices.Clone(a.ZipCodes)
	cur.IsActive = a.IsActive
	cur.UpdatedAt = r.s.now()
	return cloneArea(cur), nil
}

func (r areaRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.areas[id]
	delete(r.s.areas, id)
	return ok, nil
}
