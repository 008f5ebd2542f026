package memory

import (
	"context"
	"sort"

	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
)

type contentRepo struct{ s *Store }

func (r contentRepo) ListSections(_ context.Context, activeOnly bool) ([]domain.CmsSection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.CmsSection
	for _, sec := range r.s.sections {
		if activeOnly && !sec.IsActive {
			continue
		}
		out = append(out, *sec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func (r contentRepo) UpsertSection(_ context.Context, sec *domain.CmsSection) (*domain.CmsSection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.sections[sec.Key]
	if !ok {
		cur = &domain.CmsSection{ID: r.s.nextID("sections"), Key: sec.Key}
		r.s.sections[sec.Key] = cur
	}
	cur.Title, cur.Description, cur.SortOrder, cur.IsActive = sec.Title, sec.Description, sec.SortOrder, sec.IsActive
	cur.UpdatedAt = r.s.now()
	c := *cur
	return &c, nil
}

func (r contentRepo) DeleteSection(_ context.Context, key string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.sections[key]
	delete(r.s.sections, key)
	delete(r.s.content, key)
	return ok, nil
}

func (r contentRepo) getContent(section string) []domain.CmsContent {
	var out []domain.CmsContent
	for _, c := range r.s.content[section] {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (r contentRepo) GetContent(_ context.Context, section string) ([]domain.CmsContent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.getContent(section), nil
}

func (r contentRepo) UpsertContent(_ context.Context, section string, entries map[string]string) ([]domain.CmsContent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sec, ok := r.s.content[section]
	if !ok {
		sec = make(map[string]*domain.CmsContent)
		r.s.content[section] = sec
	}
	now := r.s.now()
	for k, v := range entries {
		cur, ok := sec[k]
		if !ok {
			cur = &domain.CmsContent{ID: r.s.nextID("content"), Section: section, Key: k}
			sec[k] = cur
		}
		cur.Value = v
		cur.UpdatedAt = now
	}
	return r.getContent(section), nil
}

func (r contentRepo) ListAssets(_ context.Context, section string) ([]domain.CmsAsset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.CmsAsset
	for _, a := range r.s.assets {
		if section == "" || a.Section == section {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r contentRepo) CreateAsset(_ context.Context, a *domain.CmsAsset) (*domain.CmsAsset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := *a
	n.ID = r.s.nextID("assets")
	n.CreatedAt = r.s.now()
	r.s.assets[n.ID] = &n
	c := n
	return &c, nil
}

func (r contentRepo) DeleteAsset(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.assets[id]
	delete(r.s.assets, id)
	return ok, nil
}

func (r contentRepo) ListFAQs(_ context.Context, publishedOnly bool) ([]domain.FAQ, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.FAQ
	for _, f := range r.s.faqs {
		if publishedOnly && !f.IsPublished {
			continue
		}
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r contentRepo) CreateFAQ(_ context.Context, f *domain.FAQ) (*domain.FAQ, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := *f
	n.ID = r.s.nextID("faqs")
	n.UpdatedAt = r.s.now()
	r.s.faqs[n.ID] = &n
	c := n
	return &c, nil
}

func (r contentRepo) UpdateFAQ(_ context.Context, id int64, f *domain.FAQ) (*domain.FAQ, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.faqs[id]
	if !ok {
		return nil, nil
	}
	cur.Question, cur.Answer, cur.Category = f.Question, f.Answer, f.Category
	cur.SortOrder, cur.IsPublished = f.SortOrder, f.IsPublished
	cur.UpdatedAt = r.s.now()
	c := *cur
	return &c, nil
}

func (r contentRepo) DeleteFAQ(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.faqs[id]
	delete(r.s.faqs, id)
	return ok, nil
}

type reviewRepo struct{ s *Store }

func (r reviewRepo) Create(_ context.Context, rv *domain.Review) (*domain.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.reviews {
		if existing.BookingID == rv.BookingID {
			return nil, domain.ErrAlreadyReviewed
		}
	}
	n := *rv
	n.ID = r.s.nextID("reviews")
	n.IsPublished = false
	n.CreatedAt = r.s.now()
	r.s.reviews[n.ID] = &n
	c := n
	return &c, nil
}

func (r reviewRepo) List(_ context.Context, publishedOnly bool, limit, offset int) ([]domain.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Review
	for _, rv := range r.s.reviews {
		if publishedOnly && !rv.IsPublished {
			continue
		}
		out = append(out, *rv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, limit, offset), nil
}

func (r reviewRepo) SetPublished(_ context.Context, id int64, published bool) (*domain.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv, ok := r.s.reviews[id]
	if !ok {
		return nil, nil
	}
	rv.IsPublished = published
	c := *rv
	return &c, nil
}

func (r reviewRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.reviews[id]
	delete(r.s.reviews, id)
	return ok, nil
}
