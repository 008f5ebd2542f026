package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diagnosis/cleanbook/pkg/cache"
	"github.com/diagnosis/cleanbook/pkg/utils"
	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/diagnosis/cleanbook/services/bookings/internal/repository"
)

const contentCacheTTL = 5 * time.Minute

// ContentService backs the marketing pages: CMS sections with key/value
// content, assets, FAQs and customer reviews.
type ContentService interface {
	ListSections(ctx context.Context, activeOnly bool) ([]domain.CmsSection, error)
	SaveSection(ctx context.Context, sec *domain.CmsSection) (*domain.CmsSection, error)
	DeleteSection(ctx context.Context, key string) error

	// Content returns a section as a key->value map.
	Content(ctx context.Context, section string) (map[string]string, error)
	SaveContent(ctx context.Context, section string, entries map[string]string) (map[string]string, error)

	ListAssets(ctx context.Context, section string) ([]domain.CmsAsset, error)
	CreateAsset(ctx context.Context, a *domain.CmsAsset) (*domain.CmsAsset, error)
	DeleteAsset(ctx context.Context, id int64) error

	ListFAQs(ctx context.Context, publishedOnly bool) ([]domain.FAQ, error)
	CreateFAQ(ctx context.Context, f *domain.FAQ) (*domain.FAQ, error)
	UpdateFAQ(ctx context.Context, id int64, f *domain.FAQ) (*domain.FAQ, error)
	DeleteFAQ(ctx context.Context, id int64) error

	ListReviews(ctx context.Context, publishedOnly bool, limit, offset int) ([]domain.Review, error)
	PublishReview(ctx context.Context, id int64, published bool) (*domain.Review, error)
	DeleteReview(ctx context.Context, id int64) error
}

type contentService struct {
	contentRepo repository.ContentRepository
	reviewRepo  repository.ReviewRepository
	cache       *cache.Query[map[string]string]
}

func NewContentService(contentRepo repository.ContentRepository, reviewRepo repository.ReviewRepository, store cache.Store) ContentService {
	return &contentService{
		contentRepo: contentRepo,
		reviewRepo:  reviewRepo,
		cache:       cache.NewQuery[map[string]string](store, "cms-content", contentCacheTTL),
	}
}

func sectionKey(key string) string {
	return strings.ToLower(utils.NormalizeString(key))
}

func (s *contentService) ListSections(ctx context.Context, activeOnly bool) ([]domain.CmsSection, error) {
	return s.contentRepo.ListSections(ctx, activeOnly)
}

func (s *contentService) SaveSection(ctx context.Context, sec *domain.CmsSection) (*domain.CmsSection, error) {
	sec.Key = sectionKey(sec.Key)
	sec.Title = utils.NormalizeString(sec.Title)
	saved, err := s.contentRepo.UpsertSection(ctx, sec)
	if err != nil {
		return nil, fmt.Errorf("save cms section: %w", err)
	}
	return saved, nil
}

func (s *contentService) DeleteSection(ctx context.Context, key string) error {
	key = sectionKey(key)
	ok, err := s.contentRepo.DeleteSection(ctx, key)
	if err != nil {
		return fmt.Errorf("delete cms section: %w", err)
	}
	if !ok {
		return domain.ErrNotFound
	}
	s.cache.Invalidate(ctx, key)
	return nil
}

func contentMap(entries []domain.CmsContent) map[string]string {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Value
	}
	return out
}

func (s *contentService) Content(ctx context.Context, section string) (map[string]string, error) {
	section = sectionKey(section)
	return s.cache.Get(ctx, section, func(ctx context.Context) (map[string]string, error) {
		entries, err := s.contentRepo.GetContent(ctx, section)
		if err != nil {
			return nil, fmt.Errorf("load cms content: %w", err)
		}
		return contentMap(entries), nil
	})
}

func (s *contentService) SaveContent(ctx context.Context, section string, entries map[string]string) (map[string]string, error) {
	section = sectionKey(section)
	clean := make(map[string]string, len(entries))
	for k, v := range entries {
		k = utils.NormalizeString(k)
		if k == "" {
			continue
		}
		clean[k] = v
	}
	saved, err := s.contentRepo.UpsertContent(ctx, section, clean)
	if err != nil {
		return nil, fmt.Errorf("save cms content: %w", err)
	}
	s.cache.Invalidate(ctx, section)
	return contentMap(saved), nil
}

func (s *contentService) ListAssets(ctx context.Context, section string) ([]domain.CmsAsset, error) {
	if section != "" {
		section = sectionKey(section)
	}
	return s.contentRepo.ListAssets(ctx, section)
}

func (s *contentService) CreateAsset(ctx context.Context, a *domain.CmsAsset) (*domain.CmsAsset, error) {
	a.Section = sectionKey(a.Section)
	created, err := s.contentRepo.CreateAsset(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("create cms asset: %w", err)
	}
	return created, nil
}

func (s *contentService) DeleteAsset(ctx context.Context, id int64) error {
	ok, err := s.contentRepo.DeleteAsset(ctx, id)
	if err != nil {
		return fmt.Errorf("delete cms asset: %w", err)
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

func (s *contentService) ListFAQs(ctx context.Context, publishedOnly bool) ([]domain.FAQ, error) {
	return s.contentRepo.ListFAQs(ctx, publishedOnly)
}

func (s *contentService) CreateFAQ(ctx context.Context, f *domain.FAQ) (*domain.FAQ, error) {
	f.Question = utils.NormalizeString(f.Question)
	f.Category = utils.NormalizeString(f.Category)
	created, err := s.contentRepo.CreateFAQ(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("create faq: %w", err)
	}
	return created, nil
}

func (s *contentService) UpdateFAQ(ctx context.Context, id int64, f *domain.FAQ) (*domain.FAQ, error) {
	f.Question = utils.NormalizeString(f.Question)
	f.Category = utils.NormalizeString(f.Category)
	updated, err := s.contentRepo.UpdateFAQ(ctx, id, f)
	if err != nil {
		return nil, fmt.Errorf("update faq: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrNotFound
	}
	return updated, nil
}

func (s *contentService) DeleteFAQ(ctx context.Context, id int64) error {
	ok, err := s.contentRepo.DeleteFAQ(ctx, id)
	if err != nil {
		return fmt.Errorf("delete faq: %w", err)
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

func (s *contentService) ListReviews(ctx context.Context, publishedOnly bool, limit, offset int) ([]domain.Review, error) {
	return s.reviewRepo.List(ctx, publishedOnly, limit, offset)
}

func (s *contentService) PublishReview(ctx context.Context, id int64, published bool) (*domain.Review, error) {
	rv, err := s.reviewRepo.SetPublished(ctx, id, published)
	if err != nil {
		return nil, fmt.Errorf("publish review: %w", err)
	}
	if rv == nil {
		return nil, domain.ErrNotFound
	}
	return rv, nil
}

func (s *contentService) DeleteReview(ctx context.Context, id int64) error {
	ok, err := s.reviewRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}
