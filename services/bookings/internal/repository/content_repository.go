package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ContentRepository stores the marketing CMS: sections, their key/value
// content, uploaded assets and the FAQ.
type ContentRepository interface {
	ListSections(ctx context.Context, activeOnly bool) ([]domain.CmsSection, error)
	UpsertSection(ctx context.Context, s *domain.CmsSection) (*domain.CmsSection, error)
	DeleteSection(ctx context.Context, key string) (bool, error)

	GetContent(ctx context.Context, section string) ([]domain.CmsContent, error)
	// UpsertContent writes all entries of a section atomically.
	UpsertContent(ctx context.Context, section string, entries map[string]string) ([]domain.CmsContent, error)

	ListAssets(ctx context.Context, section string) ([]domain.CmsAsset, error)
	CreateAsset(ctx context.Context, a *domain.CmsAsset) (*domain.CmsAsset, error)
	DeleteAsset(ctx context.Context, id int64) (bool, error)

	ListFAQs(ctx context.Context, publishedOnly bool) ([]domain.FAQ, error)
	CreateFAQ(ctx context.Context, f *domain.FAQ) (*domain.FAQ, error)
	UpdateFAQ(ctx context.Context, id int64, f *domain.FAQ) (*domain.FAQ, error)
	DeleteFAQ(ctx context.Context, id int64) (bool, error)
}

type contentRepository struct {
	pool *pgxpool.Pool
}

func NewContentRepository(pool *pgxpool.Pool) ContentRepository {
	return &contentRepository{pool: pool}
}

const (
	sectionCols = `id, key, title, description, sort_order, is_active, updated_at`
	contentCols = `id, section, key, value, updated_at`
	assetCols   = `id, section, file_name, url, alt_text, created_at`
	faqCols     = `id, question, answer, category, sort_order, is_published, updated_at`
)

func scanSection(row pgx.Row) (*domain.CmsSection, error) {
	var s domain.CmsSection
	if err := row.Scan(&s.ID, &s.Key, &s.Title, &s.Description, &s.SortOrder, &s.IsActive, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanFAQ(row pgx.Row) (*domain.FAQ, error) {
	var f domain.FAQ
	err := row.Scan(&f.ID, &f.Question, &f.Answer, &f.Category, &f.SortOrder, &f.IsPublished, &f.UpdatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *contentRepository) ListSections(ctx context.Context, activeOnly bool) ([]domain.CmsSection, error) {
	q := `SELECT ` + sectionCols + ` FROM cms_sections`
	if activeOnly {
		q += ` WHERE is_active`
	}
	q += ` ORDER BY sort_order, key`

	ctx, cancel := withTimeout(ctx)
	defer cancel()
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CmsSection
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *contentRepository) UpsertSection(ctx context.Context, s *domain.CmsSection) (*domain.CmsSection, error) {
	const q = `INSERT INTO cms_sections (key, title, description, sort_order, is_active)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (key) DO UPDATE SET title = EXCLUDED.title, description = EXCLUDED.description,
		sort_order = EXCLUDED.sort_order, is_active = EXCLUDED.is_active, updated_at = now()
	RETURNING ` + sectionCols
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanSection(r.pool.QueryRow(ctx, q, s.Key, s.Title, s.Description, s.SortOrder, s.IsActive))
}

func (r *contentRepository) DeleteSection(ctx context.Context, key string) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM cms_content WHERE section = $1`, key); err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM cms_sections WHERE key = $1`, key)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, tx.Commit(ctx)
}

func (r *contentRepository) GetContent(ctx context.Context, section string) ([]domain.CmsContent, error) {
	const q = `SELECT ` + contentCols + ` FROM cms_content WHERE section = $1 ORDER BY key`
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, section)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CmsContent
	for rows.Next() {
		var c domain.CmsContent
		if err := rows.Scan(&c.ID, &c.Section, &c.Key, &c.Value, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *contentRepository) UpsertContent(ctx context.Context, section string, entries map[string]string) ([]domain.CmsContent, error) {
	const q = `INSERT INTO cms_content (section, key, value) VALUES ($1, $2, $3)
	ON CONFLICT (section, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ctx, cancel := withTimeout(ctx)
	defer cancel()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, k := range keys {
		batch.Queue(q, section, k, entries[k])
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("upsert %s content: %w", section, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetContent(ctx, section)
}

func (r *contentRepository) ListAssets(ctx context.Context, section string) ([]domain.CmsAsset, error) {
	q := `SELECT ` + assetCols + ` FROM cms_assets`
	args := []any{}
	if section != "" {
		q += ` WHERE section = $1`
		args = append(args, section)
	}
	q += ` ORDER BY created_at DESC`

	ctx, cancel := withTimeout(ctx)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CmsAsset
	for rows.Next() {
		var a domain.CmsAsset
		if err := rows.Scan(&a.ID, &a.Section, &a.FileName, &a.URL, &a.AltText, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *contentRepository) CreateAsset(ctx context.Context, a *domain.CmsAsset) (*domain.CmsAsset, error) {
	const q = `INSERT INTO cms_assets (section, file_name, url, alt_text) VALUES ($1, $2, $3, $4) RETURNING ` + assetCols
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var out domain.CmsAsset
	err := r.pool.QueryRow(ctx, q, a.Section, a.FileName, a.URL, a.AltText).
		Scan(&out.ID, &out.Section, &out.FileName, &out.URL, &out.AltText, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *contentRepository) DeleteAsset(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	tag, err := r.pool.Exec(ctx, `DELETE FROM cms_assets WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *contentRepository) ListFAQs(ctx context.Context, publishedOnly bool) ([]domain.FAQ, error) {
	q := `SELECT ` + faqCols + ` FROM faqs`
	if publishedOnly {
		q += ` WHERE is_published`
	}
	q += ` ORDER BY category, sort_order, id`

	ctx, cancel := withTimeout(ctx)
	defer cancel()
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.FAQ
	for rows.Next() {
		f, err := scanFAQ(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (r *contentRepository) CreateFAQ(ctx context.Context, f *domain.FAQ) (*domain.FAQ, error) {
	const q = `INSERT INTO faqs (question, answer, category, sort_order, is_published)
	VALUES ($1, $2, $3, $4, $5) RETURNING ` + faqCols
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanFAQ(r.pool.QueryRow(ctx, q, f.Question, f.Answer, f.Category, f.SortOrder, f.IsPublished))
}

func (r *contentRepository) UpdateFAQ(ctx context.Context, id int64, f *domain.FAQ) (*domain.FAQ, error) {
	const q = `UPDATE faqs SET question = $2, answer = $3, category = $4, sort_order = $5,
		is_published = $6, updated_at = now()
	WHERE id = $1 RETURNING ` + faqCols
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return scanFAQ(r.pool.QueryRow(ctx, q, id, f.Question, f.Answer, f.Category, f.SortOrder, f.IsPublished))
}

func (r *contentRepository) DeleteFAQ(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	tag, err := r.pool.Exec(ctx, `DELETE FROM faqs WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
