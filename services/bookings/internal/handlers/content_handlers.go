package handlers

import (
	"net/http"

	"github.com/diagnosis/cleanbook/pkg/response"
	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

func (h *Handlers) ListPublicSections(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ListPublicSections"

	list, err := h.svc.Content.ListSections(r.Context(), true)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, list)
}

// GetContentBatch returns one section as a key->value map.
func (h *Handlers) GetContentBatch(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.GetContentBatch"

	content, err := h.svc.Content.Content(r.Context(), chi.URLParam(r, "section"))
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, content)
}

// SaveContentBatch upserts every key of the body into the section.
func (h *Handlers) SaveContentBatch(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.SaveContentBatch"

	var entries map[string]string
	if err := render.DecodeJSON(r.Body, &entries); err != nil {
		response.BadRequest(w, r, "Invalid JSON format")
		return
	}
	content, err := h.svc.Content.SaveContent(r.Context(), chi.URLParam(r, "section"), entries)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, content)
}

func (h *Handlers) ListAssets(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ListAssets"

	list, err := h.svc.Content.ListAssets(r.Context(), r.URL.Query().Get("section"))
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, list)
}

func (h *Handlers) ListPublicFAQs(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ListPublicFAQs"

	list, err := h.svc.Content.ListFAQs(r.Context(), true)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, list)
}

func (h *Handlers) ListPublicReviews(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ListPublicReviews"

	limit, offset := parsePagination(r)
	list, err := h.svc.Content.ListReviews(r.Context(), true, limit, offset)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, list)
}

// Admin

func (h *Handlers) ListSections(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ListSections"

	list, err := h.svc.Content.ListSections(r.Context(), false)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, list)
}

func (h *Handlers) SaveSection(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.SaveSection"

	var sec domain.CmsSection
	if !h.decode(w, r, &sec) {
		return
	}
	saved, err := h.svc.Content.SaveSection(r.Context(), &sec)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, saved)
}

func (h *Handlers) DeleteSection(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.DeleteSection"

	if err := h.svc.Content.DeleteSection(r.Context(), chi.URLParam(r, "key")); err != nil {
		fail(w, r, op, err)
		return
	}
	render.NoContent(w, r)
}

func (h *Handlers) CreateAsset(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.CreateAsset"

	var a domain.CmsAsset
	if !h.decode(w, r, &a) {
		return
	}
	saved, err := h.svc.Content.CreateAsset(r.Context(), &a)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	created(w, r, saved)
}

func (h *Handlers) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.DeleteAsset"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.Content.DeleteAsset(r.Context(), id); err != nil {
		fail(w, r, op, err)
		return
	}
	render.NoContent(w, r)
}

func (h *Handlers) ListFAQs(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ListFAQs"

	list, err := h.svc.Content.ListFAQs(r.Context(), false)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, list)
}

func (h *Handlers) CreateFAQ(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.CreateFAQ"

	var f domain.FAQ
	if !h.decode(w, r, &f) {
		return
	}
	saved, err := h.svc.Content.CreateFAQ(r.Context(), &f)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	created(w, r, saved)
}

func (h *Handlers) UpdateFAQ(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.UpdateFAQ"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var f domain.FAQ
	if !h.decode(w, r, &f) {
		return
	}
	saved, err := h.svc.Content.UpdateFAQ(r.Context(), id, &f)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, saved)
}

func (h *Handlers) DeleteFAQ(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.DeleteFAQ"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.Content.DeleteFAQ(r.Context(), id); err != nil {
		fail(w, r, op, err)
		return
	}
	render.NoContent(w, r)
}

func (h *Handlers) ListReviews(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ListReviews"

	limit, offset := parsePagination(r)
	list, err := h.svc.Content.ListReviews(r.Context(), queryBool(r, "published"), limit, offset)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, list)
}

type PublishReviewRequest struct {
	IsPublished bool `json:"isPublished"`
}

func (h *Handlers) PublishReview(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.PublishReview"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req PublishReviewRequest
	if !h.decode(w, r, &req) {
		return
	}
	rv, err := h.svc.Content.PublishReview(r.Context(), id, req.IsPublished)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, rv)
}

func (h *Handlers) DeleteReview(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.DeleteReview"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.Content.DeleteReview(r.Context(), id); err != nil {
		fail(w, r, op, err)
		return
	}
	render.NoContent(w, r)
}
