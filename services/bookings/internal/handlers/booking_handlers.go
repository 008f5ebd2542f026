package handlers

import (
	"net/http"

	"github.com/diagnosis/cleanbook/pkg/auth"
	"github.com/diagnosis/cleanbook/pkg/logger"
	"github.com/diagnosis/cleanbook/pkg/response"
	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type SlotsResponse struct {
	Date  string                    `json:"date"`
	Slots []domain.SlotAvailability `json:"slots"`
}

// AvailableSlots returns every fixed slot of ?date= with its remaining capacity.
func (h *Handlers) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.AvailableSlots"

	date := r.URL.Query().Get("date")
	if date == "" {
		response.BadRequest(w, r, "date is required")
		return
	}

	slots, err := h.svc.Availability.ForDate(r.Context(), date)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, SlotsResponse{Date: date, Slots: slots})
}

// ServiceCatalogue lists services, property sizes with prices and the daily slots.
func (h *Handlers) ServiceCatalogue(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.sched)
}

func (h *Handlers) QuoteBooking(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.QuoteBooking"

	var req domain.QuoteRequest
	if !h.decode(w, r, &req) {
		return
	}
	q, err := h.svc.Bookings.Quote(r.Context(), req)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, q)
}

// CreateBooking submits the wizard. An Idempotency-Key header makes retries
// return the booking created by the first attempt.
func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.CreateBooking"

	var req domain.CreateBookingRequest
	if !h.decode(w, r, &req) {
		return
	}

	b, err := h.svc.Bookings.Create(r.Context(), &req, r.Header.Get("Idempotency-Key"))
	if err != nil {
		fail(w, r, op, err)
		return
	}
	created(w, r, b)
}

func (h *Handlers) ValidatePromo(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ValidatePromo"

	var req domain.ValidatePromoRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Discounts.ValidatePromo(r.Context(), req)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, res)
}

func (h *Handlers) ValidateReferral(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ValidateReferral"

	var req domain.ValidateReferralRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Discounts.ValidateReferral(r.Context(), req)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, res)
}

func (h *Handlers) CheckZip(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.CheckZip"

	check, err := h.svc.Areas.Check(r.Context(), chi.URLParam(r, "zip"))
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, check)
}

type SetupIntentRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required"`
}

func (h *Handlers) CreateSetupIntent(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.CreateSetupIntent"

	var req SetupIntentRequest
	if !h.decode(w, r, &req) {
		return
	}
	si, err := h.svc.Billing.SetupIntent(r.Context(), req.Email, req.Name)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, si)
}

// Management token handlers. The token in the confirmation email is the only
// credential a guest has.

func (h *Handlers) GetManagedBooking(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.GetManagedBooking"

	view, err := h.svc.Bookings.GetByToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, view)
}

func (h *Handlers) CancelManagedBooking(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.CancelManagedBooking"

	var req domain.CancelRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.svc.Bookings.CancelByToken(r.Context(), chi.URLParam(r, "token"), req)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	logger.InfoContext(r.Context(), "Booking cancelled by customer", "booking_id", b.ID, "fee_status", b.CancellationFeeStatus)
	render.JSON(w, r, b)
}

func (h *Handlers) RequestReschedule(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.RequestReschedule"

	var req domain.RescheduleInput
	if !h.decode(w, r, &req) {
		return
	}
	rr, err := h.svc.Reschedules.Request(r.Context(), chi.URLParam(r, "token"), req)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	created(w, r, rr)
}

func (h *Handlers) ReviewManagedBooking(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ReviewManagedBooking"

	var req domain.Review
	if !h.decode(w, r, &req) {
		return
	}
	rv, err := h.svc.Bookings.ReviewByToken(r.Context(), chi.URLParam(r, "token"), req)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	created(w, r, rv)
}

// Customer portal

func (h *Handlers) CustomerReferralStats(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.CustomerReferralStats"

	claims := getClaims(r)
	stats, err := h.svc.Discounts.ReferralStats(r.Context(), claims.Email)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, stats)
}

func (h *Handlers) ListCustomerBookings(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ListCustomerBookings"

	claims := getClaims(r)
	limit, offset := parsePagination(r)
	list, err := h.svc.Bookings.ListForCustomer(r.Context(), claims.Email, limit, offset)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, list)
}

// Employee portal

func (h *Handlers) ListAssignedBookings(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ListAssignedBookings"

	f, ok := bookingFilter(w, r)
	if !ok {
		return
	}
	list, err := h.svc.Bookings.ListAssigned(r.Context(), getClaims(r).Sub, f)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, list)
}

// EmployeeCompleteBooking lets an assigned employee close out a visit.
// Holders of bookings:write may complete any booking.
func (h *Handlers) EmployeeCompleteBooking(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.EmployeeCompleteBooking"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	claims := getClaims(r)
	var by *int64
	if !claims.Can(auth.PermBookingsWrite) {
		by = &claims.Sub
	}
	b, err := h.svc.Bookings.Complete(r.Context(), id, by)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, b)
}
