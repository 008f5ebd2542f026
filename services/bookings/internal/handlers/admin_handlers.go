package handlers

import (
	"net/http"
	"strconv"

	"github.com/diagnosis/cleanbook/pkg/response"
	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/go-chi/render"
)

// bookingFilter reads ?status=&from=&to=&employeeId=&email= plus pagination.
func bookingFilter(w http.ResponseWriter, r *http.Request) (domain.BookingFilter, bool) {
	q := r.URL.Query()
	f := domain.BookingFilter{DateFrom: q.Get("from"), DateTo: q.Get("to"), Email: q.Get("email")}
	f.Limit, f.Offset = parsePagination(r)

	if raw := q.Get("status"); raw != "" {
		st, ok := domain.ParseBookingStatus(raw)
		if !ok {
			response.BadRequest(w, r, "Invalid status parameter")
			return f, false
		}
		f.Status = &st
	}
	for _, d := range []string{f.DateFrom, f.DateTo} {
		if d == "" {
			continue
		}
		if _, err := domain.ParseDate(d); err != nil {
			response.BadRequest(w, r, err.Error())
			return f, false
		}
	}
	if raw := q.Get("employeeId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(w, r, "Invalid employeeId parameter")
			return f, false
		}
		f.EmployeeID = &id
	}
	return f, true
}

func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ListBookings"

	f, ok := bookingFilter(w, r)
	if !ok {
		return
	}
	list, err := h.svc.Bookings.List(r.Context(), f)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, list)
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.GetBooking"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	view, err := h.svc.Bookings.Get(r.Context(), id)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, view)
}

func (h *Handlers) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.UpdateBooking"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var patch domain.BookingPatch
	if !h.decode(w, r, &patch) {
		return
	}
	b, err := h.svc.Bookings.Update(r.Context(), id, patch)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, b)
}

type AdminCancelRequest struct {
	Reason string `json:"reason"`
}

// AdminCancelBooking cancels without a fee.
func (h *Handlers) AdminCancelBooking(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.AdminCancelBooking"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req AdminCancelRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.svc.Bookings.AdminCancel(r.Context(), id, req.Reason)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, b)
}

func (h *Handlers) AdminCompleteBooking(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.AdminCompleteBooking"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	b, err := h.svc.Bookings.Complete(r.Context(), id, nil)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, b)
}

func (h *Handlers) ChargeCancellationFee(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ChargeCancellationFee"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	b, err := h.svc.Bookings.ChargeFee(r.Context(), id)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, b)
}

func (h *Handlers) DismissCancellationFee(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.DismissCancellationFee"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	b, err := h.svc.Bookings.DismissFee(r.Context(), id)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, b)
}

// Reschedule requests

func (h *Handlers) ListRescheduleRequests(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ListRescheduleRequests"

	var status *domain.RescheduleStatus
	switch raw := domain.RescheduleStatus(r.URL.Query().Get("status")); raw {
	case "":
	case domain.ReschedulePending, domain.RescheduleApproved, domain.RescheduleDenied:
		status = &raw
	default:
		response.BadRequest(w, r, "Invalid status parameter")
		return
	}
	limit, offset := parsePagination(r)
	list, err := h.svc.Reschedules.List(r.Context(), status, limit, offset)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, list)
}

func (h *Handlers) ApproveReschedule(w http.ResponseWriter, r *http.Request) {
	h.decideReschedule(w, r, true)
}

func (h *Handlers) DenyReschedule(w http.ResponseWriter, r *http.Request) {
	h.decideReschedule(w, r, false)
}

func (h *Handlers) decideReschedule(w http.ResponseWriter, r *http.Request, approve bool) {
	const op = "handlers.decideReschedule"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var d domain.RescheduleDecision
	if r.ContentLength != 0 && !h.decode(w, r, &d) {
		return
	}
	by := &getClaims(r).Sub

	var (
		rr  *domain.RescheduleRequest
		err error
	)
	if approve {
		rr, err = h.svc.Reschedules.Approve(r.Context(), id, by, d)
	} else {
		rr, err = h.svc.Reschedules.Deny(r.Context(), id, by, d)
	}
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, rr)
}

// Slot capacity overrides

func (h *Handlers) ListCapacityOverrides(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ListCapacityOverrides"

	list, err := h.svc.Availability.ListOverrides(r.Context(), r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, list)
}

func (h *Handlers) SetCapacityOverride(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.SetCapacityOverride"

	var o domain.CapacityOverride
	if !h.decode(w, r, &o) {
		return
	}
	saved, err := h.svc.Availability.SetOverride(r.Context(), &o)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, saved)
}

func (h *Handlers) DeleteCapacityOverride(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.DeleteCapacityOverride"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.Availability.DeleteOverride(r.Context(), id); err != nil {
		fail(w, r, op, err)
		return
	}
	render.NoContent(w, r)
}

// Customers

func (h *Handlers) ListCustomers(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ListCustomers"

	limit, offset := parsePagination(r)
	list, err := h.svc.People.ListCustomers(r.Context(), r.URL.Query().Get("search"), limit, offset)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, list)
}

func (h *Handlers) GetCustomer(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.GetCustomer"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	c, err := h.svc.People.GetCustomer(r.Context(), id)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, c)
}

func (h *Handlers) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.UpdateCustomer"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var patch domain.CustomerPatch
	if !h.decode(w, r, &patch) {
		return
	}
	c, err := h.svc.People.UpdateCustomer(r.Context(), id, patch)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, c)
}

// Promo codes

func (h *Handlers) ListPromos(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ListPromos"

	limit, offset := parsePagination(r)
	list, err := h.svc.Discounts.ListPromos(r.Context(), limit, offset)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, list)
}

func (h *Handlers) GetPromo(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.GetPromo"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Discounts.GetPromo(r.Context(), id)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, p)
}

func (h *Handlers) CreatePromo(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.CreatePromo"

	var in domain.PromoCodeInput
	if !h.decode(w, r, &in) {
		return
	}
	p, err := h.svc.Discounts.CreatePromo(r.Context(), in)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	created(w, r, p)
}

func (h *Handlers) UpdatePromo(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.UpdatePromo"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in domain.PromoCodeInput
	if !h.decode(w, r, &in) {
		return
	}
	p, err := h.svc.Discounts.UpdatePromo(r.Context(), id, in)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, p)
}

func (h *Handlers) DeletePromo(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.DeletePromo"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.Discounts.DeletePromo(r.Context(), id); err != nil {
		fail(w, r, op, err)
		return
	}
	render.NoContent(w, r)
}

// Service areas

func (h *Handlers) ListAreas(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ListAreas"

	list, err := h.svc.Areas.List(r.Context(), queryBool(r, "active"))
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, list)
}

func (h *Handlers) CreateArea(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.CreateArea"

	var a domain.ServiceArea
	if !h.decode(w, r, &a) {
		return
	}
	saved, err := h.svc.Areas.Create(r.Context(), &a)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	created(w, r, saved)
}

func (h *Handlers) UpdateArea(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.UpdateArea"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var a domain.ServiceArea
	if !h.decode(w, r, &a) {
		return
	}
	saved, err := h.svc.Areas.Update(r.Context(), id, &a)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, saved)
}

func (h *Handlers) DeleteArea(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.DeleteArea"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.Areas.Delete(r.Context(), id); err != nil {
		fail(w, r, op, err)
		return
	}
	render.NoContent(w, r)
}

// Recurring bookings

func (h *Handlers) ListRecurring(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ListRecurring"

	var status *domain.RecurringStatus
	switch raw := domain.RecurringStatus(r.URL.Query().Get("status")); raw {
	case "":
	case domain.RecurringActive, domain.RecurringPaused, domain.RecurringCancelled:
		status = &raw
	default:
		response.BadRequest(w, r, "Invalid status parameter")
		return
	}
	limit, offset := parsePagination(r)
	list, err := h.svc.Recurring.List(r.Context(), status, limit, offset)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, list)
}

func (h *Handlers) GetRecurring(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.GetRecurring"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	rb, err := h.svc.Recurring.Get(r.Context(), id)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, rb)
}

func (h *Handlers) CreateRecurring(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.CreateRecurring"

	var rb domain.RecurringBooking
	if !h.decode(w, r, &rb) {
		return
	}
	saved, err := h.svc.Recurring.Create(r.Context(), &rb)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	created(w, r, saved)
}

// UpdateRecurring also pauses, resumes and cancels a series through status.
func (h *Handlers) UpdateRecurring(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.UpdateRecurring"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var patch domain.RecurringPatch
	if !h.decode(w, r, &patch) {
		return
	}
	rb, err := h.svc.Recurring.Update(r.Context(), id, patch)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, rb)
}

func (h *Handlers) DeleteRecurring(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.DeleteRecurring"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.Recurring.Delete(r.Context(), id); err != nil {
		fail(w, r, op, err)
		return
	}
	render.NoContent(w, r)
}

// Employees

func (h *Handlers) ListEmployees(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ListEmployees"

	list, err := h.svc.People.ListEmployees(r.Context(), queryBool(r, "active"))
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, list)
}

func (h *Handlers) GetEmployee(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.GetEmployee"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	e, err := h.svc.People.GetEmployee(r.Context(), id)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, e)
}

func (h *Handlers) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.CreateEmployee"

	var e domain.Employee
	if !h.decode(w, r, &e) {
		return
	}
	saved, err := h.svc.People.CreateEmployee(r.Context(), &e)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	created(w, r, saved)
}

func (h *Handlers) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.UpdateEmployee"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var e domain.Employee
	if !h.decode(w, r, &e) {
		return
	}
	saved, err := h.svc.People.UpdateEmployee(r.Context(), id, &e)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, saved)
}

func (h *Handlers) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.DeleteEmployee"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.People.DeleteEmployee(r.Context(), id); err != nil {
		fail(w, r, op, err)
		return
	}
	render.NoContent(w, r)
}

// Invoices and analytics

func (h *Handlers) ListInvoices(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ListInvoices"

	var status *domain.InvoiceStatus
	switch raw := domain.InvoiceStatus(r.URL.Query().Get("status")); raw {
	case "":
	case domain.InvoiceUnpaid, domain.InvoicePaid, domain.InvoiceVoid:
		status = &raw
	default:
		response.BadRequest(w, r, "Invalid status parameter")
		return
	}
	limit, offset := parsePagination(r)
	list, err := h.svc.Billing.ListInvoices(r.Context(), status, limit, offset)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, list)
}

func (h *Handlers) GetInvoice(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.GetInvoice"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	inv, err := h.svc.Billing.GetInvoice(r.Context(), id)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, inv)
}

func (h *Handlers) MarkInvoicePaid(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.MarkInvoicePaid"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	inv, err := h.svc.Billing.MarkPaid(r.Context(), id)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, inv)
}

func (h *Handlers) VoidInvoice(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.VoidInvoice"

	id, ok := idParam(w, r)
	if !ok {
		return
	}
	inv, err := h.svc.Billing.Void(r.Context(), id)
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, inv)
}

func (h *Handlers) Analytics(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.Analytics"

	sum, err := h.svc.Billing.Analytics(r.Context(), r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		fail(w, r, op, err)
		return
	}
	render.JSON(w, r, sum)
}
