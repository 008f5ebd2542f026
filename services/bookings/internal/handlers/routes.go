package handlers

import (
	"github.com/diagnosis/cleanbook/pkg/auth"
	"github.com/go-chi/chi/v5"
)

// Routes builds the /api router.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()

	// Booking wizard and public pages
	r.Get("/available-slots", h.AvailableSlots)
	r.Get("/services", h.ServiceCatalogue)
	r.Post("/bookings", h.CreateBooking)
	r.Post("/bookings/quote", h.QuoteBooking)
	r.Post("/promo-codes/validate", h.ValidatePromo)
	r.Post("/referrals/validate", h.ValidateReferral)
	r.Get("/service-areas/check/{zip}", h.CheckZip)
	r.Post("/payments/setup-intent", h.CreateSetupIntent)
	r.Get("/cms/sections", h.ListPublicSections)
	r.Get("/cms/content/{section}/batch", h.GetContentBatch)
	r.Get("/cms/assets", h.ListAssets)
	r.Get("/faqs", h.ListPublicFAQs)
	r.Get("/reviews", h.ListPublicReviews)

	// Management token surface
	r.Route("/bookings/manage/{token}", func(r chi.Router) {
		r.Get("/", h.GetManagedBooking)
		r.Post("/cancel", h.CancelManagedBooking)
		r.Post("/reschedule", h.RequestReschedule)
		r.Post("/review", h.ReviewManagedBooking)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(auth.RoleCustomer))
			r.Get("/referrals/customer-stats", h.CustomerReferralStats)
			r.Get("/customer/bookings", h.ListCustomerBookings)
		})

		r.With(RequirePermission(auth.PermContentWrite)).Put("/cms/content/{section}/batch", h.SaveContentBatch)

		r.Route("/employee/bookings", func(r chi.Router) {
			r.Use(RequireRole(auth.RoleEmployee))
			r.Get("/", h.ListAssignedBookings)
			r.Post("/{id}/complete", h.EmployeeCompleteBooking)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireRole(auth.RoleEmployee))
			h.adminRoutes(r)
		})
	})

	return r
}

func (h *Handlers) adminRoutes(r chi.Router) {
	r.Route("/bookings", func(r chi.Router) {
		r.With(RequirePermission(auth.PermBookingsRead)).Get("/", h.ListBookings)
		r.With(RequirePermission(auth.PermBookingsRead)).Get("/{id}", h.GetBooking)
		r.Group(func(r chi.Router) {
			r.Use(RequirePermission(auth.PermBookingsWrite))
			r.Patch("/{id}", h.UpdateBooking)
			r.Post("/{id}/cancel", h.AdminCancelBooking)
			r.Post("/{id}/complete", h.AdminCompleteBooking)
			r.Post("/{id}/fee/charge", h.ChargeCancellationFee)
			r.Post("/{id}/fee/dismiss", h.DismissCancellationFee)
		})
	})

	r.Route("/reschedule-requests", func(r chi.Router) {
		r.With(RequirePermission(auth.PermBookingsRead)).Get("/", h.ListRescheduleRequests)
		r.With(RequirePermission(auth.PermBookingsWrite)).Post("/{id}/approve", h.ApproveReschedule)
		r.With(RequirePermission(auth.PermBookingsWrite)).Post("/{id}/deny", h.DenyReschedule)
	})

	r.Route("/slot-capacity", func(r chi.Router) {
		r.With(RequirePermission(auth.PermBookingsRead)).Get("/", h.ListCapacityOverrides)
		r.With(RequirePermission(auth.PermBookingsWrite)).Put("/", h.SetCapacityOverride)
		r.With(RequirePermission(auth.PermBookingsWrite)).Delete("/{id}", h.DeleteCapacityOverride)
	})

	r.Route("/customers", func(r chi.Router) {
		r.With(RequirePermission(auth.PermCustomersRead)).Get("/", h.ListCustomers)
		r.With(RequirePermission(auth.PermCustomersRead)).Get("/{id}", h.GetCustomer)
		r.With(RequirePermission(auth.PermCustomersWrite)).Patch("/{id}", h.UpdateCustomer)
	})

	r.Route("/promo-codes", func(r chi.Router) {
		r.Use(RequirePermission(auth.PermPromosWrite))
		r.Get("/", h.ListPromos)
		r.Post("/", h.CreatePromo)
		r.Get("/{id}", h.GetPromo)
		r.Put("/{id}", h.UpdatePromo)
		r.Delete("/{id}", h.DeletePromo)
	})

	r.Route("/service-areas", func(r chi.Router) {
		r.Use(RequirePermission(auth.PermAreasWrite))
		r.Get("/", h.ListAreas)
		r.Post("/", h.CreateArea)
		r.Put("/{id}", h.UpdateArea)
		r.Delete("/{id}", h.DeleteArea)
	})

	r.Route("/recurring-bookings", func(r chi.Router) {
		r.Use(RequirePermission(auth.PermRecurringWrite))
		r.Get("/", h.ListRecurring)
		r.Post("/", h.CreateRecurring)
		r.Get("/{id}", h.GetRecurring)
		r.Patch("/{id}", h.UpdateRecurring)
		r.Delete("/{id}", h.DeleteRecurring)
	})

	r.Route("/cms", func(r chi.Router) {
		r.Use(RequirePermission(auth.PermContentWrite))
		r.Get("/sections", h.ListSections)
		r.Put("/sections", h.SaveSection)
		r.Delete("/sections/{key}", h.DeleteSection)
		r.Post("/assets", h.CreateAsset)
		r.Delete("/assets/{id}", h.DeleteAsset)
		r.Get("/faqs", h.ListFAQs)
		r.Post("/faqs", h.CreateFAQ)
		r.Put("/faqs/{id}", h.UpdateFAQ)
		r.Delete("/faqs/{id}", h.DeleteFAQ)
		r.Get("/reviews", h.ListReviews)
		r.Patch("/reviews/{id}", h.PublishReview)
		r.Delete("/reviews/{id}", h.DeleteReview)
	})

	r.Route("/employees", func(r chi.Router) {
		r.Use(RequirePermission(auth.PermEmployeesWrite))
		r.Get("/", h.ListEmployees)
		r.Post("/", h.CreateEmployee)
		r.Get("/{id}", h.GetEmployee)
		r.Put("/{id}", h.UpdateEmployee)
		r.Delete("/{id}", h.DeleteEmployee)
	})

	r.Route("/invoices", func(r chi.Router) {
		r.Use(RequirePermission(auth.PermInvoicesWrite))
		r.Get("/", h.ListInvoices)
		r.Get("/{id}", h.GetInvoice)
		r.Post("/{id}/mark-paid", h.MarkInvoicePaid)
		r.Post("/{id}/void", h.VoidInvoice)
	})

	r.With(RequirePermission(auth.PermAnalyticsRead)).Get("/analytics", h.Analytics)
}
