package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/diagnosis/cleanbook/pkg/auth"
	"github.com/diagnosis/cleanbook/pkg/cache"
	"github.com/diagnosis/cleanbook/pkg/config"
	"github.com/diagnosis/cleanbook/pkg/events"
	"github.com/diagnosis/cleanbook/pkg/payments"
	"github.com/diagnosis/cleanbook/pkg/response"
	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/diagnosis/cleanbook/services/bookings/internal/repository/memory"
	"github.com/diagnosis/cleanbook/services/bookings/internal/schedule"
	"github.com/diagnosis/cleanbook/services/bookings/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAuth = config.AuthConfig{JWTSecret: "test-secret", Audience: "cleanbook-api"}

type stubPayments struct{}

func (stubPayments) CreateSetupIntent(_ context.Context, email, _ string) (*payments.SetupIntent, error) {
	return &payments.SetupIntent{ClientSecret: "seti_secret", CustomerID: "cus_" + email}, nil
}

func (stubPayments) ChargeOffSession(context.Context, payments.ChargeRequest) (*payments.Charge, error) {
	return &payments.Charge{PaymentIntentID: "pi_test", Status: "succeeded"}, nil
}

type apiEnv struct {
	svc    *service.Services
	router http.Handler
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	now := time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	repos := memory.NewStore().WithClock(clock).Repositories()
	_, err := repos.Areas.Create(context.Background(), &domain.ServiceArea{
		Name: "Downtown", ZipCodes: []string{"10001"}, IsActive: true,
	})
	require.NoError(t, err)

	cfg := config.BookingConfig{
		Timezone:                 "UTC",
		CancelCutoff:             24 * time.Hour,
		LateCancellationFeeCents: 5000,
		ReferralDiscountCents:    2500,
		AvailabilityCacheTTL:     time.Minute,
		RecurringHorizon:         14 * 24 * time.Hour,
		IdempotencyTTL:           time.Hour,
	}
	sched := schedule.Default()
	svc := service.New(repos, sched, cache.NewMemoryStore(), events.NewMemoryEventBus(), stubPayments{}, cfg, service.WithClock(clock))
	return &apiEnv{svc: svc, router: New(svc, sched, testAuth).Routes()}
}

func token(t *testing.T, sub int64, email, role string, perms ...string) string {
	t.Helper()
	tok, err := auth.NewAccessToken(sub, email, role, perms, testAuth.JWTSecret, testAuth.Audience, time.Hour)
	require.NoError(t, err)
	return tok
}

func (env *apiEnv) do(t *testing.T, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func bookingBody(date, slot, email string) map[string]any {
	return map[string]any{
		"service":                  "Residential",
		"propertySize":             "Medium (1000-2000 sq ft)",
		"date":                     date,
		"timeSlot":                 slot,
		"name":                     "Jane Doe",
		"email":                    email,
		"phone":                    "555-123-4567",
		"address":                  "1 Main St",
		"zipCode":                  "10001",
		"paymentMethodId":          "pm_test",
		"acceptCancellationPolicy": true,
	}
}

func (env *apiEnv) book(t *testing.T, date, slot, email string) domain.Booking {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/bookings", bookingBody(date, slot, email), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[domain.Booking](t, rec)
}

func availableAt(t *testing.T, env *apiEnv, date, slot string) int {
	t.Helper()
	rec := env.do(t, http.MethodGet, "/available-slots?date="+date, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[SlotsResponse](t, rec)
	for _, s := range res.Slots {
		if s.TimeSlot == slot {
			return s.Available
		}
	}
	t.Fatalf("slot %q missing", slot)
	return 0
}

func TestLastSeatFillsSlot(t *testing.T) {
	env := newAPIEnv(t)

	env.book(t, "2025-06-10", "10:00 AM", "a@example.com")
	env.book(t, "2025-06-10", "10:00 AM", "b@example.com")
	assert.Equal(t, 1, availableAt(t, env, "2025-06-10", "10:00 AM"))

	b := env.book(t, "2025-06-10", "10:00 AM", "c@example.com")
	assert.NotEmpty(t, b.ManageToken)
	assert.Equal(t, int64(16000), b.TotalCents)
	assert.Equal(t, 0, availableAt(t, env, "2025-06-10", "10:00 AM"))

	rec := env.do(t, http.MethodPost, "/bookings", bookingBody("2025-06-10", "10:00 AM", "d@example.com"), "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, response.CodeSlotFull, decodeBody[response.ErrorResponse](t, rec).Code)
}

func TestCreateBookingErrors(t *testing.T) {
	env := newAPIEnv(t)

	tests := []struct {
		name   string
		mutate func(map[string]any)
		status int
		code   string
	}{
		{"missing email", func(b map[string]any) { delete(b, "email") }, http.StatusBadRequest, response.CodeInvalidInput},
		{"policy not accepted", func(b map[string]any) { b["acceptCancellationPolicy"] = false }, http.StatusBadRequest, response.CodeInvalidInput},
		{"zip not served", func(b map[string]any) { b["zipCode"] = "90210" }, http.StatusBadRequest, response.CodeZipNotServed},
		{"unknown promo", func(b map[string]any) { b["promoCode"] = "NOPE" }, http.StatusBadRequest, response.CodeInvalidPromo},
		{"unknown referral", func(b map[string]any) { b["referralCode"] = "NOPE" }, http.StatusBadRequest, response.CodeInvalidReferral},
		{"past date", func(b map[string]any) { b["date"] = "2025-06-01" }, http.StatusBadRequest, response.CodePastDateTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := bookingBody("2025-06-12", "2:00 PM", "x@example.com")
			tt.mutate(body)
			rec := env.do(t, http.MethodPost, "/bookings", body, "")
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeBody[response.ErrorResponse](t, rec).Code)
		})
	}

	rec := env.do(t, http.MethodPost, "/bookings", map[string]any{"service": "Residential"}, "")
	errBody := decodeBody[response.ErrorResponse](t, rec)
	assert.Contains(t, errBody.Fields, "email")
	assert.Contains(t, errBody.Fields, "timeSlot")
}

func TestAvailableSlotsRejectsBadDates(t *testing.T) {
	env := newAPIEnv(t)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/available-slots", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/available-slots?date=06/10/2025", nil, "").Code)

	rec := env.do(t, http.MethodGet, "/available-slots?date=2025-06-01", nil, "")
	assert.Equal(t, response.CodePastDateTime, decodeBody[response.ErrorResponse](t, rec).Code)
}

func TestManageBookingCancelFlow(t *testing.T) {
	env := newAPIEnv(t)
	b := env.book(t, "2025-06-09", "8:00 AM", "late@example.com")
	base := "/bookings/manage/" + b.ManageToken

	rec := env.do(t, http.MethodGet, base, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeBody[domain.BookingView](t, rec)
	assert.True(t, view.LateCancellation)
	assert.Equal(t, "No Fee", view.FeeLabel)

	rec = env.do(t, http.MethodPost, base+"/cancel", domain.CancelRequest{Reason: "sick"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, response.CodeFeeNotAcknowledged, decodeBody[response.ErrorResponse](t, rec).Code)

	rec = env.do(t, http.MethodPost, base+"/cancel", domain.CancelRequest{AcknowledgeFee: true, Reason: "sick"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cancelled := decodeBody[domain.Booking](t, rec)
	assert.Equal(t, domain.BookingCancelled, cancelled.Status)
	assert.Equal(t, domain.FeePending, cancelled.CancellationFeeStatus)
	assert.Equal(t, int64(5000), cancelled.CancellationFeeCents)

	rec = env.do(t, http.MethodPost, base+"/cancel", domain.CancelRequest{AcknowledgeFee: true}, "")
	assert.Equal(t, response.CodeBookingCancelled, decodeBody[response.ErrorResponse](t, rec).Code)

	admin := token(t, 1, "admin@example.com", auth.RoleAdmin)
	feePath := fmt.Sprintf("/admin/bookings/%d/fee/charge", b.ID)
	rec = env.do(t, http.MethodPost, feePath, nil, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.FeeCharged, decodeBody[domain.Booking](t, rec).CancellationFeeStatus)

	rec = env.do(t, http.MethodPost, feePath, nil, admin)
	assert.Equal(t, response.CodeInvalidTransition, decodeBody[response.ErrorResponse](t, rec).Code)
}

func TestUnknownManageToken(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.do(t, http.MethodGet, "/bookings/manage/does-not-exist", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRescheduleApprovalOverHTTP(t *testing.T) {
	env := newAPIEnv(t)
	b := env.book(t, "2025-06-10", "10:00 AM", "move@example.com")

	rec := env.do(t, http.MethodPost, "/bookings/manage/"+b.ManageToken+"/reschedule",
		domain.RescheduleInput{Date: "2025-06-11", TimeSlot: "2:00 PM", Reason: "travel"}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rr := decodeBody[domain.RescheduleRequest](t, rec)

	rec = env.do(t, http.MethodPost, "/bookings/manage/"+b.ManageToken+"/reschedule",
		domain.RescheduleInput{Date: "2025-06-12", TimeSlot: "2:00 PM"}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	admin := token(t, 1, "admin@example.com", auth.RoleAdmin)
	rec = env.do(t, http.MethodPost, fmt.Sprintf("/admin/reschedule-requests/%d/approve", rr.ID), nil, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.RescheduleApproved, decodeBody[domain.RescheduleRequest](t, rec).Status)

	rec = env.do(t, http.MethodGet, "/bookings/manage/"+b.ManageToken, nil, "")
	view := decodeBody[domain.BookingView](t, rec)
	assert.Equal(t, "2025-06-11", view.Date)
	assert.Equal(t, "2:00 PM", view.TimeSlot)

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/admin/reschedule-requests/%d/deny", rr.ID), domain.RescheduleDecision{Note: "late"}, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminAuthorization(t *testing.T) {
	env := newAPIEnv(t)

	tests := []struct {
		name   string
		bearer string
		status int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"garbage token", "nope", http.StatusUnauthorized},
		{"customer", token(t, 5, "c@example.com", auth.RoleCustomer), http.StatusForbidden},
		{"employee without permission", token(t, 6, "e@example.com", auth.RoleEmployee), http.StatusForbidden},
		{"employee with permission", token(t, 7, "e@example.com", auth.RoleEmployee, auth.PermBookingsRead), http.StatusOK},
		{"admin", token(t, 1, "admin@example.com", auth.RoleAdmin), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/admin/bookings?status=pending", nil, tt.bearer)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	readOnly := token(t, 7, "e@example.com", auth.RoleEmployee, auth.PermBookingsRead)
	rec := env.do(t, http.MethodPatch, "/admin/bookings/1", map[string]any{"notes": "x"}, readOnly)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/admin/bookings?status=lost", nil, token(t, 1, "admin@example.com", auth.RoleAdmin))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmployeeCompletesAssignedBooking(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()

	sam, err := env.svc.People.CreateEmployee(ctx, &domain.Employee{Name: "Sam", Email: "sam@example.com", IsActive: true})
	require.NoError(t, err)
	kim, err := env.svc.People.CreateEmployee(ctx, &domain.Employee{Name: "Kim", Email: "kim@example.com", IsActive: true})
	require.NoError(t, err)

	b := env.book(t, "2025-06-09", "10:00 AM", "visit@example.com")
	confirmed := domain.BookingConfirmed
	_, err = env.svc.Bookings.Update(ctx, b.ID, domain.BookingPatch{Status: &confirmed, AssignedEmployeeIDs: &[]int64{sam.ID}})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/employee/bookings", nil, token(t, sam.ID, sam.Email, auth.RoleEmployee))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]domain.BookingView](t, rec), 1)

	path := fmt.Sprintf("/employee/bookings/%d/complete", b.ID)
	rec = env.do(t, http.MethodPost, path, nil, token(t, kim.ID, kim.Email, auth.RoleEmployee))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, path, nil, token(t, sam.ID, sam.Email, auth.RoleEmployee))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.BookingCompleted, decodeBody[domain.Booking](t, rec).Status)

	rec = env.do(t, http.MethodPost, "/bookings/manage/"+b.ManageToken+"/review", domain.Review{Rating: 5, Comment: "Spotless"}, "")
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestDiscountEndpoints(t *testing.T) {
	env := newAPIEnv(t)
	admin := token(t, 1, "admin@example.com", auth.RoleAdmin)

	rec := env.do(t, http.MethodPost, "/admin/promo-codes", domain.PromoCodeInput{
		Code: "spring20", DiscountType: domain.DiscountPercentage, DiscountValue: 20, IsActive: true,
	}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/promo-codes/validate", domain.ValidatePromoRequest{Code: "SPRING20", SubtotalCents: 16000}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(3200), decodeBody[domain.PromoValidation](t, rec).DiscountCents)

	env.book(t, "2025-06-12", "8:00 AM", "referrer@example.com")

	customer := token(t, 3, "referrer@example.com", auth.RoleCustomer)
	rec = env.do(t, http.MethodGet, "/referrals/customer-stats", nil, customer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stats := decodeBody[domain.ReferralStats](t, rec)
	require.NotEmpty(t, stats.ReferralCode)

	rec = env.do(t, http.MethodPost, "/referrals/validate", domain.ValidateReferralRequest{Code: stats.ReferralCode, Email: "referrer@example.com"}, "")
	assert.Equal(t, response.CodeInvalidReferral, decodeBody[response.ErrorResponse](t, rec).Code)

	rec = env.do(t, http.MethodPost, "/referrals/validate", domain.ValidateReferralRequest{Code: stats.ReferralCode, Email: "friend@example.com"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(2500), decodeBody[domain.ReferralValidation](t, rec).DiscountCents)

	// Admins pass the role check but have no customer record.
	rec = env.do(t, http.MethodGet, "/referrals/customer-stats", nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestZipCheck(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodGet, "/service-areas/check/10001", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	check := decodeBody[domain.ZipCheck](t, rec)
	assert.True(t, check.Served)
	assert.Equal(t, "Downtown", check.AreaName)

	rec = env.do(t, http.MethodGet, "/service-areas/check/90210", nil, "")
	assert.False(t, decodeBody[domain.ZipCheck](t, rec).Served)

	rec = env.do(t, http.MethodGet, "/service-areas/check/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContentBatch(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPut, "/cms/content/hero/batch", map[string]string{"title": "Sparkling homes"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	editor := token(t, 4, "editor@example.com", auth.RoleEmployee, auth.PermContentWrite)
	rec = env.do(t, http.MethodPut, "/cms/content/hero/batch", map[string]string{"title": "Sparkling homes", "cta": "Book now"}, editor)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/cms/content/hero/batch", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"title": "Sparkling homes", "cta": "Book now"}, decodeBody[map[string]string](t, rec))
}

func TestServiceCatalogueAndSetupIntent(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodGet, "/services", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	cat := decodeBody[schedule.Schedule](t, rec)
	assert.Len(t, cat.Slots, 5)
	assert.NotEmpty(t, cat.Services)

	rec = env.do(t, http.MethodPost, "/payments/setup-intent", SetupIntentRequest{Email: "jane@example.com", Name: "Jane"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "seti_secret", decodeBody[payments.SetupIntent](t, rec).ClientSecret)
}
