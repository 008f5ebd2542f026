package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, r chi.Router, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api", opts...)
}

func TestAPIErrorDecoding(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/bookings", func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, map[string]string{"error": "That time slot is fully booked", "code": CodeSlotFull})
	})
	r.Get("/api/services", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})
	c := newTestClient(t, r)
	ctx := context.Background()

	_, err := c.CreateBooking(ctx, CreateBookingRequest{Date: "2025-06-09"}, "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "That time slot is fully booked", apiErr.Message)
	assert.True(t, HasCode(err, CodeSlotFull))
	assert.Equal(t, "That time slot is fully booked", Message(err))

	_, err = c.Services(ctx)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "upstream down", apiErr.Message)
}

func TestTransportErrorIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(srv.URL)

	_, err := c.CheckZip(context.Background(), "10001")
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, errors.As(err, &apiErr))
	assert.Equal(t, "Something went wrong. Please try again.", Message(err))
}

func TestRequestHeadersAndQuery(t *testing.T) {
	var got *http.Request
	r := chi.NewRouter()
	r.Get("/api/admin/bookings", func(w http.ResponseWriter, r *http.Request) {
		got = r
		render.JSON(w, r, []Booking{{ID: 1}})
	})
	c := newTestClient(t, r, WithToken("tok"))

	list, err := c.AdminBookings(context.Background(), BookingListOptions{Status: "pending", From: "2025-06-01", EmployeeID: 3, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)

	assert.Equal(t, "Bearer tok", got.Header.Get("Authorization"))
	q := got.URL.Query()
	assert.Equal(t, "pending", q.Get("status"))
	assert.Equal(t, "2025-06-01", q.Get("from"))
	assert.Equal(t, "3", q.Get("employeeId"))
	assert.Equal(t, "10", q.Get("limit"))
	assert.False(t, q.Has("offset"))
	assert.False(t, q.Has("to"))
}

func TestCreateBookingInvalidatesDate(t *testing.T) {
	var slotCalls int
	var idemKey string
	r := chi.NewRouter()
	r.Get("/api/available-slots", func(w http.ResponseWriter, r *http.Request) {
		slotCalls++
		render.JSON(w, r, slotsResponse{Date: r.URL.Query().Get("date"), Slots: []Slot{{TimeSlot: "10:00 AM", Capacity: 3, Available: 3 - slotCalls}}})
	})
	r.Post("/api/bookings", func(w http.ResponseWriter, r *http.Request) {
		idemKey = r.Header.Get("Idempotency-Key")
		var req CreateBookingRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, Booking{ID: 9, Date: req.Date, TimeSlot: req.TimeSlot})
	})
	c := newTestClient(t, r)
	ctx := context.Background()

	_, err := c.AvailableSlots(ctx, "2025-06-09")
	require.NoError(t, err)
	_, err = c.AvailableSlots(ctx, "2025-06-10")
	require.NoError(t, err)
	_, err = c.AvailableSlots(ctx, "2025-06-09")
	require.NoError(t, err)
	assert.Equal(t, 2, slotCalls)

	b, err := c.CreateBooking(ctx, CreateBookingRequest{Date: "2025-06-09", TimeSlot: "10:00 AM"}, "key-1")
	require.NoError(t, err)
	assert.Equal(t, int64(9), b.ID)
	assert.Equal(t, "key-1", idemKey)

	assert.False(t, c.Cache().Has(slotsKey("2025-06-09")))
	assert.True(t, c.Cache().Has(slotsKey("2025-06-10")))

	slots, err := c.AvailableSlots(ctx, "2025-06-09")
	require.NoError(t, err)
	assert.Equal(t, 3, slotCalls)
	assert.Equal(t, 0, slots[0].Available)
}

func TestCancelInvalidatesManageViewAndSlots(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/bookings/manage/{token}", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, BookingView{Booking: Booking{ID: 4, Status: "pending", Date: "2025-06-09"}})
	})
	r.Post("/api/bookings/manage/{token}/cancel", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, Booking{ID: 4, Status: "cancelled", Date: "2025-06-09", CancellationFeeStatus: FeeNotApplicable})
	})
	c := newTestClient(t, r)
	ctx := context.Background()

	c.Cache().set(slotsKey("2025-06-09"), []Slot{})
	_, err := c.ManagedBooking(ctx, "abc")
	require.NoError(t, err)
	require.True(t, c.Cache().Has(manageKey("abc")))

	_, err = c.CancelBooking(ctx, "abc", CancelRequest{AcknowledgeFee: true})
	require.NoError(t, err)
	assert.False(t, c.Cache().Has(manageKey("abc")))
	assert.False(t, c.Cache().Has(slotsKey("2025-06-09")))
}
