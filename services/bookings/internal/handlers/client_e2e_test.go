package handlers

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/diagnosis/cleanbook/pkg/client"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, env *apiEnv) *client.Client {
	t.Helper()
	r := chi.NewRouter()
	r.Mount("/api", env.router)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return client.New(srv.URL + "/api")
}

func fillWizard(t *testing.T, w *client.Wizard, email string) client.PaymentStep {
	t.Helper()
	s, err := w.Next(client.ServiceStep{Service: client.ServiceDraft{Service: "Residential"}})
	require.NoError(t, err)

	sched := s.(client.ScheduleStep)
	sched.Schedule = client.ScheduleDraft{PropertySize: "Medium (1000-2000 sq ft)", Date: "2025-06-10", TimeSlot: "10:00 AM"}
	s, err = w.Next(sched)
	require.NoError(t, err)

	contact := s.(client.ContactStep)
	contact.Contact = client.ContactDraft{Name: "Sam Lee", Email: email, Phone: "555-0100", Address: "9 Elm St", ZipCode: "10001"}
	s, err = w.Next(contact)
	require.NoError(t, err)

	pay := s.(client.PaymentStep)
	pay.Payment = client.PaymentDraft{PaymentMethodID: "pm_card_visa", AcceptPolicy: true}
	return pay
}

func slotOption(t *testing.T, p client.SlotPicker, ts string) client.SlotOption {
	t.Helper()
	for _, o := range p.Options {
		if o.TimeSlot == ts {
			return o
		}
	}
	t.Fatalf("slot %q missing", ts)
	return client.SlotOption{}
}

func TestClientBooksLastSeatThroughWizard(t *testing.T) {
	env := newAPIEnv(t)
	env.book(t, "2025-06-10", "10:00 AM", "a@example.com")
	env.book(t, "2025-06-10", "10:00 AM", "b@example.com")

	c := newClient(t, env)
	ctx := context.Background()

	cat, err := c.Services(ctx)
	require.NoError(t, err)
	timeSlots := cat.TimeSlots()
	require.Len(t, timeSlots, 5)

	picker, err := c.LoadSlotPicker(ctx, timeSlots, "2025-06-10")
	require.NoError(t, err)
	opt := slotOption(t, picker, "10:00 AM")
	assert.True(t, opt.Annotated)
	assert.Equal(t, 3, opt.Capacity)
	assert.Equal(t, 1, opt.Available)
	assert.False(t, opt.Disabled)

	w := client.NewWizard()
	toasts := &client.ToastLog{}
	s, err := w.Submit(ctx, fillWizard(t, w, "sam@example.com"), c, toasts)
	require.NoError(t, err)
	done, ok := s.(client.Submitted)
	require.True(t, ok)
	assert.Equal(t, "10:00 AM", done.Booking.TimeSlot)
	assert.NotEmpty(t, done.Booking.ManageToken)

	picker, err = c.LoadSlotPicker(ctx, timeSlots, "2025-06-10")
	require.NoError(t, err)
	opt = slotOption(t, picker, "10:00 AM")
	assert.Equal(t, 0, opt.Available)
	assert.True(t, opt.Disabled)
	assert.False(t, picker.Selectable("10:00 AM"))

	// A stale second wizard loses the race and stays on payment.
	s, err = w.Submit(ctx, fillWizard(t, w, "late@example.com"), c, toasts)
	require.Error(t, err)
	assert.True(t, client.HasCode(err, client.CodeSlotFull))
	assert.Equal(t, 4, s.Number())
	last, _ := toasts.Last()
	assert.Equal(t, client.ToastError, last.Kind)

	// Cancelling early frees the seat without a fee.
	form := &client.CancelForm{Token: done.Booking.ManageToken}
	_, err = form.Submit(ctx, c, toasts)
	require.Error(t, err)

	form.Acknowledged = true
	cancelled, err := form.Submit(ctx, c, toasts)
	require.NoError(t, err)
	assert.Equal(t, client.FeeNotApplicable, cancelled.CancellationFeeStatus)
	assert.Equal(t, "No Fee", client.FeeStatusLabel(cancelled.CancellationFeeStatus))

	picker, err = c.LoadSlotPicker(ctx, timeSlots, "2025-06-10")
	require.NoError(t, err)
	assert.False(t, slotOption(t, picker, "10:00 AM").Disabled)
}

func TestClientDiscountsAgainstServer(t *testing.T) {
	env := newAPIEnv(t)
	c := newClient(t, env)
	ctx := context.Background()

	var d client.Discounts
	err := d.ApplyPromo(ctx, c, client.Discard, "NOSUCH", 16000)
	require.Error(t, err)
	assert.True(t, client.HasCode(err, client.CodeInvalidPromo))
	assert.Nil(t, d.Promo)

	zip, err := c.CheckZip(ctx, "10001")
	require.NoError(t, err)
	assert.True(t, zip.Served)
	assert.Equal(t, "Downtown", zip.AreaName)
}
