package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCreator struct {
	calls []string
	err   error
}

func (f *fakeCreator) CreateBooking(_ context.Context, req CreateBookingRequest, key string) (*Booking, error) {
	f.calls = append(f.calls, key)
	if f.err != nil {
		return nil, f.err
	}
	return &Booking{ID: 11, ManageToken: "tok", Date: req.Date, TimeSlot: req.TimeSlot, Status: "pending"}, nil
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	return vErr.Fields
}

func toPayment(t *testing.T, w *Wizard) PaymentStep {
	t.Helper()
	s, err := w.Next(ServiceStep{Service: ServiceDraft{Service: "Residential"}})
	require.NoError(t, err)

	sched := s.(ScheduleStep)
	sched.Schedule = ScheduleDraft{PropertySize: "Medium (1000-2000 sq ft)", Date: "2025-06-10", TimeSlot: "10:00 AM"}
	s, err = w.Next(sched)
	require.NoError(t, err)

	contact := s.(ContactStep)
	contact.Contact = ContactDraft{Name: "Jane Doe", Email: "jane@example.com", Phone: "555-0100", Address: "1 Main St", ZipCode: "10001"}
	contact.Contact.Discounts.Promo = &AppliedPromo{ID: 2, Code: "SAVE10", DiscountCents: 1600}
	s, err = w.Next(contact)
	require.NoError(t, err)

	return s.(PaymentStep)
}

func TestWizardGatesEachStep(t *testing.T) {
	w := NewWizard()

	s, err := w.Next(Start())
	assert.Equal(t, map[string]string{"service": "is required"}, fieldsOf(t, err))
	assert.Equal(t, 1, s.Number())

	s, err = w.Next(ScheduleStep{
		Service:  ServiceDraft{Service: "Residential"},
		Schedule: ScheduleDraft{PropertySize: "Small (< 1000 sq ft)", Date: "2025-06-10"},
	})
	assert.Equal(t, map[string]string{"timeSlot": "is required"}, fieldsOf(t, err))
	assert.Equal(t, 2, s.Number())

	_, err = w.Next(ScheduleStep{
		Service: ServiceDraft{Service: "Residential"},
		Schedule: ScheduleDraft{
			PropertySize: "Small (< 1000 sq ft)", Date: "2025-06-10", TimeSlot: "8:00 AM",
			Recurring: &Recurring{Frequency: "daily"},
		},
	})
	assert.Contains(t, fieldsOf(t, err), "frequency")

	s, err = w.Next(ContactStep{Contact: ContactDraft{Name: "Jane", Email: "jane@example.com", Phone: "555-0100"}})
	assert.Equal(t, map[string]string{"address": "is required"}, fieldsOf(t, err))
	assert.Equal(t, 3, s.Number())
}

func TestWizardBackSkipsValidationAndKeepsDrafts(t *testing.T) {
	w := NewWizard()
	pay := toPayment(t, w)

	s := Back(pay)
	contact, ok := s.(ContactStep)
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", contact.Contact.Name)

	// Blank out a required field; Back still works.
	contact.Contact.Phone = ""
	s = Back(contact)
	sched, ok := s.(ScheduleStep)
	require.True(t, ok)
	s = Back(sched)
	_, ok = s.(ServiceStep)
	require.True(t, ok)
	assert.Equal(t, s, Back(s))

	// Forward again restores what was entered.
	s, err := w.Next(s)
	require.NoError(t, err)
	assert.Equal(t, "10:00 AM", s.(ScheduleStep).Schedule.TimeSlot)
	s, err = w.Next(s)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", s.(ContactStep).Contact.Name)
	assert.Empty(t, s.(ContactStep).Contact.Phone)
}

func TestWizardSubmitRequiresPaymentAndPolicy(t *testing.T) {
	w := NewWizard()
	pay := toPayment(t, w)
	api := &fakeCreator{}

	s, err := w.Submit(context.Background(), pay, api, Discard)
	fields := fieldsOf(t, err)
	assert.Contains(t, fields, "paymentMethodId")
	assert.Contains(t, fields, "acceptCancellationPolicy")
	assert.Equal(t, 4, s.Number())

	pay.Payment.PaymentMethodID = "pm_card_visa"
	_, err = w.Submit(context.Background(), pay, api, Discard)
	assert.Equal(t, map[string]string{"acceptCancellationPolicy": "is required"}, fieldsOf(t, err))
	assert.Empty(t, api.calls)

	_, err = w.Submit(context.Background(), Start(), api, Discard)
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = w.Next(pay)
	assert.ErrorIs(t, err, ErrNoNextStep)
}

func TestWizardSubmitFailureStaysOnPayment(t *testing.T) {
	w := NewWizard()
	pay := toPayment(t, w)
	pay.Payment = PaymentDraft{PaymentMethodID: "pm_card_visa", AcceptPolicy: true}
	api := &fakeCreator{err: &APIError{Status: 409, Code: CodeSlotFull, Message: "That time slot is fully booked"}}
	toasts := &ToastLog{}

	s, err := w.Submit(context.Background(), pay, api, toasts)
	require.Error(t, err)
	assert.Equal(t, pay, s)

	last, ok := toasts.Last()
	require.True(t, ok)
	assert.Equal(t, ToastError, last.Kind)
	assert.Equal(t, "That time slot is fully booked", last.Message)

	api.err = nil
	s, err = w.Submit(context.Background(), s, api, toasts)
	require.NoError(t, err)
	done, ok := s.(Submitted)
	require.True(t, ok)
	assert.Equal(t, int64(11), done.Booking.ID)
	assert.Equal(t, 5, s.Number())

	require.Len(t, api.calls, 2)
	assert.Equal(t, api.calls[0], api.calls[1])
	assert.NotEmpty(t, api.calls[0])
}

func TestPaymentStepRequest(t *testing.T) {
	pay := toPayment(t, NewWizard())
	pay.Payment = PaymentDraft{PaymentMethodID: "pm_1", StripeCustomerID: "cus_1", AcceptPolicy: true}

	req := pay.Request()
	assert.Equal(t, "Residential", req.Service)
	assert.Equal(t, "2025-06-10", req.Date)
	assert.Equal(t, "10001", req.ZipCode)
	assert.Equal(t, "SAVE10", req.PromoCode)
	assert.Empty(t, req.ReferralCode)
	assert.Equal(t, "cus_1", req.StripeCustomerID)
	assert.True(t, req.AcceptPolicy)
}
