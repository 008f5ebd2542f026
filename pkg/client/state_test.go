package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultSlots = []string{"8:00 AM", "10:00 AM", "12:00 PM", "2:00 PM", "4:00 PM"}

func TestAnnotateSlots(t *testing.T) {
	picker := AnnotateSlots(defaultSlots, []Slot{
		{TimeSlot: "8:00 AM", Capacity: 2, Available: 2},
		{TimeSlot: "10:00 AM", Capacity: 3, Available: 1},
		{TimeSlot: "12:00 PM", Capacity: 2, Available: 0},
	}, false)

	require.Len(t, picker.Options, 5)
	assert.False(t, picker.Loading)

	byTime := map[string]SlotOption{}
	for _, o := range picker.Options {
		byTime[o.TimeSlot] = o
	}
	assert.Equal(t, "8:00 AM (2 spots left)", byTime["8:00 AM"].Label)
	assert.Equal(t, "10:00 AM (1 spot left)", byTime["10:00 AM"].Label)
	assert.False(t, byTime["10:00 AM"].Disabled)

	assert.True(t, byTime["12:00 PM"].Disabled)
	assert.Equal(t, "12:00 PM (Fully booked)", byTime["12:00 PM"].Label)

	// No data: selectable and unannotated.
	assert.False(t, byTime["2:00 PM"].Disabled)
	assert.False(t, byTime["2:00 PM"].Annotated)
	assert.Equal(t, "2:00 PM", byTime["2:00 PM"].Label)

	assert.True(t, picker.Selectable("10:00 AM"))
	assert.False(t, picker.Selectable("12:00 PM"))
	assert.False(t, picker.Selectable("6:00 PM"))
}

func TestAnnotateSlotsWhileLoading(t *testing.T) {
	picker := AnnotateSlots(defaultSlots, nil, true)

	assert.True(t, picker.Loading)
	for _, o := range picker.Options {
		assert.False(t, o.Disabled)
		assert.False(t, o.Annotated)
	}
}

type fakeValidator struct {
	promo    *PromoValidation
	referral *ReferralValidation
	err      error
	calls    int
}

func (f *fakeValidator) ValidatePromo(context.Context, string, int64) (*PromoValidation, error) {
	f.calls++
	return f.promo, f.err
}

func (f *fakeValidator) ValidateReferral(context.Context, string, string) (*ReferralValidation, error) {
	f.calls++
	return f.referral, f.err
}

func TestApplyPromo(t *testing.T) {
	ctx := context.Background()
	toasts := &ToastLog{}
	var d Discounts

	ok := &fakeValidator{promo: &PromoValidation{PromoCodeID: 7, Code: "SAVE10", DiscountCents: 1600}}
	require.NoError(t, d.ApplyPromo(ctx, ok, toasts, " SAVE10 ", 16000))
	require.NotNil(t, d.Promo)
	assert.Equal(t, int64(7), d.Promo.ID)
	assert.Equal(t, int64(1600), d.Promo.DiscountCents)
	assert.Equal(t, "SAVE10", d.PromoCode())
	last, _ := toasts.Last()
	assert.Equal(t, ToastSuccess, last.Kind)
	assert.Equal(t, "$16.00 off", last.Message)

	bad := &fakeValidator{err: &APIError{Status: 400, Code: CodeInvalidPromo, Message: "Promo code has expired"}}
	err := d.ApplyPromo(ctx, bad, toasts, "OLD", 16000)
	require.Error(t, err)
	assert.True(t, HasCode(err, CodeInvalidPromo))
	assert.Nil(t, d.Promo)
	last, _ = toasts.Last()
	assert.Equal(t, ToastError, last.Kind)
	assert.Equal(t, "Promo code has expired", last.Message)
}

func TestApplyReferral(t *testing.T) {
	ctx := context.Background()
	var d Discounts
	d.Promo = &AppliedPromo{ID: 1, Code: "SAVE10", DiscountCents: 1000}

	neg := &fakeValidator{referral: &ReferralValidation{ReferralCode: "JANE1234", DiscountCents: -50}}
	require.NoError(t, d.ApplyReferral(ctx, neg, Discard, "JANE1234", "new@example.com"))
	assert.Equal(t, int64(0), d.Referral.DiscountCents)

	ok := &fakeValidator{referral: &ReferralValidation{ReferralCode: "JANE1234", DiscountCents: 2000}}
	require.NoError(t, d.ApplyReferral(ctx, ok, Discard, "JANE1234", "new@example.com"))
	assert.Equal(t, int64(3000), d.DiscountCents())
	assert.Equal(t, "$130.00", d.EstimatedTotal(16000))
	assert.Equal(t, "$0.00", d.EstimatedTotal(2000))

	// A failed referral leaves the promo alone.
	bad := &fakeValidator{err: &APIError{Status: 400, Code: CodeInvalidReferral, Message: "Referral code not found"}}
	require.Error(t, d.ApplyReferral(ctx, bad, Discard, "NOPE", "new@example.com"))
	assert.Nil(t, d.Referral)
	assert.Equal(t, "SAVE10", d.PromoCode())
}

func TestApplyEmptyCodeSendsNothing(t *testing.T) {
	v := &fakeValidator{}
	d := Discounts{Promo: &AppliedPromo{Code: "SAVE10"}}

	err := d.ApplyPromo(context.Background(), v, Discard, "  ", 16000)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "promoCode")
	assert.Zero(t, v.calls)
	assert.Nil(t, d.Promo)
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "$0.00", FormatCents(0))
	assert.Equal(t, "$135.50", FormatCents(13550))
	assert.Equal(t, "$0.05", FormatCents(5))
	assert.Equal(t, "-$50.00", FormatCents(-5000))
}

func TestFeeStatusLabel(t *testing.T) {
	assert.Equal(t, "No Fee", FeeStatusLabel(FeeNotApplicable))
	assert.Equal(t, "Fee Pending", FeeStatusLabel(FeePending))
	assert.Equal(t, "Fee Waived", FeeStatusLabel(FeeDismissed))
	assert.Equal(t, "Fee Charged", FeeStatusLabel(FeeCharged))
	assert.Equal(t, "refunded", FeeStatusLabel("refunded"))
}

func TestLateWindow(t *testing.T) {
	start, err := AppointmentStart("2025-06-09", "10:00 AM", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC), start)

	assert.False(t, LateWindow(start, start.Add(-25*time.Hour)))
	assert.False(t, LateWindow(start, start.Add(-24*time.Hour)))
	assert.True(t, LateWindow(start, start.Add(-23*time.Hour)))
	assert.True(t, LateWindow(start, start.Add(time.Hour)))

	_, err = AppointmentStart("2025-06-09", "morning", time.UTC)
	assert.Error(t, err)
}

type fakeCanceller struct {
	got   *CancelRequest
	reply *Booking
	err   error
}

func (f *fakeCanceller) CancelBooking(_ context.Context, _ string, req CancelRequest) (*Booking, error) {
	f.got = &req
	return f.reply, f.err
}

func TestCancelFormRequiresAcknowledgement(t *testing.T) {
	api := &fakeCanceller{reply: &Booking{ID: 1, Status: "cancelled", CancellationFeeStatus: FeePending, CancellationFeeCents: 5000}}
	toasts := &ToastLog{}
	form := &CancelForm{Token: "tok", Reason: "Travelling"}

	assert.False(t, form.CanSubmit())
	_, err := form.Submit(context.Background(), api, toasts)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Nil(t, api.got)
	assert.Empty(t, toasts.Toasts())

	form.Acknowledged = true
	b, err := form.Submit(context.Background(), api, toasts)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", b.Status)
	require.NotNil(t, api.got)
	assert.True(t, api.got.AcknowledgeFee)
	assert.Equal(t, "Travelling", api.got.Reason)

	last, _ := toasts.Last()
	assert.Contains(t, last.Message, "$50.00")
}

type fakeRescheduler struct {
	got *RescheduleInput
	err error
}

func (f *fakeRescheduler) RequestReschedule(_ context.Context, _ string, in RescheduleInput) (*RescheduleRequest, error) {
	f.got = &in
	if f.err != nil {
		return nil, f.err
	}
	return &RescheduleRequest{ID: 3, RequestedDate: in.Date, RequestedTimeSlot: in.TimeSlot, Status: "pending"}, nil
}

func TestRescheduleForm(t *testing.T) {
	api := &fakeRescheduler{}
	form := &RescheduleForm{Token: "tok", Date: "2025-06-12"}

	_, err := form.Submit(context.Background(), api, Discard)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, map[string]string{"timeSlot": "is required"}, vErr.Fields)
	assert.Nil(t, api.got)

	form.TimeSlot = "2:00 PM"
	rr, err := form.Submit(context.Background(), api, Discard)
	require.NoError(t, err)
	assert.Equal(t, "pending", rr.Status)
	assert.Equal(t, "2025-06-12", api.got.Date)
}
