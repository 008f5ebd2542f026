package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/diagnosis/cleanbook/pkg/cache"
	"github.com/diagnosis/cleanbook/pkg/config"
	"github.com/diagnosis/cleanbook/pkg/events"
	"github.com/diagnosis/cleanbook/pkg/payments"
	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/diagnosis/cleanbook/services/bookings/internal/repository"
	"github.com/diagnosis/cleanbook/services/bookings/internal/repository/memory"
	"github.com/diagnosis/cleanbook/services/bookings/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	medium    = "Medium (1000-2000 sq ft)"
	tenAM     = "10:00 AM"
	servedZip = "10001"
)

type fakePayments struct {
	charges []payments.ChargeRequest
	err     error
}

func (f *fakePayments) CreateSetupIntent(_ context.Context, email, _ string) (*payments.SetupIntent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &payments.SetupIntent{ClientSecret: "seti_secret_" + email, CustomerID: "cus_test"}, nil
}

func (f *fakePayments) ChargeOffSession(_ context.Context, req payments.ChargeRequest) (*payments.Charge, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.charges = append(f.charges, req)
	return &payments.Charge{PaymentIntentID: "pi_test", Status: "succeeded"}, nil
}

type testEnv struct {
	now   time.Time
	repos repository.Set
	svc   *Services
	bus   *events.MemoryEventBus
	pay   *fakePayments
}

func testConfig() config.BookingConfig {
	return config.BookingConfig{
		Timezone:                 "UTC",
		CancelCutoff:             24 * time.Hour,
		LateCancellationFeeCents: 5000,
		ReferralDiscountCents:    2500,
		AvailabilityCacheTTL:     time.Minute,
		RecurringHorizon:         14 * 24 * time.Hour,
		RecurringInterval:        time.Minute,
		IdempotencyTTL:           24 * time.Hour,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		now: time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC),
		bus: events.NewMemoryEventBus(),
		pay: &fakePayments{},
	}
	env.repos = memory.NewStore().WithClock(func() time.Time { return env.now }).Repositories()
	_, err := env.repos.Areas.Create(context.Background(), &domain.ServiceArea{
		Name: "Downtown", ZipCodes: []string{servedZip}, IsActive: true,
	})
	require.NoError(t, err)

	env.rewire()
	return env
}

// rewire rebuilds the services over env.repos, picking up swapped repositories.
func (env *testEnv) rewire() {
	clock := func() time.Time { return env.now }
	env.svc = New(env.repos, schedule.Default(), cache.NewMemoryStore(), env.bus, env.pay, testConfig(), WithClock(clock))
}

func bookingRequest(date, slot, email string) *domain.CreateBookingRequest {
	return &domain.CreateBookingRequest{
		Service:          "Residential",
		PropertySize:     medium,
		Date:             date,
		TimeSlot:         slot,
		Name:             "Jane Doe",
		Email:            email,
		Phone:            "(555) 123-4567",
		Address:          "1 Main St",
		ZipCode:          servedZip,
		PaymentMethodID:  "pm_test",
		StripeCustomerID: "cus_test",
		AcceptPolicy:     true,
	}
}

func (env *testEnv) book(t *testing.T, date, slot, email string) *domain.Booking {
	t.Helper()
	b, err := env.svc.Bookings.Create(context.Background(), bookingRequest(date, slot, email), "")
	require.NoError(t, err)
	return b
}

func slotFor(t *testing.T, slots []domain.SlotAvailability, name string) domain.SlotAvailability {
	t.Helper()
	for _, s := range slots {
		if s.TimeSlot == name {
			return s
		}
	}
	t.Fatalf("slot %q missing", name)
	return domain.SlotAvailability{}
}

func TestAvailabilityCountsActiveBookings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	date := "2025-06-10"

	env.book(t, date, tenAM, "a@example.com")
	env.book(t, date, tenAM, "b@example.com")

	slots, err := env.svc.Availability.ForDate(ctx, date)
	require.NoError(t, err)
	require.Len(t, slots, 5)
	ten := slotFor(t, slots, tenAM)
	assert.Equal(t, 3, ten.Capacity)
	assert.Equal(t, 1, ten.Available)

	// The cached result must be dropped when the last seat goes.
	env.book(t, date, tenAM, "c@example.com")
	slots, err = env.svc.Availability.ForDate(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, 0, slotFor(t, slots, tenAM).Available)

	_, err = env.svc.Bookings.Create(ctx, bookingRequest(date, tenAM, "d@example.com"), "")
	assert.ErrorIs(t, err, domain.ErrSlotFull)
}

func TestAvailabilityRejectsBadDates(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Availability.ForDate(context.Background(), "06/10/2025")
	assert.ErrorIs(t, err, domain.ErrInvalidDate)

	_, err = env.svc.Availability.ForDate(context.Background(), "2025-06-01")
	assert.ErrorIs(t, err, domain.ErrPastDate)
}

func TestCapacityOverride(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	date := "2025-06-11"

	_, err := env.svc.Availability.SetOverride(ctx, &domain.CapacityOverride{Date: date, TimeSlot: "9:00 AM", Capacity: 1})
	assert.ErrorIs(t, err, domain.ErrUnknownSlot)

	o, err := env.svc.Availability.SetOverride(ctx, &domain.CapacityOverride{Date: date, TimeSlot: tenAM, Capacity: 1})
	require.NoError(t, err)

	slots, err := env.svc.Availability.ForDate(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, 1, slotFor(t, slots, tenAM).Capacity)

	env.book(t, date, tenAM, "a@example.com")
	_, err = env.svc.Bookings.Create(ctx, bookingRequest(date, tenAM, "b@example.com"), "")
	assert.ErrorIs(t, err, domain.ErrSlotFull)

	require.NoError(t, env.svc.Availability.DeleteOverride(ctx, o.ID))
	env.book(t, date, tenAM, "b@example.com")
	assert.ErrorIs(t, env.svc.Availability.DeleteOverride(ctx, o.ID), domain.ErrNotFound)
}

func TestCreateBookingAppliesPromoAndReferral(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Discounts.CreatePromo(ctx, domain.PromoCodeInput{
		Code: "save10", DiscountType: domain.DiscountPercentage, DiscountValue: 10, IsActive: true,
	})
	require.NoError(t, err)

	referrerBooking := env.book(t, "2025-06-10", "8:00 AM", "ref@example.com")
	referrer, err := env.repos.Customers.GetByEmail(ctx, "ref@example.com")
	require.NoError(t, err)
	require.NotNil(t, referrer)
	assert.Equal(t, referrer.ID, *referrerBooking.CustomerID)

	req := bookingRequest("2025-06-10", tenAM, "New@Example.com")
	req.PromoCode = " save10 "
	req.ReferralCode = referrer.ReferralCode

	b, err := env.svc.Bookings.Create(ctx, req, "")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", b.Email)
	assert.Equal(t, "5551234567", b.Phone)
	assert.Equal(t, int64(16000), b.SubtotalCents)
	assert.Equal(t, int64(1600+2500), b.DiscountCents)
	assert.Equal(t, int64(16000-4100), b.TotalCents)
	assert.Equal(t, domain.BookingPending, b.Status)
	assert.NotEmpty(t, b.ManageToken)

	promo, err := env.repos.Promos.GetByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 1, promo.UsageCount)

	ref, err := env.repos.Referrals.GetByRefereeEmail(ctx, "new@example.com")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, domain.ReferralPending, ref.Status)
	assert.Equal(t, b.ID, ref.BookingID)

	// A referee cannot be referred twice.
	_, err = env.svc.Discounts.ValidateReferral(ctx, domain.ValidateReferralRequest{Code: referrer.ReferralCode, Email: "new@example.com"})
	assert.ErrorIs(t, err, domain.ErrAlreadyReferred)

	assert.Len(t, env.bus.Published(events.BookingCreated), 2)
}

func TestCreateBookingRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *domain.CreateBookingRequest)
		want   error
	}{
		{"zip not served", func(r *domain.CreateBookingRequest) { r.ZipCode = "94105" }, domain.ErrZipNotServed},
		{"malformed zip", func(r *domain.CreateBookingRequest) { r.ZipCode = "ABCDE" }, domain.ErrInvalidZip},
		{"unknown slot", func(r *domain.CreateBookingRequest) { r.TimeSlot = "9:30 AM" }, domain.ErrUnknownSlot},
		{"past date", func(r *domain.CreateBookingRequest) { r.Date = "2025-06-01" }, domain.ErrPastDate},
		{"earlier today", func(r *domain.CreateBookingRequest) { r.Date = "2025-06-08"; r.TimeSlot = tenAM }, domain.ErrPastDate},
		{"bad date", func(r *domain.CreateBookingRequest) { r.Date = "2025-13-01" }, domain.ErrInvalidDate},
		{"unknown service", func(r *domain.CreateBookingRequest) { r.Service = "Windows" }, domain.ErrUnknownService},
		{"unknown promo", func(r *domain.CreateBookingRequest) { r.PromoCode = "NOPE" }, domain.ErrInvalidPromo},
		{"unknown referral", func(r *domain.CreateBookingRequest) { r.ReferralCode = "NOPE" }, domain.ErrInvalidReferral},
		{"recurring ends before start", func(r *domain.CreateBookingRequest) {
			r.Recurring = &domain.RecurringConfig{Frequency: domain.FrequencyWeekly, EndDate: "2025-06-01"}
		}, domain.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			req := bookingRequest("2025-06-10", tenAM, "a@example.com")
			tt.mutate(req)
			_, err := env.svc.Bookings.Create(context.Background(), req, "")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateBookingIdempotencyKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.Bookings.Create(ctx, bookingRequest("2025-06-10", tenAM, "a@example.com"), "key-1")
	require.NoError(t, err)
	again, err := env.svc.Bookings.Create(ctx, bookingRequest("2025-06-10", tenAM, "a@example.com"), "key-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	list, err := env.svc.Bookings.List(ctx, domain.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

type slowPromos struct {
	repository.PromoRepository
	delay time.Duration
}

func (r slowPromos) GetByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	time.Sleep(r.delay)
	return r.PromoRepository.GetByCode(ctx, code)
}

type slowBookings struct {
	repository.BookingRepository
	delay time.Duration
}

func (r slowBookings) CreateWithinCapacity(ctx context.Context, b *domain.Booking, capacity int) (*domain.Booking, error) {
	time.Sleep(r.delay)
	return r.BookingRepository.CreateWithinCapacity(ctx, b, capacity)
}

func TestConcurrentBookingsSpendLastPromoUseOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	maxUses := 1
	_, err := env.svc.Discounts.CreatePromo(ctx, domain.PromoCodeInput{
		Code: "ONCE", DiscountType: domain.DiscountFixed, DiscountValue: 1000, MaxUses: &maxUses, IsActive: true,
	})
	require.NoError(t, err)

	// Both submissions pass validation before either takes the use.
	env.repos.Promos = slowPromos{PromoRepository: env.repos.Promos, delay: 20 * time.Millisecond}
	env.rewire()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, slot := range []string{tenAM, "8:00 AM"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := bookingRequest("2025-06-10", slot, fmt.Sprintf("c%d@example.com", i))
			req.PromoCode = "ONCE"
			_, errs[i] = env.svc.Bookings.Create(ctx, req, "")
		}()
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrPromoExhausted)
			failed++
		}
	}
	assert.Equal(t, 1, failed)

	promo, err := env.repos.Promos.GetByCode(ctx, "ONCE")
	require.NoError(t, err)
	assert.Equal(t, 1, promo.UsageCount)

	list, err := env.svc.Bookings.List(ctx, domain.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPromoUseReturnedWhenSlotIsFull(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Discounts.CreatePromo(ctx, domain.PromoCodeInput{
		Code: "SAVE5", DiscountType: domain.DiscountFixed, DiscountValue: 500, IsActive: true,
	})
	require.NoError(t, err)
	for i := range 3 {
		env.book(t, "2025-06-10", tenAM, fmt.Sprintf("f%d@example.com", i))
	}

	req := bookingRequest("2025-06-10", tenAM, "late@example.com")
	req.PromoCode = "SAVE5"
	_, err = env.svc.Bookings.Create(ctx, req, "")
	require.ErrorIs(t, err, domain.ErrSlotFull)

	promo, err := env.repos.Promos.GetByCode(ctx, "SAVE5")
	require.NoError(t, err)
	assert.Equal(t, 0, promo.UsageCount)
}

func TestConcurrentSubmissionsShareIdempotencyKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// The second submission arrives while the first is still inserting.
	env.repos.Bookings = slowBookings{BookingRepository: env.repos.Bookings, delay: 50 * time.Millisecond}
	env.rewire()

	var wg sync.WaitGroup
	got := make([]*domain.Booking, 2)
	errs := make([]error, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i], errs[i] = env.svc.Bookings.Create(ctx, bookingRequest("2025-06-10", tenAM, "a@example.com"), "key-123")
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, got[0].ID, got[1].ID)

	list, err := env.svc.Bookings.List(ctx, domain.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Len(t, env.bus.Published(events.BookingCreated), 1)
}

func TestFailedSubmissionReleasesIdempotencyKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bad := bookingRequest("2025-06-10", tenAM, "a@example.com")
	bad.ZipCode = "94105"
	_, err := env.svc.Bookings.Create(ctx, bad, "key-9")
	require.ErrorIs(t, err, domain.ErrZipNotServed)

	first, err := env.svc.Bookings.Create(ctx, bookingRequest("2025-06-10", tenAM, "a@example.com"), "key-9")
	require.NoError(t, err)
	again, err := env.svc.Bookings.Create(ctx, bookingRequest("2025-06-10", tenAM, "a@example.com"), "key-9")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
}

func TestCancelByTokenFeePolicy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	late := env.book(t, "2025-06-09", tenAM, "late@example.com")
	early := env.book(t, "2025-06-12", tenAM, "early@example.com")

	view, err := env.svc.Bookings.GetByToken(ctx, late.ManageToken)
	require.NoError(t, err)
	assert.True(t, view.LateCancellation)
	assert.Equal(t, "No Fee", view.FeeLabel)

	_, err = env.svc.Bookings.CancelByToken(ctx, late.ManageToken, domain.CancelRequest{})
	assert.ErrorIs(t, err, domain.ErrFeeNotAcknowledged)

	cancelled, err := env.svc.Bookings.CancelByToken(ctx, late.ManageToken, domain.CancelRequest{AcknowledgeFee: true, Reason: " sick "})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, cancelled.Status)
	assert.Equal(t, domain.FeePending, cancelled.CancellationFeeStatus)
	assert.Equal(t, int64(5000), cancelled.CancellationFeeCents)
	assert.Equal(t, "sick", cancelled.CancellationReason)

	cancelled, err = env.svc.Bookings.CancelByToken(ctx, early.ManageToken, domain.CancelRequest{AcknowledgeFee: true})
	require.NoError(t, err)
	assert.Equal(t, domain.FeeNotApplicable, cancelled.CancellationFeeStatus)
	assert.Zero(t, cancelled.CancellationFeeCents)

	_, err = env.svc.Bookings.CancelByToken(ctx, early.ManageToken, domain.CancelRequest{AcknowledgeFee: true})
	assert.ErrorIs(t, err, domain.ErrBookingClosed)

	_, err = env.svc.Bookings.CancelByToken(ctx, "missing", domain.CancelRequest{AcknowledgeFee: true})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	slots, err := env.svc.Availability.ForDate(ctx, "2025-06-09")
	require.NoError(t, err)
	assert.Equal(t, 3, slotFor(t, slots, tenAM).Available)
	assert.Len(t, env.bus.Published(events.BookingCancelled), 2)
}

func TestAdjudicateFee(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b := env.book(t, "2025-06-09", tenAM, "late@example.com")
	_, err := env.svc.Bookings.ChargeFee(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrFeeNotPending)

	_, err = env.svc.Bookings.CancelByToken(ctx, b.ManageToken, domain.CancelRequest{AcknowledgeFee: true})
	require.NoError(t, err)

	env.pay.err = payments.ErrDeclined
	_, err = env.svc.Bookings.ChargeFee(ctx, b.ID)
	assert.ErrorIs(t, err, payments.ErrDeclined)
	view, err := env.svc.Bookings.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fee Pending", view.FeeLabel)

	env.pay.err = nil
	charged, err := env.svc.Bookings.ChargeFee(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FeeCharged, charged.CancellationFeeStatus)
	require.Len(t, env.pay.charges, 1)
	assert.Equal(t, int64(5000), env.pay.charges[0].AmountCents)
	assert.Equal(t, "pm_test", env.pay.charges[0].PaymentMethodID)
	assert.Len(t, env.bus.Published(events.CancellationFeeCharge), 1)

	_, err = env.svc.Bookings.DismissFee(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrFeeNotPending)

	other := env.book(t, "2025-06-09", "8:00 AM", "other@example.com")
	_, err = env.svc.Bookings.CancelByToken(ctx, other.ManageToken, domain.CancelRequest{AcknowledgeFee: true})
	require.NoError(t, err)
	dismissed, err := env.svc.Bookings.DismissFee(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fee Waived", dismissed.CancellationFeeStatus.Label())
}

func TestRescheduleNeedsApproval(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b := env.book(t, "2025-06-10", tenAM, "a@example.com")
	req, err := env.svc.Reschedules.Request(ctx, b.ManageToken, domain.RescheduleInput{Date: "2025-06-12", TimeSlot: "2:00 PM"})
	require.NoError(t, err)
	assert.Equal(t, domain.ReschedulePending, req.Status)

	view, err := env.svc.Bookings.GetByToken(ctx, b.ManageToken)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-10", view.Date)
	assert.Equal(t, tenAM, view.TimeSlot)
	require.NotNil(t, view.PendingReschedule)
	assert.Equal(t, req.ID, view.PendingReschedule.ID)

	_, err = env.svc.Reschedules.Request(ctx, b.ManageToken, domain.RescheduleInput{Date: "2025-06-13", TimeSlot: tenAM})
	assert.ErrorIs(t, err, domain.ErrPendingReschedule)

	adminID := int64(7)
	approved, err := env.svc.Reschedules.Approve(ctx, req.ID, &adminID, domain.RescheduleDecision{Note: "ok"})
	require.NoError(t, err)
	assert.Equal(t, domain.RescheduleApproved, approved.Status)

	moved, err := env.svc.Bookings.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-12", moved.Date)
	assert.Equal(t, "2:00 PM", moved.TimeSlot)
	assert.Nil(t, moved.PendingReschedule)

	_, err = env.svc.Reschedules.Deny(ctx, req.ID, &adminID, domain.RescheduleDecision{})
	assert.ErrorIs(t, err, domain.ErrRequestDecided)
	assert.Len(t, env.bus.Published(events.RescheduleDecided), 1)
}

func TestRescheduleApprovalRechecksCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b := env.book(t, "2025-06-10", tenAM, "a@example.com")
	req, err := env.svc.Reschedules.Request(ctx, b.ManageToken, domain.RescheduleInput{Date: "2025-06-12", TimeSlot: "4:00 PM"})
	require.NoError(t, err)

	env.book(t, "2025-06-12", "4:00 PM", "b@example.com")
	env.book(t, "2025-06-12", "4:00 PM", "c@example.com")

	_, err = env.svc.Reschedules.Approve(ctx, req.ID, nil, domain.RescheduleDecision{})
	assert.ErrorIs(t, err, domain.ErrSlotFull)

	denied, err := env.svc.Reschedules.Deny(ctx, req.ID, nil, domain.RescheduleDecision{Note: "full"})
	require.NoError(t, err)
	assert.Equal(t, domain.RescheduleDenied, denied.Status)
}

func TestCancellingClosesPendingReschedule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b := env.book(t, "2025-06-12", tenAM, "a@example.com")
	req, err := env.svc.Reschedules.Request(ctx, b.ManageToken, domain.RescheduleInput{Date: "2025-06-13", TimeSlot: tenAM})
	require.NoError(t, err)

	_, err = env.svc.Bookings.CancelByToken(ctx, b.ManageToken, domain.CancelRequest{AcknowledgeFee: true})
	require.NoError(t, err)

	_, err = env.svc.Reschedules.Approve(ctx, req.ID, nil, domain.RescheduleDecision{})
	assert.ErrorIs(t, err, domain.ErrRequestDecided)
}

func TestCompleteIssuesInvoiceAndCreditsReferrer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.book(t, "2025-06-10", "8:00 AM", "ref@example.com")
	referrer, err := env.repos.Customers.GetByEmail(ctx, "ref@example.com")
	require.NoError(t, err)

	req := bookingRequest("2025-06-10", tenAM, "new@example.com")
	req.ReferralCode = referrer.ReferralCode
	b, err := env.svc.Bookings.Create(ctx, req, "")
	require.NoError(t, err)

	cleaner, err := env.svc.People.CreateEmployee(ctx, &domain.Employee{
		Name: "Sam", Email: "sam@example.com", IsActive: true, Permissions: []string{"bookings:read"},
	})
	require.NoError(t, err)

	_, err = env.svc.Bookings.Complete(ctx, b.ID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	confirmed := domain.BookingConfirmed
	ids := []int64{cleaner.ID}
	_, err = env.svc.Bookings.Update(ctx, b.ID, domain.BookingPatch{Status: &confirmed, AssignedEmployeeIDs: &ids})
	require.NoError(t, err)

	stranger := cleaner.ID + 100
	_, err = env.svc.Bookings.Complete(ctx, b.ID, &stranger)
	assert.ErrorIs(t, err, domain.ErrNotAssigned)

	assigned, err := env.svc.Bookings.ListAssigned(ctx, cleaner.ID, domain.BookingFilter{})
	require.NoError(t, err)
	require.Len(t, assigned, 1)

	done, err := env.svc.Bookings.Complete(ctx, b.ID, &cleaner.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCompleted, done.Status)

	invoices, err := env.svc.Billing.ListInvoices(ctx, nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, b.TotalCents, invoices[0].AmountCents)
	assert.Equal(t, "INV-202506-00002", invoices[0].Number)

	paid, err := env.svc.Billing.MarkPaid(ctx, invoices[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePaid, paid.Status)
	_, err = env.svc.Billing.Void(ctx, invoices[0].ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	stats, err := env.svc.Discounts.ReferralStats(ctx, "ref@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalReferrals)
	assert.Equal(t, 1, stats.CompletedReferrals)
	assert.Equal(t, int64(2500), stats.CreditsEarnedCents)

	review, err := env.svc.Bookings.ReviewByToken(ctx, b.ManageToken, domain.Review{Rating: 5, Comment: "Spotless"})
	require.NoError(t, err)
	assert.False(t, review.IsPublished)
	_, err = env.svc.Bookings.ReviewByToken(ctx, b.ManageToken, domain.Review{Rating: 4})
	assert.ErrorIs(t, err, domain.ErrAlreadyReviewed)
}

func TestUpdateBooking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := env.book(t, "2025-06-10", tenAM, "a@example.com")

	completed := domain.BookingCompleted
	_, err := env.svc.Bookings.Update(ctx, b.ID, domain.BookingPatch{Status: &completed})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	ids := []int64{42}
	_, err = env.svc.Bookings.Update(ctx, b.ID, domain.BookingPatch{AssignedEmployeeIDs: &ids})
	assert.ErrorIs(t, err, domain.ErrUnknownEmployee)

	_, err = env.svc.Bookings.ReviewByToken(ctx, b.ManageToken, domain.Review{Rating: 5})
	assert.ErrorIs(t, err, domain.ErrNotCompleted)

	cancelled := domain.BookingCancelled
	notes := "customer called"
	updated, err := env.svc.Bookings.Update(ctx, b.ID, domain.BookingPatch{Status: &cancelled, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, updated.Status)
	assert.Equal(t, notes, updated.Notes)
	assert.Equal(t, domain.FeeNotApplicable, updated.CancellationFeeStatus)
}

func TestRecurringMaterialize(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := bookingRequest("2025-06-10", tenAM, "weekly@example.com")
	req.Recurring = &domain.RecurringConfig{Frequency: domain.FrequencyWeekly, EndDate: "2025-06-20"}
	first, err := env.svc.Bookings.Create(ctx, req, "")
	require.NoError(t, err)
	require.NotNil(t, first.RecurringID)

	series, err := env.svc.Recurring.Get(ctx, *first.RecurringID)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-17", series.NextOccurrence)

	n, err := env.svc.Recurring.Materialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	exists, err := env.repos.Bookings.ExistsForRecurring(ctx, series.ID, "2025-06-17")
	require.NoError(t, err)
	assert.True(t, exists)

	series, err = env.svc.Recurring.Get(ctx, series.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-24", series.NextOccurrence)
	assert.Equal(t, domain.RecurringCancelled, series.Status)

	n, err = env.svc.Recurring.Materialize(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, env.bus.Published(events.RecurringMaterialized), 1)
}

func TestMonthlySeriesStaysOnItsDay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := bookingRequest("2025-08-31", tenAM, "monthly@example.com")
	req.Recurring = &domain.RecurringConfig{Frequency: domain.FrequencyMonthly}
	first, err := env.svc.Bookings.Create(ctx, req, "")
	require.NoError(t, err)

	series, err := env.svc.Recurring.Get(ctx, *first.RecurringID)
	require.NoError(t, err)
	assert.Equal(t, 31, series.AnchorDay)
	assert.Equal(t, "2025-09-30", series.NextOccurrence)

	env.now = time.Date(2025, 9, 20, 12, 0, 0, 0, time.UTC)
	n, err := env.svc.Recurring.Materialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	series, err = env.svc.Recurring.Get(ctx, series.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-10-31", series.NextOccurrence)
}

func TestRecurringSkipsFullSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	series, err := env.svc.Recurring.Create(ctx, &domain.RecurringBooking{
		CustomerName: "Ann", Email: "ann@example.com", Phone: "5551234567", Address: "2 Main St",
		ZipCode: servedZip, Service: "Residential", PropertySize: medium, TimeSlot: "4:00 PM",
		Frequency: domain.FrequencyBiweekly, NextOccurrence: "2025-06-10",
	})
	require.NoError(t, err)

	env.book(t, "2025-06-10", "4:00 PM", "b@example.com")
	env.book(t, "2025-06-10", "4:00 PM", "c@example.com")

	n, err := env.svc.Recurring.Materialize(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	series, err = env.svc.Recurring.Get(ctx, series.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-24", series.NextOccurrence)
	assert.Equal(t, domain.RecurringActive, series.Status)

	paused := domain.RecurringPaused
	series, err = env.svc.Recurring.Update(ctx, series.ID, domain.RecurringPatch{Status: &paused})
	require.NoError(t, err)
	assert.Equal(t, domain.RecurringPaused, series.Status)

	cancelled := domain.RecurringCancelled
	_, err = env.svc.Recurring.Update(ctx, series.ID, domain.RecurringPatch{Status: &cancelled})
	require.NoError(t, err)
	_, err = env.svc.Recurring.Update(ctx, series.ID, domain.RecurringPatch{Status: &paused})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestPromoValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	maxUses := 1
	_, err := env.svc.Discounts.CreatePromo(ctx, domain.PromoCodeInput{
		Code: "FLAT50", DiscountType: domain.DiscountFixed, DiscountValue: 5000, MaxUses: &maxUses, IsActive: true,
	})
	require.NoError(t, err)

	v, err := env.svc.Discounts.ValidatePromo(ctx, domain.ValidatePromoRequest{Code: "flat50", SubtotalCents: 3000})
	require.NoError(t, err)
	assert.Equal(t, int64(3000), v.DiscountCents)

	_, err = env.svc.Discounts.CreatePromo(ctx, domain.PromoCodeInput{
		Code: "flat50", DiscountType: domain.DiscountFixed, DiscountValue: 100, IsActive: true,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = env.svc.Discounts.CreatePromo(ctx, domain.PromoCodeInput{
		Code: "HALFOFF", DiscountType: domain.DiscountPercentage, DiscountValue: 150, IsActive: true,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPromo)

	req := bookingRequest("2025-06-10", tenAM, "a@example.com")
	req.PromoCode = "FLAT50"
	_, err = env.svc.Bookings.Create(ctx, req, "")
	require.NoError(t, err)

	_, err = env.svc.Discounts.ValidatePromo(ctx, domain.ValidatePromoRequest{Code: "FLAT50", SubtotalCents: 3000})
	assert.ErrorIs(t, err, domain.ErrPromoExhausted)
}

func TestSelfReferral(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.book(t, "2025-06-10", tenAM, "ref@example.com")
	c, err := env.repos.Customers.GetByEmail(ctx, "ref@example.com")
	require.NoError(t, err)

	_, err = env.svc.Discounts.ValidateReferral(ctx, domain.ValidateReferralRequest{Code: c.ReferralCode, Email: "REF@example.com"})
	assert.ErrorIs(t, err, domain.ErrSelfReferral)

	v, err := env.svc.Discounts.ValidateReferral(ctx, domain.ValidateReferralRequest{Code: c.ReferralCode, Email: "friend@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(2500), v.DiscountCents)
}

func TestQuote(t *testing.T) {
	env := newTestEnv(t)

	q, err := env.svc.Bookings.Quote(context.Background(), domain.QuoteRequest{Service: "deep cleaning", PropertySize: medium})
	require.NoError(t, err)
	assert.Equal(t, int64(26000), q.SubtotalCents)
	assert.Equal(t, int64(26000), q.TotalCents)
}

func TestAreaCheck(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	check, err := env.svc.Areas.Check(ctx, "10001-1234")
	require.NoError(t, err)
	assert.True(t, check.Served)
	assert.Equal(t, "Downtown", check.AreaName)

	check, err = env.svc.Areas.Check(ctx, "94105")
	require.NoError(t, err)
	assert.False(t, check.Served)

	_, err = env.svc.Areas.Check(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidZip)

	area, err := env.svc.Areas.Create(ctx, &domain.ServiceArea{Name: "Bay", ZipCodes: []string{"94105", "94105", "94107"}, IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"94105", "94107"}, area.ZipCodes)

	check, err = env.svc.Areas.Check(ctx, "94105")
	require.NoError(t, err)
	assert.True(t, check.Served)
}

func TestContentBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Content.SaveContent(ctx, "Hero", map[string]string{"title": "Sparkling homes", " ": "dropped"})
	require.NoError(t, err)

	content, err := env.svc.Content.Content(ctx, "hero")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"title": "Sparkling homes"}, content)

	_, err = env.svc.Content.SaveContent(ctx, "hero", map[string]string{"subtitle": "Book in minutes"})
	require.NoError(t, err)
	content, err = env.svc.Content.Content(ctx, "hero")
	require.NoError(t, err)
	assert.Len(t, content, 2)
}

func TestEmployeePermissions(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.People.CreateEmployee(context.Background(), &domain.Employee{
		Name: "Sam", Email: "sam@example.com", Permissions: []string{"bookings:read", "root"},
	})
	assert.ErrorIs(t, err, domain.ErrUnknownPermission)

	e, err := env.svc.People.CreateEmployee(context.Background(), &domain.Employee{
		Name: "Sam", Email: "Sam@Example.com", Permissions: []string{"bookings:write", "bookings:read", "bookings:read"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", e.Email)
	assert.Equal(t, []string{"bookings:read", "bookings:write"}, e.Permissions)
}

func TestAnalyticsDefaultsToCurrentMonth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.book(t, "2025-06-10", tenAM, "a@example.com")

	sum, err := env.svc.Billing.Analytics(ctx, "", "2025-06-30")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", sum.From)
	assert.Equal(t, 1, sum.TotalBookings)
	assert.Equal(t, 1, sum.ByStatus["pending"])

	_, err = env.svc.Billing.Analytics(ctx, "2025-06-30", "2025-06-01")
	assert.ErrorIs(t, err, domain.ErrInvalidDate)
}
