package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/cleanbook/pkg/config"
	"github.com/diagnosis/cleanbook/pkg/events"
	"github.com/diagnosis/cleanbook/pkg/logger"
	"github.com/diagnosis/cleanbook/pkg/payments"
	"github.com/diagnosis/cleanbook/pkg/utils"
	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/diagnosis/cleanbook/services/bookings/internal/repository"
	"github.com/diagnosis/cleanbook/services/bookings/internal/schedule"
)

type BookingService interface {
	Create(ctx context.Context, req *domain.CreateBookingRequest, idempotencyKey string) (*domain.Booking, error)
	Quote(ctx context.Context, req domain.QuoteRequest) (*Quote, error)

	// Management token surface.
	GetByToken(ctx context.Context, token string) (*domain.BookingView, error)
	CancelByToken(ctx context.Context, token string, req domain.CancelRequest) (*domain.Booking, error)
	ReviewByToken(ctx context.Context, token string, rv domain.Review) (*domain.Review, error)

	Get(ctx context.Context, id int64) (*domain.BookingView, error)
	List(ctx context.Context, f domain.BookingFilter) ([]domain.BookingView, error)
	ListForCustomer(ctx context.Context, email string, limit, offset int) ([]domain.BookingView, error)
	ListAssigned(ctx context.Context, employeeID int64, f domain.BookingFilter) ([]domain.BookingView, error)
	Update(ctx context.Context, id int64, patch domain.BookingPatch) (*domain.Booking, error)
	AdminCancel(ctx context.Context, id int64, reason string) (*domain.Booking, error)
	// Complete marks a confirmed booking done and issues its invoice. A
	// non-nil by restricts completion to an employee assigned to the booking.
	Complete(ctx context.Context, id int64, by *int64) (*domain.Booking, error)

	ChargeFee(ctx context.Context, id int64) (*domain.Booking, error)
	DismissFee(ctx context.Context, id int64) (*domain.Booking, error)
}

type bookingService struct {
	repos        repository.Set
	availability AvailabilityService
	discounts    DiscountService
	schedule     *schedule.Schedule
	payments     payments.Provider
	eventBus     events.Publisher
	cfg          config.BookingConfig
	loc          *time.Location
	now          func() time.Time
}

func NewBookingService(
	repos repository.Set,
	availability AvailabilityService,
	discounts DiscountService,
	sched *schedule.Schedule,
	paymentProvider payments.Provider,
	eventBus events.Publisher,
	cfg config.BookingConfig,
	opts ...Option,
) BookingService {
	o := buildOptions(opts)
	return &bookingService{
		repos:        repos,
		availability: availability,
		discounts:    discounts,
		schedule:     sched,
		payments:     paymentProvider,
		eventBus:     eventBus,
		cfg:          cfg,
		loc:          cfg.Location(),
		now:          o.now,
	}
}

func normalizeBookingRequest(req *domain.CreateBookingRequest) {
	req.Name = utils.NormalizeString(req.Name)
	req.Email = utils.NormalizeEmail(req.Email)
	req.Phone = utils.NormalizePhone(req.Phone)
	req.Address = utils.NormalizeString(req.Address)
	req.ZipCode = utils.NormalizeZip(req.ZipCode)
	req.Notes = utils.NormalizeString(req.Notes)
	req.PromoCode = utils.NormalizeCode(req.PromoCode)
	req.ReferralCode = utils.NormalizeCode(req.ReferralCode)
}

// checkSlot validates that date and slot name a future start time.
func (s *bookingService) checkSlot(date, timeSlot string) error {
	if _, err := domain.ParseDate(date); err != nil {
		return err
	}
	if _, ok := s.schedule.Slot(timeSlot); !ok {
		return domain.ErrUnknownSlot
	}
	start, err := domain.StartTime(date, timeSlot, s.loc)
	if err != nil {
		return err
	}
	if start.Before(s.now()) {
		return domain.ErrPastDate
	}
	return nil
}

func (s *bookingService) checkZip(ctx context.Context, zip string) error {
	if !utils.IsValidZip(zip) {
		return domain.ErrInvalidZip
	}
	area, err := s.repos.Areas.FindByZip(ctx, zip)
	if err != nil {
		return fmt.Errorf("lookup service area: %w", err)
	}
	if area == nil {
		return domain.ErrZipNotServed
	}
	return nil
}

const (
	keyPollInterval = 25 * time.Millisecond
	keyWaitTimeout  = 5 * time.Second
)

func (s *bookingService) Create(ctx context.Context, req *domain.CreateBookingRequest, idempotencyKey string) (*domain.Booking, error) {
	normalizeBookingRequest(req)
	if idempotencyKey == "" {
		return s.create(ctx, req)
	}

	// Replay a submission we have already accepted
	existing, err := s.claimKey(ctx, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	created, err := s.create(ctx, req)
	if err != nil {
		if rerr := s.repos.Idempotency.Release(ctx, idempotencyKey); rerr != nil {
			logger.ErrorContext(ctx, "Failed to release idempotency key", "error", rerr)
		}
		return nil, err
	}
	if err := s.repos.Idempotency.Attach(ctx, idempotencyKey, created.ID); err != nil {
		logger.ErrorContext(ctx, "Failed to store idempotency record", "error", err, "booking_id", created.ID)
	}
	return created, nil
}

// claimKey reserves key for this submission and returns nil, or returns the
// booking an earlier submission with the same key produced. A submission
// still holding the key is waited on for up to keyWaitTimeout.
func (s *bookingService) claimKey(ctx context.Context, key string) (*domain.Booking, error) {
	timeout := time.NewTimer(keyWaitTimeout)
	defer timeout.Stop()
	poll := time.NewTicker(keyPollInterval)
	defer poll.Stop()

	for {
		id, reserved, err := s.repos.Idempotency.Reserve(ctx, key, s.cfg.IdempotencyTTL)
		if err != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if reserved {
			return nil, nil
		}
		if id > 0 {
			b, err := s.repos.Bookings.GetByID(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("load booking %d: %w", id, err)
			}
			if b == nil {
				return nil, domain.ErrNotFound
			}
			return b, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout.C:
			return nil, domain.ErrKeyInUse
		case <-poll.C:
		}
	}
}

func (s *bookingService) create(ctx context.Context, req *domain.CreateBookingRequest) (*domain.Booking, error) {
	// Validate business rules
	if err := s.checkSlot(req.Date, req.TimeSlot); err != nil {
		return nil, err
	}
	if req.Recurring != nil && req.Recurring.EndDate != "" && req.Recurring.EndDate < req.Date {
		return nil, domain.ErrInvalidDate
	}
	if err := s.checkZip(ctx, req.ZipCode); err != nil {
		return nil, err
	}

	subtotal, err := s.schedule.Price(req.Service, req.PropertySize)
	if err != nil {
		return nil, err
	}
	quote, err := s.discounts.Quote(ctx, subtotal, req.PromoCode, req.ReferralCode, req.Email)
	if err != nil {
		return nil, err
	}

	capacity, err := s.availability.Capacity(ctx, req.Date, req.TimeSlot)
	if err != nil {
		return nil, err
	}

	booking := &domain.Booking{
		Status:                domain.BookingPending,
		Service:               req.Service,
		PropertySize:          req.PropertySize,
		Date:                  req.Date,
		TimeSlot:              req.TimeSlot,
		CustomerName:          req.Name,
		Email:                 req.Email,
		Phone:                 req.Phone,
		Address:               req.Address,
		ZipCode:               req.ZipCode,
		Notes:                 req.Notes,
		ReferralCode:          quote.ReferralCode,
		SubtotalCents:         quote.SubtotalCents,
		DiscountCents:         quote.DiscountCents,
		TotalCents:            quote.TotalCents,
		StripeCustomerID:      req.StripeCustomerID,
		PaymentMethodID:       req.PaymentMethodID,
		AssignedEmployeeIDs:   []int64{},
		CancellationFeeStatus: domain.FeeNotApplicable,
	}

	// Take the promo use before inserting so the last one is spent once.
	if quote.Promo != nil {
		ok, err := s.repos.Promos.IncrementUsage(ctx, quote.Promo.ID)
		if err != nil {
			return nil, fmt.Errorf("reserve promo use: %w", err)
		}
		if !ok {
			return nil, domain.ErrPromoExhausted
		}
		booking.PromoCodeID = &quote.Promo.ID
	}

	var series *domain.RecurringBooking
	if req.Recurring != nil {
		series, err = s.createSeries(ctx, req)
		if err != nil {
			s.releasePromo(ctx, quote)
			return nil, err
		}
		booking.RecurringID = &series.ID
	}

	created, err := s.repos.Bookings.CreateWithinCapacity(ctx, booking, capacity)
	if err != nil {
		s.releasePromo(ctx, quote)
		if series != nil {
			if _, derr := s.repos.Recurring.Delete(ctx, series.ID); derr != nil {
				logger.ErrorContext(ctx, "Failed to remove recurring series after failed booking", "error", derr, "recurring_id", series.ID)
			}
		}
		if errors.Is(err, domain.ErrSlotFull) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	s.recordSideEffects(ctx, created, quote)
	s.availability.Invalidate(ctx, created.Date)

	publish(ctx, s.eventBus, events.BookingCreated, events.BookingCreatedEvent{
		BookingID:     created.ID,
		ManageToken:   created.ManageToken,
		CustomerName:  created.CustomerName,
		CustomerEmail: created.Email,
		Service:       created.Service,
		PropertySize:  created.PropertySize,
		Date:          created.Date,
		TimeSlot:      created.TimeSlot,
		TotalCents:    created.TotalCents,
		CreatedAt:     created.CreatedAt,
	}, "booking_id", created.ID)

	logger.InfoContext(ctx, "Booking created", "booking_id", created.ID, "date", created.Date, "time_slot", created.TimeSlot)
	return created, nil
}

func (s *bookingService) releasePromo(ctx context.Context, quote *Quote) {
	if quote.Promo == nil {
		return
	}
	if err := s.repos.Promos.ReleaseUsage(ctx, quote.Promo.ID); err != nil {
		logger.ErrorContext(ctx, "Failed to release promo use", "error", err, "promo_code_id", quote.Promo.ID)
	}
}

func (s *bookingService) createSeries(ctx context.Context, req *domain.CreateBookingRequest) (*domain.RecurringBooking, error) {
	start, _ := domain.ParseDate(req.Date)
	series, err := s.repos.Recurring.Create(ctx, &domain.RecurringBooking{
		CustomerName:     req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		Address:          req.Address,
		ZipCode:          req.ZipCode,
		Service:          req.Service,
		PropertySize:     req.PropertySize,
		TimeSlot:         req.TimeSlot,
		Frequency:        req.Recurring.Frequency,
		NextOccurrence:   req.Recurring.Frequency.Next(start, start.Day()).Format(domain.DateLayout),
		AnchorDay:        start.Day(),
		EndDate:          req.Recurring.EndDate,
		Status:           domain.RecurringActive,
		Notes:            req.Notes,
		StripeCustomerID: req.StripeCustomerID,
		PaymentMethodID:  req.PaymentMethodID,
	})
	if err != nil {
		return nil, fmt.Errorf("create recurring series: %w", err)
	}
	return series, nil
}

// recordSideEffects updates the customer record and referral after the
// booking row exists. Failures are logged only.
func (s *bookingService) recordSideEffects(ctx context.Context, b *domain.Booking, quote *Quote) {
	customer, err := s.repos.Customers.UpsertByEmail(ctx, &domain.Customer{
		Name:         b.CustomerName,
		Email:        b.Email,
		Phone:        b.Phone,
		Address:      b.Address,
		ZipCode:      b.ZipCode,
		ReferralCode: domain.NewReferralCode(b.CustomerName),
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to upsert customer", "error", err, "booking_id", b.ID)
	} else if err := s.repos.Bookings.LinkCustomer(ctx, b.ID, customer.ID); err != nil {
		logger.ErrorContext(ctx, "Failed to link customer", "error", err, "booking_id", b.ID)
	} else {
		b.CustomerID = &customer.ID
	}

	if quote.Referrer != nil {
		_, err := s.repos.Referrals.Create(ctx, &domain.Referral{
			Code:          quote.ReferralCode,
			ReferrerEmail: quote.Referrer.Email,
			RefereeEmail:  b.Email,
			BookingID:     b.ID,
			RewardCents:   s.cfg.ReferralDiscountCents,
		})
		if err != nil {
			logger.ErrorContext(ctx, "Failed to record referral", "error", err, "booking_id", b.ID)
		}
	}
}

func (s *bookingService) Quote(ctx context.Context, req domain.QuoteRequest) (*Quote, error) {
	subtotal, err := s.schedule.Price(req.Service, req.PropertySize)
	if err != nil {
		return nil, err
	}
	return s.discounts.Quote(ctx, subtotal, req.PromoCode, req.ReferralCode, req.Email)
}

func (s *bookingService) view(b *domain.Booking) domain.BookingView {
	return domain.BookingView{
		Booking:          b,
		FeeLabel:         b.CancellationFeeStatus.Label(),
		LateCancellation: !b.IsClosed() && b.IsLateCancellation(s.now(), s.cfg.CancelCutoff, s.loc),
	}
}

func (s *bookingService) views(list []domain.Booking) []domain.BookingView {
	out := make([]domain.BookingView, len(list))
	for i := range list {
		out[i] = s.view(&list[i])
	}
	return out
}

func (s *bookingService) detailedView(ctx context.Context, b *domain.Booking) (*domain.BookingView, error) {
	v := s.view(b)
	pending, err := s.repos.Reschedules.PendingForBooking(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("lookup reschedule request: %w", err)
	}
	v.PendingReschedule = pending
	return &v, nil
}

func (s *bookingService) byToken(ctx context.Context, token string) (*domain.Booking, error) {
	if token == "" {
		return nil, domain.ErrNotFound
	}
	b, err := s.repos.Bookings.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if b == nil {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

func (s *bookingService) byID(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := s.repos.Bookings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if b == nil {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

func (s *bookingService) GetByToken(ctx context.Context, token string) (*domain.BookingView, error) {
	b, err := s.byToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.detailedView(ctx, b)
}

func (s *bookingService) CancelByToken(ctx context.Context, token string, req domain.CancelRequest) (*domain.Booking, error) {
	b, err := s.byToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if b.IsClosed() {
		return nil, domain.ErrBookingClosed
	}
	if !req.AcknowledgeFee {
		return nil, domain.ErrFeeNotAcknowledged
	}

	now := s.now()
	c := repository.Cancellation{
		Reason:    utils.NormalizeString(req.Reason),
		FeeStatus: domain.FeeNotApplicable,
		At:        now,
	}
	if b.IsLateCancellation(now, s.cfg.CancelCutoff, s.loc) {
		c.FeeStatus = domain.FeePending
		c.FeeCents = s.cfg.LateCancellationFeeCents
	}
	return s.cancel(ctx, b, c)
}

func (s *bookingService) AdminCancel(ctx context.Context, id int64, reason string) (*domain.Booking, error) {
	b, err := s.byID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.IsClosed() {
		return nil, domain.ErrBookingClosed
	}
	return s.cancel(ctx, b, repository.Cancellation{
		Reason:    utils.NormalizeString(reason),
		FeeStatus: domain.FeeNotApplicable,
		At:        s.now(),
	})
}

func (s *bookingService) cancel(ctx context.Context, b *domain.Booking, c repository.Cancellation) (*domain.Booking, error) {
	cancelled, err := s.repos.Bookings.Cancel(ctx, b.ID, c)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}
	if cancelled == nil {
		return nil, domain.ErrBookingClosed
	}

	// A pending reschedule request has nothing left to move.
	if pending, err := s.repos.Reschedules.PendingForBooking(ctx, b.ID); err != nil {
		logger.ErrorContext(ctx, "Failed to look up reschedule request", "error", err, "booking_id", b.ID)
	} else if pending != nil {
		if _, err := s.repos.Reschedules.Decide(ctx, pending.ID, domain.RescheduleDenied, "Booking cancelled", nil, c.At); err != nil {
			logger.ErrorContext(ctx, "Failed to close reschedule request", "error", err, "request_id", pending.ID)
		}
	}

	s.availability.Invalidate(ctx, cancelled.Date)

	publish(ctx, s.eventBus, events.BookingCancelled, events.BookingCancelledEvent{
		BookingID:     cancelled.ID,
		CustomerEmail: cancelled.Email,
		CustomerName:  cancelled.CustomerName,
		Date:          cancelled.Date,
		TimeSlot:      cancelled.TimeSlot,
		Reason:        cancelled.CancellationReason,
		FeeStatus:     string(cancelled.CancellationFeeStatus),
		FeeCents:      cancelled.CancellationFeeCents,
		CancelledAt:   c.At,
	}, "booking_id", cancelled.ID)

	logger.InfoContext(ctx, "Booking cancelled", "booking_id", cancelled.ID, "fee_status", cancelled.CancellationFeeStatus)
	return cancelled, nil
}

func (s *bookingService) ReviewByToken(ctx context.Context, token string, rv domain.Review) (*domain.Review, error) {
	b, err := s.byToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if b.Status != domain.BookingCompleted {
		return nil, domain.ErrNotCompleted
	}
	rv.BookingID = b.ID
	rv.CustomerName = b.CustomerName
	rv.Comment = utils.NormalizeString(rv.Comment)
	created, err := s.repos.Reviews.Create(ctx, &rv)
	if err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	return created, nil
}

func (s *bookingService) Get(ctx context.Context, id int64) (*domain.BookingView, error) {
	b, err := s.byID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detailedView(ctx, b)
}

func (s *bookingService) List(ctx context.Context, f domain.BookingFilter) ([]domain.BookingView, error) {
	list, err := s.repos.Bookings.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return s.views(list), nil
}

func (s *bookingService) ListForCustomer(ctx context.Context, email string, limit, offset int) ([]domain.BookingView, error) {
	return s.List(ctx, domain.BookingFilter{Email: utils.NormalizeEmail(email), Limit: limit, Offset: offset})
}

func (s *bookingService) ListAssigned(ctx context.Context, employeeID int64, f domain.BookingFilter) ([]domain.BookingView, error) {
	f.EmployeeID = &employeeID
	return s.List(ctx, f)
}

func (s *bookingService) checkEmployees(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		e, err := s.repos.Employees.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("lookup employee: %w", err)
		}
		if e == nil || !e.IsActive {
			return fmt.Errorf("%w: %d", domain.ErrUnknownEmployee, id)
		}
	}
	return nil
}

func (s *bookingService) Update(ctx context.Context, id int64, patch domain.BookingPatch) (*domain.Booking, error) {
	b, err := s.byID(ctx, id)
	if err != nil {
		return nil, err
	}

	var target *domain.BookingStatus
	if patch.Status != nil && *patch.Status != b.Status {
		if !b.Status.CanTransitionTo(*patch.Status) {
			return nil, domain.ErrInvalidTransition
		}
		target = patch.Status
	}
	patch.Status = nil
	if target != nil && *target == domain.BookingConfirmed {
		patch.Status = target
	}

	if patch.AssignedEmployeeIDs != nil {
		if err := s.checkEmployees(ctx, *patch.AssignedEmployeeIDs); err != nil {
			return nil, err
		}
	}
	if patch.CustomerName != nil {
		*patch.CustomerName = utils.NormalizeString(*patch.CustomerName)
	}
	if patch.Phone != nil {
		*patch.Phone = utils.NormalizePhone(*patch.Phone)
	}

	updated, err := s.repos.Bookings.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrNotFound
	}

	if target != nil {
		switch *target {
		case domain.BookingCancelled:
			return s.cancel(ctx, updated, repository.Cancellation{FeeStatus: domain.FeeNotApplicable, At: s.now()})
		case domain.BookingCompleted:
			return s.Complete(ctx, id, nil)
		}
	}
	return updated, nil
}

func (s *bookingService) Complete(ctx context.Context, id int64, by *int64) (*domain.Booking, error) {
	b, err := s.byID(ctx, id)
	if err != nil {
		return nil, err
	}
	if by != nil && !b.IsAssignedTo(*by) {
		return nil, domain.ErrNotAssigned
	}
	if b.Status != domain.BookingConfirmed {
		return nil, domain.ErrInvalidTransition
	}

	now := s.now()
	completed, err := s.repos.Bookings.Complete(ctx, id, now)
	if err != nil {
		return nil, fmt.Errorf("failed to complete booking: %w", err)
	}
	if completed == nil {
		return nil, domain.ErrInvalidTransition
	}

	var invoiceID int64
	inv, err := s.repos.Invoices.Create(ctx, &domain.Invoice{
		Number:        domain.InvoiceNumber(completed.ID, now),
		BookingID:     completed.ID,
		CustomerEmail: completed.Email,
		CustomerName:  completed.CustomerName,
		AmountCents:   completed.TotalCents,
		Status:        domain.InvoiceUnpaid,
		IssuedAt:      now,
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to issue invoice", "error", err, "booking_id", completed.ID)
	} else {
		invoiceID = inv.ID
	}

	if _, err := s.repos.Referrals.CompleteForBooking(ctx, completed.ID, now); err != nil {
		logger.ErrorContext(ctx, "Failed to complete referral", "error", err, "booking_id", completed.ID)
	}

	publish(ctx, s.eventBus, events.BookingCompleted, events.BookingCompletedEvent{
		BookingID:     completed.ID,
		CustomerEmail: completed.Email,
		InvoiceID:     invoiceID,
		TotalCents:    completed.TotalCents,
		CompletedAt:   now,
	}, "booking_id", completed.ID)

	return completed, nil
}

func (s *bookingService) ChargeFee(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := s.byID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.CancellationFeeStatus != domain.FeePending {
		return nil, domain.ErrFeeNotPending
	}

	charge, err := s.payments.ChargeOffSession(ctx, payments.ChargeRequest{
		CustomerID:      b.StripeCustomerID,
		PaymentMethodID: b.PaymentMethodID,
		AmountCents:     b.CancellationFeeCents,
		Description:     fmt.Sprintf("Late cancellation fee for booking %d", b.ID),
		IdempotencyKey:  fmt.Sprintf("fee-%d", b.ID),
		BookingID:       b.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("charge cancellation fee: %w", err)
	}

	charged, err := s.repos.Bookings.SetFeeStatus(ctx, id, domain.FeePending, domain.FeeCharged)
	if err != nil {
		return nil, fmt.Errorf("failed to record fee charge: %w", err)
	}
	if charged == nil {
		return nil, domain.ErrFeeNotPending
	}

	publish(ctx, s.eventBus, events.CancellationFeeCharge, events.CancellationFeeChargedEvent{
		BookingID:       charged.ID,
		CustomerEmail:   charged.Email,
		AmountCents:     charged.CancellationFeeCents,
		PaymentIntentID: charge.PaymentIntentID,
		ChargedAt:       s.now(),
	}, "booking_id", charged.ID)

	logger.InfoContext(ctx, "Cancellation fee charged", "booking_id", charged.ID, "payment_intent", charge.PaymentIntentID)
	return charged, nil
}

func (s *bookingService) DismissFee(ctx context.Context, id int64) (*domain.Booking, error) {
	if _, err := s.byID(ctx, id); err != nil {
		return nil, err
	}
	b, err := s.repos.Bookings.SetFeeStatus(ctx, id, domain.FeePending, domain.FeeDismissed)
	if err != nil {
		return nil, fmt.Errorf("failed to dismiss fee: %w", err)
	}
	if b == nil {
		return nil, domain.ErrFeeNotPending
	}
	return b, nil
}
