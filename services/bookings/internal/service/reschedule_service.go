package service

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/cleanbook/pkg/config"
	"github.com/diagnosis/cleanbook/pkg/events"
	"github.com/diagnosis/cleanbook/pkg/logger"
	"github.com/diagnosis/cleanbook/pkg/utils"
	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/diagnosis/cleanbook/services/bookings/internal/repository"
	"github.com/diagnosis/cleanbook/services/bookings/internal/schedule"
)

// RescheduleService handles requests to move a booking. Requesting never
// touches the booking; only Approve moves it.
type RescheduleService interface {
	Request(ctx context.Context, token string, in domain.RescheduleInput) (*domain.RescheduleRequest, error)
	Approve(ctx context.Context, id int64, by *int64, d domain.RescheduleDecision) (*domain.RescheduleRequest, error)
	Deny(ctx context.Context, id int64, by *int64, d domain.RescheduleDecision) (*domain.RescheduleRequest, error)
	List(ctx context.Context, status *domain.RescheduleStatus, limit, offset int) ([]domain.RescheduleRequest, error)
}

type rescheduleService struct {
	bookingRepo    repository.BookingRepository
	rescheduleRepo repository.RescheduleRepository
	availability   AvailabilityService
	schedule       *schedule.Schedule
	eventBus       events.Publisher
	loc            *time.Location
	now            func() time.Time
}

func NewRescheduleService(
	bookingRepo repository.BookingRepository,
	rescheduleRepo repository.RescheduleRepository,
	availability AvailabilityService,
	sched *schedule.Schedule,
	eventBus events.Publisher,
	cfg config.BookingConfig,
	opts ...Option,
) RescheduleService {
	o := buildOptions(opts)
	return &rescheduleService{
		bookingRepo:    bookingRepo,
		rescheduleRepo: rescheduleRepo,
		availability:   availability,
		schedule:       sched,
		eventBus:       eventBus,
		loc:            cfg.Location(),
		now:            o.now,
	}
}

func (s *rescheduleService) Request(ctx context.Context, token string, in domain.RescheduleInput) (*domain.RescheduleRequest, error) {
	b, err := s.bookingRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if b == nil {
		return nil, domain.ErrNotFound
	}
	if b.IsClosed() {
		return nil, domain.ErrBookingClosed
	}

	if _, err := domain.ParseDate(in.Date); err != nil {
		return nil, err
	}
	if _, ok := s.schedule.Slot(in.TimeSlot); !ok {
		return nil, domain.ErrUnknownSlot
	}
	start, err := domain.StartTime(in.Date, in.TimeSlot, s.loc)
	if err != nil {
		return nil, err
	}
	if start.Before(s.now()) {
		return nil, domain.ErrPastDate
	}

	req, err := s.rescheduleRepo.Create(ctx, &domain.RescheduleRequest{
		BookingID:         b.ID,
		CurrentDate:       b.Date,
		CurrentTimeSlot:   b.TimeSlot,
		RequestedDate:     in.Date,
		RequestedTimeSlot: in.TimeSlot,
		Reason:            utils.NormalizeString(in.Reason),
		Status:            domain.ReschedulePending,
	})
	if err != nil {
		return nil, fmt.Errorf("create reschedule request: %w", err)
	}

	publish(ctx, s.eventBus, events.RescheduleRequested, events.RescheduleRequestedEvent{
		RequestID:     req.ID,
		BookingID:     b.ID,
		CustomerEmail: b.Email,
		CurrentDate:   b.Date,
		CurrentSlot:   b.TimeSlot,
		RequestedDate: req.RequestedDate,
		RequestedSlot: req.RequestedTimeSlot,
	}, "booking_id", b.ID)

	return req, nil
}

func (s *rescheduleService) pending(ctx context.Context, id int64) (*domain.RescheduleRequest, error) {
	req, err := s.rescheduleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get reschedule request: %w", err)
	}
	if req == nil {
		return nil, domain.ErrNotFound
	}
	if req.Status != domain.ReschedulePending {
		return nil, domain.ErrRequestDecided
	}
	return req, nil
}

func (s *rescheduleService) Approve(ctx context.Context, id int64, by *int64, d domain.RescheduleDecision) (*domain.RescheduleRequest, error) {
	req, err := s.pending(ctx, id)
	if err != nil {
		return nil, err
	}

	capacity, err := s.availability.Capacity(ctx, req.RequestedDate, req.RequestedTimeSlot)
	if err != nil {
		return nil, err
	}
	moved, err := s.bookingRepo.MoveWithinCapacity(ctx, req.BookingID, req.RequestedDate, req.RequestedTimeSlot, capacity)
	if err != nil {
		return nil, fmt.Errorf("move booking: %w", err)
	}
	if moved == nil {
		return nil, domain.ErrBookingClosed
	}

	decided, err := s.rescheduleRepo.Decide(ctx, id, domain.RescheduleApproved, utils.NormalizeString(d.Note), by, s.now())
	if err != nil {
		return nil, fmt.Errorf("decide reschedule request: %w", err)
	}
	if decided == nil {
		return nil, domain.ErrRequestDecided
	}

	s.availability.Invalidate(ctx, req.CurrentDate, req.RequestedDate)
	s.publishDecision(ctx, decided, moved)

	logger.InfoContext(ctx, "Reschedule approved", "request_id", id, "booking_id", moved.ID, "date", moved.Date, "time_slot", moved.TimeSlot)
	return decided, nil
}

func (s *rescheduleService) Deny(ctx context.Context, id int64, by *int64, d domain.RescheduleDecision) (*domain.RescheduleRequest, error) {
	if _, err := s.pending(ctx, id); err != nil {
		return nil, err
	}
	decided, err := s.rescheduleRepo.Decide(ctx, id, domain.RescheduleDenied, utils.NormalizeString(d.Note), by, s.now())
	if err != nil {
		return nil, fmt.Errorf("decide reschedule request: %w", err)
	}
	if decided == nil {
		return nil, domain.ErrRequestDecided
	}

	b, err := s.bookingRepo.GetByID(ctx, decided.BookingID)
	if err != nil || b == nil {
		logger.WarnContext(ctx, "Booking missing for denied reschedule", "request_id", id, "error", err)
		return decided, nil
	}
	s.publishDecision(ctx, decided, b)
	return decided, nil
}

func (s *rescheduleService) publishDecision(ctx context.Context, req *domain.RescheduleRequest, b *domain.Booking) {
	publish(ctx, s.eventBus, events.RescheduleDecided, events.RescheduleDecidedEvent{
		RequestID:     req.ID,
		BookingID:     b.ID,
		CustomerEmail: b.Email,
		CustomerName:  b.CustomerName,
		Approved:      req.Status == domain.RescheduleApproved,
		Date:          b.Date,
		TimeSlot:      b.TimeSlot,
		Note:          req.AdminNote,
		DecidedAt:     s.now(),
	}, "request_id", req.ID)
}

func (s *rescheduleService) List(ctx context.Context, status *domain.RescheduleStatus, limit, offset int) ([]domain.RescheduleRequest, error) {
	return s.rescheduleRepo.List(ctx, status, limit, offset)
}
