package client

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	ErrNoNextStep = errors.New("no next step")
	ErrNotReady   = errors.New("booking can only be submitted from the payment step")
)

type ServiceDraft struct {
	Service string `json:"service" validate:"required"`
}

type ScheduleDraft struct {
	PropertySize string     `json:"propertySize" validate:"required"`
	Date         string     `json:"date" validate:"required"`
	TimeSlot     string     `json:"timeSlot" validate:"required"`
	Recurring    *Recurring `json:"recurring,omitempty"`
}

type ContactDraft struct {
	Name      string    `json:"name" validate:"required"`
	Email     string    `json:"email" validate:"required"`
	Phone     string    `json:"phone" validate:"required"`
	Address   string    `json:"address" validate:"required"`
	ZipCode   string    `json:"zipCode"`
	Notes     string    `json:"notes"`
	Discounts Discounts `json:"-" validate:"-"`
}

type PaymentDraft struct {
	PaymentMethodID  string `json:"paymentMethodId" validate:"required"`
	StripeCustomerID string `json:"stripeCustomerId"`
	AcceptPolicy     bool   `json:"acceptCancellationPolicy" validate:"required"`
}

// Step is one state of the booking wizard: ServiceStep, ScheduleStep,
// ContactStep, PaymentStep or Submitted. Each carries the drafts committed
// so far plus the one being edited.
type Step interface {
	Number() int
}

type ServiceStep struct {
	Service ServiceDraft
	ahead   resume
}

type ScheduleStep struct {
	Service  ServiceDraft
	Schedule ScheduleDraft
	ahead    resume
}

type ContactStep struct {
	Service  ServiceDraft
	Schedule ScheduleDraft
	Contact  ContactDraft
}

type PaymentStep struct {
	Service  ServiceDraft
	Schedule ScheduleDraft
	Contact  ContactDraft
	Payment  PaymentDraft

	// IdempotencyKey is fixed for the life of this step so a resubmit after
	// a failure cannot create a second booking.
	IdempotencyKey string
}

type Submitted struct {
	Booking *Booking
}

func (ServiceStep) Number() int { return 1 }
func (ScheduleStep) Number() int { return 2 }
func (ContactStep) Number() int { return 3 }
func (PaymentStep) Number() int { return 4 }
func (Submitted) Number() int { return 5 }

// resume keeps drafts entered on later steps when the user goes back.
type resume struct {
	schedule *ScheduleDraft
	contact  *ContactDraft
}

func Start() Step { return ServiceStep{} }

type BookingCreator interface {
	CreateBooking(ctx context.Context, req CreateBookingRequest, idempotencyKey string) (*Booking, error)
}

type Wizard struct {
	validate *validator.Validate
}

func NewWizard() *Wizard {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Wizard{validate: v}
}

// Next validates the current step's draft and advances. On failure the
// same step is returned with a *ValidationError.
func (w *Wizard) Next(s Step) (Step, error) {
	switch st := s.(type) {
	case ServiceStep:
		if err := w.check(st.Service); err != nil {
			return st, err
		}
		next := ScheduleStep{Service: st.Service, ahead: resume{contact: st.ahead.contact}}
		if st.ahead.schedule != nil {
			next.Schedule = *st.ahead.schedule
		}
		return next, nil
	case ScheduleStep:
		if err := w.check(st.Schedule); err != nil {
			return st, err
		}
		next := ContactStep{Service: st.Service, Schedule: st.Schedule}
		if st.ahead.contact != nil {
			next.Contact = *st.ahead.contact
		}
		return next, nil
	case ContactStep:
		if err := w.check(st.Contact); err != nil {
			return st, err
		}
		return PaymentStep{
			Service:        st.Service,
			Schedule:       st.Schedule,
			Contact:        st.Contact,
			IdempotencyKey: uuid.NewString(),
		}, nil
	default:
		return s, ErrNoNextStep
	}
}

// Back returns to the previous step without validating. Later drafts are
// restored when moving forward again; a captured payment method is not.
func Back(s Step) Step {
	switch st := s.(type) {
	case ScheduleStep:
		sched := st.Schedule
		return ServiceStep{Service: st.Service, ahead: resume{schedule: &sched, contact: st.ahead.contact}}
	case ContactStep:
		contact := st.Contact
		return ScheduleStep{Service: st.Service, Schedule: st.Schedule, ahead: resume{contact: &contact}}
	case PaymentStep:
		return ContactStep{Service: st.Service, Schedule: st.Schedule, Contact: st.Contact}
	default:
		return s
	}
}

// Submit sends the booking from PaymentStep. A request failure is reported
// through n and leaves the wizard on PaymentStep; there is no retry.
func (w *Wizard) Submit(ctx context.Context, s Step, api BookingCreator, n Notifier) (Step, error) {
	st, ok := s.(PaymentStep)
	if !ok {
		return s, ErrNotReady
	}
	if err := w.check(st.Payment); err != nil {
		return st, err
	}

	b, err := api.CreateBooking(ctx, st.Request(), st.IdempotencyKey)
	if err != nil {
		n.Notify(Toast{Kind: ToastError, Title: "Booking failed", Message: Message(err)})
		return st, err
	}
	n.Notify(Toast{
		Kind:    ToastSuccess,
		Title:   "Booking confirmed",
		Message: "We've emailed your confirmation and a link to manage your booking.",
	})
	return Submitted{Booking: b}, nil
}

// Request assembles the create-booking body from every step's draft.
func (st PaymentStep) Request() CreateBookingRequest {
	return CreateBookingRequest{
		Service:          st.Service.Service,
		PropertySize:     st.Schedule.PropertySize,
		Date:             st.Schedule.Date,
		TimeSlot:         st.Schedule.TimeSlot,
		Recurring:        st.Schedule.Recurring,
		Name:             st.Contact.Name,
		Email:            st.Contact.Email,
		Phone:            st.Contact.Phone,
		Address:          st.Contact.Address,
		ZipCode:          st.Contact.ZipCode,
		Notes:            st.Contact.Notes,
		PromoCode:        st.Contact.Discounts.PromoCode(),
		ReferralCode:     st.Contact.Discounts.ReferralCode(),
		PaymentMethodID:  st.Payment.PaymentMethodID,
		StripeCustomerID: st.Payment.StripeCustomerID,
		AcceptPolicy:     st.Payment.AcceptPolicy,
	}
}

func (w *Wizard) check(v any) error {
	err := w.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "datetime":
		return "must match " + fe.Param()
	default:
		return "is invalid"
	}
}
