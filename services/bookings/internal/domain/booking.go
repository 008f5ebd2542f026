package domain

import (
	"slices"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	SlotLayout = "3:04 PM"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCompleted, BookingCancelled},
}

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case BookingPending, BookingConfirmed, BookingCompleted, BookingCancelled:
		return BookingStatus(s), true
	default:
		return "", false
	}
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	return slices.Contains(bookingTransitions[s], next)
}

// FeeStatus is the adjudication state of a late-cancellation fee.
type FeeStatus string

const (
	FeeNotApplicable FeeStatus = "not_applicable"
	FeePending       FeeStatus = "pending"
	FeeDismissed     FeeStatus = "dismissed"
	FeeCharged       FeeStatus = "charged"
)

var feeLabels = map[FeeStatus]string{
	FeeNotApplicable: "No Fee",
	FeePending:       "Fee Pending",
	FeeDismissed:     "Fee Waived",
	FeeCharged:       "Fee Charged",
}

// Label is the badge text for f. Unknown statuses are shown as-is.
func (f FeeStatus) Label() string {
	if l, ok := feeLabels[f]; ok {
		return l
	}
	return string(f)
}

type Booking struct {
	ID                    int64         `json:"id"`
	ManageToken           string        `json:"managementToken"`
	Status                BookingStatus `json:"status"`
	Service               string        `json:"service"`
	PropertySize          string        `json:"propertySize"`
	Date                  string        `json:"date"`
	TimeSlot              string        `json:"timeSlot"`
	CustomerName          string        `json:"name"`
	Email                 string        `json:"email"`
	Phone                 string        `json:"phone"`
	Address               string        `json:"address"`
	ZipCode               string        `json:"zipCode"`
	Notes                 string        `json:"notes"`
	CustomerID            *int64        `json:"customerId,omitempty"`
	RecurringID           *int64        `json:"recurringBookingId,omitempty"`
	PromoCodeID           *int64        `json:"promoCodeId,omitempty"`
	ReferralCode          string        `json:"referralCode,omitempty"`
	SubtotalCents         int64         `json:"subtotalCents"`
	DiscountCents         int64         `json:"discountCents"`
	TotalCents            int64         `json:"totalCents"`
	StripeCustomerID      string        `json:"-"`
	PaymentMethodID       string        `json:"-"`
	AssignedEmployeeIDs   []int64       `json:"assignedEmployeeIds"`
	CancellationFeeStatus FeeStatus     `json:"cancellationFeeStatus"`
	CancellationFeeCents  int64         `json:"cancellationFeeCents"`
	CancellationReason    string        `json:"cancellationReason,omitempty"`
	CancelledAt           *time.Time    `json:"cancelledAt,omitempty"`
	CompletedAt           *time.Time    `json:"completedAt,omitempty"`
	CreatedAt             time.Time     `json:"createdAt"`
	UpdatedAt             time.Time     `json:"updatedAt"`
}

// BookingView is the booking as shown on the management page.
type BookingView struct {
	*Booking
	FeeLabel          string             `json:"cancellationFeeLabel"`
	LateCancellation  bool               `json:"lateCancellation"`
	PendingReschedule *RescheduleRequest `json:"pendingReschedule,omitempty"`
}

type RecurringConfig struct {
	Frequency Frequency `json:"frequency" validate:"required,oneof=weekly biweekly monthly"`
	EndDate   string    `json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type CreateBookingRequest struct {
	Service          string           `json:"service" validate:"required"`
	PropertySize     string           `json:"propertySize" validate:"required"`
	Date             string           `json:"date" validate:"required,datetime=2006-01-02"`
	TimeSlot         string           `json:"timeSlot" validate:"required"`
	Name             string           `json:"name" validate:"required"`
	Email            string           `json:"email" validate:"required,email"`
	Phone            string           `json:"phone" validate:"required"`
	Address          string           `json:"address" validate:"required"`
	ZipCode          string           `json:"zipCode" validate:"required"`
	Notes            string           `json:"notes"`
	PromoCode        string           `json:"promoCode,omitempty"`
	ReferralCode     string           `json:"referralCode,omitempty"`
	PaymentMethodID  string           `json:"paymentMethodId" validate:"required"`
	StripeCustomerID string           `json:"stripeCustomerId"`
	AcceptPolicy     bool             `json:"acceptCancellationPolicy" validate:"required"`
	Recurring        *RecurringConfig `json:"recurring,omitempty" validate:"omitempty"`
}

// QuoteRequest prices a service before submission with the codes the
// customer entered.
type QuoteRequest struct {
	Service      string `json:"service" validate:"required"`
	PropertySize string `json:"propertySize" validate:"required"`
	PromoCode    string `json:"promoCode,omitempty"`
	ReferralCode string `json:"referralCode,omitempty"`
	Email        string `json:"email" validate:"omitempty,email"`
}

type CancelRequest struct {
	AcknowledgeFee bool   `json:"acknowledgeFee"`
	Reason         string `json:"reason"`
}

// BookingPatch is the admin edit surface. Nil fields are left unchanged.
type BookingPatch struct {
	Status              *BookingStatus `json:"status,omitempty"`
	AssignedEmployeeIDs *[]int64       `json:"assignedEmployeeIds,omitempty"`
	Notes               *string        `json:"notes,omitempty"`
	CustomerName        *string        `json:"name,omitempty"`
	Phone               *string        `json:"phone,omitempty"`
	Address             *string        `json:"address,omitempty"`
}

type BookingFilter struct {
	Status     *BookingStatus
	DateFrom   string
	DateTo     string
	EmployeeID *int64
	Email      string
	Limit      int
	Offset     int
}

func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// StartTime combines a date and slot label in loc.
func StartTime(date, slot string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+SlotLayout, date+" "+slot, loc)
	if err != nil {
		return time.Time{}, ErrUnknownSlot
	}
	return t, nil
}

func (b *Booking) StartsAt(loc *time.Location) (time.Time, error) {
	return StartTime(b.Date, b.TimeSlot, loc)
}

func (b *Booking) IsActive() bool {
	return b.Status != BookingCancelled
}

func (b *Booking) IsClosed() bool {
	return b.Status == BookingCancelled || b.Status == BookingCompleted
}

// IsLateCancellation reports whether cancelling at now falls inside the
// cutoff window before the booking starts.
func (b *Booking) IsLateCancellation(now time.Time, cutoff time.Duration, loc *time.Location) bool {
	start, err := b.StartsAt(loc)
	if err != nil {
		return false
	}
	return start.Sub(now) < cutoff
}

// IsOwner checks if the given email owns this booking
func (b *Booking) IsOwner(email string) bool {
	return strings.EqualFold(b.Email, email)
}

func (b *Booking) IsAssignedTo(employeeID int64) bool {
	return slices.Contains(b.AssignedEmployeeIDs, employeeID)
}
