package client

import "time"

// Slot is the server's view of one fixed time slot on a date.
type Slot struct {
	TimeSlot  string `json:"timeSlot"`
	Capacity  int    `json:"capacity"`
	Available int    `json:"available"`
}

type slotsResponse struct {
	Date  string `json:"date"`
	Slots []Slot `json:"slots"`
}

type Size struct {
	Label      string `json:"label"`
	PriceCents int64  `json:"priceCents"`
}

type Service struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Sizes       []Size `json:"sizes"`
}

// Catalogue feeds wizard steps one and two.
type Catalogue struct {
	Slots    []Slot    `json:"slots"`
	Services []Service `json:"services"`
}

// TimeSlots lists the slot labels in display order.
func (c *Catalogue) TimeSlots() []string {
	out := make([]string, 0, len(c.Slots))
	for _, s := range c.Slots {
		out = append(out, s.TimeSlot)
	}
	return out
}

type Recurring struct {
	Frequency string `json:"frequency" validate:"required,oneof=weekly biweekly monthly"`
	EndDate   string `json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type CreateBookingRequest struct {
	Service          string     `json:"service"`
	PropertySize     string     `json:"propertySize"`
	Date             string     `json:"date"`
	TimeSlot         string     `json:"timeSlot"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone"`
	Address          string     `json:"address"`
	ZipCode          string     `json:"zipCode"`
	Notes            string     `json:"notes,omitempty"`
	PromoCode        string     `json:"promoCode,omitempty"`
	ReferralCode     string     `json:"referralCode,omitempty"`
	PaymentMethodID  string     `json:"paymentMethodId"`
	StripeCustomerID string     `json:"stripeCustomerId,omitempty"`
	AcceptPolicy     bool       `json:"acceptCancellationPolicy"`
	Recurring        *Recurring `json:"recurring,omitempty"`
}

type QuoteRequest struct {
	Service      string `json:"service"`
	PropertySize string `json:"propertySize"`
	PromoCode    string `json:"promoCode,omitempty"`
	ReferralCode string `json:"referralCode,omitempty"`
	Email        string `json:"email,omitempty"`
}

type Quote struct {
	SubtotalCents         int64  `json:"subtotalCents"`
	PromoDiscountCents    int64  `json:"promoDiscountCents"`
	ReferralDiscountCents int64  `json:"referralDiscountCents"`
	DiscountCents         int64  `json:"discountCents"`
	TotalCents            int64  `json:"totalCents"`
	ReferralCode          string `json:"referralCode,omitempty"`
}

type Booking struct {
	ID                    int64      `json:"id"`
	ManageToken           string     `json:"managementToken"`
	Status                string     `json:"status"`
	Service               string     `json:"service"`
	PropertySize          string     `json:"propertySize"`
	Date                  string     `json:"date"`
	TimeSlot              string     `json:"timeSlot"`
	Name                  string     `json:"name"`
	Email                 string     `json:"email"`
	Phone                 string     `json:"phone"`
	Address               string     `json:"address"`
	ZipCode               string     `json:"zipCode"`
	Notes                 string     `json:"notes"`
	SubtotalCents         int64      `json:"subtotalCents"`
	DiscountCents         int64      `json:"discountCents"`
	TotalCents            int64      `json:"totalCents"`
	AssignedEmployeeIDs   []int64    `json:"assignedEmployeeIds"`
	CancellationFeeStatus string     `json:"cancellationFeeStatus"`
	CancellationFeeCents  int64      `json:"cancellationFeeCents"`
	CancellationReason    string     `json:"cancellationReason,omitempty"`
	CancelledAt           *time.Time `json:"cancelledAt,omitempty"`
	CompletedAt           *time.Time `json:"completedAt,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
}

// BookingView is a booking as the management page shows it.
type BookingView struct {
	Booking
	FeeLabel          string             `json:"cancellationFeeLabel"`
	LateCancellation  bool               `json:"lateCancellation"`
	PendingReschedule *RescheduleRequest `json:"pendingReschedule,omitempty"`
}

type CancelRequest struct {
	AcknowledgeFee bool   `json:"acknowledgeFee"`
	Reason         string `json:"reason"`
}

type RescheduleInput struct {
	Date     string `json:"date"`
	TimeSlot string `json:"timeSlot"`
	Reason   string `json:"reason,omitempty"`
}

type RescheduleRequest struct {
	ID                int64      `json:"id"`
	BookingID         int64      `json:"bookingId"`
	CurrentDate       string     `json:"currentDate"`
	CurrentTimeSlot   string     `json:"currentTimeSlot"`
	RequestedDate     string     `json:"requestedDate"`
	RequestedTimeSlot string     `json:"requestedTimeSlot"`
	Reason            string     `json:"reason"`
	Status            string     `json:"status"`
	AdminNote         string     `json:"adminNote,omitempty"`
	DecidedAt         *time.Time `json:"decidedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

type Review struct {
	ID        int64  `json:"id,omitempty"`
	BookingID int64  `json:"bookingId,omitempty"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

type PromoValidation struct {
	PromoCodeID   int64  `json:"promoCodeId"`
	Code          string `json:"code"`
	DiscountType  string `json:"discountType"`
	DiscountValue int64  `json:"discountValue"`
	DiscountCents int64  `json:"discountCents"`
}

type ReferralValidation struct {
	ReferralCode  string `json:"referralCode"`
	DiscountCents int64  `json:"discountCents"`
}

type ReferralStats struct {
	ReferralCode       string `json:"referralCode"`
	TotalReferrals     int    `json:"totalReferrals"`
	CompletedReferrals int    `json:"completedReferrals"`
	PendingReferrals   int    `json:"pendingReferrals"`
	CreditsEarnedCents int64  `json:"creditsEarnedCents"`
}

type ZipCheck struct {
	ZipCode  string `json:"zipCode"`
	Served   bool   `json:"served"`
	AreaName string `json:"areaName,omitempty"`
}

type SetupIntent struct {
	ClientSecret string `json:"clientSecret"`
	CustomerID   string `json:"customerId"`
}

// BookingListOptions filters the admin and employee booking lists.
type BookingListOptions struct {
	Status     string `url:"status,omitempty"`
	From       string `url:"from,omitempty"`
	To         string `url:"to,omitempty"`
	EmployeeID int64  `url:"employeeId,omitempty"`
	Email      string `url:"email,omitempty"`
	Limit      int    `url:"limit,omitempty"`
	Offset     int    `url:"offset,omitempty"`
}

type PageOptions struct {
	Limit  int `url:"limit,omitempty"`
	Offset int `url:"offset,omitempty"`
}
