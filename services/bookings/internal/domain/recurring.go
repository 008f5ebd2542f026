package domain

import "time"

type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// Next returns the occurrence after date. Monthly series land on anchorDay,
// or the last day of shorter months; zero anchors to date's own day.
func (f Frequency) Next(date time.Time, anchorDay int) time.Time {
	switch f {
	case FrequencyBiweekly:
		return date.AddDate(0, 0, 14)
	case FrequencyMonthly:
		if anchorDay <= 0 {
			anchorDay = date.Day()
		}
		first := time.Date(date.Year(), date.Month()+1, 1, 0, 0, 0, 0, date.Location())
		last := first.AddDate(0, 1, -1).Day()
		return first.AddDate(0, 0, min(anchorDay, last)-1)
	default:
		return date.AddDate(0, 0, 7)
	}
}

type RecurringStatus string

const (
	RecurringActive    RecurringStatus = "active"
	RecurringPaused    RecurringStatus = "paused"
	RecurringCancelled RecurringStatus = "cancelled"
)

func (s RecurringStatus) CanTransitionTo(next RecurringStatus) bool {
	switch s {
	case RecurringActive:
		return next == RecurringPaused || next == RecurringCancelled
	case RecurringPaused:
		return next == RecurringActive || next == RecurringCancelled
	default:
		return false
	}
}

// RecurringBooking is a series that materializes concrete bookings ahead of
// NextOccurrence.
type RecurringBooking struct {
	ID               int64           `json:"id"`
	CustomerName     string          `json:"name" validate:"required"`
	Email            string          `json:"email" validate:"required,email"`
	Phone            string          `json:"phone" validate:"required"`
	Address          string          `json:"address" validate:"required"`
	ZipCode          string          `json:"zipCode" validate:"required"`
	Service          string          `json:"service" validate:"required"`
	PropertySize     string          `json:"propertySize" validate:"required"`
	TimeSlot         string          `json:"timeSlot" validate:"required"`
	Frequency        Frequency       `json:"frequency" validate:"required,oneof=weekly biweekly monthly"`
	NextOccurrence   string          `json:"nextOccurrence" validate:"required,datetime=2006-01-02"`
	AnchorDay        int             `json:"anchorDay"`
	EndDate          string          `json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Status           RecurringStatus `json:"status"`
	Notes            string          `json:"notes"`
	StripeCustomerID string          `json:"-"`
	PaymentMethodID  string          `json:"-"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

type RecurringPatch struct {
	Status         *RecurringStatus `json:"status,omitempty"`
	Frequency      *Frequency       `json:"frequency,omitempty" validate:"omitempty,oneof=weekly biweekly monthly"`
	TimeSlot       *string          `json:"timeSlot,omitempty"`
	NextOccurrence *string          `json:"nextOccurrence,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate        *string          `json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Notes          *string          `json:"notes,omitempty"`
}

// Advance moves NextOccurrence one step along the series.
func (r *RecurringBooking) Advance() error {
	d, err := ParseDate(r.NextOccurrence)
	if err != nil {
		return err
	}
	r.NextOccurrence = r.Frequency.Next(d, r.AnchorDay).Format(DateLayout)
	return nil
}

// Ended reports whether date lies beyond the series end date.
func (r *RecurringBooking) Ended(date string) bool {
	return r.EndDate != "" && date > r.EndDate
}
