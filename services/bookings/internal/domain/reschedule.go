package domain

import "time"

type RescheduleStatus string

const (
	ReschedulePending  RescheduleStatus = "pending"
	RescheduleApproved RescheduleStatus = "approved"
	RescheduleDenied   RescheduleStatus = "denied"
)

// RescheduleRequest asks to move a booking. The booking itself only moves
// when an admin approves the request.
type RescheduleRequest struct {
	ID                int64            `json:"id"`
	BookingID         int64            `json:"bookingId"`
	CurrentDate       string           `json:"currentDate"`
	CurrentTimeSlot   string           `json:"currentTimeSlot"`
	RequestedDate     string           `json:"requestedDate"`
	RequestedTimeSlot string           `json:"requestedTimeSlot"`
	Reason            string           `json:"reason"`
	Status            RescheduleStatus `json:"status"`
	AdminNote         string           `json:"adminNote,omitempty"`
	DecidedBy         *int64           `json:"decidedBy,omitempty"`
	DecidedAt         *time.Time       `json:"decidedAt,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
}

type RescheduleInput struct {
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	TimeSlot string `json:"timeSlot" validate:"required"`
	Reason   string `json:"reason"`
}

type RescheduleDecision struct {
	Note string `json:"note"`
}
