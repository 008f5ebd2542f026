package client

import (
	"context"
	"fmt"
	"time"
)

// Cancellation fee statuses as the server reports them.
const (
	FeeNotApplicable = "not_applicable"
	FeePending       = "pending"
	FeeDismissed     = "dismissed"
	FeeCharged       = "charged"
)

// LateCancelWindow is how close to the appointment a cancellation incurs
// the flat fee.
const LateCancelWindow = 24 * time.Hour

var feeLabels = map[string]string{
	FeeNotApplicable: "No Fee",
	FeePending:       "Fee Pending",
	FeeDismissed:     "Fee Waived",
	FeeCharged:       "Fee Charged",
}

// FeeStatusLabel maps a fee status to its badge text. Unknown statuses are
// shown as-is.
func FeeStatusLabel(status string) string {
	if l, ok := feeLabels[status]; ok {
		return l
	}
	return status
}

// AppointmentStart parses a booking's date and slot label in loc.
func AppointmentStart(date, timeSlot string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 3:04 PM", date+" "+timeSlot, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse appointment %s %s: %w", date, timeSlot, err)
	}
	return t, nil
}

// LateWindow reports whether cancelling at now falls inside the fee window.
func LateWindow(start, now time.Time) bool {
	return start.Sub(now) < LateCancelWindow
}

type Canceller interface {
	CancelBooking(ctx context.Context, token string, req CancelRequest) (*Booking, error)
}

// CancelForm backs the cancel dialog on the management page.
type CancelForm struct {
	Token        string
	Acknowledged bool
	Reason       string
}

func (f *CancelForm) CanSubmit() bool { return f.Acknowledged }

// Submit sends the cancellation. Nothing is sent until the fee policy has
// been acknowledged.
func (f *CancelForm) Submit(ctx context.Context, api Canceller, n Notifier) (*Booking, error) {
	if !f.CanSubmit() {
		return nil, &ValidationError{Fields: map[string]string{"acknowledgeFee": "must be checked"}}
	}
	b, err := api.CancelBooking(ctx, f.Token, CancelRequest{AcknowledgeFee: true, Reason: f.Reason})
	if err != nil {
		n.Notify(Toast{Kind: ToastError, Title: "Could not cancel booking", Message: Message(err)})
		return nil, err
	}
	msg := "Your booking has been cancelled."
	if b.CancellationFeeStatus == FeePending {
		msg += " A late cancellation fee of " + FormatCents(b.CancellationFeeCents) + " may apply."
	}
	n.Notify(Toast{Kind: ToastSuccess, Title: "Booking cancelled", Message: msg})
	return b, nil
}

type Rescheduler interface {
	RequestReschedule(ctx context.Context, token string, in RescheduleInput) (*RescheduleRequest, error)
}

// RescheduleForm asks for a new date and slot. The booking itself does not
// move until staff approve the request.
type RescheduleForm struct {
	Token    string
	Date     string
	TimeSlot string
	Reason   string
}

func (f *RescheduleForm) Submit(ctx context.Context, api Rescheduler, n Notifier) (*RescheduleRequest, error) {
	fields := map[string]string{}
	if f.Date == "" {
		fields["date"] = "is required"
	}
	if f.TimeSlot == "" {
		fields["timeSlot"] = "is required"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	rr, err := api.RequestReschedule(ctx, f.Token, RescheduleInput{Date: f.Date, TimeSlot: f.TimeSlot, Reason: f.Reason})
	if err != nil {
		n.Notify(Toast{Kind: ToastError, Title: "Could not request reschedule", Message: Message(err)})
		return nil, err
	}
	n.Notify(Toast{Kind: ToastInfo, Title: "Reschedule requested", Message: "We'll email you once it is reviewed."})
	return rr, nil
}
