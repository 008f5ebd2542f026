// Package notifier turns booking lifecycle events into customer emails.
package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/cleanbook/pkg/events"
	"github.com/diagnosis/cleanbook/pkg/logger"
	"github.com/diagnosis/cleanbook/pkg/mailer"
)

const queueGroup = "notify"

type Notifier struct {
	mailer    mailer.Mailer
	manageURL string
	brand     string
	timeout   time.Duration
}

func New(m mailer.Mailer, manageURL, brand string) *Notifier {
	return &Notifier{mailer: m, manageURL: manageURL, brand: brand, timeout: 10 * time.Second}
}

// Subscribe joins the notify queue group on every booking subject so each
// event is mailed once however many replicas run.
func (n *Notifier) Subscribe(sub events.Subscriber) error {
	if err := sub.QueueSubscribe(events.AllBookingEvents, queueGroup, n.Handle); err != nil {
		return fmt.Errorf("subscribe %s: %w", events.AllBookingEvents, err)
	}
	return nil
}

// Handle builds and sends the email for one event. Unknown subjects are
// ignored; failures are logged.
func (n *Notifier) Handle(msg *events.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	email, ok, err := n.compose(msg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to decode event", "subject", msg.Subject, "id", msg.ID, logger.Err(err))
		return
	}
	if !ok {
		return
	}
	if err := n.mailer.Send(ctx, email); err != nil {
		logger.ErrorContext(ctx, "Failed to send notification", "subject", msg.Subject, "to", email.ToEmail, logger.Err(err))
		return
	}
	logger.InfoContext(ctx, "Notification sent", "subject", msg.Subject, "to", email.ToEmail)
}

func (n *Notifier) compose(msg *events.Message) (mailer.Message, bool, error) {
	switch msg.Subject {
	case events.BookingCreated:
		var e events.BookingCreatedEvent
		if err := msg.Decode(&e); err != nil {
			return mailer.Message{}, false, err
		}
		return n.bookingCreated(e), true, nil
	case events.BookingCancelled:
		var e events.BookingCancelledEvent
		if err := msg.Decode(&e); err != nil {
			return mailer.Message{}, false, err
		}
		return n.bookingCancelled(e), true, nil
	case events.BookingCompleted:
		var e events.BookingCompletedEvent
		if err := msg.Decode(&e); err != nil {
			return mailer.Message{}, false, err
		}
		return n.bookingCompleted(e), true, nil
	case events.RescheduleRequested:
		var e events.RescheduleRequestedEvent
		if err := msg.Decode(&e); err != nil {
			return mailer.Message{}, false, err
		}
		return n.rescheduleRequested(e), true, nil
	case events.RescheduleDecided:
		var e events.RescheduleDecidedEvent
		if err := msg.Decode(&e); err != nil {
			return mailer.Message{}, false, err
		}
		return n.rescheduleDecided(e), true, nil
	case events.CancellationFeeCharge:
		var e events.CancellationFeeChargedEvent
		if err := msg.Decode(&e); err != nil {
			return mailer.Message{}, false, err
		}
		return n.feeCharged(e), true, nil
	default:
		return mailer.Message{}, false, nil
	}
}

func dollars(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

func (n *Notifier) bookingCreated(e events.BookingCreatedEvent) mailer.Message {
	link := n.manageURL + "/" + e.ManageToken
	html := fmt.Sprintf(`
		<h2>Your cleaning is booked!</h2>
		<p>Hi %s,</p>
		<p>We received your booking for <strong>%s</strong> (%s) on <strong>%s at %s</strong>.</p>
		<p>Total: <strong>%s</strong></p>
		<p><a href="%s" style="background-color: #4CAF50; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">Manage Booking</a></p>
		<p>Cancellations within 24 hours of the appointment may incur a fee.</p>
	`, e.CustomerName, e.Service, e.PropertySize, e.Date, e.TimeSlot, dollars(e.TotalCents), link)

	text := fmt.Sprintf("Your %s booking on %s at %s is confirmed. Total %s.\n\nManage it here: %s",
		e.Service, e.Date, e.TimeSlot, dollars(e.TotalCents), link)

	return mailer.Message{
		ToEmail: e.CustomerEmail,
		ToName:  e.CustomerName,
		Subject: fmt.Sprintf("Your %s booking #%d", n.brand, e.BookingID),
		Text:    text,
		HTML:    html,
	}
}

func (n *Notifier) bookingCancelled(e events.BookingCancelledEvent) mailer.Message {
	fee := "No cancellation fee applies."
	if e.FeeStatus == "pending" {
		fee = fmt.Sprintf("Because the cancellation was within 24 hours, a %s fee may be charged to your saved card.", dollars(e.FeeCents))
	}
	html := fmt.Sprintf(`
		<h2>Booking cancelled</h2>
		<p>Hi %s,</p>
		<p>Your cleaning on <strong>%s at %s</strong> has been cancelled.</p>
		<p>%s</p>
	`, e.CustomerName, e.Date, e.TimeSlot, fee)

	return mailer.Message{
		ToEmail: e.CustomerEmail,
		ToName:  e.CustomerName,
		Subject: fmt.Sprintf("Booking #%d cancelled", e.BookingID),
		Text:    fmt.Sprintf("Your cleaning on %s at %s has been cancelled. %s", e.Date, e.TimeSlot, fee),
		HTML:    html,
	}
}

func (n *Notifier) bookingCompleted(e events.BookingCompletedEvent) mailer.Message {
	return mailer.Message{
		ToEmail: e.CustomerEmail,
		Subject: fmt.Sprintf("Thanks for choosing %s", n.brand),
		Text: fmt.Sprintf("Your cleaning (booking #%d) is complete. An invoice for %s has been issued. We'd love a review!",
			e.BookingID, dollars(e.TotalCents)),
		HTML: fmt.Sprintf(`
		<h2>All done!</h2>
		<p>Your cleaning (booking #%d) is complete and an invoice for <strong>%s</strong> has been issued.</p>
		<p>We'd love to hear how we did.</p>
	`, e.BookingID, dollars(e.TotalCents)),
	}
}

func (n *Notifier) rescheduleRequested(e events.RescheduleRequestedEvent) mailer.Message {
	text := fmt.Sprintf("We received your request to move booking #%d from %s %s to %s %s. We'll email you once it is reviewed.",
		e.BookingID, e.CurrentDate, e.CurrentSlot, e.RequestedDate, e.RequestedSlot)
	return mailer.Message{
		ToEmail: e.CustomerEmail,
		Subject: "Reschedule request received",
		Text:    text,
		HTML:    "<p>" + text + "</p>",
	}
}

func (n *Notifier) rescheduleDecided(e events.RescheduleDecidedEvent) mailer.Message {
	subject := "Reschedule request approved"
	text := fmt.Sprintf("Your booking #%d is now on %s at %s.", e.BookingID, e.Date, e.TimeSlot)
	if !e.Approved {
		subject = "Reschedule request declined"
		text = fmt.Sprintf("We couldn't move booking #%d. It stays on %s at %s.", e.BookingID, e.Date, e.TimeSlot)
	}
	if e.Note != "" {
		text += " Note: " + e.Note
	}
	return mailer.Message{
		ToEmail: e.CustomerEmail,
		ToName:  e.CustomerName,
		Subject: subject,
		Text:    text,
		HTML:    "<p>" + text + "</p>",
	}
}

func (n *Notifier) feeCharged(e events.CancellationFeeChargedEvent) mailer.Message {
	text := fmt.Sprintf("A late cancellation fee of %s was charged for booking #%d.", dollars(e.AmountCents), e.BookingID)
	return mailer.Message{
		ToEmail: e.CustomerEmail,
		Subject: "Cancellation fee charged",
		Text:    text,
		HTML:    "<p>" + text + "</p>",
	}
}
