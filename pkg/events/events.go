package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/diagnosis/cleanbook/pkg/logger"
	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

// Decode unmarshals the message payload into v.
func (m *Message) Decode(v interface{}) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", m.Subject, err)
	}
	return nil
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url, name string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(fromNATS(msg))
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(fromNATS(msg))
	})
	return err
}

func (n *NATSEventBus) Close() error {
	return n.conn.Drain()
}

func fromNATS(msg *nats.Msg) *Message {
	now := time.Now()
	return &Message{
		Subject:   msg.Subject,
		Data:      msg.Data,
		Timestamp: now,
		ID:        fmt.Sprintf("%d", now.UnixNano()),
	}
}

// Subjects
const (
	BookingCreated        = "booking.created"
	BookingCancelled      = "booking.cancelled"
	BookingCompleted      = "booking.completed"
	RescheduleRequested   = "booking.reschedule.requested"
	RescheduleDecided     = "booking.reschedule.decided"
	CancellationFeeCharge = "booking.fee.charged"
	RecurringMaterialized = "recurring.materialized"

	// AllBookingEvents matches every booking subject.
	AllBookingEvents = "booking.>"
)

type BookingCreatedEvent struct {
	BookingID     int64     `json:"bookingId"`
	ManageToken   string    `json:"managementToken"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	Service       string    `json:"service"`
	PropertySize  string    `json:"propertySize"`
	Date          string    `json:"date"`
	TimeSlot      string    `json:"timeSlot"`
	TotalCents    int64     `json:"totalCents"`
	CreatedAt     time.Time `json:"createdAt"`
}

type BookingCancelledEvent struct {
	BookingID     int64     `json:"bookingId"`
	CustomerEmail string    `json:"customerEmail"`
	CustomerName  string    `json:"customerName"`
	Date          string    `json:"date"`
	TimeSlot      string    `json:"timeSlot"`
	Reason        string    `json:"reason"`
	FeeStatus     string    `json:"feeStatus"`
	FeeCents      int64     `json:"feeCents"`
	CancelledAt   time.Time `json:"cancelledAt"`
}

type BookingCompletedEvent struct {
	BookingID     int64     `json:"bookingId"`
	CustomerEmail string    `json:"customerEmail"`
	InvoiceID     int64     `json:"invoiceId"`
	TotalCents    int64     `json:"totalCents"`
	CompletedAt   time.Time `json:"completedAt"`
}

type RescheduleRequestedEvent struct {
	RequestID     int64  `json:"requestId"`
	BookingID     int64  `json:"bookingId"`
	CustomerEmail string `json:"customerEmail"`
	CurrentDate   string `json:"currentDate"`
	CurrentSlot   string `json:"currentSlot"`
	RequestedDate string `json:"requestedDate"`
	RequestedSlot string `json:"requestedSlot"`
}

type RescheduleDecidedEvent struct {
	RequestID     int64     `json:"requestId"`
	BookingID     int64     `json:"bookingId"`
	CustomerEmail string    `json:"customerEmail"`
	CustomerName  string    `json:"customerName"`
	Approved      bool      `json:"approved"`
	Date          string    `json:"date"`
	TimeSlot      string    `json:"timeSlot"`
	Note          string    `json:"note"`
	DecidedAt     time.Time `json:"decidedAt"`
}

type CancellationFeeChargedEvent struct {
	BookingID       int64     `json:"bookingId"`
	CustomerEmail   string    `json:"customerEmail"`
	AmountCents     int64     `json:"amountCents"`
	PaymentIntentID string    `json:"paymentIntentId"`
	ChargedAt       time.Time `json:"chargedAt"`
}

type RecurringMaterializedEvent struct {
	RecurringID int64  `json:"recurringId"`
	BookingID   int64  `json:"bookingId"`
	Date        string `json:"date"`
	TimeSlot    string `json:"timeSlot"`
}
