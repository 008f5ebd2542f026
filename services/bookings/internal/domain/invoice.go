package domain

import (
	"fmt"
	"time"
)

type InvoiceStatus string

const (
	InvoiceUnpaid InvoiceStatus = "unpaid"
	InvoicePaid   InvoiceStatus = "paid"
	InvoiceVoid   InvoiceStatus = "void"
)

type Invoice struct {
	ID            int64         `json:"id"`
	Number        string        `json:"number"`
	BookingID     int64         `json:"bookingId"`
	CustomerEmail string        `json:"customerEmail"`
	CustomerName  string        `json:"customerName"`
	AmountCents   int64         `json:"amountCents"`
	Status        InvoiceStatus `json:"status"`
	IssuedAt      time.Time     `json:"issuedAt"`
	PaidAt        *time.Time    `json:"paidAt,omitempty"`
}

func InvoiceNumber(bookingID int64, issued time.Time) string {
	return fmt.Sprintf("INV-%s-%05d", issued.Format("200601"), bookingID)
}

type AnalyticsSummary struct {
	From                  string         `json:"from"`
	To                    string         `json:"to"`
	TotalBookings         int            `json:"totalBookings"`
	ByStatus              map[string]int `json:"byStatus"`
	ByService             map[string]int `json:"byService"`
	RevenueCents          int64          `json:"revenueCents"`
	DiscountCents         int64          `json:"discountCents"`
	CancellationFeesCents int64          `json:"cancellationFeesCents"`
	AverageTicketCents    int64          `json:"averageTicketCents"`
}
