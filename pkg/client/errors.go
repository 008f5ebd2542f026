package client

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Error codes the bookings API returns for domain rejections.
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeNotFound           = "NOT_FOUND"
	CodeSlotFull           = "SLOT_FULL"
	CodeInvalidPromo       = "INVALID_PROMO_CODE"
	CodeInvalidReferral    = "INVALID_REFERRAL_CODE"
	CodeZipNotServed       = "ZIP_NOT_SERVED"
	CodeFeeNotAcknowledged = "FEE_NOT_ACKNOWLEDGED"
	CodePastDateTime       = "PAST_DATETIME"
	CodeBookingCancelled   = "BOOKING_CANCELLED"
	CodePaymentFailed      = "PAYMENT_FAILED"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int               `json:"-"`
	Message string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// HasCode reports whether err is an *APIError carrying code.
func HasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// ValidationError is raised before a request is sent.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := slices.Sorted(maps.Keys(e.Fields))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Message picks what a toast should say for err.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Error()
	}
	return "Something went wrong. Please try again."
}
