package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

// ErrorResponse represents a structured JSON error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Common error codes
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeRateLimit          = "RATE_LIMIT_EXCEEDED"
	CodeInternalError      = "INTERNAL_ERROR"
	CodePastDateTime       = "PAST_DATETIME"
	CodeBookingCancelled   = "BOOKING_CANCELLED"
	CodeSlotFull           = "SLOT_FULL"
	CodeInvalidPromo       = "INVALID_PROMO_CODE"
	CodeInvalidReferral    = "INVALID_REFERRAL_CODE"
	CodeZipNotServed       = "ZIP_NOT_SERVED"
	CodeFeeNotAcknowledged = "FEE_NOT_ACKNOWLEDGED"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodePaymentFailed      = "PAYMENT_FAILED"
)

// WriteError writes a structured JSON error response
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, message, code string) {
	render.Status(r, statusCode)
	render.JSON(w, r, ErrorResponse{Error: message, Code: code})
}

// WriteErrorWithDetails writes a structured JSON error response with additional details
func WriteErrorWithDetails(w http.ResponseWriter, r *http.Request, statusCode int, message, code, details string) {
	render.Status(r, statusCode)
	render.JSON(w, r, ErrorResponse{Error: message, Code: code, Details: details})
}

// Validation reports every failed field of a validator error.
func Validation(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		BadRequest(w, r, err.Error())
		return
	}

	fields := make(map[string]string, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fieldMessage(fe)
		fields[fe.Field()] = msg
		msgs = append(msgs, fmt.Sprintf("%s %s", fe.Field(), msg))
	}

	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{
		Error:  strings.Join(msgs, ", "),
		Code:   CodeInvalidInput,
		Fields: fields,
	})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "is not a valid email"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gte", "min":
		return "must be at least " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	case "datetime":
		return "must match " + fe.Param()
	default:
		return "is invalid"
	}
}

func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusBadRequest, message, CodeInvalidInput)
}

func Unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusUnauthorized, message, CodeUnauthorized)
}

func Forbidden(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusForbidden, message, CodeForbidden)
}

func NotFound(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusNotFound, message, CodeNotFound)
}

func InternalError(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusInternalServerError, message, CodeInternalError)
}

func RateLimit(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusTooManyRequests, message, CodeRateLimit)
}

func Conflict(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusConflict, message, CodeConflict)
}
