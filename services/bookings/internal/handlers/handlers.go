package handlers

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/diagnosis/cleanbook/pkg/auth"
	"github.com/diagnosis/cleanbook/pkg/config"
	"github.com/diagnosis/cleanbook/pkg/logger"
	"github.com/diagnosis/cleanbook/pkg/payments"
	"github.com/diagnosis/cleanbook/pkg/response"
	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
	"github.com/diagnosis/cleanbook/services/bookings/internal/schedule"
	"github.com/diagnosis/cleanbook/services/bookings/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type contextKey string

const claimsKey contextKey = "claims"

type Handlers struct {
	svc      *service.Services
	sched    *schedule.Schedule
	auth     config.AuthConfig
	validate *validator.Validate
}

func New(svc *service.Services, sched *schedule.Schedule, authCfg config.AuthConfig) *Handlers {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handlers{svc: svc, sched: sched, auth: authCfg, validate: v}
}

// RequireAuth accepts a bearer access token and stores its claims on the
// request context.
func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			response.Unauthorized(w, r, "Missing or invalid authorization header")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := auth.Parse(token, h.auth.JWTSecret, h.auth.Audience)
		if err != nil {
			response.Unauthorized(w, r, "Invalid token")
			return
		}

		// Add user context
		ctx := context.WithValue(r.Context(), logger.UserIDKey, claims.Sub)
		ctx = context.WithValue(ctx, claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole lets through tokens carrying one of roles. Admins always pass.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := getClaims(r)
			if claims == nil {
				response.Unauthorized(w, r, "Authentication required")
				return
			}
			if claims.Role != auth.RoleAdmin && !slices.Contains(roles, claims.Role) {
				response.Forbidden(w, r, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission lets through admins and employees granted perm.
func RequirePermission(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := getClaims(r)
			if claims == nil {
				response.Unauthorized(w, r, "Authentication required")
				return
			}
			if !claims.Can(perm) {
				response.Forbidden(w, r, "Missing permission "+perm)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func getClaims(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(claimsKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}

// decode reads a JSON body into v and runs its validate tags.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		response.BadRequest(w, r, "Invalid JSON format")
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		response.Validation(w, r, err)
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, r, "Invalid ID")
		return 0, false
	}
	return id, true
}

// parsePagination reads limit (1..100, default 20) and offset.
func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}

func queryBool(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return b
}

func created(w http.ResponseWriter, r *http.Request, v any) {
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, v)
}

type errorMapping struct {
	target error
	status int
	code   string
}

// Order matters: more specific errors first.
var errorMappings = []errorMapping{
	{domain.ErrNotFound, http.StatusNotFound, response.CodeNotFound},
	{domain.ErrSlotFull, http.StatusConflict, response.CodeSlotFull},
	{domain.ErrInvalidPromo, http.StatusBadRequest, response.CodeInvalidPromo},
	{domain.ErrInvalidReferral, http.StatusBadRequest, response.CodeInvalidReferral},
	{domain.ErrZipNotServed, http.StatusBadRequest, response.CodeZipNotServed},
	{domain.ErrFeeNotAcknowledged, http.StatusBadRequest, response.CodeFeeNotAcknowledged},
	{domain.ErrPastDate, http.StatusBadRequest, response.CodePastDateTime},
	{domain.ErrBookingClosed, http.StatusConflict, response.CodeBookingCancelled},
	{domain.ErrInvalidTransition, http.StatusConflict, response.CodeInvalidTransition},
	{domain.ErrFeeNotPending, http.StatusConflict, response.CodeInvalidTransition},
	{domain.ErrNotAssigned, http.StatusForbidden, response.CodeForbidden},
	{domain.ErrDuplicate, http.StatusConflict, response.CodeConflict},
	{domain.ErrKeyInUse, http.StatusConflict, response.CodeConflict},
	{domain.ErrPendingReschedule, http.StatusConflict, response.CodeConflict},
	{domain.ErrRequestDecided, http.StatusConflict, response.CodeConflict},
	{domain.ErrAlreadyReviewed, http.StatusConflict, response.CodeConflict},
	{domain.ErrNotCompleted, http.StatusConflict, response.CodeConflict},
	{domain.ErrInvalidDate, http.StatusBadRequest, response.CodeInvalidInput},
	{domain.ErrUnknownSlot, http.StatusBadRequest, response.CodeInvalidInput},
	{domain.ErrUnknownService, http.StatusBadRequest, response.CodeInvalidInput},
	{domain.ErrInvalidZip, http.StatusBadRequest, response.CodeInvalidInput},
	{domain.ErrUnknownPermission, http.StatusBadRequest, response.CodeInvalidInput},
	{domain.ErrUnknownEmployee, http.StatusBadRequest, response.CodeInvalidInput},
	{payments.ErrDeclined, http.StatusPaymentRequired, response.CodePaymentFailed},
	{payments.ErrDisabled, http.StatusServiceUnavailable, response.CodePaymentFailed},
}

// fail maps a service error onto a status and error code. Anything unknown
// is logged and reported as an internal error.
func fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			response.WriteError(w, r, m.status, err.Error(), m.code)
			return
		}
	}
	logger.ErrorContext(r.Context(), "Request failed", "op", op, logger.Err(err))
	response.InternalError(w, r, "Something went wrong")
}
