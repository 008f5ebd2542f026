package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidDate       = errors.New("invalid date, expected YYYY-MM-DD")
	ErrPastDate          = errors.New("date is in the past")
	ErrUnknownSlot       = errors.New("unknown time slot")
	ErrSlotFull          = errors.New("time slot is fully booked")
	ErrUnknownService    = errors.New("unknown service or property size")
	ErrZipNotServed      = errors.New("zip code is not in our service area")
	ErrInvalidTransition = errors.New("status change not allowed")
	ErrBookingClosed     = errors.New("booking is already cancelled or completed")
	ErrDuplicate         = errors.New("already exists")
	ErrKeyInUse          = errors.New("a submission with this idempotency key is still in progress")

	ErrFeeNotAcknowledged = errors.New("cancellation fee must be acknowledged")
	ErrFeeNotPending      = errors.New("cancellation fee is not pending")
	ErrPendingReschedule  = errors.New("booking already has a pending reschedule request")
	ErrRequestDecided     = errors.New("reschedule request already decided")
	ErrAlreadyReviewed    = errors.New("booking already reviewed")
	ErrNotAssigned        = errors.New("booking is not assigned to this employee")
	ErrNotCompleted       = errors.New("booking is not completed yet")
	ErrInvalidZip         = errors.New("invalid zip code")
	ErrUnknownPermission  = errors.New("unknown permission")
	ErrUnknownEmployee    = errors.New("unknown employee")

	ErrInvalidPromo     = errors.New("invalid promo code")
	ErrPromoInactive    = fmt.Errorf("%w: code is inactive", ErrInvalidPromo)
	ErrPromoNotYetValid = fmt.Errorf("%w: code is not valid yet", ErrInvalidPromo)
	ErrPromoExpired     = fmt.Errorf("%w: code has expired", ErrInvalidPromo)
	ErrPromoExhausted   = fmt.Errorf("%w: code usage limit reached", ErrInvalidPromo)
	ErrPromoMinimum     = fmt.Errorf("%w: order below minimum", ErrInvalidPromo)

	ErrInvalidReferral = errors.New("invalid referral code")
	ErrSelfReferral    = fmt.Errorf("%w: cannot use your own code", ErrInvalidReferral)
	ErrAlreadyReferred = fmt.Errorf("%w: customer was already referred", ErrInvalidReferral)
)
