package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ReferralStatus string

const (
	ReferralPending   ReferralStatus = "pending"
	ReferralCompleted ReferralStatus = "completed"
)

// Referral links a referee's booking to the customer whose code they used.
// The reward is credited to the referrer once that booking is completed.
type Referral struct {
	ID            int64          `json:"id"`
	Code          string         `json:"code"`
	ReferrerEmail string         `json:"referrerEmail"`
	RefereeEmail  string         `json:"refereeEmail"`
	BookingID     int64          `json:"bookingId"`
	Status        ReferralStatus `json:"status"`
	RewardCents   int64          `json:"rewardCents"`
	CreatedAt     time.Time      `json:"createdAt"`
	CompletedAt   *time.Time     `json:"completedAt,omitempty"`
}

type ReferralStats struct {
	ReferralCode       string `json:"referralCode"`
	TotalReferrals     int    `json:"totalReferrals"`
	CompletedReferrals int    `json:"completedReferrals"`
	PendingReferrals   int    `json:"pendingReferrals"`
	CreditsEarnedCents int64  `json:"creditsEarnedCents"`
}

type ValidateReferralRequest struct {
	Code  string `json:"code" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

type ReferralValidation struct {
	ReferralCode  string `json:"referralCode"`
	DiscountCents int64  `json:"discountCents"`
}

// NewReferralCode derives a short shareable code from the customer's name.
func NewReferralCode(name string) string {
	prefix := strings.ToUpper(strings.Join(strings.Fields(name), ""))
	var b strings.Builder
	for _, r := range prefix {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
		if b.Len() == 4 {
			break
		}
	}
	if b.Len() == 0 {
		b.WriteString("CLEAN")
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return b.String() + suffix
}
