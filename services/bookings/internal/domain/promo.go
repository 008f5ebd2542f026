package domain

import "time"

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// PromoCode discounts a booking either by a percentage of the subtotal or by
// a fixed amount in cents.
type PromoCode struct {
	ID               int64        `json:"id"`
	Code             string       `json:"code"`
	Description      string       `json:"description"`
	DiscountType     DiscountType `json:"discountType"`
	DiscountValue    int64        `json:"discountValue"`
	MinSubtotalCents int64        `json:"minSubtotalCents"`
	ValidFrom        *time.Time   `json:"validFrom,omitempty"`
	ValidUntil       *time.Time   `json:"validUntil,omitempty"`
	MaxUses          *int         `json:"maxUses,omitempty"`
	UsageCount       int          `json:"usageCount"`
	IsActive         bool         `json:"isActive"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

type PromoCodeInput struct {
	Code             string       `json:"code" validate:"required,min=3,max=32,alphanum"`
	Description      string       `json:"description"`
	DiscountType     DiscountType `json:"discountType" validate:"required,oneof=percentage fixed"`
	DiscountValue    int64        `json:"discountValue" validate:"required,gt=0"`
	MinSubtotalCents int64        `json:"minSubtotalCents" validate:"gte=0"`
	ValidFrom        *time.Time   `json:"validFrom,omitempty"`
	ValidUntil       *time.Time   `json:"validUntil,omitempty"`
	MaxUses          *int         `json:"maxUses,omitempty" validate:"omitempty,gt=0"`
	IsActive         bool         `json:"isActive"`
}

type ValidatePromoRequest struct {
	Code          string `json:"code" validate:"required"`
	SubtotalCents int64  `json:"subtotalCents" validate:"gte=0"`
}

type PromoValidation struct {
	PromoCodeID   int64        `json:"promoCodeId"`
	Code          string       `json:"code"`
	DiscountType  DiscountType `json:"discountType"`
	DiscountValue int64        `json:"discountValue"`
	DiscountCents int64        `json:"discountCents"`
}

// Validate checks activity, the validity window, usage and the minimum order.
func (p *PromoCode) Validate(now time.Time, subtotal int64) error {
	switch {
	case !p.IsActive:
		return ErrPromoInactive
	case p.ValidFrom != nil && now.Before(*p.ValidFrom):
		return ErrPromoNotYetValid
	case p.ValidUntil != nil && now.After(*p.ValidUntil):
		return ErrPromoExpired
	case p.MaxUses != nil && p.UsageCount >= *p.MaxUses:
		return ErrPromoExhausted
	case subtotal < p.MinSubtotalCents:
		return ErrPromoMinimum
	}
	return nil
}

// DiscountFor returns a discount in [0, subtotal].
func (p *PromoCode) DiscountFor(subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}
	var d int64
	switch p.DiscountType {
	case DiscountPercentage:
		d = subtotal * min(p.DiscountValue, 100) / 100
	case DiscountFixed:
		d = p.DiscountValue
	}
	return min(max(d, 0), subtotal)
}

func (in PromoCodeInput) ValidateRange() error {
	if in.DiscountType == DiscountPercentage && in.DiscountValue > 100 {
		return ErrInvalidPromo
	}
	if in.ValidFrom != nil && in.ValidUntil != nil && in.ValidUntil.Before(*in.ValidFrom) {
		return ErrInvalidPromo
	}
	return nil
}
