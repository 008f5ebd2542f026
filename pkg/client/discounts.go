package client

import (
	"context"
	"fmt"
	"strings"
)

type DiscountValidator interface {
	ValidatePromo(ctx context.Context, code string, subtotalCents int64) (*PromoValidation, error)
	ValidateReferral(ctx context.Context, code, email string) (*ReferralValidation, error)
}

type AppliedPromo struct {
	ID            int64
	Code          string
	DiscountCents int64
}

type AppliedReferral struct {
	Code          string
	DiscountCents int64
}

// Discounts holds at most one promo code and one referral code. Amounts are
// what the server reported; the booking total is computed server-side.
type Discounts struct {
	Promo    *AppliedPromo
	Referral *AppliedReferral
}

// ApplyPromo validates code against the server. Failure clears any promo
// already applied.
func (d *Discounts) ApplyPromo(ctx context.Context, v DiscountValidator, n Notifier, code string, subtotalCents int64) error {
	code = strings.TrimSpace(code)
	if code == "" {
		d.Promo = nil
		return &ValidationError{Fields: map[string]string{"promoCode": "is required"}}
	}
	res, err := v.ValidatePromo(ctx, code, subtotalCents)
	if err != nil {
		d.Promo = nil
		n.Notify(Toast{Kind: ToastError, Title: "Invalid promo code", Message: Message(err)})
		return fmt.Errorf("apply promo %q: %w", code, err)
	}
	d.Promo = &AppliedPromo{ID: res.PromoCodeID, Code: res.Code, DiscountCents: max(res.DiscountCents, 0)}
	n.Notify(Toast{Kind: ToastSuccess, Title: "Promo code applied", Message: FormatCents(d.Promo.DiscountCents) + " off"})
	return nil
}

// ApplyReferral validates a friend's referral code for email. Failure clears
// any referral already applied.
func (d *Discounts) ApplyReferral(ctx context.Context, v DiscountValidator, n Notifier, code, email string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		d.Referral = nil
		return &ValidationError{Fields: map[string]string{"referralCode": "is required"}}
	}
	res, err := v.ValidateReferral(ctx, code, email)
	if err != nil {
		d.Referral = nil
		n.Notify(Toast{Kind: ToastError, Title: "Invalid referral code", Message: Message(err)})
		return fmt.Errorf("apply referral %q: %w", code, err)
	}
	d.Referral = &AppliedReferral{Code: res.ReferralCode, DiscountCents: max(res.DiscountCents, 0)}
	n.Notify(Toast{Kind: ToastSuccess, Title: "Referral applied", Message: FormatCents(d.Referral.DiscountCents) + " off"})
	return nil
}

func (d *Discounts) ClearPromo() { d.Promo = nil }
func (d *Discounts) ClearReferral() { d.Referral = nil }

func (d Discounts) PromoCode() string {
	if d.Promo == nil {
		return ""
	}
	return d.Promo.Code
}

func (d Discounts) ReferralCode() string {
	if d.Referral == nil {
		return ""
	}
	return d.Referral.Code
}

// DiscountCents is the sum of applied discounts, for display.
func (d Discounts) DiscountCents() int64 {
	var total int64
	if d.Promo != nil {
		total += d.Promo.DiscountCents
	}
	if d.Referral != nil {
		total += d.Referral.DiscountCents
	}
	return total
}

// EstimatedTotal is the display total; it never goes below zero.
func (d Discounts) EstimatedTotal(subtotalCents int64) string {
	return FormatCents(max(subtotalCents-d.DiscountCents(), 0))
}

// FormatCents renders cents as dollars, e.g. 13550 -> "$135.50".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
