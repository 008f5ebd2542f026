package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diagnosis/cleanbook/pkg/config"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

var (
	ErrDisabled = errors.New("payments are not configured")
	ErrDeclined = errors.New("payment declined")
)

type SetupIntent struct {
	ClientSecret string `json:"clientSecret"`
	CustomerID   string `json:"customerId"`
}

type Charge struct {
	PaymentIntentID string
	Status          string
}

type ChargeRequest struct {
	CustomerID      string
	PaymentMethodID string
	AmountCents     int64
	Description     string
	IdempotencyKey  string
	BookingID       int64
}

// Provider captures a card for later off-session use and charges it.
type Provider interface {
	CreateSetupIntent(ctx context.Context, email, name string) (*SetupIntent, error)
	ChargeOffSession(ctx context.Context, req ChargeRequest) (*Charge, error)
}

type StripeProvider struct {
	api      *client.API
	currency string
}

// New returns a Stripe provider, or a disabled one when no key is set.
func New(cfg config.StripeConfig) Provider {
	if cfg.SecretKey == "" {
		return disabledProvider{}
	}
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &StripeProvider{api: api, currency: strings.ToLower(cfg.Currency)}
}

func (p *StripeProvider) CreateSetupIntent(ctx context.Context, email, name string) (*SetupIntent, error) {
	cparams := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	cparams.Context = ctx
	cust, err := p.api.Customers.New(cparams)
	if err != nil {
		return nil, fmt.Errorf("create stripe customer: %w", err)
	}

	sparams := &stripe.SetupIntentParams{
		Customer:           stripe.String(cust.ID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Usage:              stripe.String(string(stripe.SetupIntentUsageOffSession)),
	}
	sparams.Context = ctx
	si, err := p.api.SetupIntents.New(sparams)
	if err != nil {
		return nil, fmt.Errorf("create setup intent: %w", err)
	}

	return &SetupIntent{ClientSecret: si.ClientSecret, CustomerID: cust.ID}, nil
}

func (p *StripeProvider) ChargeOffSession(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if req.CustomerID == "" || req.PaymentMethodID == "" {
		return nil, fmt.Errorf("%w: no saved payment method", ErrDeclined)
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.AmountCents),
		Currency:      stripe.String(p.currency),
		Customer:      stripe.String(req.CustomerID),
		PaymentMethod: stripe.String(req.PaymentMethodID),
		OffSession:    stripe.Bool(true),
		Confirm:       stripe.Bool(true),
		Description:   stripe.String(req.Description),
	}
	params.Context = ctx
	params.AddMetadata("booking_id", fmt.Sprintf("%d", req.BookingID))
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		var serr *stripe.Error
		if errors.As(err, &serr) && serr.Type == stripe.ErrorTypeCard {
			return nil, fmt.Errorf("%w: %s", ErrDeclined, serr.Msg)
		}
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, fmt.Errorf("%w: status %s", ErrDeclined, pi.Status)
	}
	return &Charge{PaymentIntentID: pi.ID, Status: string(pi.Status)}, nil
}

type disabledProvider struct{}

func (disabledProvider) CreateSetupIntent(context.Context, string, string) (*SetupIntent, error) {
	return nil, ErrDisabled
}

func (disabledProvider) ChargeOffSession(context.Context, ChargeRequest) (*Charge, error) {
	return nil, ErrDisabled
}
