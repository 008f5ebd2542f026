package payments

import (
	"context"
	"testing"

	"github.com/diagnosis/cleanbook/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestNewWithoutKeyIsDisabled(t *testing.T) {
	p := New(config.StripeConfig{})

	_, err := p.CreateSetupIntent(context.Background(), "a@b.co", "A")
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = p.ChargeOffSession(context.Background(), ChargeRequest{AmountCents: 5000})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestChargeRequiresSavedMethod(t *testing.T) {
	p := New(config.StripeConfig{SecretKey: "sk_test_dummy", Currency: "USD"})

	_, err := p.ChargeOffSession(context.Background(), ChargeRequest{AmountCents: 5000})
	assert.ErrorIs(t, err, ErrDeclined)
}
