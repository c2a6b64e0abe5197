package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/paymentintent"
	"github.com/stripe/stripe-go/v72/refund"
)

// DefaultCallTimeout bounds every outbound processor call. A timed-out call
// leaves the ledger untouched; the webhook feed reports the real outcome.
const DefaultCallTimeout = 10 * time.Second

type stripeProvider struct {
	timeout time.Duration
}

// NewStripeProvider configures the global stripe client with the secret key
// and returns a Provider backed by the live Stripe API.
func NewStripeProvider(secretKey string, timeout time.Duration) Provider {
	stripe.Key = secretKey
	if timeout == 0 {
		timeout = DefaultCallTimeout
	}
	return &stripeProvider{timeout: timeout}
}

func (p *stripeProvider) CreateIntent(ctx context.Context, req ChargeRequest) (*Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minorUnits(req.Amount)),
		Currency: stripe.String(strings.ToLower(req.Currency)),
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &Intent{
		PaymentIntentID: pi.ID,
		ClientSecret:    pi.ClientSecret,
	}, nil
}

func (p *stripeProvider) Refund(ctx context.Context, paymentIntentID string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Context = ctx

	if _, err := refund.New(params); err != nil {
		return fmt.Errorf("failed to create refund: %w", err)
	}
	return nil
}

// minorUnits converts a fixed-point amount to the integer minor units the
// Stripe API expects.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
