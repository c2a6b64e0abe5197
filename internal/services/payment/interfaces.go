// Package payment wraps the external payment processor. The rest of the
// engine talks to the Provider interface only; the Stripe implementation is
// wired in at startup and mocked in tests.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// ChargeRequest asks the processor to create a charge. IdempotencyKey is
// passed through unchanged so processor-side retries cannot double-charge.
type ChargeRequest struct {
	Amount         decimal.Decimal
	Currency       string
	IdempotencyKey string
	Description    string
	Metadata       map[string]string
}

// Intent is the processor's handle for a created charge.
type Intent struct {
	PaymentIntentID string
	ClientSecret    string
}

// Provider is the outbound boundary to the payment processor. Both calls
// block on the network; callers pass a context with a bounded timeout and
// must treat a timeout as "outcome unknown"; the webhook feed resolves it.
type Provider interface {
	CreateIntent(ctx context.Context, req ChargeRequest) (*Intent, error)
	Refund(ctx context.Context, paymentIntentID string) error
}
