package ledger

import (
	"context"
	"time"

	"tipjar/internal/models"

	"github.com/shopspring/decimal"
)

// CreateTipRequest carries everything needed to open a pending tip. The
// staff/business/location identity comes from an authorized token scan, never
// from the customer request directly.
type CreateTipRequest struct {
	StaffID        string
	BusinessID     string
	LocationID     string
	QRTokenID      string
	Amount         decimal.Decimal
	Currency       string
	IdempotencyKey string
	CustomerName   string
	CustomerEmail  string
	Message        string
	Metadata       map[string]interface{}
}

// LedgerConfig holds configuration for the tip ledger.
type LedgerConfig struct {
	RefundWindow    time.Duration
	DefaultCurrency string
}

// DefaultRefundWindow is the policy default when no window is configured.
const DefaultRefundWindow = 30 * 24 * time.Hour

// Service drives tips through the payment state machine. Transitions are
// serialized per record by the store; callers never observe a skipped state.
type Service interface {
	CreatePending(ctx context.Context, req CreateTipRequest) (*models.Tip, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Tip, error)
	MarkSucceeded(ctx context.Context, tipID string, processedAt time.Time) error
	MarkFailed(ctx context.Context, tipID string) error
	CanRefund(ctx context.Context, tipID string, now time.Time) (bool, string)
	InitiateRefund(ctx context.Context, tipID string) (*models.Tip, error)
	GetByID(ctx context.Context, tipID string) (*models.Tip, error)
	GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Tip, error)
	TipsTotalForStaff(ctx context.Context, staffID string, from, to time.Time) (decimal.Decimal, error)
}
