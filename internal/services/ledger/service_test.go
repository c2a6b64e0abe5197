package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	apperrors "tipjar/internal/errors"
	"tipjar/internal/models"
	"tipjar/internal/repositories"
	"tipjar/internal/services/payment"
	"tipjar/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeProvider mimics the processor's idempotency semantics: the same key
// always yields the same intent.
type fakeProvider struct {
	mu          sync.Mutex
	intents     map[string]string
	createCalls int
	refunds     []string
	createErr   error
	refundErr   error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{intents: make(map[string]string)}
}

func (p *fakeProvider) CreateIntent(ctx context.Context, req payment.ChargeRequest) (*payment.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return nil, p.createErr
	}
	p.createCalls++
	id, ok := p.intents[req.IdempotencyKey]
	if !ok {
		id = fmt.Sprintf("pi_%d", len(p.intents)+1)
		p.intents[req.IdempotencyKey] = id
	}
	return &payment.Intent{PaymentIntentID: id, ClientSecret: id + "_secret"}, nil
}

func (p *fakeProvider) Refund(ctx context.Context, paymentIntentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refundErr != nil {
		return p.refundErr
	}
	p.refunds = append(p.refunds, paymentIntentID)
	return nil
}

func newTestService(t *testing.T) (Service, *fakeProvider, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	provider := newFakeProvider()
	svc := NewService(repositories.NewTipRepository(db), provider, LedgerConfig{})
	return svc, provider, db
}

func tipRequest(key string) CreateTipRequest {
	return CreateTipRequest{
		StaffID:        "staff-1",
		BusinessID:     "biz-1",
		LocationID:     "loc-1",
		QRTokenID:      "tok-1",
		Amount:         decimal.NewFromFloat(5.50),
		Currency:       "GBP",
		IdempotencyKey: key,
	}
}

func TestCreatePending(t *testing.T) {
	svc, provider, db := newTestService(t)
	ctx := context.Background()

	t.Run("opens a pending tip", func(t *testing.T) {
		tip, err := svc.CreatePending(ctx, tipRequest("key-1"))
		require.NoError(t, err)
		assert.Equal(t, models.TipStatusPending, tip.Status)
		assert.Equal(t, "pi_1", tip.PaymentIntentID)
		assert.Equal(t, "pi_1_secret", tip.ClientSecret)
		assert.True(t, tip.Amount.Equal(decimal.NewFromFloat(5.50)))
	})

	t.Run("retry with the same key returns the existing tip", func(t *testing.T) {
		first, err := svc.CreatePending(ctx, tipRequest("key-2"))
		require.NoError(t, err)

		second, err := svc.CreatePending(ctx, tipRequest("key-2"))
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		var count int64
		require.NoError(t, db.Model(&models.Tip{}).
			Where("idempotency_key = ?", "key-2").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		req := tipRequest("key-3")
		req.Amount = decimal.Zero
		_, err := svc.CreatePending(ctx, req)
		assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)

		req.Amount = decimal.NewFromFloat(-1)
		_, err = svc.CreatePending(ctx, req)
		assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)
	})

	t.Run("rejects missing idempotency key", func(t *testing.T) {
		req := tipRequest("")
		_, err := svc.CreatePending(ctx, req)
		assert.Error(t, err)
	})

	t.Run("provider failure leaves no tip row", func(t *testing.T) {
		provider.createErr = errors.New("processor down")
		defer func() { provider.createErr = nil }()

		_, err := svc.CreatePending(ctx, tipRequest("key-4"))
		require.Error(t, err)

		var count int64
		require.NoError(t, db.Model(&models.Tip{}).
			Where("idempotency_key = ?", "key-4").Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestStatusTransitions(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("pending settles once", func(t *testing.T) {
		tip, err := svc.CreatePending(ctx, tipRequest("settle-1"))
		require.NoError(t, err)

		require.NoError(t, svc.MarkSucceeded(ctx, tip.ID, now))

		stored, err := svc.GetByID(ctx, tip.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TipStatusSucceeded, stored.Status)
		require.NotNil(t, stored.SucceededAt)

		// A second settlement attempt is an illegal transition.
		assert.ErrorIs(t, svc.MarkSucceeded(ctx, tip.ID, now), apperrors.ErrInvalidTransition)
		assert.ErrorIs(t, svc.MarkFailed(ctx, tip.ID), apperrors.ErrInvalidTransition)
	})

	t.Run("pending can fail", func(t *testing.T) {
		tip, err := svc.CreatePending(ctx, tipRequest("fail-1"))
		require.NoError(t, err)

		require.NoError(t, svc.MarkFailed(ctx, tip.ID))

		stored, err := svc.GetByID(ctx, tip.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TipStatusFailed, stored.Status)
		assert.Nil(t, stored.SucceededAt)

		// Failed is terminal.
		assert.ErrorIs(t, svc.MarkSucceeded(ctx, tip.ID, now), apperrors.ErrInvalidTransition)
	})
}

func TestCanRefund(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("pending tip has not settled", func(t *testing.T) {
		tip, err := svc.CreatePending(ctx, tipRequest("cr-1"))
		require.NoError(t, err)

		ok, reason := svc.CanRefund(ctx, tip.ID, now)
		assert.False(t, ok)
		assert.Equal(t, "tip has not settled", reason)
	})

	t.Run("settled tip inside the window", func(t *testing.T) {
		tip, err := svc.CreatePending(ctx, tipRequest("cr-2"))
		require.NoError(t, err)
		require.NoError(t, svc.MarkSucceeded(ctx, tip.ID, now))

		ok, reason := svc.CanRefund(ctx, tip.ID, now)
		assert.True(t, ok)
		assert.Empty(t, reason)
	})

	t.Run("window expired after 31 days", func(t *testing.T) {
		tip, err := svc.CreatePending(ctx, tipRequest("cr-3"))
		require.NoError(t, err)
		require.NoError(t, svc.MarkSucceeded(ctx, tip.ID, now.AddDate(0, 0, -31)))

		ok, reason := svc.CanRefund(ctx, tip.ID, now)
		assert.False(t, ok)
		assert.Equal(t, "refund window expired", reason)
	})

	t.Run("refunded tip reports already initiated", func(t *testing.T) {
		tip, err := svc.CreatePending(ctx, tipRequest("cr-4"))
		require.NoError(t, err)
		require.NoError(t, svc.MarkSucceeded(ctx, tip.ID, now))
		_, err = svc.InitiateRefund(ctx, tip.ID)
		require.NoError(t, err)

		ok, reason := svc.CanRefund(ctx, tip.ID, now)
		assert.False(t, ok)
		assert.Equal(t, "refund already initiated", reason)
	})
}

func TestInitiateRefund(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("refunds a settled tip", func(t *testing.T) {
		svc, provider, _ := newTestService(t)
		tip, err := svc.CreatePending(ctx, tipRequest("rf-1"))
		require.NoError(t, err)
		require.NoError(t, svc.MarkSucceeded(ctx, tip.ID, now))

		refunded, err := svc.InitiateRefund(ctx, tip.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TipStatusRefunded, refunded.Status)
		assert.Equal(t, []string{tip.PaymentIntentID}, provider.refunds)
	})

	t.Run("second refund is rejected", func(t *testing.T) {
		svc, provider, _ := newTestService(t)
		tip, err := svc.CreatePending(ctx, tipRequest("rf-2"))
		require.NoError(t, err)
		require.NoError(t, svc.MarkSucceeded(ctx, tip.ID, now))

		_, err = svc.InitiateRefund(ctx, tip.ID)
		require.NoError(t, err)

		_, err = svc.InitiateRefund(ctx, tip.ID)
		assert.ErrorIs(t, err, apperrors.ErrNotRefundable)
		assert.Len(t, provider.refunds, 1)
	})

	t.Run("processor failure rolls the status back", func(t *testing.T) {
		svc, provider, _ := newTestService(t)
		tip, err := svc.CreatePending(ctx, tipRequest("rf-3"))
		require.NoError(t, err)
		require.NoError(t, svc.MarkSucceeded(ctx, tip.ID, now))

		provider.refundErr = errors.New("processor down")
		_, err = svc.InitiateRefund(ctx, tip.ID)
		require.Error(t, err)

		stored, err := svc.GetByID(ctx, tip.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TipStatusSucceeded, stored.Status)

		// The rollback leaves the tip retryable.
		provider.refundErr = nil
		refunded, err := svc.InitiateRefund(ctx, tip.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TipStatusRefunded, refunded.Status)
	})
}

func TestTipImmutability(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	tip, err := svc.CreatePending(ctx, tipRequest("imm-1"))
	require.NoError(t, err)

	stored, err := svc.GetByID(ctx, tip.ID)
	require.NoError(t, err)

	err = db.Model(stored).Update("amount", decimal.NewFromFloat(999)).Error
	assert.ErrorIs(t, err, apperrors.ErrImmutableField)

	err = db.Model(stored).Update("staff_id", "someone-else").Error
	assert.ErrorIs(t, err, apperrors.ErrImmutableField)

	unchanged, err := svc.GetByID(ctx, tip.ID)
	require.NoError(t, err)
	assert.True(t, unchanged.Amount.Equal(tip.Amount))
	assert.Equal(t, "staff-1", unchanged.StaffID)
}

func TestTipsTotalForStaff(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	amounts := []float64{2.25, 3.50, 10.00}
	for i, amt := range amounts {
		req := tipRequest(fmt.Sprintf("total-%d", i))
		req.Amount = decimal.NewFromFloat(amt)
		tip, err := svc.CreatePending(ctx, req)
		require.NoError(t, err)
		require.NoError(t, svc.MarkSucceeded(ctx, tip.ID, now))
	}

	// A pending tip does not count.
	_, err := svc.CreatePending(ctx, tipRequest("total-pending"))
	require.NoError(t, err)

	total, err := svc.TipsTotalForStaff(ctx, "staff-1", now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromFloat(15.75)), "got %s", total)
}
