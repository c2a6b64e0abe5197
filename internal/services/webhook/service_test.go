package webhook

import (
	"context"
	"fmt"
	"testing"
	"time"

	apperrors "tipjar/internal/errors"
	"tipjar/internal/models"
	"tipjar/internal/repositories"
	"tipjar/internal/services/ledger"
	"tipjar/internal/services/payment"
	"tipjar/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct{ n int }

func (p *stubProvider) CreateIntent(ctx context.Context, req payment.ChargeRequest) (*payment.Intent, error) {
	p.n++
	return &payment.Intent{PaymentIntentID: fmt.Sprintf("pi_%d", p.n)}, nil
}

func (p *stubProvider) Refund(ctx context.Context, paymentIntentID string) error { return nil }

type fixture struct {
	svc    Service
	ledger ledger.Service
	events repositories.WebhookEventRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	tips := repositories.NewTipRepository(db)
	events := repositories.NewWebhookEventRepository(db)
	ledgerSvc := ledger.NewService(tips, &stubProvider{}, ledger.LedgerConfig{})
	return &fixture{
		svc:    NewService(events, ledgerSvc),
		ledger: ledgerSvc,
		events: events,
	}
}

func (f *fixture) pendingTip(t *testing.T, key string) *models.Tip {
	t.Helper()
	tip, err := f.ledger.CreatePending(context.Background(), ledger.CreateTipRequest{
		StaffID:        "staff-1",
		BusinessID:     "biz-1",
		QRTokenID:      "tok-1",
		Amount:         decimal.NewFromFloat(4.00),
		Currency:       "GBP",
		IdempotencyKey: key,
	})
	require.NoError(t, err)
	return tip
}

func successPayload(paymentIntentID string) models.JSON {
	return models.JSON{
		"data": map[string]interface{}{
			"object": map[string]interface{}{"id": paymentIntentID},
		},
	}
}

func TestReceiveSettlesTip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tip := f.pendingTip(t, "wh-1")

	err := f.svc.Receive(ctx, "evt_1", models.EventPaymentSucceeded, successPayload(tip.PaymentIntentID))
	require.NoError(t, err)

	stored, err := f.ledger.GetByID(ctx, tip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TipStatusSucceeded, stored.Status)
	require.NotNil(t, stored.SucceededAt)

	event, err := f.events.GetByEventID(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, event.Processed)
	require.NotNil(t, event.ProcessedAt)
}

func TestReceiveMarksFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tip := f.pendingTip(t, "wh-2")

	err := f.svc.Receive(ctx, "evt_2", models.EventPaymentFailed, successPayload(tip.PaymentIntentID))
	require.NoError(t, err)

	stored, err := f.ledger.GetByID(ctx, tip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TipStatusFailed, stored.Status)
}

// Delivering the same event id any number of times mutates the ledger once.
func TestReceiveReplayIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tip := f.pendingTip(t, "wh-3")
	payload := successPayload(tip.PaymentIntentID)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.svc.Receive(ctx, "evt_3", models.EventPaymentSucceeded, payload))
	}

	stored, err := f.ledger.GetByID(ctx, tip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TipStatusSucceeded, stored.Status)
	settledAt := *stored.SucceededAt

	require.NoError(t, f.svc.Receive(ctx, "evt_3", models.EventPaymentSucceeded, payload))
	again, err := f.ledger.GetByID(ctx, tip.ID)
	require.NoError(t, err)
	assert.True(t, settledAt.Equal(*again.SucceededAt))
}

// Two distinct event ids for the same payment intent: the first settles, the
// second is a benign no-op, both are acknowledged.
func TestReceiveDuplicateSuccessEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tip := f.pendingTip(t, "wh-4")
	payload := successPayload(tip.PaymentIntentID)

	require.NoError(t, f.svc.Receive(ctx, "evt_4a", models.EventPaymentSucceeded, payload))
	require.NoError(t, f.svc.Receive(ctx, "evt_4b", models.EventPaymentSucceeded, payload))

	stored, err := f.ledger.GetByID(ctx, tip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TipStatusSucceeded, stored.Status)

	for _, id := range []string{"evt_4a", "evt_4b"} {
		event, err := f.events.GetByEventID(ctx, id)
		require.NoError(t, err)
		assert.True(t, event.Processed)
	}
}

func TestReceiveOrphanEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.Receive(ctx, "evt_5", models.EventPaymentSucceeded, successPayload("pi_unknown"))
	assert.ErrorIs(t, err, apperrors.ErrOrphanEvent)

	// The event stays recorded but unprocessed for the operator queue.
	event, err := f.events.GetByEventID(ctx, "evt_5")
	require.NoError(t, err)
	assert.False(t, event.Processed)

	stuck, err := f.svc.Unprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, "evt_5", stuck[0].StripeEventID)
}

func TestReceiveMalformedPayload(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Receive(context.Background(), "evt_6", models.EventPaymentSucceeded, models.JSON{})
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

// Event types outside the payment lifecycle are recorded and acknowledged
// without touching the ledger.
func TestReceiveUnknownEventType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tip := f.pendingTip(t, "wh-7")

	err := f.svc.Receive(ctx, "evt_7", "charge.dispute.created", successPayload(tip.PaymentIntentID))
	require.NoError(t, err)

	stored, err := f.ledger.GetByID(ctx, tip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TipStatusPending, stored.Status)

	event, err := f.events.GetByEventID(ctx, "evt_7")
	require.NoError(t, err)
	assert.True(t, event.Processed)
}

// A delivery that crashed after the ledger mutation but before the processed
// flag resumes cleanly on redelivery.
func TestReceiveResumesAfterPartialProcessing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tip := f.pendingTip(t, "wh-8")
	payload := successPayload(tip.PaymentIntentID)

	// Simulate the crash window: event recorded, ledger settled, flag never
	// flipped.
	_, err := f.events.Insert(ctx, &models.WebhookEvent{
		StripeEventID: "evt_8",
		EventType:     models.EventPaymentSucceeded,
		Payload:       payload,
	})
	require.NoError(t, err)
	require.NoError(t, f.ledger.MarkSucceeded(ctx, tip.ID, time.Now().UTC()))

	require.NoError(t, f.svc.Receive(ctx, "evt_8", models.EventPaymentSucceeded, payload))

	event, err := f.events.GetByEventID(ctx, "evt_8")
	require.NoError(t, err)
	assert.True(t, event.Processed)

	stored, err := f.ledger.GetByID(ctx, tip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TipStatusSucceeded, stored.Status)
}
