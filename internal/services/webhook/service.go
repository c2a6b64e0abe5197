// Package webhook reconciles inbound payment provider events with the tip
// ledger under at-most-once effect semantics: however many times an event is
// delivered, the ledger mutates once.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	apperrors "tipjar/internal/errors"
	"tipjar/internal/models"
	"tipjar/internal/repositories"
	"tipjar/internal/services/ledger"
)

// ErrMalformedPayload marks an event whose payload carries no payment intent
// reference. Terminal for that event; never retried.
var ErrMalformedPayload = errors.New("malformed event payload")

// Service consumes provider events and drives ledger transitions.
type Service interface {
	Receive(ctx context.Context, eventID, eventType string, payload models.JSON) error
	Unprocessed(ctx context.Context, limit int) ([]models.WebhookEvent, error)
}

type service struct {
	events repositories.WebhookEventRepository
	ledger ledger.Service
}

// NewService creates a new webhook reconciler
func NewService(events repositories.WebhookEventRepository, ledgerSvc ledger.Service) Service {
	if events == nil {
		panic("event repo is required")
	}
	if ledgerSvc == nil {
		panic("ledger service is required")
	}
	return &service{events: events, ledger: ledgerSvc}
}

// Receive applies an event exactly once. The insert under the unique
// stripe_event_id constraint is the dedup gate; the ledger mutation commits
// before the processed flag flips, so a crash in between leaves an
// unprocessed event whose redelivery resumes safely (the transition itself is
// a no-op the second time).
func (s *service) Receive(ctx context.Context, eventID, eventType string, payload models.JSON) error {
	event := &models.WebhookEvent{
		StripeEventID: eventID,
		EventType:     eventType,
		Payload:       payload,
	}

	created, err := s.events.Insert(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	if !created {
		existing, err := s.events.GetByEventID(ctx, eventID)
		if err != nil {
			return fmt.Errorf("failed to load recorded event: %w", err)
		}
		if existing.Processed {
			log.Printf("replayed webhook event %s ignored", eventID)
			return nil
		}
		// First delivery crashed between mutation and flag; resume.
		event = existing
	}

	if err := s.apply(ctx, eventType, payload); err != nil {
		return err
	}

	// Processed flips only after the ledger mutation is durable.
	if err := s.events.MarkProcessed(ctx, event.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

func (s *service) apply(ctx context.Context, eventType string, payload models.JSON) error {
	switch eventType {
	case models.EventPaymentSucceeded, models.EventPaymentFailed:
		// handled below
	default:
		// Recorded for audit, no ledger effect.
		log.Printf("webhook event type %q recorded without ledger mutation", eventType)
		return nil
	}

	paymentIntentID, ok := paymentIntentFromPayload(payload)
	if !ok {
		return ErrMalformedPayload
	}

	tip, err := s.ledger.GetByPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTipNotFound) {
			return fmt.Errorf("%w: payment intent %s", apperrors.ErrOrphanEvent, paymentIntentID)
		}
		return fmt.Errorf("failed to look up tip: %w", err)
	}

	switch eventType {
	case models.EventPaymentSucceeded:
		err = s.ledger.MarkSucceeded(ctx, tip.ID, time.Now().UTC())
	case models.EventPaymentFailed:
		err = s.ledger.MarkFailed(ctx, tip.ID)
	}

	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidTransition) {
			// Duplicate or out-of-order delivery through another path; the
			// tip already settled. Benign.
			log.Printf("webhook transition no-op for tip %s (%s)", tip.ID, eventType)
			return nil
		}
		return err
	}
	return nil
}

func (s *service) Unprocessed(ctx context.Context, limit int) ([]models.WebhookEvent, error) {
	return s.events.Unprocessed(ctx, limit)
}

// paymentIntentFromPayload digs the payment intent id out of a provider
// event. Stripe nests it at data.object.id; a flattened payment_intent_id is
// accepted for operator replays.
func paymentIntentFromPayload(payload models.JSON) (string, bool) {
	if id, ok := payload["payment_intent_id"].(string); ok && id != "" {
		return id, true
	}
	data, ok := payload["data"].(map[string]interface{})
	if !ok {
		return "", false
	}
	object, ok := data["object"].(map[string]interface{})
	if !ok {
		return "", false
	}
	id, ok := object["id"].(string)
	return id, ok && id != ""
}
