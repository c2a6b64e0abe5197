package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"strconv"

	apperrors "tipjar/internal/errors"
	"tipjar/internal/models"
	"tipjar/internal/services/webhook"
	"tipjar/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	stripewebhook "github.com/stripe/stripe-go/v72/webhook"
)

// WebhookHandler terminates the Stripe webhook endpoint: it verifies the
// event signature, then hands the event to the reconciler. Stripe retries on
// any non-2xx, so transient failures answer 503 and terminal ones answer 400.
type WebhookHandler struct {
	reconciler    webhook.Service
	signingSecret string
}

func NewWebhookHandler(reconciler webhook.Service, signingSecret string) *WebhookHandler {
	return &WebhookHandler{
		reconciler:    reconciler,
		signingSecret: signingSecret,
	}
}

func (h *WebhookHandler) HandleStripeEvent(c *fiber.Ctx) error {
	event, err := stripewebhook.ConstructEvent(c.Body(), c.Get("Stripe-Signature"), h.signingSecret)
	if err != nil {
		log.Printf("webhook signature verification failed: %v", err)
		return response.Error(c, fiber.StatusBadRequest, "Invalid signature")
	}

	var payload models.JSON
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return response.Error(c, fiber.StatusBadRequest, "Invalid payload")
	}

	if err := h.reconciler.Receive(c.Context(), event.ID, string(event.Type), payload); err != nil {
		switch {
		case errors.Is(err, webhook.ErrMalformedPayload), errors.Is(err, apperrors.ErrOrphanEvent):
			// Terminal for this event. Acknowledging with a 4xx stops
			// Stripe from redelivering something we can never apply.
			return response.Error(c, fiber.StatusBadRequest, err.Error())
		default:
			return response.Error(c, fiber.StatusServiceUnavailable, "Event processing failed")
		}
	}

	return response.Success(c, "Event processed", nil)
}

// ListUnprocessed is an operator endpoint for events stuck before their
// processed flag flipped, usually after a crash mid-reconciliation.
func (h *WebhookHandler) ListUnprocessed(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}

	events, err := h.reconciler.Unprocessed(c.Context(), limit)
	if err != nil {
		return response.ServerError(c, "Failed to list unprocessed events")
	}
	return response.Success(c, "Unprocessed events", fiber.Map{
		"events": events,
		"count":  len(events),
	})
}
