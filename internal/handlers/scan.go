package handlers

import (
	"errors"
	"time"

	apperrors "tipjar/internal/errors"
	"tipjar/internal/models"
	"tipjar/internal/repositories"
	"tipjar/internal/services/ledger"
	"tipjar/internal/services/token"
	"tipjar/internal/utils/response"
	"tipjar/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// ScanHandler processes customer-facing QR scans: it authorizes the
// scanned token and opens a pending tip payment in one request.
type ScanHandler struct {
	tokens token.Service
	ledger ledger.Service
}

func NewScanHandler(tokenSvc token.Service, ledgerSvc ledger.Service) *ScanHandler {
	return &ScanHandler{
		tokens: tokenSvc,
		ledger: ledgerSvc,
	}
}

func (h *ScanHandler) Scan(c *fiber.Ctx) error {
	var input validation.ScanRequest
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	input.IdempotencyKey = c.Get("Idempotency-Key")

	v := validation.New()
	v.Scan(&input)
	if !v.Valid() {
		return response.ValidationError(c, v.Errors)
	}

	// A retried request must return the existing tip without consuming
	// another scan, so the retry check runs before the token is touched.
	// Without this a retry against a capped token would burn its remaining
	// capacity and fail authorization instead of replaying the answer.
	if existing, err := h.ledger.GetByIdempotencyKey(c.Context(), input.IdempotencyKey); err == nil {
		return tipCreated(c, existing)
	} else if !errors.Is(err, repositories.ErrTipNotFound) {
		return response.ServerError(c, "Failed to create tip payment")
	}

	auth, err := h.tokens.Authorize(c.Context(), input.Token, time.Now().UTC())
	if err != nil {
		return h.tokenError(c, err)
	}

	tip, err := h.ledger.CreatePending(c.Context(), ledger.CreateTipRequest{
		StaffID:        auth.StaffID,
		BusinessID:     auth.BusinessID,
		LocationID:     auth.LocationID,
		QRTokenID:      auth.TokenID,
		Amount:         input.Amount,
		Currency:       input.Currency,
		IdempotencyKey: input.IdempotencyKey,
		CustomerName:   input.CustomerName,
		CustomerEmail:  input.CustomerEmail,
		Message:        input.Message,
		Metadata: map[string]interface{}{
			"ip_address": c.IP(),
			"user_agent": c.Get("User-Agent"),
		},
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidAmount) {
			return response.DomainError(c, fiber.StatusBadRequest, err)
		}
		return response.ServerError(c, "Failed to create tip payment")
	}

	return tipCreated(c, tip)
}

func tipCreated(c *fiber.Ctx, tip *models.Tip) error {
	return response.Success(c, "Tip payment created", fiber.Map{
		"tip_id":            tip.ID,
		"status":            tip.Status,
		"amount":            tip.Amount,
		"currency":          tip.Currency,
		"payment_intent_id": tip.PaymentIntentID,
		"client_secret":     tip.ClientSecret,
	})
}

func (h *ScanHandler) tokenError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, apperrors.ErrTokenNotFound):
		return response.DomainError(c, fiber.StatusNotFound, err)
	case errors.Is(err, apperrors.ErrTokenExpired):
		return response.DomainError(c, fiber.StatusGone, err)
	case errors.Is(err, apperrors.ErrTokenInactive):
		return response.DomainError(c, fiber.StatusGone, err)
	case errors.Is(err, apperrors.ErrScanLimitReached):
		return response.DomainError(c, fiber.StatusConflict, err)
	default:
		return response.ServerError(c, "Failed to authorize token")
	}
}
