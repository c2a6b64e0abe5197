package handlers

import (
	"errors"
	"time"

	apperrors "tipjar/internal/errors"
	"tipjar/internal/repositories"
	"tipjar/internal/services/ledger"
	"tipjar/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// TipHandler exposes read and refund operations on settled tips.
type TipHandler struct {
	ledger ledger.Service
}

func NewTipHandler(ledgerSvc ledger.Service) *TipHandler {
	return &TipHandler{ledger: ledgerSvc}
}

func (h *TipHandler) Get(c *fiber.Ctx) error {
	tip, err := h.ledger.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrTipNotFound) {
			return response.Error(c, fiber.StatusNotFound, "Tip not found")
		}
		return response.ServerError(c, "Failed to get tip")
	}
	return response.Success(c, "Tip", tip)
}

func (h *TipHandler) Refund(c *fiber.Ctx) error {
	tip, err := h.ledger.InitiateRefund(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotRefundable) {
			return response.Error(c, fiber.StatusConflict, err.Error())
		}
		return response.ServerError(c, "Refund failed")
	}
	return response.Success(c, "Tip refunded", tip)
}

// StaffTotal reports the settled tip total for one staff member over a date
// range, defaulting to the last 30 days.
func (h *TipHandler) StaffTotal(c *fiber.Ctx) error {
	staffID := c.Params("id")
	if staffID == "" {
		return response.BadRequest(c, "Staff ID is required")
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return response.BadRequest(c, "Invalid from date, expected YYYY-MM-DD")
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return response.BadRequest(c, "Invalid to date, expected YYYY-MM-DD")
		}
		to = parsed.AddDate(0, 0, 1)
	}

	total, err := h.ledger.TipsTotalForStaff(c.Context(), staffID, from, to)
	if err != nil {
		return response.ServerError(c, "Failed to compute staff total")
	}
	return response.Success(c, "Staff tip total", fiber.Map{
		"staff_id": staffID,
		"from":     from.Format("2006-01-02"),
		"to":       to.Format("2006-01-02"),
		"total":    total,
	})
}
