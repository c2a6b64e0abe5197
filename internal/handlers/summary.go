package handlers

import (
	"time"

	"tipjar/internal/models"
	"tipjar/internal/services/summary"
	"tipjar/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// SummaryHandler serves the daily tip rollups.
type SummaryHandler struct {
	summaries summary.Service
}

func NewSummaryHandler(summarySvc summary.Service) *SummaryHandler {
	return &SummaryHandler{summaries: summarySvc}
}

// Get serves a rollup for scope/scope_id/date, rebuilding from the ledger
// when the cached copy is missing or stale.
func (h *SummaryHandler) Get(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*models.StaffClaims)

	scope := models.SummaryScope(c.Query("scope", string(models.ScopeStaff)))
	if !scope.Valid() {
		return response.BadRequest(c, "Unknown summary scope")
	}

	scopeID := c.Query("scope_id")
	if scopeID == "" {
		switch scope {
		case models.ScopeStaff:
			scopeID = claims.StaffID
		case models.ScopeBusiness:
			scopeID = claims.BusinessID
		case models.ScopeLocation:
			scopeID = claims.LocationID
		}
	}
	if scopeID == "" {
		return response.BadRequest(c, "scope_id is required")
	}

	date := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return response.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
		}
		date = parsed
	}

	sum, err := h.summaries.GetOrRebuild(c.Context(), scope, scopeID, date)
	if err != nil {
		return response.ServerError(c, "Failed to load summary")
	}
	return response.Success(c, "Tip summary", sum)
}

// Rebuild forces a recalculation from the ledger, bypassing cache and any
// previously stored rollup.
func (h *SummaryHandler) Rebuild(c *fiber.Ctx) error {
	var input struct {
		Scope   string `json:"scope"`
		ScopeID string `json:"scope_id"`
		Date    string `json:"date"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}

	scope := models.SummaryScope(input.Scope)
	if !scope.Valid() {
		return response.BadRequest(c, "Unknown summary scope")
	}
	if input.ScopeID == "" {
		return response.BadRequest(c, "scope_id is required")
	}

	date := time.Now().UTC()
	if input.Date != "" {
		parsed, err := time.Parse("2006-01-02", input.Date)
		if err != nil {
			return response.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
		}
		date = parsed
	}

	sum, err := h.summaries.Recalculate(c.Context(), scope, input.ScopeID, date)
	if err != nil {
		return response.ServerError(c, "Failed to rebuild summary")
	}
	return response.Success(c, "Summary rebuilt", sum)
}
