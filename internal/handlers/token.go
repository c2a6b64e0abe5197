package handlers

import (
	"time"

	"tipjar/internal/models"
	"tipjar/internal/services/token"
	"tipjar/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// TokenHandler exposes the staff QR token management API. Callers are
// authenticated by the auth middleware; per-route permissions are checked in
// the route setup.
type TokenHandler struct {
	tokens token.Service
}

func NewTokenHandler(tokenSvc token.Service) *TokenHandler {
	return &TokenHandler{tokens: tokenSvc}
}

func (h *TokenHandler) Issue(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*models.StaffClaims)

	var input struct {
		StaffID      string `json:"staff_id"`
		LocationID   string `json:"location_id"`
		Kind         string `json:"kind"`
		ShiftID      string `json:"shift_id"`
		ValidForMins int    `json:"valid_for_minutes"`
		MaxScans     *int   `json:"max_scans"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}

	// Staff issue tokens for themselves; managers may issue for anyone in
	// their business.
	staffID := claims.StaffID
	if input.StaffID != "" && input.StaffID != claims.StaffID {
		if !claims.HasPermission(models.PermissionStaffManage) {
			return response.Error(c, fiber.StatusForbidden, "Cannot issue tokens for other staff")
		}
		staffID = input.StaffID
	}

	kind := models.TokenKind(input.Kind)
	if !kind.Valid() {
		return response.BadRequest(c, "Unknown token kind")
	}
	if input.MaxScans != nil && *input.MaxScans < 1 {
		return response.BadRequest(c, "max_scans must be at least 1")
	}

	locationID := input.LocationID
	if locationID == "" {
		locationID = claims.LocationID
	}

	tok, err := h.tokens.Issue(c.Context(), token.IssueRequest{
		StaffID:    staffID,
		BusinessID: claims.BusinessID,
		LocationID: locationID,
		Kind:       kind,
		ShiftID:    input.ShiftID,
		ValidFor:   time.Duration(input.ValidForMins) * time.Minute,
		MaxScans:   input.MaxScans,
	})
	if err != nil {
		return response.ServerError(c, "Failed to issue token")
	}

	return response.Success(c, "Token issued", tok)
}

func (h *TokenHandler) List(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*models.StaffClaims)

	staffID := c.Query("staff_id", claims.StaffID)
	if staffID != claims.StaffID && !claims.HasPermission(models.PermissionStaffManage) {
		return response.Error(c, fiber.StatusForbidden, "Cannot list tokens for other staff")
	}

	tokens, err := h.tokens.ActiveForStaff(c.Context(), staffID)
	if err != nil {
		return response.ServerError(c, "Failed to list tokens")
	}
	return response.Success(c, "Active tokens", fiber.Map{
		"tokens": tokens,
		"count":  len(tokens),
	})
}

func (h *TokenHandler) Revoke(c *fiber.Ctx) error {
	tokenID := c.Params("id")
	if tokenID == "" {
		return response.BadRequest(c, "Token ID is required")
	}

	// Revocation is idempotent, so an unknown or already revoked token still
	// answers success.
	if err := h.tokens.Revoke(c.Context(), tokenID); err != nil {
		return response.ServerError(c, "Failed to revoke token")
	}
	return response.Success(c, "Token revoked", nil)
}

// DeactivateStaff kills every active token a staff member holds in one
// statement, for offboarding or lost devices. Scans racing the revocation
// lose: the consume update requires active=true.
func (h *TokenHandler) DeactivateStaff(c *fiber.Ctx) error {
	staffID := c.Params("id")
	if staffID == "" {
		return response.BadRequest(c, "Staff ID is required")
	}

	revoked, err := h.tokens.RevokeAllForStaff(c.Context(), staffID)
	if err != nil {
		return response.ServerError(c, "Failed to deactivate staff tokens")
	}
	return response.Success(c, "Staff tokens deactivated", fiber.Map{
		"revoked_count": revoked,
	})
}
