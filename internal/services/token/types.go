package token

import (
	"context"
	"time"

	"tipjar/internal/models"
)

// IssueRequest describes a new staff QR token.
type IssueRequest struct {
	StaffID    string
	BusinessID string
	LocationID string
	Kind       models.TokenKind
	ShiftID    string
	ValidFor   time.Duration // SHIFT tokens only; defaults to DefaultShiftWindow
	MaxScans   *int
}

// AuthorizedToken binds a consumed scan to the staff identity it authorizes
// tipping for. It is the only way a tip creation learns who the recipient is.
type AuthorizedToken struct {
	TokenID    string
	StaffID    string
	BusinessID string
	LocationID string
}

// Service is the token authority: it owns creation, validation and
// scan-count/expiry enforcement for staff QR tokens.
type Service interface {
	Issue(ctx context.Context, req IssueRequest) (*models.QRToken, error)
	Authorize(ctx context.Context, tokenString string, now time.Time) (*AuthorizedToken, error)
	Revoke(ctx context.Context, tokenID string) error
	RevokeAllForStaff(ctx context.Context, staffID string) (int64, error)
	ActiveForStaff(ctx context.Context, staffID string) ([]models.QRToken, error)
}
