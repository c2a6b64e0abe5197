package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "tipjar/internal/errors"
	"tipjar/internal/models"
	"tipjar/internal/repositories"
	"tipjar/internal/utils"
)

// DefaultShiftWindow is the validity window of a SHIFT token when the caller
// does not specify one.
const DefaultShiftWindow = 8 * time.Hour

type service struct {
	repo repositories.TokenRepository
}

// NewService creates a new token authority service
func NewService(repo repositories.TokenRepository) Service {
	if repo == nil {
		panic("repo is required")
	}
	return &service{repo: repo}
}

func (s *service) Issue(ctx context.Context, req IssueRequest) (*models.QRToken, error) {
	if req.StaffID == "" {
		return nil, errors.New("staff ID is required")
	}
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("invalid token kind: %s", req.Kind)
	}
	if req.MaxScans != nil && *req.MaxScans < 1 {
		return nil, errors.New("max scans must be at least 1")
	}

	now := time.Now().UTC()
	token := &models.QRToken{
		Token:      utils.MustGenerateSecureCode(),
		StaffID:    req.StaffID,
		BusinessID: req.BusinessID,
		LocationID: req.LocationID,
		Kind:       req.Kind,
		ShiftID:    req.ShiftID,
		ValidFrom:  now,
		MaxScans:   req.MaxScans,
		Active:     true,
	}

	switch req.Kind {
	case models.TokenKindShift:
		window := req.ValidFor
		if window <= 0 {
			window = DefaultShiftWindow
		}
		until := now.Add(window)
		token.ValidUntil = &until
	case models.TokenKindDaily:
		until := endOfDay(now)
		token.ValidUntil = &until
	case models.TokenKindPersistent:
		// no expiry, revoked explicitly
	}

	if err := s.repo.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}
	return token, nil
}

// Authorize consumes one scan of the token. The loop re-reads and retries
// whenever the conditional update loses a race; every lost race means another
// scan committed, so the loop terminates once the token's remaining capacity
// is consumed and the fresh read reports the definitive error.
func (s *service) Authorize(ctx context.Context, tokenString string, now time.Time) (*AuthorizedToken, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tok, err := s.repo.GetByToken(ctx, tokenString)
		if err != nil {
			if errors.Is(err, repositories.ErrTokenNotFound) {
				return nil, apperrors.ErrTokenNotFound
			}
			return nil, fmt.Errorf("failed to look up token: %w", err)
		}

		if err := validate(tok, now); err != nil {
			return nil, err
		}

		// Deactivation rides in the same statement as the final scan.
		deactivate := tok.MaxScans != nil && tok.ScanCount+1 >= *tok.MaxScans

		ok, err := s.repo.ConsumeScan(ctx, tok.ID, tok.ScanCount, deactivate, now)
		if err != nil {
			return nil, fmt.Errorf("failed to consume scan: %w", err)
		}
		if !ok {
			// Lost the race against a concurrent scan or a revocation.
			continue
		}

		return &AuthorizedToken{
			TokenID:    tok.ID,
			StaffID:    tok.StaffID,
			BusinessID: tok.BusinessID,
			LocationID: tok.LocationID,
		}, nil
	}
}

func validate(tok *models.QRToken, now time.Time) error {
	// Limit before active: capped tokens are auto-deactivated by their final
	// scan, and an exhausted token should report the limit, not the
	// deactivation it caused.
	if tok.MaxScans != nil && tok.ScanCount >= *tok.MaxScans {
		return apperrors.ErrScanLimitReached
	}
	if !tok.Active {
		return apperrors.ErrTokenInactive
	}
	if now.Before(tok.ValidFrom) {
		return apperrors.ErrTokenExpired
	}
	if tok.ValidUntil != nil && !now.Before(*tok.ValidUntil) {
		return apperrors.ErrTokenExpired
	}
	return nil
}

func (s *service) Revoke(ctx context.Context, tokenID string) error {
	// Idempotent: revoking an already inactive token is a no-op.
	return s.repo.Deactivate(ctx, tokenID)
}

func (s *service) RevokeAllForStaff(ctx context.Context, staffID string) (int64, error) {
	revoked, err := s.repo.DeactivateAllForStaff(ctx, staffID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke tokens for staff %s: %w", staffID, err)
	}
	return revoked, nil
}

func (s *service) ActiveForStaff(ctx context.Context, staffID string) ([]models.QRToken, error) {
	return s.repo.ActiveForStaff(ctx, staffID, time.Now().UTC())
}

func endOfDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
