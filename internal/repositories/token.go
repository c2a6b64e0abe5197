package repositories

import (
	"context"
	"errors"
	"time"

	"tipjar/internal/models"

	"gorm.io/gorm"
)

var ErrTokenNotFound = errors.New("qr token not found")

// TokenRepository is the store behind the token authority. Scan consumption
// must be a single conditional update so concurrent scans of the same token
// are linearized by the database.
type TokenRepository interface {
	Create(ctx context.Context, token *models.QRToken) error
	GetByID(ctx context.Context, id string) (*models.QRToken, error)
	GetByToken(ctx context.Context, token string) (*models.QRToken, error)
	ConsumeScan(ctx context.Context, id string, observedCount int, deactivate bool, now time.Time) (bool, error)
	Deactivate(ctx context.Context, id string) error
	DeactivateAllForStaff(ctx context.Context, staffID string) (int64, error)
	ActiveForStaff(ctx context.Context, staffID string, now time.Time) ([]models.QRToken, error)
}

type tokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, token *models.QRToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *tokenRepository) GetByID(ctx context.Context, id string) (*models.QRToken, error) {
	var token models.QRToken
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

func (r *tokenRepository) GetByToken(ctx context.Context, tokenString string) (*models.QRToken, error) {
	var token models.QRToken
	if err := r.db.WithContext(ctx).Where("token = ?", tokenString).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

// ConsumeScan increments the scan counter, guarded by the count the caller
// observed. The WHERE clause makes the increment-and-check a single atomic
// read-modify-write: if a concurrent scan got there first (or the token was
// revoked in between) zero rows match and the caller must re-read the row.
// When deactivate is set the same statement flips the token inactive, so the
// final allowed scan and the deactivation commit together.
func (r *tokenRepository) ConsumeScan(ctx context.Context, id string, observedCount int, deactivate bool, now time.Time) (bool, error) {
	updates := map[string]interface{}{
		"scan_count":      gorm.Expr("scan_count + 1"),
		"last_scanned_at": now,
	}
	if deactivate {
		updates["active"] = false
	}

	res := r.db.WithContext(ctx).Model(&models.QRToken{}).
		Where("id = ? AND scan_count = ? AND active = ?", id, observedCount, true).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *tokenRepository) Deactivate(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&models.QRToken{}).
		Where("id = ?", id).
		Update("active", false).Error
}

func (r *tokenRepository) DeactivateAllForStaff(ctx context.Context, staffID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.QRToken{}).
		Where("staff_id = ? AND active = ?", staffID, true).
		Update("active", false)
	return res.RowsAffected, res.Error
}

func (r *tokenRepository) ActiveForStaff(ctx context.Context, staffID string, now time.Time) ([]models.QRToken, error) {
	var tokens []models.QRToken
	err := r.db.WithContext(ctx).
		Where("staff_id = ? AND active = ?", staffID, true).
		Where("valid_until IS NULL OR valid_until > ?", now).
		Order("created_at DESC").
		Find(&tokens).Error
	return tokens, err
}
