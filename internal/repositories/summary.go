package repositories

import (
	"context"
	"errors"

	"tipjar/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrSummaryNotFound = errors.New("tip summary not found")

// SummaryRepository stores the derived daily rollups. Upsert replaces the
// whole row in one statement so readers never observe a partial rebuild.
type SummaryRepository interface {
	Upsert(ctx context.Context, summary *models.TipSummary) error
	Get(ctx context.Context, scope models.SummaryScope, scopeID, date string) (*models.TipSummary, error)
}

type summaryRepository struct {
	db *gorm.DB
}

func NewSummaryRepository(db *gorm.DB) SummaryRepository {
	return &summaryRepository{db: db}
}

func (r *summaryRepository) Upsert(ctx context.Context, summary *models.TipSummary) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}, {Name: "scope_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_tips", "tip_count", "currency", "updated_at"}),
	}).Create(summary).Error
}

func (r *summaryRepository) Get(ctx context.Context, scope models.SummaryScope, scopeID, date string) (*models.TipSummary, error) {
	var summary models.TipSummary
	err := r.db.WithContext(ctx).
		Where("scope = ? AND scope_id = ? AND date = ?", scope, scopeID, date).
		First(&summary).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSummaryNotFound
		}
		return nil, err
	}
	return &summary, nil
}
