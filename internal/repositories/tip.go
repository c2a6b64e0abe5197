package repositories

import (
	"context"
	"errors"
	"time"

	"tipjar/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrTipNotFound  = errors.New("tip not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

// TipAggregate is the raw rollup of settled tips for one scope and day.
type TipAggregate struct {
	Total decimal.Decimal
	Count int64
}

// TipRepository is the ledger store. Status changes go exclusively through
// UpdateStatus, which issues a conditional update naming only the status
// columns. Immutability of amount, staff identity and payment_intent_id is a
// property of the update statement, not an application-level diff.
type TipRepository interface {
	Create(ctx context.Context, tip *models.Tip) error
	GetByID(ctx context.Context, id string) (*models.Tip, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Tip, error)
	GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Tip, error)
	UpdateStatus(ctx context.Context, id string, from, to models.TipStatus, succeededAt *time.Time) (bool, error)
	AggregateSucceeded(ctx context.Context, scope models.SummaryScope, scopeID string, dayStart, dayEnd time.Time) (*TipAggregate, error)
	TotalForStaff(ctx context.Context, staffID string, from, to time.Time) (decimal.Decimal, error)
}

type tipRepository struct {
	db *gorm.DB
}

func NewTipRepository(db *gorm.DB) TipRepository {
	return &tipRepository{db: db}
}

func (r *tipRepository) Create(ctx context.Context, tip *models.Tip) error {
	if err := r.db.WithContext(ctx).Create(tip).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (r *tipRepository) GetByID(ctx context.Context, id string) (*models.Tip, error) {
	return r.getBy(ctx, "id = ?", id)
}

func (r *tipRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Tip, error) {
	return r.getBy(ctx, "idempotency_key = ?", key)
}

func (r *tipRepository) GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Tip, error) {
	return r.getBy(ctx, "payment_intent_id = ?", paymentIntentID)
}

func (r *tipRepository) getBy(ctx context.Context, query string, arg interface{}) (*models.Tip, error) {
	var tip models.Tip
	if err := r.db.WithContext(ctx).Where(query, arg).First(&tip).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTipNotFound
		}
		return nil, err
	}
	return &tip, nil
}

// UpdateStatus moves a tip from one status to another. The WHERE clause on
// the current status serializes concurrent transition attempts: out-of-order
// or duplicate provider events lose the race and see zero rows affected.
func (r *tipRepository) UpdateStatus(ctx context.Context, id string, from, to models.TipStatus, succeededAt *time.Time) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, nil
	}

	updates := map[string]interface{}{"status": to}
	if succeededAt != nil {
		updates["succeeded_at"] = succeededAt
	}

	res := r.db.WithContext(ctx).Model(&models.Tip{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *tipRepository) AggregateSucceeded(ctx context.Context, scope models.SummaryScope, scopeID string, dayStart, dayEnd time.Time) (*TipAggregate, error) {
	column, err := scopeColumn(scope)
	if err != nil {
		return nil, err
	}

	var row struct {
		Total decimal.Decimal
		Count int64
	}
	err = r.db.WithContext(ctx).Model(&models.Tip{}).
		Where(column+" = ? AND status = ? AND created_at >= ? AND created_at < ?",
			scopeID, models.TipStatusSucceeded, dayStart, dayEnd).
		Select("COALESCE(SUM(amount), 0) as total, COUNT(*) as count").
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &TipAggregate{Total: row.Total.Round(2), Count: row.Count}, nil
}

func (r *tipRepository) TotalForStaff(ctx context.Context, staffID string, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).Model(&models.Tip{}).
		Where("staff_id = ? AND status = ? AND created_at >= ? AND created_at < ?",
			staffID, models.TipStatusSucceeded, from, to).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total.Round(2), err
}

func scopeColumn(scope models.SummaryScope) (string, error) {
	switch scope {
	case models.ScopeBusiness:
		return "business_id", nil
	case models.ScopeLocation:
		return "location_id", nil
	case models.ScopeStaff:
		return "staff_id", nil
	}
	return "", errors.New("unknown summary scope")
}
