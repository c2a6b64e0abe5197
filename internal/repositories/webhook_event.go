package repositories

import (
	"context"
	"errors"
	"time"

	"tipjar/internal/models"

	"gorm.io/gorm"
)

var ErrEventNotFound = errors.New("webhook event not found")

// WebhookEventRepository persists the inbound event audit log. Insert is the
// idempotency gate: the unique index on stripe_event_id decides whether a
// delivery is first or a replay.
type WebhookEventRepository interface {
	Insert(ctx context.Context, event *models.WebhookEvent) (created bool, err error)
	GetByEventID(ctx context.Context, stripeEventID string) (*models.WebhookEvent, error)
	MarkProcessed(ctx context.Context, id string, at time.Time) error
	Unprocessed(ctx context.Context, limit int) ([]models.WebhookEvent, error)
}

type webhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

// Insert stores the event, reporting created=false when the event id has
// already been seen. The duplicate path deliberately carries no error.
func (r *webhookEventRepository) Insert(ctx context.Context, event *models.WebhookEvent) (bool, error) {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *webhookEventRepository) GetByEventID(ctx context.Context, stripeEventID string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	if err := r.db.WithContext(ctx).Where("stripe_event_id = ?", stripeEventID).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

func (r *webhookEventRepository) MarkProcessed(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"processed": true, "processed_at": at}).Error
}

// Unprocessed returns events awaiting operator attention, oldest first.
func (r *webhookEventRepository) Unprocessed(ctx context.Context, limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("processed = ?", false).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}
