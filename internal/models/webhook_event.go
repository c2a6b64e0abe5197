package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payment provider event types the reconciler acts on. Anything else is
// recorded but produces no ledger mutation.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// WebhookEvent is the permanent audit log of inbound payment provider events.
// The unique index on StripeEventID is what makes redelivery idempotent: the
// insert either lands once or reports a duplicate, never both.
type WebhookEvent struct {
	ID            string `gorm:"primarykey;size:36"`
	StripeEventID string `gorm:"size:255;uniqueIndex;not null"`
	EventType     string `gorm:"size:100;not null;index"`
	Payload       JSON   `gorm:"type:jsonb"`
	Processed     bool   `gorm:"not null;default:false;index"`
	ProcessedAt   *time.Time
	CreatedAt     time.Time
}

func (e *WebhookEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
