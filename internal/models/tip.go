package models

import (
	"time"

	apperrors "tipjar/internal/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TipStatus is the payment state of a tip. Transition legality is enforced
// centrally through CanTransitionTo; repositories must never write a status
// that skips a state or moves backward.
type TipStatus string

const (
	TipStatusPending       TipStatus = "PENDING"
	TipStatusSucceeded     TipStatus = "SUCCEEDED"
	TipStatusFailed        TipStatus = "FAILED"
	TipStatusRefundPending TipStatus = "REFUND_PENDING"
	TipStatusRefunded      TipStatus = "REFUNDED"
)

// tipTransitions is the only definition of the payment state machine:
// PENDING -> SUCCEEDED | FAILED, SUCCEEDED -> REFUND_PENDING -> REFUNDED.
var tipTransitions = map[TipStatus][]TipStatus{
	TipStatusPending:       {TipStatusSucceeded, TipStatusFailed},
	TipStatusSucceeded:     {TipStatusRefundPending},
	TipStatusRefundPending: {TipStatusRefunded, TipStatusSucceeded},
}

// CanTransitionTo reports whether moving from s to next is a legal transition.
// The REFUND_PENDING -> SUCCEEDED edge exists only as the rollback path when
// the external refund call fails.
func (s TipStatus) CanTransitionTo(next TipStatus) bool {
	for _, allowed := range tipTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s TipStatus) Terminal() bool {
	return len(tipTransitions[s]) == 0
}

func (s TipStatus) String() string {
	return string(s)
}

// Tip is an immutable tip transaction record. After creation only Status and
// SucceededAt may change; every other column is omitted from update statements
// at the repository layer.
type Tip struct {
	ID              string          `gorm:"primarykey;size:36"`
	StaffID         string          `gorm:"size:36;not null;index:idx_tips_staff_created"`
	BusinessID      string          `gorm:"size:36;not null;index"`
	LocationID      string          `gorm:"size:36;index"`
	QRTokenID       string          `gorm:"size:36;not null;index"`
	Amount          decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Currency        string          `gorm:"size:3;not null;default:'GBP'"`
	PaymentIntentID string          `gorm:"size:255;uniqueIndex;not null"`
	IdempotencyKey  string          `gorm:"size:255;uniqueIndex;not null"`
	Status          TipStatus       `gorm:"size:20;not null;default:'PENDING';index"`
	CustomerName    string          `gorm:"size:200"`
	CustomerEmail   string          `gorm:"size:254"`
	Message         string
	Metadata        JSON      `gorm:"type:jsonb"`
	CreatedAt       time.Time `gorm:"index:idx_tips_staff_created"`
	SucceededAt     *time.Time

	// ClientSecret is returned by the processor when the charge is opened and
	// is handed to the customer to confirm payment. It is never persisted.
	ClientSecret string `gorm:"-"`
}

func (t *Tip) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// BeforeUpdate rejects any update statement that names an immutable column.
// Transition updates only ever carry status and succeeded_at, so this hook is
// a backstop against future callers, not a diff-and-compare on every save.
func (t *Tip) BeforeUpdate(tx *gorm.DB) error {
	if tx.Statement.Changed("Amount", "StaffID", "BusinessID", "LocationID",
		"QRTokenID", "Currency", "PaymentIntentID", "IdempotencyKey") {
		return apperrors.ErrImmutableField
	}
	return nil
}
