package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TokenKind classifies how long a staff QR token stays authorizable.
type TokenKind string

const (
	TokenKindShift      TokenKind = "SHIFT"      // bounded to a single shift window
	TokenKindDaily      TokenKind = "DAILY"      // expires at end of day
	TokenKindPersistent TokenKind = "PERSISTENT" // no expiry, revoked explicitly
)

func (k TokenKind) Valid() bool {
	switch k {
	case TokenKindShift, TokenKindDaily, TokenKindPersistent:
		return true
	}
	return false
}

// QRToken is a scannable token entitling its presenter to start a tip payment
// for the owning staff member. Tokens are never deleted; revocation flips
// Active so the full history stays available for audit.
type QRToken struct {
	ID            string     `gorm:"primarykey;size:36"`
	Token         string     `gorm:"size:64;uniqueIndex;not null"`
	StaffID       string     `gorm:"size:36;not null;index"`
	BusinessID    string     `gorm:"size:36;not null;index"`
	LocationID    string     `gorm:"size:36;index"`
	Kind          TokenKind  `gorm:"size:20;not null"`
	ShiftID       string     `gorm:"size:100"`
	ValidFrom     time.Time  `gorm:"not null"`
	ValidUntil    *time.Time `gorm:"index"`
	ScanCount     int        `gorm:"not null;default:0"`
	MaxScans      *int
	Active        bool `gorm:"not null;default:true;index"`
	CreatedAt     time.Time
	LastScannedAt *time.Time
}

func (t *QRToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Authorizable reports whether the token can accept a scan at now. It is a
// read-side check only; the authoritative guard is the conditional update in
// the token repository.
func (t *QRToken) Authorizable(now time.Time) bool {
	if !t.Active {
		return false
	}
	if now.Before(t.ValidFrom) {
		return false
	}
	if t.ValidUntil != nil && !now.Before(*t.ValidUntil) {
		return false
	}
	if t.MaxScans != nil && t.ScanCount >= *t.MaxScans {
		return false
	}
	return true
}
