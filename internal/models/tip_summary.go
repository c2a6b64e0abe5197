package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SummaryScope is the aggregation level of a TipSummary row.
type SummaryScope string

const (
	ScopeBusiness SummaryScope = "business"
	ScopeLocation SummaryScope = "location"
	ScopeStaff    SummaryScope = "staff"
)

func (s SummaryScope) Valid() bool {
	switch s {
	case ScopeBusiness, ScopeLocation, ScopeStaff:
		return true
	}
	return false
}

// TipSummary is a derived daily rollup of settled tips. It is never the source
// of truth: any row can be rebuilt from the tips table at any time, and the
// aggregator replaces rows wholesale rather than patching them incrementally.
type TipSummary struct {
	ID        string          `gorm:"primarykey;size:36"`
	Scope     SummaryScope    `gorm:"size:20;not null;uniqueIndex:idx_summary_key"`
	ScopeID   string          `gorm:"size:36;not null;uniqueIndex:idx_summary_key"`
	Date      string          `gorm:"size:10;not null;uniqueIndex:idx_summary_key;index"`
	TotalTips decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TipCount  int             `gorm:"not null;default:0"`
	Currency  string          `gorm:"size:3;not null;default:'GBP'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *TipSummary) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// SummaryDate formats t in the canonical YYYY-MM-DD key used by the
// tip_summaries table and the redis cache.
func SummaryDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
