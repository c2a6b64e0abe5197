// Package summary maintains the derived per-business/location/staff daily
// rollups. Rollups are a cache over the tip ledger, rebuilt wholesale and
// never patched incrementally, so concurrent settlements can at worst make a
// rebuild momentarily stale, never wrong.
package summary

import (
	"context"
	"fmt"
	"log"
	"time"

	"tipjar/internal/models"
	"tipjar/internal/repositories"
	"tipjar/internal/repositories/cache"
)

// Service rebuilds and serves tip summaries.
type Service interface {
	Recalculate(ctx context.Context, scope models.SummaryScope, scopeID string, date time.Time) (*models.TipSummary, error)
	GetOrRebuild(ctx context.Context, scope models.SummaryScope, scopeID string, date time.Time) (*models.TipSummary, error)
}

// SummaryConfig holds configuration for the aggregator.
type SummaryConfig struct {
	Currency string
}

type service struct {
	tips      repositories.TipRepository
	summaries repositories.SummaryRepository
	cache     *cache.CacheService
	config    SummaryConfig
}

// NewService creates a new summary aggregator
func NewService(tips repositories.TipRepository, summaries repositories.SummaryRepository, cacheSvc *cache.CacheService, config SummaryConfig) Service {
	if tips == nil {
		panic("tip repo is required")
	}
	if summaries == nil {
		panic("summary repo is required")
	}
	if config.Currency == "" {
		config.Currency = "GBP"
	}
	return &service{tips: tips, summaries: summaries, cache: cacheSvc, config: config}
}

// Recalculate recomputes the rollup strictly from settled ledger rows and
// swaps the stored summary in a single upsert, so readers never observe a
// partial rebuild.
func (s *service) Recalculate(ctx context.Context, scope models.SummaryScope, scopeID string, date time.Time) (*models.TipSummary, error) {
	if !scope.Valid() {
		return nil, fmt.Errorf("invalid summary scope: %s", scope)
	}

	dayStart := date.UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)

	agg, err := s.tips.AggregateSucceeded(ctx, scope, scopeID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate tips: %w", err)
	}

	summary := &models.TipSummary{
		Scope:     scope,
		ScopeID:   scopeID,
		Date:      models.SummaryDate(dayStart),
		TotalTips: agg.Total,
		TipCount:  int(agg.Count),
		Currency:  s.config.Currency,
	}

	if err := s.summaries.Upsert(ctx, summary); err != nil {
		return nil, fmt.Errorf("failed to store summary: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.CacheSummary(ctx, summary); err != nil {
			// Cache failures never fail a rebuild.
			log.Printf("failed to cache summary %s/%s/%s: %v", scope, scopeID, summary.Date, err)
		}
	}

	return summary, nil
}

// GetOrRebuild serves the cached rollup when present and fresh (freshness is
// the cache TTL), otherwise triggers a recalculation.
func (s *service) GetOrRebuild(ctx context.Context, scope models.SummaryScope, scopeID string, date time.Time) (*models.TipSummary, error) {
	dateKey := models.SummaryDate(date)

	if s.cache != nil {
		if cached, err := s.cache.GetSummary(ctx, scope, scopeID, dateKey); err == nil && cached != nil {
			return cached, nil
		}
	}

	return s.Recalculate(ctx, scope, scopeID, date)
}
