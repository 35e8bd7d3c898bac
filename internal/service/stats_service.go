package service

import (
	"context"
	"log/slog"

	"github.com/appgrove/ingest-api/internal/repository"
)

// StatsService answers count-only diagnostics queries over the catalog.
type StatsService struct {
	repos  *repository.Repositories
	logger *slog.Logger
}

// NewStatsService creates a new stats service.
func NewStatsService(repos *repository.Repositories, logger *slog.Logger) *StatsService {
	return &StatsService{repos: repos, logger: logger}
}

// CatalogStats is a point-in-time snapshot of store counts. Computed on
// demand, never stored.
type CatalogStats struct {
	TotalApps       int            `json:"total_apps"`
	TotalCategories int            `json:"total_categories"`
	MatchAttempts   map[string]int `json:"match_attempts"`
}

// GetStats counts apps, categories and match attempts by status.
func (s *StatsService) GetStats(ctx context.Context) (*CatalogStats, error) {
	apps, err := s.repos.App.Count(ctx)
	if err != nil {
		return nil, &StoreError{Op: "count apps", Err: err}
	}

	categories, err := s.repos.Category.List(ctx)
	if err != nil {
		return nil, &StoreError{Op: "list categories", Err: err}
	}

	attempts, err := s.repos.MatchAttempt.CountByStatus(ctx)
	if err != nil {
		return nil, &StoreError{Op: "count match attempts", Err: err}
	}

	return &CatalogStats{
		TotalApps:       apps,
		TotalCategories: len(categories),
		MatchAttempts:   attempts,
	}, nil
}
