package service

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"

	"github.com/appgrove/ingest-api/internal/models"
)

func TestGetStats(t *testing.T) {
	repos := setupTestRepos(t)
	svc := NewStatsService(repos, testLogger())
	ctx := context.Background()

	appA := insertTestApp(t, repos, "https://example.com/app/a", "A", "Dev")
	insertTestApp(t, repos, "https://example.com/app/b", "B", "Dev")
	if _, err := repos.Category.GetOrCreateByURL(ctx, "Utilities", "https://example.com/category/utilities"); err != nil {
		t.Fatalf("GetOrCreateByURL: %v", err)
	}
	attempt := &models.MatchAttempt{
		ID:         ulid.Make().String(),
		AppID:      appA.ID,
		SearchTerm: "A",
		Status:     models.MatchStatusFailed,
	}
	if err := repos.MatchAttempt.Upsert(ctx, attempt); err != nil {
		t.Fatalf("Upsert attempt: %v", err)
	}

	stats, err := svc.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalApps != 2 {
		t.Errorf("TotalApps = %d, want 2", stats.TotalApps)
	}
	if stats.TotalCategories != 1 {
		t.Errorf("TotalCategories = %d, want 1", stats.TotalCategories)
	}
	if stats.MatchAttempts[string(models.MatchStatusFailed)] != 1 {
		t.Errorf("MatchAttempts = %v", stats.MatchAttempts)
	}
}

func TestGetStatsEmptyStore(t *testing.T) {
	repos := setupTestRepos(t)
	svc := NewStatsService(repos, testLogger())

	stats, err := svc.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalApps != 0 || stats.TotalCategories != 0 || len(stats.MatchAttempts) != 0 {
		t.Errorf("stats = %+v, want all zero", stats)
	}
}
