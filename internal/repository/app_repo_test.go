package repository

import (
	"context"
	"testing"
	"time"

	"github.com/appgrove/ingest-api/internal/models"
)

func TestAppCreateAndGet(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	app := newTestApp("https://example.com/app/pixelpress", "PixelPress")
	app.SizeBytes = 1048576
	app.ScreenshotURLs = []string{"https://cdn.example.com/1.png", "https://cdn.example.com/2.png"}

	if err := repos.App.Create(ctx, app); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repos.App.GetBySourceURL(ctx, app.SourceURL)
	if err != nil {
		t.Fatalf("GetBySourceURL: %v", err)
	}
	if got == nil {
		t.Fatal("expected app, got nil")
	}
	if got.Name != "PixelPress" || got.SizeBytes != 1048576 {
		t.Errorf("got %+v", got)
	}
	if len(got.ScreenshotURLs) != 2 {
		t.Errorf("screenshot urls = %v", got.ScreenshotURLs)
	}

	missing, err := repos.App.GetBySourceURL(ctx, "https://example.com/app/missing")
	if err != nil {
		t.Fatalf("GetBySourceURL missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing app, got %+v", missing)
	}
}

func TestAppUpsertRefreshesScrapedFields(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	app := newTestApp("https://example.com/app/vectornaut", "Vectornaut")
	created, err := repos.App.Upsert(ctx, app)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !created {
		t.Error("first upsert should create")
	}

	// Mark the app matched, then re-scrape with new scraped values.
	stored, _ := repos.App.GetBySourceURL(ctx, app.SourceURL)
	now := time.Now().UTC()
	stored.MASID = "123"
	stored.MASURL = "https://apps.apple.com/us/app/id123"
	stored.IsOnMAS = true
	stored.MatchedAt = &now
	if err := repos.App.UpdateMASFields(ctx, stored); err != nil {
		t.Fatalf("UpdateMASFields: %v", err)
	}

	rescrape := newTestApp(app.SourceURL, "Vectornaut Pro")
	rescrape.Version = "3.1"
	created, err = repos.App.Upsert(ctx, rescrape)
	if err != nil {
		t.Fatalf("Upsert rescrape: %v", err)
	}
	if created {
		t.Error("second upsert should update, not create")
	}

	got, _ := repos.App.GetBySourceURL(ctx, app.SourceURL)
	if got.Name != "Vectornaut Pro" || got.Version != "3.1" {
		t.Errorf("scraped fields not refreshed: %+v", got)
	}
	// Match state survives the re-scrape.
	if got.MASID != "123" || !got.IsOnMAS || got.MatchedAt == nil {
		t.Errorf("MAS fields lost on upsert: %+v", got)
	}

	if n, _ := repos.App.Count(ctx); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestAppUpdateMASFieldsMissingApp(t *testing.T) {
	repos := setupTestRepos(t)

	app := newTestApp("https://example.com/app/ghost", "Ghost")
	if err := repos.App.UpdateMASFields(context.Background(), app); err == nil {
		t.Fatal("expected error for missing app")
	}
}

func TestAppExistingSourceURLs(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	a := newTestApp("https://example.com/app/a", "A")
	b := newTestApp("https://example.com/app/b", "B")
	for _, app := range []*models.App{a, b} {
		if err := repos.App.Create(ctx, app); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	existing, err := repos.App.ExistingSourceURLs(ctx, []string{
		a.SourceURL, b.SourceURL, "https://example.com/app/c",
	})
	if err != nil {
		t.Fatalf("ExistingSourceURLs: %v", err)
	}
	if len(existing) != 2 || !existing[a.SourceURL] || !existing[b.SourceURL] {
		t.Errorf("existing = %v", existing)
	}

	empty, err := repos.App.ExistingSourceURLs(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty query: %v, %v", empty, err)
	}
}

func TestAppListUnmatched(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	matched := newTestApp("https://example.com/app/matched", "Matched")
	pending := newTestApp("https://example.com/app/pending", "Pending")
	tried := newTestApp("https://example.com/app/tried", "Tried")
	for _, app := range []*models.App{matched, pending, tried} {
		if err := repos.App.Create(ctx, app); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	confirm := &models.MatchAttempt{
		ID: "attempt-1", AppID: matched.ID, SearchTerm: "Matched",
		Confidence: 0.95, Status: models.MatchStatusConfirmed,
	}
	if err := repos.MatchAttempt.Upsert(ctx, confirm); err != nil {
		t.Fatalf("Upsert attempt: %v", err)
	}
	// A 'found' attempt means the write never landed; the app stays eligible.
	found := &models.MatchAttempt{
		ID: "attempt-2", AppID: tried.ID, SearchTerm: "Tried",
		Confidence: 0.9, Status: models.MatchStatusFound,
	}
	if err := repos.MatchAttempt.Upsert(ctx, found); err != nil {
		t.Fatalf("Upsert attempt: %v", err)
	}

	unmatched, err := repos.App.ListUnmatched(ctx, 10)
	if err != nil {
		t.Fatalf("ListUnmatched: %v", err)
	}
	ids := make(map[string]bool)
	for _, a := range unmatched {
		ids[a.ID] = true
	}
	if ids[matched.ID] {
		t.Error("confirmed app should not be listed")
	}
	if !ids[pending.ID] || !ids[tried.ID] {
		t.Errorf("unmatched = %v", ids)
	}
}

func TestAppDelete(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	app := newTestApp("https://example.com/app/doomed", "Doomed")
	if err := repos.App.Create(ctx, app); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repos.App.Delete(ctx, app.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := repos.App.GetByID(ctx, app.ID)
	if err != nil || got != nil {
		t.Errorf("after delete: %v, %v", got, err)
	}
}
