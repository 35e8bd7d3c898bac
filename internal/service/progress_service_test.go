package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/appgrove/ingest-api/internal/models"
	"github.com/appgrove/ingest-api/internal/repository"
)

func insertSession(t *testing.T, repos *repository.Repositories, categoryID string, page int, status models.SessionStatus, at time.Time) {
	t.Helper()
	s := &models.ImportSession{
		ID:         ulid.Make().String(),
		CategoryID: categoryID,
		Name:       models.PageName(page),
		PageNumber: page,
		Status:     status,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	if err := repos.ImportSession.Create(context.Background(), s); err != nil {
		t.Fatalf("failed to insert session: %v", err)
	}
}

func TestGetCategoryProgress(t *testing.T) {
	repos := setupTestRepos(t)
	svc := NewProgressService(repos, testLogger())
	ctx := context.Background()

	cat, err := repos.Category.GetOrCreateByURL(ctx, "Graphics & Design", "https://example.com/category/graphics")
	if err != nil {
		t.Fatalf("category: %v", err)
	}

	base := time.Now().UTC().Add(-time.Hour)
	insertSession(t, repos, cat.ID, 1, models.SessionStatusImported, base)
	insertSession(t, repos, cat.ID, 2, models.SessionStatusImported, base.Add(time.Minute))
	insertSession(t, repos, cat.ID, 3, models.SessionStatusScraped, base.Add(2*time.Minute))
	insertSession(t, repos, cat.ID, 4, models.SessionStatusScraped, base.Add(3*time.Minute))

	progress, err := svc.GetCategoryProgress(ctx, cat.URL)
	if err != nil {
		t.Fatalf("GetCategoryProgress: %v", err)
	}
	if progress.TotalPages != 4 || progress.PagesScraped != 4 {
		t.Errorf("progress = %+v", progress)
	}
	if progress.PagesImported != 2 || progress.PagesPending != 2 {
		t.Errorf("progress = %+v", progress)
	}
	if progress.NextPageToScrape != 5 {
		t.Errorf("next page to scrape = %d", progress.NextPageToScrape)
	}
	if progress.NextPageToImport != 3 {
		t.Errorf("next page to import = %d", progress.NextPageToImport)
	}
	if progress.CategoryName != "Graphics & Design" {
		t.Errorf("category name = %q", progress.CategoryName)
	}
}

func TestGetCategoryProgressNoSessions(t *testing.T) {
	repos := setupTestRepos(t)
	svc := NewProgressService(repos, testLogger())
	ctx := context.Background()

	cat, err := repos.Category.GetOrCreateByURL(ctx, "Empty", "https://example.com/category/empty")
	if err != nil {
		t.Fatalf("category: %v", err)
	}

	progress, err := svc.GetCategoryProgress(ctx, cat.URL)
	if err != nil {
		t.Fatalf("GetCategoryProgress: %v", err)
	}
	if progress.TotalPages != 0 || progress.NextPageToScrape != 1 || progress.NextPageToImport != 0 {
		t.Errorf("progress = %+v", progress)
	}
}

func TestGetCategoryProgressDerivesPageFromName(t *testing.T) {
	repos := setupTestRepos(t)
	svc := NewProgressService(repos, testLogger())
	ctx := context.Background()

	cat, err := repos.Category.GetOrCreateByURL(ctx, "Legacy", "https://example.com/category/legacy")
	if err != nil {
		t.Fatalf("category: %v", err)
	}

	// Rows written by older tooling carry the page number only in the
	// "Page <N>" name; the column may be unset.
	s := &models.ImportSession{
		ID:         ulid.Make().String(),
		CategoryID: cat.ID,
		Name:       "Page 7",
		Status:     models.SessionStatusScraped,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	if err := repos.ImportSession.Create(ctx, s); err != nil {
		t.Fatalf("failed to insert session: %v", err)
	}

	progress, err := svc.GetCategoryProgress(ctx, cat.URL)
	if err != nil {
		t.Fatalf("GetCategoryProgress: %v", err)
	}
	if progress.NextPageToScrape != 8 {
		t.Errorf("next page to scrape = %d, want 8", progress.NextPageToScrape)
	}
	if progress.NextPageToImport != 7 {
		t.Errorf("next page to import = %d, want 7", progress.NextPageToImport)
	}
}

func TestGetCategoryProgressUnknownCategory(t *testing.T) {
	repos := setupTestRepos(t)
	svc := NewProgressService(repos, testLogger())

	_, err := svc.GetCategoryProgress(context.Background(), "https://example.com/category/nope")
	var nfe *NotFoundError
	if !errors.As(err, &nfe) {
		t.Fatalf("error = %v, want *NotFoundError", err)
	}
}
