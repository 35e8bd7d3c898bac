package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/appgrove/ingest-api/internal/config"
	"github.com/appgrove/ingest-api/internal/database/migrations"
	"github.com/appgrove/ingest-api/internal/itunes"
	"github.com/appgrove/ingest-api/internal/models"
	"github.com/appgrove/ingest-api/internal/repository"
	"github.com/appgrove/ingest-api/internal/scrape"
)

func testConfig() *config.Config {
	return &config.Config{
		PreviewLimit:       3,
		ImportBudget:       25 * time.Second,
		MatchMinConfidence: 0.3,
		MatchAutoApply:     0.8,
		MatchNameWeight:    0.7,
	}
}

func setupTestRepos(t *testing.T) *repository.Repositories {
	t.Helper()

	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}
	if err := migrations.Run(db, nil); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	return repository.NewRepositories(db)
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func insertTestApp(t *testing.T, repos *repository.Repositories, sourceURL, name, developer string) *models.App {
	t.Helper()
	now := time.Now().UTC()
	app := &models.App{
		ID:        ulid.Make().String(),
		SourceURL: sourceURL,
		Name:      name,
		Developer: developer,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repos.App.Create(context.Background(), app); err != nil {
		t.Fatalf("failed to insert test app: %v", err)
	}
	return app
}

// fakeSearcher serves canned results per search term.
type fakeSearcher struct {
	results map[string][]itunes.Result
	err     error
	calls   int
}

func (f *fakeSearcher) Search(_ context.Context, term string) (*itunes.SearchResponse, []byte, error) {
	f.calls++
	if f.err != nil {
		return nil, nil, f.err
	}
	results := f.results[term]
	resp := &itunes.SearchResponse{ResultCount: len(results), Results: results}
	return resp, []byte(fmt.Sprintf(`{"resultCount":%d}`, len(results))), nil
}

// fakeFetcher serves canned listing pages keyed by page number and item
// documents keyed by URL.
type fakeFetcher struct {
	pages map[int]*scrape.ListingPage
	docs  map[string]string
	errs  map[int]error
}

func (f *fakeFetcher) FetchListingPage(_ context.Context, categoryURL string, page int) (*scrape.ListingPage, error) {
	if err := f.errs[page]; err != nil {
		return nil, err
	}
	if p, ok := f.pages[page]; ok {
		return p, nil
	}
	return &scrape.ListingPage{URL: scrape.PageURL(categoryURL, page)}, nil
}

func (f *fakeFetcher) FetchDocument(_ context.Context, rawURL string) (string, error) {
	doc, ok := f.docs[rawURL]
	if !ok {
		return "", &scrape.FetchError{URL: rawURL, StatusCode: 404, Err: fmt.Errorf("not found")}
	}
	return doc, nil
}
