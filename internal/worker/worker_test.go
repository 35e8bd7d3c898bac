package worker

import (
	"context"
	"database/sql"
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
	"github.com/appgrove/ingest-api/internal/service"
)

type fakeSearcher struct {
	results map[string][]itunes.Result
}

func (f *fakeSearcher) Search(_ context.Context, term string) (*itunes.SearchResponse, []byte, error) {
	results := f.results[term]
	return &itunes.SearchResponse{ResultCount: len(results), Results: results}, []byte(`{}`), nil
}

func setupWorker(t *testing.T, searcher service.StoreSearcher) (*Worker, *repository.Repositories) {
	t.Helper()

	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := migrations.Run(db, nil); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repos := repository.NewRepositories(db)
	cfg := &config.Config{
		MatchMinConfidence: 0.3,
		MatchAutoApply:     0.8,
		MatchNameWeight:    0.7,
	}
	logger := slog.New(slog.DiscardHandler)
	matchSvc := service.NewMatchService(cfg, repos, searcher, logger)
	w := New(repos.App, matchSvc, Config{Concurrency: 2, BatchSize: 10}, logger)
	return w, repos
}

func insertApp(t *testing.T, repos *repository.Repositories, sourceURL, name, developer string) *models.App {
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
		t.Fatalf("failed to insert app: %v", err)
	}
	return app
}

func TestRunPassMatchesBatch(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]itunes.Result{
		"PixelPress": {{
			TrackID:      1,
			TrackName:    "PixelPress",
			TrackViewURL: "https://apps.apple.com/us/app/id1",
			ArtistName:   "Fjord Software",
		}},
	}}
	w, repos := setupWorker(t, searcher)
	ctx := context.Background()

	hit := insertApp(t, repos, "https://example.com/app/pp", "PixelPress", "Fjord Software")
	miss := insertApp(t, repos, "https://example.com/app/none", "Nothing Here", "Nobody")

	w.runPass(ctx)

	got, _ := repos.App.GetByID(ctx, hit.ID)
	if !got.IsOnMAS || got.MASID != "1" {
		t.Errorf("hit app = %+v", got)
	}

	attempt, _ := repos.MatchAttempt.GetByAppID(ctx, miss.ID)
	if attempt == nil || attempt.Status != models.MatchStatusFailed {
		t.Errorf("miss attempt = %+v", attempt)
	}

	// Both apps resolved: the next pass has nothing to do.
	unmatched, _ := repos.App.ListUnmatched(ctx, 10)
	if len(unmatched) != 0 {
		t.Errorf("unmatched after pass = %d", len(unmatched))
	}
}

func TestStartStop(t *testing.T) {
	w, _ := setupWorker(t, &fakeSearcher{})
	w.pollInterval = 10 * time.Millisecond

	w.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	w.Stop()
}
