package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/appgrove/ingest-api/internal/itunes"
	"github.com/appgrove/ingest-api/internal/models"
	"github.com/appgrove/ingest-api/internal/repository"
)

func TestMatchAppAutoApply(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	app := insertTestApp(t, repos, "https://example.com/app/pixelpress", "PixelPress", "Fjord Software")
	searcher := &fakeSearcher{results: map[string][]itunes.Result{
		"PixelPress": {{
			TrackID:      123456789,
			TrackName:    "PixelPress",
			TrackViewURL: "https://apps.apple.com/us/app/pixelpress/id123456789",
			ArtistName:   "Fjord Software",
		}},
	}}
	svc := NewMatchService(testConfig(), repos, searcher, testLogger())

	result, err := svc.MatchApp(ctx, app.ID)
	if err != nil {
		t.Fatalf("MatchApp: %v", err)
	}
	if result.Status != models.MatchStatusConfirmed {
		t.Errorf("status = %s", result.Status)
	}
	if result.Confidence != 1.0 {
		t.Errorf("confidence = %v", result.Confidence)
	}
	if !result.Applied {
		t.Error("expected applied result")
	}

	// The catalog record carries the match; scraped fields are untouched.
	got, _ := repos.App.GetByID(ctx, app.ID)
	if got.MASID != "123456789" || !got.IsOnMAS || got.MatchedAt == nil {
		t.Errorf("app = %+v", got)
	}
	if got.MASURL != "https://apps.apple.com/us/app/pixelpress/id123456789" {
		t.Errorf("mas url = %q", got.MASURL)
	}
	if got.Name != "PixelPress" || got.Developer != "Fjord Software" {
		t.Errorf("scraped fields changed: %+v", got)
	}

	attempt, _ := repos.MatchAttempt.GetByAppID(ctx, app.ID)
	if attempt == nil || attempt.Status != models.MatchStatusConfirmed {
		t.Errorf("attempt = %+v", attempt)
	}
	if attempt.RawResponse == "" {
		t.Error("raw response should be persisted")
	}
}

func TestMatchAppBelowAutoApplyStaysFound(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	// Name containment (0.85) with an unrelated developer (0):
	// 0.7*0.85 = 0.595, above the floor, below auto-apply.
	app := insertTestApp(t, repos, "https://example.com/app/pixelpress", "PixelPress", "Fjord Software")
	searcher := &fakeSearcher{results: map[string][]itunes.Result{
		"PixelPress": {{
			TrackID:      42,
			TrackName:    "PixelPress Pro",
			TrackViewURL: "https://apps.apple.com/us/app/id42",
			ArtistName:   "Unrelated Corp",
		}},
	}}
	svc := NewMatchService(testConfig(), repos, searcher, testLogger())

	result, err := svc.MatchApp(ctx, app.ID)
	if err != nil {
		t.Fatalf("MatchApp: %v", err)
	}
	if result.Status != models.MatchStatusFound {
		t.Errorf("status = %s", result.Status)
	}
	if result.Applied {
		t.Error("match below auto-apply must not be applied")
	}
	if result.Confidence < 0.3 || result.Confidence >= 0.8 {
		t.Errorf("confidence = %v, want in [0.3, 0.8)", result.Confidence)
	}

	// Catalog record untouched.
	got, _ := repos.App.GetByID(ctx, app.ID)
	if got.IsOnMAS || got.MASID != "" || got.MatchedAt != nil {
		t.Errorf("app modified: %+v", got)
	}

	// Attempt keeps the candidate identifiers for review.
	attempt, _ := repos.MatchAttempt.GetByAppID(ctx, app.ID)
	if attempt.Status != models.MatchStatusFound || attempt.MASID != "42" {
		t.Errorf("attempt = %+v", attempt)
	}
}

func TestMatchAppNoResultsFails(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	app := insertTestApp(t, repos, "https://example.com/app/obscure", "Obscure Tool", "Nobody")
	searcher := &fakeSearcher{results: map[string][]itunes.Result{}}
	svc := NewMatchService(testConfig(), repos, searcher, testLogger())

	result, err := svc.MatchApp(ctx, app.ID)
	if err != nil {
		t.Fatalf("MatchApp: %v", err)
	}
	if result.Status != models.MatchStatusFailed {
		t.Errorf("status = %s", result.Status)
	}
	if result.Error == "" {
		t.Error("expected error message")
	}

	got, _ := repos.App.GetByID(ctx, app.ID)
	if got.IsOnMAS {
		t.Error("app must stay unmatched")
	}
}

func TestMatchAppBelowFloorFails(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	app := insertTestApp(t, repos, "https://example.com/app/unique", "Zanzibar Quux", "Fjord Software")
	searcher := &fakeSearcher{results: map[string][]itunes.Result{
		"Zanzibar Quux": {{
			TrackID:      7,
			TrackName:    "Completely Different",
			TrackViewURL: "https://apps.apple.com/us/app/id7",
			ArtistName:   "Someone Else",
		}},
	}}
	svc := NewMatchService(testConfig(), repos, searcher, testLogger())

	result, err := svc.MatchApp(ctx, app.ID)
	if err != nil {
		t.Fatalf("MatchApp: %v", err)
	}
	if result.Status != models.MatchStatusFailed {
		t.Errorf("status = %s, confidence = %v", result.Status, result.Confidence)
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		t.Errorf("confidence out of range: %v", result.Confidence)
	}
}

func TestMatchAppSearchErrorFails(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	app := insertTestApp(t, repos, "https://example.com/app/flaky", "Flaky", "Dev")
	searcher := &fakeSearcher{err: fmt.Errorf("upstream unavailable")}
	svc := NewMatchService(testConfig(), repos, searcher, testLogger())

	result, err := svc.MatchApp(ctx, app.ID)
	if err != nil {
		t.Fatalf("MatchApp: %v", err)
	}
	if result.Status != models.MatchStatusFailed {
		t.Errorf("status = %s", result.Status)
	}

	attempt, _ := repos.MatchAttempt.GetByAppID(ctx, app.ID)
	if attempt.ErrorMessage != "upstream unavailable" {
		t.Errorf("error message = %q", attempt.ErrorMessage)
	}
}

func TestMatchAppUnknownApp(t *testing.T) {
	repos := setupTestRepos(t)
	svc := NewMatchService(testConfig(), repos, &fakeSearcher{}, testLogger())

	_, err := svc.MatchApp(context.Background(), "nope")
	var nfe *NotFoundError
	if !errors.As(err, &nfe) {
		t.Fatalf("error = %v, want *NotFoundError", err)
	}
}

// failingAppRepo makes the narrow catalog write fail.
type failingAppRepo struct {
	repository.AppRepository
}

func (f *failingAppRepo) UpdateMASFields(context.Context, *models.App) error {
	return fmt.Errorf("disk full")
}

func TestMatchAppWriteFailureLeavesFound(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	app := insertTestApp(t, repos, "https://example.com/app/pixelpress", "PixelPress", "Fjord Software")
	searcher := &fakeSearcher{results: map[string][]itunes.Result{
		"PixelPress": {{
			TrackID:      9,
			TrackName:    "PixelPress",
			TrackViewURL: "https://apps.apple.com/us/app/id9",
			ArtistName:   "Fjord Software",
		}},
	}}
	repos.App = &failingAppRepo{AppRepository: repos.App}
	svc := NewMatchService(testConfig(), repos, searcher, testLogger())

	_, err := svc.MatchApp(ctx, app.ID)
	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *StoreError", err)
	}

	// The attempt is persisted as found, never confirmed.
	attempt, _ := repos.MatchAttempt.GetByAppID(ctx, app.ID)
	if attempt == nil || attempt.Status != models.MatchStatusFound {
		t.Errorf("attempt = %+v", attempt)
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"PixelPress", "PixelPress", 1.0},
		{"PixelPress", "pixelpress", 1.0},
		{"PixelPress™", "PixelPress", 1.0},
		{"PixelPress", "PixelPress Pro", 0.85},
		{"", "PixelPress", 0},
	}
	for _, tt := range tests {
		if got := similarity(tt.a, tt.b); got != tt.want {
			t.Errorf("similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}

	// Partial token overlap lands strictly between zero and containment.
	got := similarity("Fjord Software Studio", "Fjord Labs")
	if got <= 0 || got >= 0.85 {
		t.Errorf("overlap similarity = %v", got)
	}

	// Repeated tokens on one side must not inflate the overlap: the
	// Jaccard index works on sets, so this pair scores 0.7 * 2/3.
	got = similarity("alpha beta gamma", "alpha alpha alpha alpha alpha beta beta beta beta beta")
	if got < 0 || got > 1 {
		t.Fatalf("similarity out of range: %v", got)
	}
	if want := 0.7 * 2.0 / 3.0; got != want {
		t.Errorf("duplicated-token similarity = %v, want %v", got, want)
	}
}

func TestMatchAppSkipsCandidatesWithoutStoreIdentifiers(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	// The exact-name result is missing its store URL; the usable
	// containment result must win despite the lower score.
	app := insertTestApp(t, repos, "https://example.com/app/pixelpress", "PixelPress", "")
	searcher := &fakeSearcher{results: map[string][]itunes.Result{
		"PixelPress": {
			{
				TrackID:    111,
				TrackName:  "PixelPress",
				ArtistName: "Fjord Software",
			},
			{
				TrackID:      222,
				TrackName:    "PixelPress Pro",
				TrackViewURL: "https://apps.apple.com/us/app/id222",
				ArtistName:   "Fjord Software",
			},
		},
	}}
	svc := NewMatchService(testConfig(), repos, searcher, testLogger())

	result, err := svc.MatchApp(ctx, app.ID)
	if err != nil {
		t.Fatalf("MatchApp: %v", err)
	}
	if result.Status != models.MatchStatusFound {
		t.Errorf("status = %s", result.Status)
	}
	if result.MASID != "222" || result.MASURL == "" {
		t.Errorf("result = %+v, want the usable candidate", result)
	}
}

func TestMatchAppAllCandidatesUnusableFails(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	app := insertTestApp(t, repos, "https://example.com/app/pixelpress", "PixelPress", "Fjord Software")
	searcher := &fakeSearcher{results: map[string][]itunes.Result{
		"PixelPress": {{
			TrackID:    333,
			TrackName:  "PixelPress",
			ArtistName: "Fjord Software",
		}},
	}}
	svc := NewMatchService(testConfig(), repos, searcher, testLogger())

	result, err := svc.MatchApp(ctx, app.ID)
	if err != nil {
		t.Fatalf("MatchApp: %v", err)
	}
	if result.Status != models.MatchStatusFailed {
		t.Errorf("status = %s", result.Status)
	}
	if result.Error != "no usable candidate" {
		t.Errorf("error = %q", result.Error)
	}

	// A found attempt always carries both identifiers; here it must not
	// reach found at all, and the catalog record stays untouched.
	got, _ := repos.App.GetByID(ctx, app.ID)
	if got.IsOnMAS || got.MASID != "" || got.MASURL != "" {
		t.Errorf("app modified: %+v", got)
	}
}

func TestMatchAppAutoApplyBoundary(t *testing.T) {
	// Exact name (1.0) with an unrelated developer (0) puts the combined
	// confidence exactly at the name weight, pinning the threshold edge.
	newCase := func(t *testing.T, nameWeight float64) (*repository.Repositories, *MatchService, *models.App) {
		t.Helper()
		repos := setupTestRepos(t)
		app := insertTestApp(t, repos, "https://example.com/app/pixelpress", "PixelPress", "Fjord Software")
		searcher := &fakeSearcher{results: map[string][]itunes.Result{
			"PixelPress": {{
				TrackID:      555,
				TrackName:    "PixelPress",
				TrackViewURL: "https://apps.apple.com/us/app/id555",
				ArtistName:   "Unrelated Corp",
				SellerName:   "Unrelated Corp",
			}},
		}}
		cfg := testConfig()
		cfg.MatchNameWeight = nameWeight
		return repos, NewMatchService(cfg, repos, searcher, testLogger()), app
	}

	t.Run("just below threshold stays found", func(t *testing.T) {
		repos, svc, app := newCase(t, 0.79)

		result, err := svc.MatchApp(context.Background(), app.ID)
		if err != nil {
			t.Fatalf("MatchApp: %v", err)
		}
		if result.Confidence != 0.79 {
			t.Fatalf("confidence = %v, want 0.79", result.Confidence)
		}
		if result.Status != models.MatchStatusFound || result.Applied {
			t.Errorf("result = %+v, want found and not applied", result)
		}
		got, _ := repos.App.GetByID(context.Background(), app.ID)
		if got.IsOnMAS || got.MASID != "" || got.MatchedAt != nil {
			t.Errorf("catalog written below threshold: %+v", got)
		}
	})

	t.Run("at threshold applies", func(t *testing.T) {
		repos, svc, app := newCase(t, 0.8)

		result, err := svc.MatchApp(context.Background(), app.ID)
		if err != nil {
			t.Fatalf("MatchApp: %v", err)
		}
		if result.Confidence != 0.8 {
			t.Fatalf("confidence = %v, want 0.8", result.Confidence)
		}
		if result.Status != models.MatchStatusConfirmed || !result.Applied {
			t.Errorf("result = %+v, want confirmed and applied", result)
		}
		got, _ := repos.App.GetByID(context.Background(), app.ID)
		if !got.IsOnMAS || got.MASID != "555" {
			t.Errorf("catalog not written at threshold: %+v", got)
		}
	})
}
