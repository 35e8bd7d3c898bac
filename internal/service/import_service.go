package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/appgrove/ingest-api/internal/config"
	"github.com/appgrove/ingest-api/internal/metrics"
	"github.com/appgrove/ingest-api/internal/models"
	"github.com/appgrove/ingest-api/internal/repository"
)

// ImportService writes scraped apps into the catalog under a time budget.
type ImportService struct {
	cfg    *config.Config
	repos  *repository.Repositories
	logger *slog.Logger

	// now is swappable for budget tests.
	now func() time.Time
}

// NewImportService creates a new import service.
func NewImportService(cfg *config.Config, repos *repository.Repositories, logger *slog.Logger) *ImportService {
	return &ImportService{
		cfg:    cfg,
		repos:  repos,
		logger: logger,
		now:    time.Now,
	}
}

// ItemStatus describes what happened to a single item of a batch.
type ItemStatus string

const (
	ItemImported ItemStatus = "imported"
	ItemUpdated  ItemStatus = "updated"
	ItemSkipped  ItemStatus = "skipped"
)

// ItemResult reports the outcome of one batch item.
type ItemResult struct {
	SourceURL string     `json:"source_url"`
	Status    ItemStatus `json:"status"`
	AppID     string     `json:"app_id,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// BatchReport is the outcome of one import batch.
type BatchReport struct {
	Imported  int          `json:"imported"`
	Updated   int          `json:"updated"`
	Skipped   int          `json:"skipped"`
	Items     []ItemResult `json:"items"`
	TimedOut  bool         `json:"timed_out"`
	SessionID string       `json:"session_id,omitempty"`
}

// ImportBatch upserts the given apps one at a time, isolating per-item
// failures, under the configured wall-clock budget measured from
// invocation start. On budget exhaustion the remaining items are marked
// skipped and the completed work stands. With a category URL and at
// least one successful write, the newest scraped session of the category
// is flipped to imported with the final counts.
func (s *ImportService) ImportBatch(ctx context.Context, apps []models.ScrapedApp, categoryURL string) (*BatchReport, error) {
	start := s.now()
	deadline := start.Add(s.cfg.ImportBudget)
	report := &BatchReport{}

	for i := range apps {
		if !s.now().Before(deadline) {
			// Budget exhausted: everything not yet processed is skipped.
			for j := i; j < len(apps); j++ {
				report.addItem(ItemResult{
					SourceURL: apps[j].SourceURL,
					Status:    ItemSkipped,
					Error:     "time budget exhausted",
				})
			}
			report.TimedOut = true
			break
		}
		report.addItem(s.importOne(ctx, &apps[i]))
	}

	metrics.ImportDuration.Observe(s.now().Sub(start).Seconds())

	// Session update only when something landed and time remains. A
	// timed-out batch leaves the page in scraped state for a re-run.
	successful := report.Imported + report.Updated
	if categoryURL != "" && successful > 0 && !report.TimedOut {
		if !s.now().Before(deadline) {
			report.TimedOut = true
		} else {
			report.SessionID = s.markPageImported(ctx, categoryURL, report)
		}
	}

	s.logger.Info("import batch finished",
		"imported", report.Imported,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"timed_out", report.TimedOut,
		"duration_ms", s.now().Sub(start).Milliseconds(),
	)

	if report.TimedOut {
		return report, &TimeoutError{Op: "import batch"}
	}
	return report, nil
}

// importOne validates and upserts one scraped app. Failures are contained
// to the item.
func (s *ImportService) importOne(ctx context.Context, scraped *models.ScrapedApp) ItemResult {
	item := ItemResult{SourceURL: scraped.SourceURL}

	if strings.TrimSpace(scraped.SourceURL) == "" {
		item.Status = ItemSkipped
		item.Error = "missing source url"
		return item
	}
	if strings.TrimSpace(scraped.Name) == "" {
		item.Status = ItemSkipped
		item.Error = "missing name"
		return item
	}

	app := &models.App{
		ID:             ulid.Make().String(),
		SourceURL:      scraped.SourceURL,
		Name:           scraped.Name,
		Developer:      scraped.Developer,
		Version:        scraped.Version,
		PriceText:      scraped.PriceText,
		SizeBytes:      scraped.SizeBytes,
		Category:       scraped.Category,
		ScreenshotURLs: scraped.ScreenshotURLs,
		RatingText:     scraped.RatingText,
	}

	created, err := s.repos.App.Upsert(ctx, app)
	if err != nil {
		s.logger.Warn("item import failed", "source_url", scraped.SourceURL, "error", err)
		item.Status = ItemSkipped
		item.Error = err.Error()
		return item
	}

	if created {
		item.Status = ItemImported
		item.AppID = app.ID
		metrics.AppsImported.Inc()
	} else {
		item.Status = ItemUpdated
		// Report the stored row's ID, not the discarded candidate ULID.
		if stored, err := s.repos.App.GetBySourceURL(ctx, scraped.SourceURL); err == nil && stored != nil {
			item.AppID = stored.ID
		}
		metrics.AppsUpdated.Inc()
	}
	return item
}

// markPageImported flips the newest scraped session of the category.
// Best-effort: a failure is logged, the batch result stands.
func (s *ImportService) markPageImported(ctx context.Context, categoryURL string, report *BatchReport) string {
	category, err := s.repos.Category.GetByURL(ctx, categoryURL)
	if err != nil || category == nil {
		s.logger.Warn("session update skipped, category not found",
			"category_url", categoryURL, "error", err)
		return ""
	}
	session, err := s.repos.ImportSession.MarkLatestScrapedImported(ctx,
		category.ID, report.Imported+report.Updated, report.Skipped)
	if err != nil {
		s.logger.Warn("session update failed", "category_url", categoryURL, "error", err)
		return ""
	}
	if session == nil {
		s.logger.Warn("no scraped session to mark imported", "category_url", categoryURL)
		return ""
	}
	return session.ID
}

func (r *BatchReport) addItem(item ItemResult) {
	r.Items = append(r.Items, item)
	switch item.Status {
	case ItemImported:
		r.Imported++
	case ItemUpdated:
		r.Updated++
	case ItemSkipped:
		r.Skipped++
		metrics.AppsSkipped.Inc()
	}
}
