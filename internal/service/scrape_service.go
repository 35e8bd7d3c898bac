package service

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/appgrove/ingest-api/internal/config"
	"github.com/appgrove/ingest-api/internal/metrics"
	"github.com/appgrove/ingest-api/internal/models"
	"github.com/appgrove/ingest-api/internal/repository"
	"github.com/appgrove/ingest-api/internal/scrape"
)

// ListingFetcher fetches listing pages and item documents.
type ListingFetcher interface {
	FetchListingPage(ctx context.Context, categoryURL string, page int) (*scrape.ListingPage, error)
	FetchDocument(ctx context.Context, rawURL string) (string, error)
}

// ScrapeService crawls category listings and records page progress.
type ScrapeService struct {
	cfg     *config.Config
	repos   *repository.Repositories
	fetcher ListingFetcher
	logger  *slog.Logger
}

// NewScrapeService creates a new scrape service.
func NewScrapeService(cfg *config.Config, repos *repository.Repositories, fetcher ListingFetcher, logger *slog.Logger) *ScrapeService {
	return &ScrapeService{
		cfg:     cfg,
		repos:   repos,
		fetcher: fetcher,
		logger:  logger,
	}
}

// ScrapedPage is the result of crawling one listing page.
type ScrapedPage struct {
	PageNumber   int                 `json:"page_number"`
	SessionID    string              `json:"session_id"`
	AppURLs      []string            `json:"app_urls"`
	NewURLs      int                 `json:"new_urls"`
	ExistingURLs int                 `json:"existing_urls"`
	Previews     []models.ScrapedApp `json:"previews,omitempty"`
}

// ScrapeResult is the outcome of one ScrapeCategory call.
type ScrapeResult struct {
	CategoryID   string        `json:"category_id"`
	CategoryName string        `json:"category_name"`
	CategoryURL  string        `json:"category_url"`
	Pages        []ScrapedPage `json:"pages"`
	EndReached   bool          `json:"end_reached"`
}

// ScrapeCategory crawls up to pageLimit listing pages of a category,
// starting after the highest page already recorded. Each fetched page
// gets a session row in 'scraped' state; an empty page means the end of
// the listing and stops the crawl without a session row.
func (s *ScrapeService) ScrapeCategory(ctx context.Context, categoryURL string, pageLimit int) (*ScrapeResult, error) {
	if err := validateHTTPURL(categoryURL); err != nil {
		return nil, err
	}
	if pageLimit <= 0 {
		pageLimit = 1
	}

	result := &ScrapeResult{CategoryURL: categoryURL}

	// A category already on record resumes after its last recorded page.
	var category *models.Category
	startPage := 1
	existing, err := s.repos.Category.GetByURL(ctx, categoryURL)
	if err != nil {
		return nil, &StoreError{Op: "get category", Err: err}
	}
	if existing != nil {
		category = existing
		max, err := s.repos.ImportSession.MaxPageNumber(ctx, category.ID)
		if err != nil {
			return nil, &StoreError{Op: "get max page", Err: err}
		}
		startPage = max + 1
	}

	for i := 0; i < pageLimit; i++ {
		page := startPage + i

		listing, err := s.fetcher.FetchListingPage(ctx, categoryURL, page)
		if err != nil {
			metrics.PagesScraped.WithLabelValues("error").Inc()
			if len(result.Pages) > 0 {
				// Earlier pages of this call are already recorded; keep them.
				s.logger.Warn("listing fetch failed mid-crawl", "page", page, "error", err)
				return result, nil
			}
			return nil, err
		}

		if len(listing.AppURLs) == 0 {
			// Past the end of the listing.
			metrics.PagesScraped.WithLabelValues("empty").Inc()
			result.EndReached = true
			break
		}
		metrics.PagesScraped.WithLabelValues("ok").Inc()

		if category == nil {
			category, err = s.repos.Category.GetOrCreateByURL(ctx, listing.CategoryName, categoryURL)
			if err != nil {
				return nil, &StoreError{Op: "create category", Err: err}
			}
		}

		session := &models.ImportSession{
			ID:         ulid.Make().String(),
			CategoryID: category.ID,
			Name:       models.PageName(page),
			PageNumber: page,
			Status:     models.SessionStatusScraped,
			CreatedAt:  time.Now().UTC(),
			UpdatedAt:  time.Now().UTC(),
		}
		if err := s.repos.ImportSession.Create(ctx, session); err != nil {
			return nil, &StoreError{Op: "create session", Err: err}
		}

		existingURLs, err := s.repos.App.ExistingSourceURLs(ctx, listing.AppURLs)
		if err != nil {
			return nil, &StoreError{Op: "check existing apps", Err: err}
		}

		scraped := ScrapedPage{
			PageNumber: page,
			SessionID:  session.ID,
			AppURLs:    listing.AppURLs,
		}
		for _, u := range listing.AppURLs {
			if existingURLs[u] {
				scraped.ExistingURLs++
			} else {
				scraped.NewURLs++
			}
		}
		scraped.Previews = s.fetchPreviews(ctx, listing.AppURLs)

		result.Pages = append(result.Pages, scraped)
		result.CategoryName = category.Name
		result.CategoryID = category.ID

		s.logger.Info("listing page scraped",
			"category", category.Name,
			"page", page,
			"apps", len(listing.AppURLs),
			"new", scraped.NewURLs,
		)
	}

	if category != nil {
		result.CategoryID = category.ID
		result.CategoryName = category.Name
	}
	return result, nil
}

// fetchPreviews fetches and extracts the first PreviewLimit item pages
// concurrently. A failed preview is logged and omitted; it never fails
// the scrape.
func (s *ScrapeService) fetchPreviews(ctx context.Context, urls []string) []models.ScrapedApp {
	limit := s.cfg.PreviewLimit
	if limit <= 0 || len(urls) == 0 {
		return nil
	}
	if len(urls) < limit {
		limit = len(urls)
	}

	previews := make([]*models.ScrapedApp, limit)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(3)
	for i := 0; i < limit; i++ {
		g.Go(func() error {
			u := urls[i]
			html, err := s.fetcher.FetchDocument(gctx, u)
			if err != nil {
				s.logger.Warn("preview fetch failed", "url", u, "error", err)
				return nil
			}
			app := scrape.ExtractApp(u, html)
			previews[i] = &app
			return nil
		})
	}
	_ = g.Wait()

	var out []models.ScrapedApp
	for _, p := range previews {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

func validateHTTPURL(raw string) error {
	if raw == "" {
		return &ValidationError{Field: "category_url", Message: "required"}
	}
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return &ValidationError{Field: "category_url", Message: "must be an absolute http(s) URL"}
	}
	return nil
}
