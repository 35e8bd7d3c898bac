package service

import (
	"context"
	"log/slog"

	"github.com/appgrove/ingest-api/internal/models"
	"github.com/appgrove/ingest-api/internal/repository"
)

// ProgressService computes per-category crawl progress from session rows.
type ProgressService struct {
	repos  *repository.Repositories
	logger *slog.Logger
}

// NewProgressService creates a new progress service.
func NewProgressService(repos *repository.Repositories, logger *slog.Logger) *ProgressService {
	return &ProgressService{repos: repos, logger: logger}
}

// GetCategoryProgress aggregates the session rows of a category. Nothing
// here is stored; the numbers are derived on every call.
func (s *ProgressService) GetCategoryProgress(ctx context.Context, categoryURL string) (*models.CategoryProgress, error) {
	if err := validateHTTPURL(categoryURL); err != nil {
		return nil, err
	}

	category, err := s.repos.Category.GetByURL(ctx, categoryURL)
	if err != nil {
		return nil, &StoreError{Op: "get category", Err: err}
	}
	if category == nil {
		return nil, &NotFoundError{Resource: "category", Key: categoryURL}
	}

	sessions, err := s.repos.ImportSession.ListByCategory(ctx, category.ID)
	if err != nil {
		return nil, &StoreError{Op: "list sessions", Err: err}
	}

	progress := &models.CategoryProgress{
		CategoryURL:  category.URL,
		CategoryName: category.Name,
	}
	maxPage := 0
	pendingPage := 0
	for _, session := range sessions {
		// The "Page <N>" row name is the authoritative page number for
		// rows written by older tooling; the column is the fallback.
		page, ok := models.ParsePageName(session.Name)
		if !ok {
			page = session.PageNumber
		}

		progress.TotalPages++
		// Every session row was scraped; imported is the later state.
		progress.PagesScraped++
		if page > maxPage {
			maxPage = page
		}
		switch session.Status {
		case models.SessionStatusImported:
			progress.PagesImported++
		case models.SessionStatusScraped:
			progress.PagesPending++
			if pendingPage == 0 || page < pendingPage {
				pendingPage = page
			}
		}
	}
	progress.NextPageToScrape = maxPage + 1
	progress.NextPageToImport = pendingPage
	return progress, nil
}
