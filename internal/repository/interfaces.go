// Package repository defines repository interfaces for data access.
package repository

import (
	"context"
	"database/sql"

	"github.com/appgrove/ingest-api/internal/models"
)

// AppRepository defines methods for catalog app data access.
type AppRepository interface {
	Create(ctx context.Context, app *models.App) error
	GetByID(ctx context.Context, id string) (*models.App, error)
	GetBySourceURL(ctx context.Context, sourceURL string) (*models.App, error)
	// Upsert inserts the app or, when source_url already exists, updates the
	// scraped fields in place. Store-matching fields are left untouched.
	Upsert(ctx context.Context, app *models.App) (created bool, err error)
	// UpdateMASFields writes only the store-matching fields of an app.
	UpdateMASFields(ctx context.Context, app *models.App) error
	// ExistingSourceURLs returns which of the given URLs already have a row.
	ExistingSourceURLs(ctx context.Context, urls []string) (map[string]bool, error)
	ListAll(ctx context.Context) ([]*models.App, error)
	// ListUnmatched returns apps with no confirmed or failed match attempt,
	// oldest first.
	ListUnmatched(ctx context.Context, limit int) ([]*models.App, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// CategoryRepository defines methods for category data access.
type CategoryRepository interface {
	GetOrCreateByURL(ctx context.Context, name, url string) (*models.Category, error)
	GetByID(ctx context.Context, id string) (*models.Category, error)
	GetByURL(ctx context.Context, url string) (*models.Category, error)
	List(ctx context.Context) ([]*models.Category, error)
}

// ImportSessionRepository defines methods for per-page import session access.
type ImportSessionRepository interface {
	Create(ctx context.Context, session *models.ImportSession) error
	GetByID(ctx context.Context, id string) (*models.ImportSession, error)
	// MarkLatestScrapedImported atomically flips the newest 'scraped'
	// session of a category to 'imported' and records counts. Returns the
	// updated session, or nil when no scraped session exists.
	MarkLatestScrapedImported(ctx context.Context, categoryID string, imported, skipped int) (*models.ImportSession, error)
	ListByCategory(ctx context.Context, categoryID string) ([]*models.ImportSession, error)
	// MaxPageNumber returns the highest page number recorded for a
	// category, or 0 when the category has no sessions.
	MaxPageNumber(ctx context.Context, categoryID string) (int, error)
}

// MatchAttemptRepository defines methods for store match attempt access.
type MatchAttemptRepository interface {
	// Upsert inserts or replaces the attempt for attempt.AppID. An app
	// carries at most one attempt row; retries overwrite it.
	Upsert(ctx context.Context, attempt *models.MatchAttempt) error
	GetByAppID(ctx context.Context, appID string) (*models.MatchAttempt, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// Repositories holds all repository instances.
type Repositories struct {
	App           AppRepository
	Category      CategoryRepository
	ImportSession ImportSessionRepository
	MatchAttempt  MatchAttemptRepository
}

// NewRepositories creates all repository instances.
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		App:           NewSQLiteAppRepository(db),
		Category:      NewSQLiteCategoryRepository(db),
		ImportSession: NewSQLiteImportSessionRepository(db),
		MatchAttempt:  NewSQLiteMatchAttemptRepository(db),
	}
}
