package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/appgrove/ingest-api/internal/database/migrations"
	"github.com/appgrove/ingest-api/internal/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
// It runs migrations and returns a database connection that will be cleaned up
// when the test completes.
func setupTestDB(t *testing.T) *sql.DB {
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

	return db
}

// setupTestRepos creates all repositories using a test database.
func setupTestRepos(t *testing.T) *Repositories {
	t.Helper()
	db := setupTestDB(t)
	return NewRepositories(db)
}

// newTestApp builds an app record with the given source URL.
func newTestApp(sourceURL, name string) *models.App {
	now := time.Now().UTC()
	return &models.App{
		ID:        ulid.Make().String(),
		SourceURL: sourceURL,
		Name:      name,
		Developer: "Test Developer",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// newTestSession builds a session row for a category page.
func newTestSession(categoryID string, page int, status models.SessionStatus) *models.ImportSession {
	now := time.Now().UTC()
	return &models.ImportSession{
		ID:         ulid.Make().String(),
		CategoryID: categoryID,
		Name:       models.PageName(page),
		PageNumber: page,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
