package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/appgrove/ingest-api/internal/models"
)

// SQLiteImportSessionRepository implements ImportSessionRepository for SQLite.
type SQLiteImportSessionRepository struct {
	db *sql.DB
}

// NewSQLiteImportSessionRepository creates a new SQLite import session repository.
func NewSQLiteImportSessionRepository(db *sql.DB) *SQLiteImportSessionRepository {
	return &SQLiteImportSessionRepository{db: db}
}

const sessionColumns = `id, category_id, name, page_number, status, apps_imported, apps_skipped, created_at, updated_at`

func (r *SQLiteImportSessionRepository) Create(ctx context.Context, session *models.ImportSession) error {
	query := `
		INSERT INTO import_sessions (id, category_id, name, page_number, status,
			apps_imported, apps_skipped, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.CategoryID,
		session.Name,
		session.PageNumber,
		session.Status,
		session.AppsImported,
		session.AppsSkipped,
		session.CreatedAt.Format(time.RFC3339),
		session.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create import session: %w", err)
	}
	return nil
}

func (r *SQLiteImportSessionRepository) GetByID(ctx context.Context, id string) (*models.ImportSession, error) {
	return r.scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM import_sessions WHERE id = ?`, id))
}

// MarkLatestScrapedImported atomically claims the newest scraped session
// of a category. UPDATE ... RETURNING against a guarded subselect keeps
// the read and the state flip in one statement, so two concurrent import
// passes can never both claim the same page.
func (r *SQLiteImportSessionRepository) MarkLatestScrapedImported(ctx context.Context, categoryID string, imported, skipped int) (*models.ImportSession, error) {
	query := `
		UPDATE import_sessions
		SET status = 'imported', apps_imported = ?, apps_skipped = ?, updated_at = ?
		WHERE id = (
			SELECT id FROM import_sessions
			WHERE category_id = ? AND status = 'scraped'
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) AND status = 'scraped'
		RETURNING ` + sessionColumns
	row := r.db.QueryRowContext(ctx, query,
		imported, skipped, time.Now().UTC().Format(time.RFC3339), categoryID)
	return r.scanSession(row)
}

func (r *SQLiteImportSessionRepository) ListByCategory(ctx context.Context, categoryID string) ([]*models.ImportSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM import_sessions
		WHERE category_id = ? ORDER BY page_number ASC`
	rows, err := r.db.QueryContext(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query import sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.ImportSession
	for rows.Next() {
		s, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *SQLiteImportSessionRepository) MaxPageNumber(ctx context.Context, categoryID string) (int, error) {
	var max sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(page_number) FROM import_sessions WHERE category_id = ?`, categoryID,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to query max page number: %w", err)
	}
	return int(max.Int64), nil
}

func (r *SQLiteImportSessionRepository) scanSession(row rowScanner) (*models.ImportSession, error) {
	s, err := scanSessionRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func scanSessionRow(row rowScanner) (*models.ImportSession, error) {
	var s models.ImportSession
	var createdAt, updatedAt string
	err := row.Scan(
		&s.ID,
		&s.CategoryID,
		&s.Name,
		&s.PageNumber,
		&s.Status,
		&s.AppsImported,
		&s.AppsSkipped,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan import session: %w", err)
	}
	s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	s.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &s, nil
}
