package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/appgrove/ingest-api/internal/models"
)

// SQLiteAppRepository implements AppRepository for SQLite.
type SQLiteAppRepository struct {
	db *sql.DB
}

// NewSQLiteAppRepository creates a new SQLite app repository.
func NewSQLiteAppRepository(db *sql.DB) *SQLiteAppRepository {
	return &SQLiteAppRepository{db: db}
}

const appColumns = `id, source_url, name, developer, version, price_text, size_bytes,
	category, screenshot_urls, rating_text, mas_id, mas_url, is_on_mas, matched_at,
	created_at, updated_at`

func (r *SQLiteAppRepository) Create(ctx context.Context, app *models.App) error {
	query := `
		INSERT INTO apps (id, source_url, name, developer, version, price_text, size_bytes,
			category, screenshot_urls, rating_text, mas_id, mas_url, is_on_mas, matched_at,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		app.ID,
		app.SourceURL,
		app.Name,
		app.Developer,
		app.Version,
		app.PriceText,
		app.SizeBytes,
		app.Category,
		nullString(encodeURLList(app.ScreenshotURLs)),
		app.RatingText,
		app.MASID,
		app.MASURL,
		boolToInt(app.IsOnMAS),
		nullTime(app.MatchedAt),
		app.CreatedAt.Format(time.RFC3339),
		app.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}
	return nil
}

func (r *SQLiteAppRepository) GetByID(ctx context.Context, id string) (*models.App, error) {
	query := `SELECT ` + appColumns + ` FROM apps WHERE id = ?`
	return r.scanApp(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteAppRepository) GetBySourceURL(ctx context.Context, sourceURL string) (*models.App, error) {
	query := `SELECT ` + appColumns + ` FROM apps WHERE source_url = ?`
	return r.scanApp(r.db.QueryRowContext(ctx, query, sourceURL))
}

// Upsert inserts a new row or refreshes the scraped fields of the existing
// row for the same source_url. MAS fields and created_at survive re-scrapes.
func (r *SQLiteAppRepository) Upsert(ctx context.Context, app *models.App) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	res, err := r.db.ExecContext(ctx, `
		UPDATE apps SET name = ?, developer = ?, version = ?, price_text = ?,
			size_bytes = ?, category = ?, screenshot_urls = ?, rating_text = ?, updated_at = ?
		WHERE source_url = ?
	`,
		app.Name,
		app.Developer,
		app.Version,
		app.PriceText,
		app.SizeBytes,
		app.Category,
		nullString(encodeURLList(app.ScreenshotURLs)),
		app.RatingText,
		now,
		app.SourceURL,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert app: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return false, fmt.Errorf("failed to upsert app: %w", err)
	} else if affected > 0 {
		return false, nil
	}

	app.CreatedAt, _ = time.Parse(time.RFC3339, now)
	app.UpdatedAt = app.CreatedAt
	if err := r.Create(ctx, app); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateMASFields writes the store-matching columns only. Scraped columns
// are never touched here.
func (r *SQLiteAppRepository) UpdateMASFields(ctx context.Context, app *models.App) error {
	query := `
		UPDATE apps SET mas_id = ?, mas_url = ?, is_on_mas = ?, matched_at = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		app.MASID,
		app.MASURL,
		boolToInt(app.IsOnMAS),
		nullTime(app.MatchedAt),
		time.Now().UTC().Format(time.RFC3339),
		app.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update app MAS fields: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update app MAS fields: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("app not found: %s", app.ID)
	}
	return nil
}

func (r *SQLiteAppRepository) ExistingSourceURLs(ctx context.Context, urls []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(urls) == 0 {
		return existing, nil
	}

	placeholders := strings.Repeat("?,", len(urls))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(urls))
	for i, u := range urls {
		args[i] = u
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT source_url FROM apps WHERE source_url IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing source urls: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		existing[u] = true
	}
	return existing, rows.Err()
}

func (r *SQLiteAppRepository) ListAll(ctx context.Context) ([]*models.App, error) {
	query := `SELECT ` + appColumns + ` FROM apps ORDER BY created_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query apps: %w", err)
	}
	defer rows.Close()

	var apps []*models.App
	for rows.Next() {
		app, err := r.scanAppFromRows(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func (r *SQLiteAppRepository) ListUnmatched(ctx context.Context, limit int) ([]*models.App, error) {
	query := `SELECT ` + appColumns + ` FROM apps a
		WHERE NOT EXISTS (
			SELECT 1 FROM itunes_match_attempts m
			WHERE m.app_id = a.id AND m.status IN ('confirmed', 'failed')
		)
		ORDER BY a.created_at ASC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unmatched apps: %w", err)
	}
	defer rows.Close()

	var apps []*models.App
	for rows.Next() {
		app, err := r.scanAppFromRows(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func (r *SQLiteAppRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM apps WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete app: %w", err)
	}
	return nil
}

func (r *SQLiteAppRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM apps`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count apps: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteAppRepository) scanApp(row rowScanner) (*models.App, error) {
	app, err := scanAppRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return app, err
}

func (r *SQLiteAppRepository) scanAppFromRows(rows *sql.Rows) (*models.App, error) {
	return scanAppRow(rows)
}

func scanAppRow(row rowScanner) (*models.App, error) {
	var app models.App
	var screenshots, matchedAt sql.NullString
	var isOnMAS int
	var createdAt, updatedAt string

	err := row.Scan(
		&app.ID,
		&app.SourceURL,
		&app.Name,
		&app.Developer,
		&app.Version,
		&app.PriceText,
		&app.SizeBytes,
		&app.Category,
		&screenshots,
		&app.RatingText,
		&app.MASID,
		&app.MASURL,
		&isOnMAS,
		&matchedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan app: %w", err)
	}

	app.IsOnMAS = isOnMAS != 0
	app.ScreenshotURLs = decodeURLList(screenshots.String)
	if matchedAt.Valid {
		if t, err := time.Parse(time.RFC3339, matchedAt.String); err == nil {
			app.MatchedAt = &t
		}
	}
	app.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	app.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &app, nil
}

func encodeURLList(urls []string) string {
	if len(urls) == 0 {
		return ""
	}
	b, err := json.Marshal(urls)
	if err != nil {
		return ""
	}
	return string(b)
}

func decodeURLList(s string) []string {
	if s == "" {
		return nil
	}
	var urls []string
	if err := json.Unmarshal([]byte(s), &urls); err != nil {
		return nil
	}
	return urls
}

// Helper functions
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
