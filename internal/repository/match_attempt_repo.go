package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/appgrove/ingest-api/internal/models"
)

// SQLiteMatchAttemptRepository implements MatchAttemptRepository for SQLite.
type SQLiteMatchAttemptRepository struct {
	db *sql.DB
}

// NewSQLiteMatchAttemptRepository creates a new SQLite match attempt repository.
func NewSQLiteMatchAttemptRepository(db *sql.DB) *SQLiteMatchAttemptRepository {
	return &SQLiteMatchAttemptRepository{db: db}
}

const attemptColumns = `id, app_id, search_term, developer_name, raw_response, confidence,
	status, mas_id, mas_url, error_message, created_at, updated_at`

// Upsert writes the attempt for attempt.AppID, replacing any prior one.
// The row's created_at survives retries; everything else reflects the
// latest invocation.
func (r *SQLiteMatchAttemptRepository) Upsert(ctx context.Context, attempt *models.MatchAttempt) error {
	query := `
		INSERT INTO itunes_match_attempts (id, app_id, search_term, developer_name,
			raw_response, confidence, status, mas_id, mas_url, error_message,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(app_id) DO UPDATE SET
			search_term = excluded.search_term,
			developer_name = excluded.developer_name,
			raw_response = excluded.raw_response,
			confidence = excluded.confidence,
			status = excluded.status,
			mas_id = excluded.mas_id,
			mas_url = excluded.mas_url,
			error_message = excluded.error_message,
			updated_at = excluded.updated_at
	`
	now := time.Now().UTC()
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = now
	}
	attempt.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, query,
		attempt.ID,
		attempt.AppID,
		attempt.SearchTerm,
		attempt.DeveloperName,
		nullString(attempt.RawResponse),
		attempt.Confidence,
		attempt.Status,
		attempt.MASID,
		attempt.MASURL,
		nullString(attempt.ErrorMessage),
		attempt.CreatedAt.Format(time.RFC3339),
		attempt.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert match attempt: %w", err)
	}
	return nil
}

func (r *SQLiteMatchAttemptRepository) GetByAppID(ctx context.Context, appID string) (*models.MatchAttempt, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+attemptColumns+` FROM itunes_match_attempts WHERE app_id = ?`, appID)

	var a models.MatchAttempt
	var rawResponse, errorMessage sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(
		&a.ID,
		&a.AppID,
		&a.SearchTerm,
		&a.DeveloperName,
		&rawResponse,
		&a.Confidence,
		&a.Status,
		&a.MASID,
		&a.MASURL,
		&errorMessage,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan match attempt: %w", err)
	}
	a.RawResponse = rawResponse.String
	a.ErrorMessage = errorMessage.String
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &a, nil
}

func (r *SQLiteMatchAttemptRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM itunes_match_attempts GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count match attempts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
